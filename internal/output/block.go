package output

import (
	"fmt"
	"io"
	"time"

	"github.com/rodaine/table"

	"github.com/dmagro/sol-explorer/internal/explorer"
	"github.com/dmagro/sol-explorer/internal/rpc"
)

// RenderBlocks writes one block summary per row. top limits the program
// table (0 hides it).
func RenderBlocks(w io.Writer, rows []explorer.BlockRow, opts Options, top int) {
	for _, row := range rows {
		if row.Err != nil {
			fmt.Fprintf(w, "\n%s #%s  %s %s\n", bold("Block"), bold(FormatNumber(row.Slot)),
				red("["+explorer.Category(row.Err)+"]"), row.Err)
			continue
		}
		renderBlock(w, row.Block, opts.now(), top)
	}
	if opts.Network != "" {
		fmt.Fprintf(w, "  %s\n", dim(opts.Network))
	}
	fmt.Fprintln(w)
}

func renderBlock(w io.Writer, b *rpc.BlockRecord, now time.Time, top int) {
	fmt.Fprintf(w, "\n%s #%s\n", bold("Block"), bold(FormatNumber(b.Slot)))
	fmt.Fprintln(w, rule)
	label(w, "Blockhash", b.Blockhash)
	label(w, "Parent Slot", FormatNumber(b.ParentSlot))
	if b.BlockHeight != nil {
		label(w, "Block Height", FormatNumber(*b.BlockHeight))
	}
	if b.BlockTime != nil {
		label(w, "Block Time", FormatTimestamp(*b.BlockTime, now))
	}
	if b.Leader != nil {
		label(w, "Leader", b.Leader.String())
		label(w, "Leader Reward", FormatLamportChange(b.LeaderReward)+" SOL")
	}
	nonVote := b.Transactions - b.VoteTransactions
	label(w, "Transactions", fmt.Sprintf("%d non-vote + %d vote = %d total %s",
		nonVote, b.VoteTransactions, b.Transactions, dim(fmt.Sprintf("(%d failed)", b.FailedTransactions))))
	label(w, "Fees", FormatSOL(b.Fees))
	label(w, "Compute Units", FormatNumber(b.ComputeUnits))

	if top <= 0 || len(b.Programs) == 0 {
		return
	}
	programs := b.Programs
	if len(programs) > top {
		programs = programs[:top]
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s\n", bold("Top Programs"), dim(fmt.Sprintf("(%d of %d)", len(programs), len(b.Programs))))
	tbl := table.New("Program", "Top-Level Invocations").WithWriter(w)
	tbl.WithHeaderFormatter(headerFmt)
	for _, p := range programs {
		tbl.AddRow(p.Program.String(), FormatNumber(uint64(p.Invocations)))
	}
	tbl.Print()
}
