package output

import (
	"fmt"
	"io"

	"github.com/rodaine/table"

	"github.com/dmagro/sol-explorer/internal/rpc"
)

// RenderTransaction writes the terminal view of a confirmed transaction.
func RenderTransaction(w io.Writer, tx *rpc.TransactionRecord, opts Options) {
	fmt.Fprintf(w, "\n%s %s\n", bold("Transaction"), cyan(tx.Signature.String()))
	fmt.Fprintln(w, rule)

	if tx.Success {
		label(w, "Status", green("✓ Success"))
	} else {
		label(w, "Status", red("✗ Failed")+" "+dim(tx.Err))
	}
	label(w, "Slot", FormatNumber(tx.Slot))
	if tx.BlockTime != nil {
		label(w, "Block Time", FormatTimestamp(*tx.BlockTime, opts.now()))
	} else {
		label(w, "Block Time", dim("unknown"))
	}
	label(w, "Version", tx.Version)
	label(w, "Fee", FormatSOL(tx.Fee))
	if tx.ComputeUnits != nil {
		label(w, "Compute Units", FormatNumber(*tx.ComputeUnits))
	}
	label(w, "Blockhash", tx.RecentBlockhash)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s (%d)\n", bold("Accounts"), len(tx.Accounts))
	tbl := table.New("#", "Address", "Flags", "Source", "Balance Change (SOL)").WithWriter(w)
	tbl.WithHeaderFormatter(headerFmt)
	for i, a := range tx.Accounts {
		tbl.AddRow(i, a.Key.String(), accountFlags(a), string(a.Source), colorChange(a.BalanceChange()))
	}
	tbl.Print()

	if len(tx.Instructions) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s (%d)\n", bold("Instructions"), len(tx.Instructions))
		for i, ix := range tx.Instructions {
			fmt.Fprintf(w, "  %d. %s %s\n", i+1, ix.ProgramID, dim(fmt.Sprintf("(%d accounts)", len(ix.Accounts))))
		}
	}

	if len(tx.Logs) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s (%d)\n", bold("Logs"), len(tx.Logs))
		for _, line := range tx.Logs {
			fmt.Fprintf(w, "  %s\n", dim(line))
		}
	}

	if opts.Network != "" {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  %s\n", dim(opts.Network))
	}
	fmt.Fprintln(w)
}

func accountFlags(a rpc.TxAccount) string {
	flags := ""
	if a.Signer {
		flags += "signer "
	}
	if a.Writable {
		flags += "writable"
	} else {
		flags += "readonly"
	}
	return flags
}

func colorChange(delta int64) string {
	s := FormatLamportChange(delta)
	switch {
	case delta > 0:
		return green(s)
	case delta < 0:
		return red(s)
	}
	return dim(s)
}
