package output

import (
	"fmt"
	"io"

	"github.com/rodaine/table"

	"github.com/dmagro/sol-explorer/internal/explorer"
)

// RenderBatch writes one row per queried address, in input order.
func RenderBatch(w io.Writer, rows []explorer.BatchRow) {
	ok := 0
	for _, r := range rows {
		if r.Err == nil {
			ok++
		}
	}

	fmt.Fprintf(w, "\n%s %s\n", bold("Accounts"), dim(fmt.Sprintf("(%d/%d found)", ok, len(rows))))
	fmt.Fprintln(w, rule)

	tbl := table.New("#", "Address", "Kind", "Balance (SOL)", "Details").WithWriter(w)
	tbl.WithHeaderFormatter(headerFmt)
	for i, r := range rows {
		if r.Err != nil {
			tbl.AddRow(i+1, r.Address.String(), red(explorer.Category(r.Err)), "—", r.Err.Error())
			continue
		}
		tbl.AddRow(i+1, r.Address.String(), string(r.Record.Kind), FormatAmount(r.Record.Lamports, SOLDecimals), batchDetails(r.Record))
	}
	tbl.Print()
	fmt.Fprintln(w)
}

func batchDetails(rec *explorer.DisplayRecord) string {
	var s string
	switch rec.Kind {
	case explorer.KindTokenAccount:
		if mi := rec.MintInfo; mi != nil {
			s = fmt.Sprintf("mint %s, amount %s", shortKey(rec.TokenAccount.Mint), FormatAmount(rec.TokenAccount.Amount, mi.Decimals))
		} else {
			s = fmt.Sprintf("mint %s, raw amount %s", shortKey(rec.TokenAccount.Mint), FormatNumber(rec.TokenAccount.Amount))
		}
	case explorer.KindMint:
		s = fmt.Sprintf("supply %s, %d decimals", FormatAmount(rec.Mint.Supply, rec.Mint.Decimals), rec.Mint.Decimals)
	case explorer.KindMultisig:
		s = fmt.Sprintf("%d of %d signers", rec.Multisig.M, rec.Multisig.N)
	case explorer.KindMetadata:
		if rec.Metadata != nil {
			s = fmt.Sprintf("%s (%s)", rec.Metadata.Name, rec.Metadata.Symbol)
		}
	case explorer.KindOther:
		s = fmt.Sprintf("owner %s, %d bytes", shortKey(rec.Owner), rec.DataLen)
	}
	if len(rec.Extensions) > 0 {
		s += fmt.Sprintf(", %d extensions", len(rec.Extensions))
	}
	if len(rec.Warnings) > 0 {
		s += " " + yellow("⚠")
	}
	return s
}
