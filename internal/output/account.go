package output

import (
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rodaine/table"

	"github.com/dmagro/sol-explorer/internal/explorer"
	"github.com/dmagro/sol-explorer/internal/extension"
	"github.com/dmagro/sol-explorer/internal/metadata"
	"github.com/dmagro/sol-explorer/internal/token"
)

const rule = "══════════════════════════════════════════════════════════════"

// Options control what the terminal views include.
type Options struct {
	Raw           bool   // base64 data for unrecognized accounts
	AllExtensions bool   // include marker extensions such as ImmutableOwner
	Network       string // shown in the footer when set
	Now           func() time.Time
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

var titles = map[explorer.Kind]string{
	explorer.KindTokenAccount: "Token Account",
	explorer.KindMint:         "Token Mint",
	explorer.KindMultisig:     "Multisig",
	explorer.KindMetadata:     "Token Metadata",
	explorer.KindWallet:       "Wallet",
	explorer.KindOther:        "Account",
}

func label(w io.Writer, name, value string) {
	fmt.Fprintf(w, "  %s %s\n", padRight(bold(name+":"), 18), value)
}

// RenderAccount writes the terminal view of one account query.
func RenderAccount(w io.Writer, rec *explorer.DisplayRecord, opts Options) {
	fmt.Fprintf(w, "\n%s %s\n", bold(titles[rec.Kind]), cyan(rec.Address.String()))
	fmt.Fprintln(w, rule)

	owner := rec.Owner.String()
	if rec.Program != "" {
		owner += " " + dim("("+rec.Program+")")
	}
	label(w, "Owner Program", owner)
	label(w, "Balance", FormatSOL(rec.Lamports))

	switch rec.Kind {
	case explorer.KindTokenAccount:
		renderTokenAccount(w, rec)
	case explorer.KindMint:
		renderMint(w, rec)
	case explorer.KindMultisig:
		renderMultisig(w, rec)
	case explorer.KindWallet:
		renderWallet(w, rec)
	case explorer.KindOther:
		renderOther(w, rec, opts.Raw)
	}

	renderExtensions(w, explorer.Extensions(rec.Extensions, opts.AllExtensions))
	if rec.Metadata != nil {
		renderMetadata(w, rec.Metadata)
	}
	renderWarnings(w, rec.Warnings)

	fmt.Fprintln(w)
	footer := fmt.Sprintf("slot %s", FormatNumber(rec.Slot))
	if opts.Network != "" {
		footer += " · " + opts.Network
	}
	fmt.Fprintf(w, "  %s\n\n", dim(footer))
}

func renderTokenAccount(w io.Writer, rec *explorer.DisplayRecord) {
	a := rec.TokenAccount
	mint := a.Mint.String()
	if mi := rec.MintInfo; mi != nil && mi.Symbol != "" {
		mint += " " + dim("("+mi.Symbol+")")
	}
	label(w, "Mint", mint)
	label(w, "Token Owner", a.Owner.String())

	if mi := rec.MintInfo; mi != nil {
		amount := FormatAmount(a.Amount, mi.Decimals)
		if mi.Symbol != "" {
			amount += " " + mi.Symbol
		}
		label(w, "Amount", green(amount))
	} else {
		label(w, "Amount", fmt.Sprintf("%s %s", FormatNumber(a.Amount), dim("(raw, decimals unknown)")))
	}

	state := a.State.String()
	if a.State == token.StateFrozen {
		state = yellow(state)
	}
	label(w, "State", state)
	if a.Delegate != nil {
		label(w, "Delegate", fmt.Sprintf("%s (%s delegated)", a.Delegate, FormatNumber(a.DelegatedAmount)))
	}
	if a.IsNative != nil {
		label(w, "Native", fmt.Sprintf("yes, rent reserve %s", FormatSOL(*a.IsNative)))
	}
	if a.CloseAuthority != nil {
		label(w, "Close Authority", a.CloseAuthority.String())
	}
}

func renderMint(w io.Writer, rec *explorer.DisplayRecord) {
	m := rec.Mint
	label(w, "Supply", FormatAmount(m.Supply, m.Decimals))
	label(w, "Decimals", fmt.Sprintf("%d", m.Decimals))
	label(w, "Mint Authority", optKey(m.MintAuthority))
	label(w, "Freeze Authority", optKey(m.FreezeAuthority))
	label(w, "Initialized", yesNo(m.IsInitialized))
}

func renderMultisig(w io.Writer, rec *explorer.DisplayRecord) {
	m := rec.Multisig
	label(w, "Threshold", fmt.Sprintf("%d of %d", m.M, m.N))
	label(w, "Initialized", yesNo(m.IsInitialized))
	fmt.Fprintln(w)
	fmt.Fprintln(w, bold("Signers"))
	for i, s := range m.Signers {
		fmt.Fprintf(w, "  %2d. %s\n", i+1, s)
	}
}

func renderWallet(w io.Writer, rec *explorer.DisplayRecord) {
	fmt.Fprintln(w)
	if len(rec.Holdings) == 0 {
		fmt.Fprintf(w, "  %s\n", dim("No token accounts"))
		return
	}

	fmt.Fprintf(w, "%s (%d)\n", bold("Token Holdings"), len(rec.Holdings))
	tbl := table.New("Token Account", "Mint", "Symbol", "Amount", "Program").WithWriter(w)
	tbl.WithHeaderFormatter(headerFmt)
	for _, h := range rec.Holdings {
		symbol := h.Symbol
		if symbol == "" {
			symbol = "—"
		}
		program := "spl-token"
		if h.Program.Equals(solana.Token2022ProgramID) {
			program = "spl-token-2022"
		}
		tbl.AddRow(shortKey(h.Address), shortKey(h.Mint), symbol, FormatAmount(h.Amount, h.Decimals), program)
	}
	tbl.Print()
}

func renderOther(w io.Writer, rec *explorer.DisplayRecord, raw bool) {
	label(w, "Executable", yesNo(rec.Executable))
	label(w, "Data Length", fmt.Sprintf("%s bytes", FormatNumber(uint64(rec.DataLen))))
	if raw && len(rec.Data) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, bold("Data (base64)"))
		fmt.Fprintf(w, "  %s\n", base64.StdEncoding.EncodeToString(rec.Data))
	}
}

func renderMetadata(w io.Writer, md *metadata.Record) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s\n", bold("Metadata"), dim("("+md.Source+", "+md.Address.String()+")"))
	label(w, "Name", md.Name)
	label(w, "Symbol", md.Symbol)
	label(w, "URI", md.URI)
	label(w, "Update Authority", optKey(md.UpdateAuthority))
	if md.SellerFeeBasisPoints != nil {
		label(w, "Seller Fee", fmt.Sprintf("%d bps", *md.SellerFeeBasisPoints))
	}
	if md.IsMutable != nil {
		label(w, "Mutable", yesNo(*md.IsMutable))
	}
	for _, kv := range md.Additional {
		label(w, kv.Key, kv.Value)
	}
}

func renderExtensions(w io.Writer, exts []extension.Extension) {
	if len(exts) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s (%d)\n", bold("Extensions"), len(exts))
	for _, ext := range exts {
		name := extensionName(ext)
		if strings.HasSuffix(name, "(invalid)") {
			name = red(name)
		}
		fmt.Fprintf(w, "  • %s\n", name)
		for _, f := range extensionFields(ext) {
			fmt.Fprintf(w, "      %s %s\n", dim(f.Name+":"), f.Value)
		}
	}
}

func renderWarnings(w io.Writer, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	fmt.Fprintln(w)
	for _, warn := range warnings {
		fmt.Fprintf(w, "  %s %s\n", yellow("⚠"), warn)
	}
}
