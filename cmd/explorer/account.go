package main

import (
	"context"
	"io"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/dmagro/sol-explorer/internal/address"
	"github.com/dmagro/sol-explorer/internal/explorer"
	"github.com/dmagro/sol-explorer/internal/output"
	"github.com/dmagro/sol-explorer/internal/report"
)

func accountCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "account <address>",
		Short: "Inspect any account",
		Long: `Fetch an account and decode it according to its owner program.

Token accounts show their mint and UI amount, mints show supply, authorities,
extensions and metadata, wallets (system accounts) list their token holdings.
Accounts of other programs show owner, balance and data size.

Examples:
  explorer account EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v
  explorer account <wallet> -u devnet
  explorer account <program-account> --raw`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAccount(cmd, flags, "account", args[0], (*explorer.Explorer).Account)
		},
	}
}

func mintCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mint <address>",
		Short: "Inspect a token mint",
		Long: `Fetch a mint of either token program with its extensions and metadata.
Fails with an invalid_input error when the account is not a mint.

Examples:
  explorer mint EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v
  explorer mint <token-2022-mint> --all-extensions --format json`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAccount(cmd, flags, "mint", args[0], (*explorer.Explorer).Mint)
		},
	}
}

type accountQuery func(*explorer.Explorer, context.Context, solana.PublicKey) (*explorer.DisplayRecord, error)

func runAccount(cmd *cobra.Command, flags *globalFlags, command, arg string, query accountQuery) error {
	addr, err := address.Decode(arg)
	if err != nil {
		return err
	}
	s, err := newSession(cmd, flags)
	if err != nil {
		return err
	}

	rep := report.New(command, s.network, arg)
	rec, err := query(s.explorer, cmd.Context(), addr)
	if err != nil {
		s.save(rep, nil, err)
		return err
	}

	result := output.NewAccountReport(rec, flags.raw)
	s.save(rep, result, nil)
	return s.emit(result, func(w io.Writer) {
		output.RenderAccount(w, rec, s.options())
	})
}
