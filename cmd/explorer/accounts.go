package main

import (
	"fmt"
	"io"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/dmagro/sol-explorer/internal/address"
	"github.com/dmagro/sol-explorer/internal/explorer"
	"github.com/dmagro/sol-explorer/internal/output"
	"github.com/dmagro/sol-explorer/internal/report"
)

func accountsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "accounts <address>...",
		Short: "Summarize many accounts in batched requests",
		Long: `Fetch many accounts with JSON-RPC batches and print one row per address,
in the order given. Missing or undecodable accounts get an error row and do
not affect the others. Metadata is not resolved in this view.

Examples:
  explorer accounts <address> <address> <address>
  explorer accounts $(cat addresses.txt) --format json`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.MinimumNArgs(1)(cmd, args); err != nil {
				return fmt.Errorf("%w: %v", explorer.ErrInvalidInput, err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			addrs := make([]solana.PublicKey, len(args))
			for i, arg := range args {
				addr, err := address.Decode(arg)
				if err != nil {
					return fmt.Errorf("argument %d: %w", i+1, err)
				}
				addrs[i] = addr
			}

			s, err := newSession(cmd, flags)
			if err != nil {
				return err
			}

			rep := report.New("accounts", s.network, args...)
			rows := s.explorer.Accounts(cmd.Context(), addrs)
			if err := cmd.Context().Err(); err != nil {
				return err
			}

			result := output.NewBatchReport(rows, flags.raw)
			s.save(rep, result, nil)
			return s.emit(result, func(w io.Writer) {
				output.RenderBatch(w, rows)
			})
		},
	}
}
