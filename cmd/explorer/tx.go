package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/dmagro/sol-explorer/internal/address"
	"github.com/dmagro/sol-explorer/internal/output"
	"github.com/dmagro/sol-explorer/internal/report"
)

func txCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tx <signature>",
		Short: "Inspect a confirmed transaction",
		Long: `Fetch a transaction by signature (legacy or version 0).

Shows status, slot, block time, fee, compute units, every account key with
its signer/writable flags and source (static or address lookup table), the
SOL balance change of each key and the program logs.

Examples:
  explorer tx 5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW
  explorer tx <signature> --format json`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sig, err := address.DecodeSignature(args[0])
			if err != nil {
				return err
			}
			s, err := newSession(cmd, flags)
			if err != nil {
				return err
			}

			rep := report.New("tx", s.network, args[0])
			tx, err := s.explorer.Transaction(cmd.Context(), sig)
			if err != nil {
				s.save(rep, nil, err)
				return err
			}

			result := output.NewTransactionReport(tx)
			s.save(rep, result, nil)
			return s.emit(result, func(w io.Writer) {
				output.RenderTransaction(w, tx, s.options())
			})
		},
	}
}
