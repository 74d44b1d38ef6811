package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dmagro/sol-explorer/internal/explorer"
	"github.com/dmagro/sol-explorer/internal/output"
	"github.com/dmagro/sol-explorer/internal/report"
)

func blockCmd(flags *globalFlags) *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "block <slot|latest> [end-slot]",
		Short: "Summarize one block or a range of slots",
		Long: `Fetch confirmed blocks and summarize them: parent slot, blockhash, leader
and its fee reward, vote and non-vote transaction counts, fees, compute units
and the programs invoked most often by top-level instructions.

A range covers at most 100 slots. Skipped slots are reported per row.

Examples:
  explorer block latest
  explorer block 250000000
  explorer block 250000000 250000009 --top 5`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.RangeArgs(1, 2)(cmd, args); err != nil {
				return fmt.Errorf("%w: %v", explorer.ErrInvalidInput, err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			start, latest, err := parseSlotArg(args[0])
			if err != nil {
				return err
			}
			var end uint64
			var endSet bool
			if len(args) == 2 {
				if end, _, err = parseSlotArg(args[1]); err != nil {
					return err
				}
				if strings.EqualFold(args[1], "latest") {
					return fmt.Errorf("%w: end slot must be a number", explorer.ErrInvalidInput)
				}
				endSet = true
			}

			s, err := newSession(cmd, flags)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			rep := report.New("block", s.network, args...)

			if latest {
				if start, err = s.explorer.LatestSlot(ctx); err != nil {
					s.save(rep, nil, err)
					return err
				}
			}
			if !endSet {
				end = start
			}

			rows, err := s.explorer.Blocks(ctx, start, end)
			if err != nil {
				s.save(rep, nil, err)
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			result := output.NewBlockReport(rows)
			s.save(rep, result, nil)
			return s.emit(result, func(w io.Writer) {
				output.RenderBlocks(w, rows, s.options(), top)
			})
		},
	}

	cmd.Flags().IntVar(&top, "top", 10, "Programs to list per block (0 to hide)")
	return cmd
}

// parseSlotArg accepts a decimal slot or "latest".
func parseSlotArg(arg string) (slot uint64, latest bool, err error) {
	arg = strings.TrimSpace(arg)
	if strings.EqualFold(arg, "latest") {
		return 0, true, nil
	}
	slot, err = strconv.ParseUint(strings.ReplaceAll(arg, "_", ""), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%w: invalid slot %q (expected a number or \"latest\")", explorer.ErrInvalidInput, arg)
	}
	return slot, false, nil
}
