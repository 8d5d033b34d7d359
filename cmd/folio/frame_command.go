package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"folio/internal/ledger"
)

func newFrameCommand(ctx *commandContext) *cobra.Command {
	var (
		mark   string
		sortBy string
		size   int
	)

	cmd := &cobra.Command{
		Use:   "frame <ledger-file> <start>",
		Short: "Write a windowed copy of the ledger for parallel processing",
		Long: "Write a copy of the ledger in which every record outside the " +
			"1-based window [start, start+size) carries the mask state. Frames " +
			"over disjoint windows partition the workload between hosts.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := ctx.openLedger(args[0])
			if err != nil {
				return err
			}
			start, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid start %q: %w", args[1], err)
			}
			path, err := h.Frame(start, size, mark, sortBy)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote frame %s\n", path)
			return nil
		},
	}

	cmd.Flags().IntVar(&size, "size", ledger.DefaultFrameSize, "Window size in records")
	cmd.Flags().StringVar(&mark, "mark", ledger.FrameMaskState, "State written onto records outside the window")
	cmd.Flags().StringVar(&sortBy, "sort", "", "Sort rows by this field before framing")
	return cmd
}
