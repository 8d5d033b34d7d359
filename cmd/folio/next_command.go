package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newNextCommand(ctx *commandContext) *cobra.Command {
	var state string

	cmd := &cobra.Command{
		Use:   "next <ledger-file>",
		Short: "Show the next record open for processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := ctx.openLedger(args[0])
			if err != nil {
				return err
			}
			record := h.Next(state)
			out := cmd.OutOrStdout()
			if record == nil {
				wanted := state
				if wanted == "" {
					wanted = h.Marks().Open
				}
				fmt.Fprintf(out, "no records %s in %s\n", wanted, h.Path())
				return nil
			}
			fmt.Fprintln(out, recordTable(record))
			fmt.Fprintf(out, "position %s in %s\n", h.Position(), h.Path())
			return nil
		},
	}

	cmd.Flags().StringVar(&state, "state", "", "State to look for (default: the open state)")
	return cmd
}
