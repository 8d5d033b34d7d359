package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGetCommand(ctx *commandContext) *cobra.Command {
	var fuzzy bool

	cmd := &cobra.Command{
		Use:   "get <ledger-file> <identifier>",
		Short: "Look up one record by identifier",
		Long: "Look up one record by its exact identifier. With --fuzzy the " +
			"needle also matches identifiers ending with or containing it.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := ctx.openLedger(args[0])
			if err != nil {
				return err
			}
			record := h.Get(args[1], !fuzzy)
			if record == nil {
				return fmt.Errorf("no record for %s in %s", args[1], h.Path())
			}
			fmt.Fprintln(cmd.OutOrStdout(), recordTable(record))
			return nil
		},
	}

	cmd.Flags().BoolVar(&fuzzy, "fuzzy", false, "Also match identifiers ending with or containing the needle")
	return cmd
}
