package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"folio/internal/ledger"
)

func newStatesCommand(ctx *commandContext) *cobra.Command {
	var (
		state     string
		ident     string
		contains  string
		infoField string
		timeFrom  string
		timeTo    string
		timeField string
		setState  string
		apply     bool
	)

	cmd := &cobra.Command{
		Use:   "states <ledger-file>",
		Short: "List records matching criteria, optionally rewriting their state",
		Long: "List every record matching the AND of the given criteria. " +
			"Without criteria, records in the open state match. With --apply " +
			"the matches' state field is rewritten to --set; the state time " +
			"stays untouched so bulk transitions never look like fresh work.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := ctx.openLedger(args[0])
			if err != nil {
				return err
			}

			var criteria []ledger.Criteria
			if state != "" {
				criteria = append(criteria, ledger.StateIs{State: state})
			}
			if ident != "" {
				criteria = append(criteria, ledger.IdentifierIs{Identifier: ident})
			}
			if contains != "" {
				criteria = append(criteria, ledger.TextContains{Text: contains, Field: infoField})
			}
			if timeFrom != "" || timeTo != "" {
				criteria = append(criteria, ledger.TimeRange{
					Field: timeField,
					From:  timeFrom,
					To:    timeTo,
				})
			}

			matches, err := h.States(criteria, setState, !apply)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(matches) > 0 {
				fmt.Fprintln(out, rowsTable(h.Schema(), matches))
			}
			verb := "matched"
			if apply {
				verb = "rewrote"
			}
			fmt.Fprintf(out, "%s %d of %d records in %s\n", verb, len(matches), h.Total(), h.Path())
			return nil
		},
	}

	cmd.Flags().StringVar(&state, "state", "", "Match records in this state")
	cmd.Flags().StringVar(&ident, "ident", "", "Match this identifier (a needle without ':' matches the last segment)")
	cmd.Flags().StringVar(&contains, "contains", "", "Match records whose field contains this text")
	cmd.Flags().StringVar(&infoField, "contains-field", "", "Field for --contains (default INFO)")
	cmd.Flags().StringVar(&timeFrom, "from", "", "Match state times at or after this timestamp (inclusive)")
	cmd.Flags().StringVar(&timeTo, "to", "", "Match state times before this timestamp (exclusive)")
	cmd.Flags().StringVar(&timeField, "time-field", "", "Field for --from/--to (default STATE_TIME)")
	cmd.Flags().StringVar(&setState, "set", "", "State to write into matches (default: the open state)")
	cmd.Flags().BoolVar(&apply, "apply", false, "Persist the rewrite instead of only listing matches")
	return cmd
}
