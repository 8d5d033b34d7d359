package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"folio/internal/config"
	"folio/internal/ledger"
)

func newMergeCommand(ctx *commandContext) *cobra.Command {
	var (
		requireState string
		ignoreState  string
		noIgnore     bool
		noAppend     bool
		apply        bool
	)

	cmd := &cobra.Command{
		Use:   "merge <target-ledger> <other-ledger>",
		Short: "Reconcile another ledger into the target with a newer-wins rule",
		Long: "Merge the other ledger's records into the target. Known records " +
			"are overwritten only when the target's copy is still open or the " +
			"candidate's state time is strictly newer; unknown records are " +
			"appended unless --no-append is set. Without --apply nothing is " +
			"written and only the counters are reported.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := ctx.openLedger(args[0])
			if err != nil {
				return err
			}
			otherPath, err := config.ExpandPath(args[1])
			if err != nil {
				return err
			}

			opts := h.DefaultMergeOptions()
			opts.OtherRequireState = requireState
			if noIgnore {
				opts.OtherIgnoreState = ""
			} else if ignoreState != "" {
				opts.OtherIgnoreState = ignoreState
			}
			opts.AppendUnknown = !noAppend
			opts.DryRun = !apply

			result, err := h.MergePath(otherPath, opts)
			if err != nil {
				return err
			}

			rows := [][]string{
				{"matches", strconv.Itoa(result.Matches)},
				{"merges", strconv.Itoa(result.Merges)},
				{"misses", strconv.Itoa(result.Misses)},
				{"ignores", strconv.Itoa(result.Ignores)},
				{"requireds", strconv.Itoa(result.Requireds)},
				{"appendeds", strconv.Itoa(result.Appendeds)},
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"COUNTER", "VALUE"}, rows,
				[]columnAlignment{alignLeft, alignRight}))
			if !apply {
				fmt.Fprintf(out, "dry run, %s unchanged\n", h.Path())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&requireState, "require", "", "Merge only candidates in exactly this state")
	cmd.Flags().StringVar(&ignoreState, "ignore", ledger.UnsetLabel, "Skip candidates in this state")
	cmd.Flags().BoolVar(&noIgnore, "no-ignore", false, "Disable the candidate ignore filter")
	cmd.Flags().BoolVar(&noAppend, "no-append", false, "Do not append records unknown to the target")
	cmd.Flags().BoolVar(&apply, "apply", false, "Persist the merge instead of only counting")
	return cmd
}
