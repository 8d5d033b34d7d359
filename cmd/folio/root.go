package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "folio",
		Short:         "Record ledger tooling for digitization pipelines",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newNextCommand(ctx))
	rootCmd.AddCommand(newGetCommand(ctx))
	rootCmd.AddCommand(newStatesCommand(ctx))
	rootCmd.AddCommand(newMergeCommand(ctx))
	rootCmd.AddCommand(newFrameCommand(ctx))
	rootCmd.AddCommand(newConfigCommand())

	return rootCmd
}
