package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "stitch-play",
		Short:         "Browse and play Stitch workout routines in the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&ctx.dbPath, "db", "", "Local store path (default ~/.stitch/stitch.db)")
	rootCmd.PersistentFlags().StringVar(&ctx.serverURL, "server", "", "Read routines from a Stitch server instead of the local store")
	rootCmd.PersistentFlags().StringVar(&ctx.apiKey, "api-key", "", "API key for server writes (default $STITCH_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&ctx.logFile, "log-file", "", "Write logs to this file")
	rootCmd.PersistentFlags().StringVar(&ctx.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newRoutinesCommand(ctx))
	rootCmd.AddCommand(newPlanCommand(ctx))
	rootCmd.AddCommand(newPlayCommand(ctx))
	rootCmd.AddCommand(newImportCommand(ctx))

	return rootCmd
}
