package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	homeFlag    string
	configFlag  string
	verboseFlag bool
)

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memoria",
		Short: "Cross-session memory for AI agents",
		Long: `Memoria stores agent session logs in SQLite, derives a browsable
project/topic/session hierarchy from them, and answers recall queries
through keyword, tree and hybrid retrieval.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verboseFlag {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			})))
		},
	}

	cmd.PersistentFlags().StringVar(&homeFlag, "home", "", "base directory (default $MEMORIA_HOME or cwd)")
	cmd.PersistentFlags().StringVar(&configFlag, "config", "", "config file (default <home>/config.yaml)")
	cmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(initCmd())
	cmd.AddCommand(importCmd())
	cmd.AddCommand(indexCmd())
	cmd.AddCommand(recallCommand())
	cmd.AddCommand(syncCmd())
	cmd.AddCommand(skillsCmd())
	cmd.AddCommand(telemetryCmd())
	cmd.AddCommand(serveCmd())

	return cmd
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
