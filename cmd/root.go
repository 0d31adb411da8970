// Package cmd defines and implements the CLI commands for the
// hotboards-crawler executable.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hotboards-crawler",
		Short: "A concurrent crawler for PTT's hot boards.",
		Long: `hotboards-crawler discovers PTT's hot boards, lists recent posts per
board, fetches each post's detail page under bounded concurrency, and writes
per-board CSV files plus a JSON run summary. One failing post never blocks
its siblings; partial results always survive.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (defaults + PTTCRAWL_* env when unset)")
	cmd.AddCommand(newCrawlCmd())

	return cmd
}

// Execute is the main entry point. A failed run (including a run with zero
// successful articles) exits nonzero.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
