// Package main provides the hllagg CLI, which re-aggregates encoded HLL usage statistics.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/EIDA/statsboard-sub000/cmd/hllagg/commands"
)

// Set by the release build.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hllagg",
		Short: "Union and count encoded HyperLogLog estimators",
		Long: `hllagg decodes hex-encoded HLL estimators (FULL representation, schema v1),
unions them per bucket and prints the estimated number of distinct clients.

Commands:
  aggregate  Group rows by key and estimate distinct counts
  inspect    Show the parameters and estimate of encoded estimators
  fold       Reduce the precision of an encoded estimator`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("config", "", "config file (default .hllagg.yaml in . or $HOME)")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level: debug, info, warn, error")

	rootCmd.AddCommand(commands.NewAggregateCommand())
	rootCmd.AddCommand(commands.NewInspectCommand())
	rootCmd.AddCommand(commands.NewFoldCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "hllagg %s (commit: %s)\n", version, commit)
		},
	}
}
