package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/pricelist/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "pricelist",
	Short: "Pricelist - rule-based field extraction for supplier price lists",
	Long: `Pricelist turns supplier price-list rows into canonical product and offer
fields using declarative rule documents, one per supplier.

It provides:
  - Rule document validation with source locations and suggestions
  - Field extraction from workbooks and CSV files
  - Rule unit tests (row in, expected fields out)
  - Persisted evaluation traces with retention pruning
  - Rule documents from a local directory or a git repository`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with cli.ExitCode of its error.
// SIGINT and SIGTERM cancel the command context.
func Execute() {
	ctx, stop := cli.SetupSignalHandler()
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults and PRICELIST_* environment when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
