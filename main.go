package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "arbscan",
	Short: "CEX vs DEX price scanner",
	Long: `arbscan compares what a fixed notional buys on MEXC spot against the 0x
aggregator on one chain, and sends a Telegram alert when the round trip clears
the profit threshold.`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Scan continuously until interrupted",
	RunE:  runScanner,
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the asset catalog snapshot",
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch the catalog and the 24h volume set now",
	RunE:  runRefresh,
}

var quoteCmd = &cobra.Command{
	Use:   "quote SYMBOL",
	Short: "Print live CEX and DEX quotes for one asset",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuote,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config")

	rootCmd.AddCommand(runCmd, catalogCmd, quoteCmd)
	catalogCmd.AddCommand(refreshCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
