package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "marketmaker",
	Short: "Two-sided maker for a single Kalshi market",
	Long: `marketmaker continuously quotes a symmetric bid/ask pair around the
midpoint of one Kalshi market, skews against inventory, reconciles fills
from the exchange into a local position ledger, and enforces pre-trade
risk limits before every placement.`,
}

// Execute adds all child commands to the root command. Called once by
// main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
