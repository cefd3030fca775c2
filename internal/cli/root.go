// Package cli implements the listinggopher command line interface.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "listinggopher",
	Short: "Credit-gated AI listing content generation service",
	Long: `ListingGopher sells metered access to AI-generated real-estate listing
content. A shared credit ledger (personal and brokerage-domain balances)
gates a multi-stage generation pipeline with transparent provider fallback.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to config file (default ~/.listinggopher/config.toml)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
