package cli

import (
	"github.com/spf13/cobra"

	"github.com/listinggopher/listinggopher/internal/daemon"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ListingGopher API server",
	Long: `Start the HTTP API server: generation pipeline, credit operations,
ledger audit queries, cost summary and Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := daemon.LoadConfig(configPath)
		if err != nil {
			return err
		}
		return daemon.Run(cfg)
	},
}
