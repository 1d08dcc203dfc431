package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/haulview/freightmatch/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "freightmatch",
	Short: "Freight invoice reconciliation engine",
	Long:  "Links carrier invoices to purchase orders and bills of lading, audits charges via Claude, and routes verdicts to the review dashboard.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
