package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ONSdigital/gdhi-adj/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "gdhi-adj",
	Short: "Small-area income adjustment and constrained apportionment",
	Long: "Imputes flagged LSOA-level figures from their own time series and " +
		"reconciles them against LAD control totals, resolving negatives by " +
		"flooring and bounded prior-year rollback.",
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
