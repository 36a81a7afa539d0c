package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/cafe-sync/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "cafe-sync",
	Short: "Sync café points of interest from OpenStreetMap into SQL",
	Long:  "Queries the Overpass API for café nodes inside an administrative area and loads them into a table keyed on osm_id, skipping rows that already exist.",
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
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
