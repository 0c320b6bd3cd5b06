package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/voicelog/product-identity/app/common"
	"github.com/voicelog/product-identity/config"
	"github.com/voicelog/product-identity/models"
	"gorm.io/gorm"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "voicelog",
	Short: "Product identity and meal pattern services",
	Long: `Resolve spoken, photographed and scanned products to catalog entries,
learn per-user product names and detect recurring meal patterns.

Configuration comes from .env, APP_* environment variables and
DATABASE_URL / REDIS_ADDR.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
		common.InitLogger(cfg.App.LogLevel, cfg.App.LogJSON)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		common.Sync()
	},
}

// openDB connects and, when configured, migrates the schema.
func openDB() (*gorm.DB, error) {
	db, err := models.Open(cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := models.AutoMigrate(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
