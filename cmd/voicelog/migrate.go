package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/voicelog/product-identity/app/common"
	"github.com/voicelog/product-identity/models"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := models.Open(cfg.Database.URL)
		if err != nil {
			return err
		}
		if err := models.AutoMigrate(db); err != nil {
			return err
		}
		common.LogInfo("schema migrated")
		fmt.Fprintln(cmd.OutOrStdout(), "Schema up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
