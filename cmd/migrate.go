package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	config "taskmarket.com/engagement/internal/configs"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		db, err := config.Open(cfg.DatabaseDSN)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}

		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		defer sqlDB.Close()

		newLogger(cfg.LogLevel).Info("schema is up to date", "dsn", cfg.DatabaseDSN)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
