package cmd

import (
	"database/sql"
	"fmt"

	"github.com/fanvault/fanvault/internal/config"
	"github.com/fanvault/fanvault/internal/db"
	"github.com/spf13/cobra"
)

func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}

	cmd.AddCommand(migrateSubCmd("up", "Apply all pending migrations", db.RunMigrations))
	cmd.AddCommand(migrateSubCmd("down", "Roll back the last migration", db.MigrateDown))
	cmd.AddCommand(migrateSubCmd("status", "Show applied and pending migrations", db.MigrationStatus))
	return cmd
}

func migrateSubCmd(use, short string, run func(*sql.DB, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()

			database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close(database)

			return run(database.DB, cfg.DBDriver)
		},
	}
}
