package main

import (
	"errors"
	"fmt"

	"agrotrade/db/migrations"
	"agrotrade/internal/config"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.StorageDriver != config.DriverPostgres {
				return errors.New("migrate requires STORAGE_DRIVER=postgres")
			}

			dbConn, err := sqlx.Connect("postgres", cfg.PostgresConn)
			if err != nil {
				return fmt.Errorf("cannot connect to DB: %w", err)
			}
			defer dbConn.Close()

			if err := migrations.Run(dbConn.DB); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
