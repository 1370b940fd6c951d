package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/DukeRupert/signup/internal"
	"github.com/spf13/cobra"
)

// NewMigrateCmd creates the migrate subcommand and its children.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Apply all pending migrations against DATABASE_URL.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, db *sql.DB) error {
				if err := internal.RunMigrations(db); err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				cmd.Println("Migrations completed successfully")
				return nil
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd.Context(), internal.MigrationStatus)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, db *sql.DB) error {
				if err := internal.RollbackMigration(ctx, db); err != nil {
					return err
				}
				cmd.Println("Rolled back one migration")
				return nil
			})
		},
	})

	return cmd
}

// withDB loads the config, opens the database and calls fn.
func withDB(ctx context.Context, fn func(context.Context, *sql.DB) error) error {
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	db, err := openDB(ctx, cfg.DatabaseUrl)
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(ctx, db)
}
