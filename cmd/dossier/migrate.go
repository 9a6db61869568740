package main

import (
	"fmt"

	"github.com/Veraticus/dossier/internal/cli"
	"github.com/Veraticus/dossier/internal/common"
	"github.com/Veraticus/dossier/internal/config"
	"github.com/Veraticus/dossier/internal/storage"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

Every other command migrates on open; run this to prepare a database ahead
of time or to check which version it is at.`,
		Args: cobra.NoArgs,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "Show current migration status without applying changes")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	status, _ := cmd.Flags().GetBool("status")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer closeStorage(store)

	out := cmd.OutOrStdout()

	if status {
		current, err := store.SchemaVersion(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, cli.RenderBox("Database Migration Status", fmt.Sprintf(
			"Database: %s\nCurrent version: %d\nLatest version: %d",
			cfg.DatabasePath, current, storage.ExpectedSchemaVersion)))
		return err
	}

	common.LogInfo("Running database migrations", common.Fields{"database": cfg.DatabasePath})

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	_, err = fmt.Fprintf(out, "Database at schema version %d: %s\n", storage.ExpectedSchemaVersion, cfg.DatabasePath)
	return err
}
