package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 2

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial detail record relation",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				// amount_minor holds the amount scaled by 10^4 so SUM stays exact.
				// A NULL amount or record_date means the source cell was empty.
				`CREATE TABLE IF NOT EXISTS detail_records (
					seq INTEGER PRIMARY KEY AUTOINCREMENT,
					plan_code TEXT NOT NULL DEFAULT '',
					account_key TEXT NOT NULL,
					payer TEXT NOT NULL DEFAULT '',
					invoice TEXT NOT NULL DEFAULT '',
					amount_minor INTEGER,
					record_date TEXT
				)`,
				`CREATE INDEX IF NOT EXISTS idx_detail_records_account ON detail_records(account_key)`,
				`CREATE INDEX IF NOT EXISTS idx_detail_records_account_date ON detail_records(account_key, record_date)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Track dataset loads",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS loads (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					source TEXT NOT NULL,
					row_count INTEGER NOT NULL DEFAULT 0,
					loaded_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)
			`)
			return err
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	return s.withConn(ctx, func(conn *sql.Conn) error {
		var currentVersion int
		if err := conn.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion); err != nil {
			return fmt.Errorf("failed to get schema version: %w", err)
		}

		for _, migration := range migrations {
			if migration.Version <= currentVersion {
				continue
			}

			tx, txErr := conn.BeginTx(ctx, nil)
			if txErr != nil {
				return fmt.Errorf("failed to begin transaction: %w", txErr)
			}

			if upErr := migration.Up(tx); upErr != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
			}

			if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
				_ = tx.Rollback()
				return fmt.Errorf("failed to update schema version: %w", execErr)
			}

			if commitErr := tx.Commit(); commitErr != nil {
				return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
			}

			slog.Info("Applied migration",
				"version", migration.Version,
				"description", migration.Description)
		}

		var finalVersion int
		if err := conn.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion); err != nil {
			return fmt.Errorf("failed to verify final schema version: %w", err)
		}

		if finalVersion != ExpectedSchemaVersion {
			return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
		}

		return nil
	})
}

// SchemaVersion returns the migration version the database is at.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var version int
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
