package main

import (
	"context"
	"fmt"

	"github.com/Veraticus/dossier/internal/common"
	"github.com/Veraticus/dossier/internal/config"
	"github.com/Veraticus/dossier/internal/document"
	"github.com/Veraticus/dossier/internal/engine"
	"github.com/Veraticus/dossier/internal/ingest"
	"github.com/Veraticus/dossier/internal/storage"
)

// openStorage resolves the configuration and opens the migrated relation.
func openStorage(ctx context.Context) (*storage.SQLiteStorage, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		return nil, nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		closeStorage(store)
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, cfg, nil
}

func closeStorage(store *storage.SQLiteStorage) {
	if err := store.Close(); err != nil {
		common.LogError(err, "failed to close storage", common.Fields{"database": store.Path()})
	}
}

func newSession(store *storage.SQLiteStorage, cfg *config.Config) *engine.Session {
	adapter := ingest.NewAdapter(store, cfg.Columns, cfg.DateLayouts)
	generator := document.NewGenerator(store, cfg.OutputDir, cfg.DateFormat)
	return engine.NewSession(store, adapter, generator)
}

// openSession opens the relation and picks up the accounts already in it.
func openSession(ctx context.Context) (*engine.Session, *config.Config, func(), error) {
	store, cfg, err := openStorage(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	session := newSession(store, cfg)
	if err := session.Refresh(ctx); err != nil {
		closeStorage(store)
		return nil, nil, nil, err
	}

	return session, cfg, func() { closeStorage(store) }, nil
}

// templatePath prefers the flag over the configured template.
func templatePath(flagValue string, cfg *config.Config) string {
	if flagValue != "" {
		return config.ExpandPath(flagValue)
	}
	return cfg.TemplatePath
}
