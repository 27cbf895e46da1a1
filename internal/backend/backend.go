// Package backend selects and constructs the tabular store configured for
// the process.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"finpro/internal/config"
	"finpro/internal/tabular"
	gsheet "finpro/internal/tabular/google"
	"finpro/internal/tabular/memory"
	"finpro/internal/tabular/sqlite"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// Result holds the constructed store and its optional cleanup.
type Result struct {
	Store   tabular.RowStore
	Cleanup CleanupFunc
}

// New builds the RowStore named by kind ("memory", "sqlite" or "sheets").
func New(ctx context.Context, kind string, cfg *config.Config, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch kind {
	case "memory":
		logger.Info("Initialized memory backend")
		return &Result{Store: memory.New()}, nil
	case "sqlite":
		store, err := sqlite.New(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite backend: %w", err)
		}
		logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
		return &Result{Store: store, Cleanup: store.Close}, nil
	case "sheets":
		cli, err := gsheet.NewFromEnv(ctx)
		if err != nil {
			return nil, fmt.Errorf("initialize sheets backend: %w", err)
		}
		logger.Info("Initialized Google Sheets backend", "spreadsheet_id", cfg.GoogleSpreadsheetID)
		return &Result{Store: cli}, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", kind)
	}
}
