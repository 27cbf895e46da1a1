// finpro-init creates the Users and Transactions tables on the configured
// backend so a fresh deployment starts with formatted headers in place.
// The server also ensures tables lazily; this just does it up front.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"finpro/internal/backend"
	"finpro/internal/config"
	applog "finpro/internal/log"
	"finpro/internal/tabular"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := applog.New(applog.Config{
		Component: applog.ComponentBackend,
		Handler:   applog.HandlerForEnv(cfg.Env, slog.LevelInfo),
	})

	ctx := context.Background()

	be, err := backend.New(ctx, cfg.DataBackend, cfg, logger.Logger)
	if err != nil {
		logger.Error("failed to initialize backend", applog.FieldBackend, cfg.DataBackend, applog.FieldError, err)
		os.Exit(1)
	}
	if be.Cleanup != nil {
		defer be.Cleanup()
	}

	for _, table := range []tabular.Table{tabular.UsersTable, tabular.TransactionsTable} {
		if err := be.Store.Ensure(ctx, table); err != nil {
			logger.Error("failed to ensure table", applog.FieldTable, table.Name, applog.FieldError, err)
			os.Exit(1)
		}
		logger.Info("table ready", applog.FieldTable, table.Name)
	}
}
