package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"finpro/internal/amqp"
	"finpro/internal/backend"
	"finpro/internal/config"
	applog "finpro/internal/log"
	"finpro/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := applog.New(applog.Config{
		Component: applog.ComponentWorker,
		Handler:   applog.HandlerForEnv(cfg.Env, slog.LevelInfo),
	})
	applog.SetDefault(logger)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the mirror worker")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	be, err := backend.New(ctx, cfg.MirrorBackend, cfg, logger.Logger)
	if err != nil {
		logger.Error("failed to initialize mirror backend", applog.FieldBackend, cfg.MirrorBackend, applog.FieldError, err)
		os.Exit(1)
	}
	if be.Cleanup != nil {
		defer be.Cleanup()
	}

	mirror := worker.NewMirror(be.Store, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consumeLoop(ctx, cfg, mirror, logger)
	})

	logger.Info("mirror worker started",
		applog.FieldBackend, cfg.MirrorBackend,
		applog.FieldQueue, cfg.AMQPQueue)

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("mirror worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("mirror worker stopped")
}

// consumeLoop keeps a consumer alive across broker restarts, redialing
// after ConsumeRetry on any failure.
func consumeLoop(ctx context.Context, cfg *config.Config, mirror *worker.Mirror, logger *applog.Logger) error {
	for {
		if err := consumeOnce(ctx, cfg, mirror); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Error("consumer failed, retrying",
				applog.FieldError, err,
				"retry_in", cfg.ConsumeRetry.String())
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.ConsumeRetry):
		}
	}
}

func consumeOnce(ctx context.Context, cfg *config.Config, mirror *worker.Mirror) error {
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return err
	}
	defer client.Close()

	return client.ConsumeTransactionEvents(ctx, func(msg *amqp.TransactionEventMessage) error {
		return mirror.Apply(ctx, msg)
	})
}
