package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"finpro/internal/amqp"
	"finpro/internal/backend"
	"finpro/internal/config"
	"finpro/internal/groq"
	apphttp "finpro/internal/http"
	applog "finpro/internal/log"
	"finpro/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := applog.New(applog.Config{
		Component: applog.ComponentApp,
		Handler:   applog.HandlerForEnv(cfg.Env, slog.LevelInfo),
	})
	applog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", applog.FieldError, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	be, err := backend.New(ctx, cfg.DataBackend, cfg, logger.Logger)
	if err != nil {
		logger.Error("failed to initialize backend", applog.FieldBackend, cfg.DataBackend, applog.FieldError, err)
		os.Exit(1)
	}
	if be.Cleanup != nil {
		defer be.Cleanup()
	}

	completer := groq.New(cfg.GroqAPIKey,
		groq.WithBaseURL(cfg.GroqBaseURL),
		groq.WithModel(cfg.GroqModel))
	if !completer.Configured() {
		logger.Warn("Groq API key not set, insight requests will be rejected")
	}

	var publisher apphttp.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("failed to connect to AMQP", applog.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()
		publisher = client
		logger.Info("transaction events enabled",
			applog.FieldExchange, cfg.AMQPExchange,
			applog.FieldQueue, cfg.AMQPQueue)
	}

	srv := apphttp.NewServer(":"+cfg.Port,
		store.NewUsers(be.Store),
		store.NewTransactions(be.Store),
		completer,
		publisher,
		logger)

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", applog.FieldError, err)
		}
		cancel()
	}()

	logger.Info("starting server", "port", cfg.Port, applog.FieldBackend, cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("server stopped gracefully")
}
