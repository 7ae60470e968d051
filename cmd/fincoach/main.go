package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"fincoach/internal/agent"
	"fincoach/internal/amqp"
	"fincoach/internal/config"
	"fincoach/internal/core"
	apphttp "fincoach/internal/http"
	applog "fincoach/internal/log"
	"fincoach/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", applog.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	coach := agent.New(agent.Config{
		APIKey:       cfg.AnthropicAPIKey,
		Model:        cfg.AnthropicModel,
		MaxRounds:    cfg.MaxAgentRounds,
		HistoryLimit: cfg.HistoryLimit,
		Currency:     core.Formatter{Symbol: cfg.CurrencySymbol},
	}, repo)
	if !coach.Enabled() {
		logger.Warn("ANTHROPIC_API_KEY not set - chat degrades to canned replies")
	}

	// Statement uploads are queued when the broker is reachable and
	// imported inline otherwise.
	var publisher apphttp.StatementPublisher
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("AMQP unavailable - statement imports run inline", applog.FieldError, err)
	} else {
		defer amqpClient.Close()
		publisher = amqpClient
	}

	srv := apphttp.NewServer(":"+cfg.Port, repo, coach, publisher)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 2 * time.Minute // tool loops can take a while
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting fincoach server", "port", cfg.Port, "agent_enabled", coach.Enabled())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
