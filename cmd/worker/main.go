package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/reposcope/reposcope/internal/config"
	"github.com/reposcope/reposcope/internal/github"
	"github.com/reposcope/reposcope/internal/ingestion"
	"github.com/reposcope/reposcope/internal/pipeline"
	"github.com/reposcope/reposcope/internal/store"
	"github.com/reposcope/reposcope/internal/store/postgres"
	vk "github.com/reposcope/reposcope/internal/store/valkey"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		logger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to database")

	s := store.New(pool)

	vkClient, err := vk.NewClient(cfg.Valkey)
	if err != nil {
		logger.Error("failed to connect to valkey", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer vkClient.Close()
	logger.Info("connected to valkey")

	gh := github.NewClient(cfg.GitHub)

	registry := pipeline.NewRegistry(pipeline.Config{
		BatchSize:    cfg.Pipeline.BatchSize,
		Concurrency:  cfg.Pipeline.Concurrency,
		MaxRetries:   cfg.Pipeline.MaxRetries,
		StageTimeout: cfg.Pipeline.StageTimeout,
	}, logger)
	if err := ingestion.RegisterStages(registry, gh, s, logger); err != nil {
		logger.Error("failed to register pipeline", slog.String("error", err.Error()))
		os.Exit(1)
	}

	runner := ingestion.NewRunner(s, registry, logger)

	consumerID := fmt.Sprintf("worker-%d", os.Getpid())
	consumer := ingestion.NewConsumer(vkClient, consumerID, logger)
	if err := consumer.EnsureGroup(ctx); err != nil {
		logger.Error("failed to ensure consumer group", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("starting worker, consuming from stream",
		slog.String("stream", ingestion.StreamName),
		slog.String("consumer", consumerID))
	if err := consumer.Consume(ctx, runner.Handle); err != nil {
		if ctx.Err() == nil {
			logger.Error("consumer error", slog.String("error", err.Error()))
		}
	}

	logger.Info("worker stopped")
}
