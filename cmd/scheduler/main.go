package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/reposcope/reposcope/internal/config"
	"github.com/reposcope/reposcope/internal/ingestion"
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

	producer := ingestion.NewProducer(vkClient)

	logger.Info("starting scheduler",
		slog.Duration("interval", cfg.Scheduler.Interval),
		slog.Duration("stale_after", cfg.Scheduler.StaleAfter))

	ticker := time.NewTicker(cfg.Scheduler.Interval)
	defer ticker.Stop()

	// One sweep at startup, then on every tick.
	sweepStale(ctx, logger, s, producer, cfg.Scheduler)
	for {
		select {
		case <-ctx.Done():
			logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			sweepStale(ctx, logger, s, producer, cfg.Scheduler)
		}
	}
}

// sweepStale re-queues repositories whose last sync is older than the
// configured cutoff.
func sweepStale(ctx context.Context, logger *slog.Logger, s *store.Store, producer *ingestion.Producer, cfg config.SchedulerConfig) {
	cutoff := time.Now().Add(-cfg.StaleAfter)
	stale, err := s.ListStaleRepositories(ctx, cutoff, int32(cfg.MaxPerSweep))
	if err != nil {
		logger.Error("list stale repositories", slog.String("error", err.Error()))
		return
	}
	if len(stale) == 0 {
		return
	}

	queued := 0
	for _, repo := range stale {
		owner, name, ok := strings.Cut(repo.FullName, "/")
		if !ok {
			logger.Warn("skipping repository with malformed full name",
				slog.String("full_name", repo.FullName))
			continue
		}

		run, err := s.CreateIngestRun(ctx, repo.FullName, "schedule")
		if err != nil {
			logger.Error("create scheduled run",
				slog.String("repo", repo.FullName),
				slog.String("error", err.Error()))
			continue
		}

		if _, err := producer.Enqueue(ctx, ingestion.IngestMessage{
			RunID:   run.ID,
			Owner:   owner,
			Name:    name,
			Trigger: "schedule",
		}); err != nil {
			logger.Error("enqueue scheduled run",
				slog.String("repo", repo.FullName),
				slog.String("error", err.Error()))
			continue
		}
		queued++
	}

	logger.Info("stale sweep finished",
		slog.Int("stale", len(stale)),
		slog.Int("queued", queued))
}
