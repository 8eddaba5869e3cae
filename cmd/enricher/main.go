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

	"github.com/reposcope/reposcope/internal/config"
	"github.com/reposcope/reposcope/internal/enrich"
	"github.com/reposcope/reposcope/internal/github"
	"github.com/reposcope/reposcope/internal/store"
	"github.com/reposcope/reposcope/internal/store/postgres"
)

// idleWait is the pause between sweeps once the backlog is drained.
const idleWait = 30 * time.Second

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
	gh := github.NewClient(cfg.GitHub)
	opts := enrich.Options{BatchSize: cfg.Enricher.BatchSize, Logger: logger}

	repoEnricher := enrich.NewRepositoryEnricher(s, gh, opts)
	contribEnricher := enrich.NewContributorEnricher(s, gh, opts)

	// One goroutine per entity type. Each is the single writer for its
	// entity's enrichment accounting.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sweep(gctx, logger, "repository", func(ctx context.Context) (enrich.Stats, error) {
			return repoEnricher.EnrichAll(ctx)
		})
	})
	g.Go(func() error {
		return sweep(gctx, logger, "contributor", func(ctx context.Context) (enrich.Stats, error) {
			return contribEnricher.EnrichAll(ctx)
		})
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logger.Error("enricher error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("enricher stopped")
}

// sweep drains the backlog, then sleeps and repeats until shutdown.
func sweep(ctx context.Context, logger *slog.Logger, entity string, drain func(context.Context) (enrich.Stats, error)) error {
	ticker := time.NewTicker(idleWait)
	defer ticker.Stop()

	for {
		stats, err := drain(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if stats.Processed > 0 {
			logger.Info("enrichment sweep finished",
				slog.String("entity", entity),
				slog.Int("processed", stats.Processed),
				slog.Int("enriched", stats.Enriched),
				slog.Int("failed", stats.Failed),
				slog.Int("not_found", stats.NotFound))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
