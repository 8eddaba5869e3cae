package enrich

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/reposcope/reposcope/internal/github"
	"github.com/reposcope/reposcope/internal/metrics"
	"github.com/reposcope/reposcope/internal/store/postgres"
	"github.com/reposcope/reposcope/internal/transform"
	"github.com/reposcope/reposcope/pkg/models"
)

// RepositoryStore is the slice of the store the repository enricher needs.
type RepositoryStore interface {
	SelectUnenrichedRepositories(ctx context.Context, limit int32) ([]models.Repository, error)
	IncrementRepositoryAttempts(ctx context.Context, id uuid.UUID) error
	DecrementRepositoryAttempts(ctx context.Context, id uuid.UUID) error
	UpdateRepositoryEnrichment(ctx context.Context, p postgres.UpdateRepositoryEnrichmentParams) error
	MarkRepositoryEnriched(ctx context.Context, id uuid.UUID) error
}

// RepositoryFetcher is the slice of the GitHub client the enricher needs.
type RepositoryFetcher interface {
	GetRepository(ctx context.Context, owner, repo string) (*github.RepositoryPayload, error)
}

// RepositoryEnricher fills detail fields on repositories ingested from
// payloads that lacked them (search results, stale re-ingests).
type RepositoryEnricher struct {
	store RepositoryStore
	gh    RepositoryFetcher
	opts  Options
}

func NewRepositoryEnricher(store RepositoryStore, gh RepositoryFetcher, opts Options) *RepositoryEnricher {
	return &RepositoryEnricher{store: store, gh: gh, opts: opts.withDefaults()}
}

// EnrichBatch processes one batch of unenriched repositories and returns.
//
// The attempt counter is incremented before the API call so a crash between
// call and bookkeeping still counts the attempt. A rate-limited call is the
// one exception: it never reached the quota-gated work, so the increment is
// reverted and the rest of the batch is left untouched for the next pass.
func (e *RepositoryEnricher) EnrichBatch(ctx context.Context) (Stats, error) {
	var stats Stats

	repos, err := e.store.SelectUnenrichedRepositories(ctx, int32(e.opts.BatchSize))
	if err != nil {
		return stats, fmt.Errorf("select unenriched repositories: %w", err)
	}
	stats.Selected = len(repos)

	for _, repo := range repos {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		attemptsBefore := repo.EnrichmentAttempts
		if err := e.store.IncrementRepositoryAttempts(ctx, repo.ID); err != nil {
			return stats, fmt.Errorf("increment attempts for %s: %w", repo.FullName, err)
		}

		payload, err := e.gh.GetRepository(ctx, repo.Owner, repo.Name)
		if err != nil {
			if reset, ok := github.IsRateLimit(err); ok {
				// Not a real attempt: the quota blocked it.
				if derr := e.store.DecrementRepositoryAttempts(ctx, repo.ID); derr != nil {
					return stats, fmt.Errorf("revert attempt for %s: %w", repo.FullName, derr)
				}
				metrics.RecordRateLimitHit("repository")
				metrics.RecordAttemptReverted("repository")
				stats.RateLimited = true
				stats.RateLimitReset = reset
				e.opts.Logger.Warn("repository enrichment rate limited",
					"repo", repo.FullName, "reset", reset)
				return stats, nil
			}

			stats.Processed++
			if github.IsNotFound(err) {
				// Gone upstream. Mark enriched so it stops being selected.
				if merr := e.store.MarkRepositoryEnriched(ctx, repo.ID); merr != nil {
					return stats, fmt.Errorf("mark %s enriched: %w", repo.FullName, merr)
				}
				metrics.RecordEnrichNotFound("repository")
				stats.NotFound++
				e.opts.Logger.Info("repository gone upstream", "repo", repo.FullName)
				continue
			}

			metrics.RecordEnrichFailed("repository")
			stats.Failed++
			e.opts.Logger.Error("repository enrichment failed",
				"repo", repo.FullName, "attempt", attemptsBefore+1, "error", err)
			if attemptsBefore+1 >= models.MaxEnrichmentAttempts {
				// Out of attempts; stop selecting it.
				if merr := e.store.MarkRepositoryEnriched(ctx, repo.ID); merr != nil {
					return stats, fmt.Errorf("mark %s enriched: %w", repo.FullName, merr)
				}
				e.opts.Logger.Warn("repository enrichment gave up", "repo", repo.FullName)
			}
			continue
		}

		stats.Processed++
		r := transform.Repository(payload)
		err = e.store.UpdateRepositoryEnrichment(ctx, postgres.UpdateRepositoryEnrichmentParams{
			ID:            repo.ID,
			Description:   r.Description,
			Homepage:      r.Homepage,
			Language:      r.Language,
			DefaultBranch: r.DefaultBranch,
			Stars:         r.Stars,
			Forks:         r.Forks,
			OpenIssues:    r.OpenIssues,
			Subscribers:   r.Subscribers,
			Topics:        r.Topics,
			License:       r.License,
			Fork:          r.Fork,
			Archived:      r.Archived,
			PushedAt:      r.PushedAt,
		})
		if err != nil {
			return stats, fmt.Errorf("update enrichment for %s: %w", repo.FullName, err)
		}
		metrics.RecordEnriched("repository")
		stats.Enriched++
	}

	return stats, nil
}

// EnrichAll drains the unenriched backlog, sleeping through rate-limit
// windows, until a batch comes back empty or the context ends.
func (e *RepositoryEnricher) EnrichAll(ctx context.Context) (Stats, error) {
	var total Stats
	for {
		stats, err := e.EnrichBatch(ctx)
		total.add(stats)
		if err != nil {
			return total, err
		}
		if stats.RateLimited {
			wait := waitDuration(stats.RateLimitReset, time.Now())
			e.opts.Logger.Info("waiting for rate limit reset", "entity", "repository", "wait", wait)
			if err := e.opts.Sleep(ctx, wait); err != nil {
				return total, err
			}
			continue
		}
		if stats.Selected == 0 {
			return total, nil
		}
	}
}
