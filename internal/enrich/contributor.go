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

type ContributorStore interface {
	SelectUnenrichedContributors(ctx context.Context, limit int32) ([]models.Contributor, error)
	IncrementContributorAttempts(ctx context.Context, id uuid.UUID) error
	DecrementContributorAttempts(ctx context.Context, id uuid.UUID) error
	UpdateContributorEnrichment(ctx context.Context, p postgres.UpdateContributorEnrichmentParams) error
	MarkContributorEnriched(ctx context.Context, id uuid.UUID) error
}

type UserFetcher interface {
	GetUser(ctx context.Context, login string) (*github.UserPayload, error)
}

// ContributorEnricher fetches full user profiles for contributors that only
// have the thin contributors-list fields. Same attempt accounting as the
// repository enricher.
type ContributorEnricher struct {
	store ContributorStore
	gh    UserFetcher
	opts  Options
}

func NewContributorEnricher(store ContributorStore, gh UserFetcher, opts Options) *ContributorEnricher {
	return &ContributorEnricher{store: store, gh: gh, opts: opts.withDefaults()}
}

func (e *ContributorEnricher) EnrichBatch(ctx context.Context) (Stats, error) {
	var stats Stats

	contributors, err := e.store.SelectUnenrichedContributors(ctx, int32(e.opts.BatchSize))
	if err != nil {
		return stats, fmt.Errorf("select unenriched contributors: %w", err)
	}
	stats.Selected = len(contributors)

	for _, c := range contributors {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		attemptsBefore := c.EnrichmentAttempts
		if err := e.store.IncrementContributorAttempts(ctx, c.ID); err != nil {
			return stats, fmt.Errorf("increment attempts for %s: %w", c.Login, err)
		}

		payload, err := e.gh.GetUser(ctx, c.Login)
		if err != nil {
			if reset, ok := github.IsRateLimit(err); ok {
				if derr := e.store.DecrementContributorAttempts(ctx, c.ID); derr != nil {
					return stats, fmt.Errorf("revert attempt for %s: %w", c.Login, derr)
				}
				metrics.RecordRateLimitHit("contributor")
				metrics.RecordAttemptReverted("contributor")
				stats.RateLimited = true
				stats.RateLimitReset = reset
				e.opts.Logger.Warn("contributor enrichment rate limited",
					"login", c.Login, "reset", reset)
				return stats, nil
			}

			stats.Processed++
			if github.IsNotFound(err) {
				if merr := e.store.MarkContributorEnriched(ctx, c.ID); merr != nil {
					return stats, fmt.Errorf("mark %s enriched: %w", c.Login, merr)
				}
				metrics.RecordEnrichNotFound("contributor")
				stats.NotFound++
				e.opts.Logger.Info("contributor gone upstream", "login", c.Login)
				continue
			}

			metrics.RecordEnrichFailed("contributor")
			stats.Failed++
			e.opts.Logger.Error("contributor enrichment failed",
				"login", c.Login, "attempt", attemptsBefore+1, "error", err)
			if attemptsBefore+1 >= models.MaxEnrichmentAttempts {
				if merr := e.store.MarkContributorEnriched(ctx, c.ID); merr != nil {
					return stats, fmt.Errorf("mark %s enriched: %w", c.Login, merr)
				}
				e.opts.Logger.Warn("contributor enrichment gave up", "login", c.Login)
			}
			continue
		}

		stats.Processed++
		merged := transform.ContributorProfile(c, payload)
		err = e.store.UpdateContributorEnrichment(ctx, postgres.UpdateContributorEnrichmentParams{
			ID:          c.ID,
			Name:        merged.Name,
			AvatarURL:   merged.AvatarURL,
			Company:     merged.Company,
			Blog:        merged.Blog,
			Location:    merged.Location,
			Bio:         merged.Bio,
			PublicRepos: merged.PublicRepos,
			Followers:   merged.Followers,
			Following:   merged.Following,
		})
		if err != nil {
			return stats, fmt.Errorf("update enrichment for %s: %w", c.Login, err)
		}
		metrics.RecordEnriched("contributor")
		stats.Enriched++
	}

	return stats, nil
}

func (e *ContributorEnricher) EnrichAll(ctx context.Context) (Stats, error) {
	var total Stats
	for {
		stats, err := e.EnrichBatch(ctx)
		total.add(stats)
		if err != nil {
			return total, err
		}
		if stats.RateLimited {
			wait := waitDuration(stats.RateLimitReset, time.Now())
			e.opts.Logger.Info("waiting for rate limit reset", "entity", "contributor", "wait", wait)
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
