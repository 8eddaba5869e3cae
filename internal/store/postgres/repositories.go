package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/reposcope/reposcope/pkg/models"
)

const repositoryColumns = `id, github_id, full_name, owner, name, description, homepage,
	language, default_branch, stars, forks, open_issues, subscribers, topics, license,
	fork, archived, pushed_at, is_enriched, enrichment_attempts, last_synced_at,
	created_at, updated_at`

func scanRepository(row pgx.Row) (models.Repository, error) {
	var r models.Repository
	err := row.Scan(
		&r.ID, &r.GithubID, &r.FullName, &r.Owner, &r.Name, &r.Description, &r.Homepage,
		&r.Language, &r.DefaultBranch, &r.Stars, &r.Forks, &r.OpenIssues, &r.Subscribers,
		&r.Topics, &r.License, &r.Fork, &r.Archived, &r.PushedAt, &r.IsEnriched,
		&r.EnrichmentAttempts, &r.LastSyncedAt, &r.CreatedAt, &r.UpdatedAt,
	)
	return r, err
}

// UpsertRepository inserts or refreshes a repository by its GitHub ID.
// Enrichment accounting (is_enriched, enrichment_attempts) is preserved on
// conflict: re-ingesting a repository never resets the enricher's progress.
func (q *Queries) UpsertRepository(ctx context.Context, r models.Repository) (models.Repository, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO repositories (
			github_id, full_name, owner, name, description, homepage, language,
			default_branch, stars, forks, open_issues, subscribers, topics, license,
			fork, archived, pushed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		ON CONFLICT (github_id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			owner = EXCLUDED.owner,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			homepage = EXCLUDED.homepage,
			language = EXCLUDED.language,
			default_branch = EXCLUDED.default_branch,
			stars = EXCLUDED.stars,
			forks = EXCLUDED.forks,
			open_issues = EXCLUDED.open_issues,
			subscribers = EXCLUDED.subscribers,
			topics = EXCLUDED.topics,
			license = EXCLUDED.license,
			fork = EXCLUDED.fork,
			archived = EXCLUDED.archived,
			pushed_at = EXCLUDED.pushed_at,
			updated_at = now()
		RETURNING `+repositoryColumns,
		r.GithubID, r.FullName, r.Owner, r.Name, r.Description, r.Homepage, r.Language,
		r.DefaultBranch, r.Stars, r.Forks, r.OpenIssues, r.Subscribers, r.Topics, r.License,
		r.Fork, r.Archived, r.PushedAt)
	return scanRepository(row)
}

func (q *Queries) GetRepositoryByFullName(ctx context.Context, fullName string) (models.Repository, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+repositoryColumns+` FROM repositories WHERE full_name = $1`, fullName)
	return scanRepository(row)
}

func (q *Queries) ListRepositories(ctx context.Context, limit, offset int32) ([]models.Repository, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+repositoryColumns+` FROM repositories ORDER BY stars DESC, github_id ASC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.Repository
	for rows.Next() {
		r, err := scanRepository(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

// SelectUnenrichedRepositories returns the next enrichment batch. The
// ordering (enrichment_attempts ASC, github_id ASC) is the fairness policy:
// entities with fewer prior attempts go first, and the stable secondary key
// makes iteration deterministic and resumable without offset bookkeeping.
func (q *Queries) SelectUnenrichedRepositories(ctx context.Context, limit int32) ([]models.Repository, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+repositoryColumns+` FROM repositories
		 WHERE is_enriched = FALSE
		 ORDER BY enrichment_attempts ASC, github_id ASC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.Repository
	for rows.Next() {
		r, err := scanRepository(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

func (q *Queries) IncrementRepositoryAttempts(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx,
		`UPDATE repositories SET enrichment_attempts = enrichment_attempts + 1, updated_at = now() WHERE id = $1`, id)
	return err
}

// DecrementRepositoryAttempts reverts one attempt, used only when the
// attempt failed due to rate limiting and therefore was not a real attempt.
func (q *Queries) DecrementRepositoryAttempts(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx,
		`UPDATE repositories SET enrichment_attempts = GREATEST(enrichment_attempts - 1, 0), updated_at = now() WHERE id = $1`, id)
	return err
}

type UpdateRepositoryEnrichmentParams struct {
	ID            uuid.UUID
	Description   *string
	Homepage      *string
	Language      *string
	DefaultBranch string
	Stars         int
	Forks         int
	OpenIssues    int
	Subscribers   int
	Topics        []string
	License       *string
	Fork          bool
	Archived      bool
	PushedAt      *time.Time
}

// UpdateRepositoryEnrichment writes the enriched field set and flips
// is_enriched in a single statement.
func (q *Queries) UpdateRepositoryEnrichment(ctx context.Context, p UpdateRepositoryEnrichmentParams) error {
	_, err := q.db.Exec(ctx, `
		UPDATE repositories SET
			description = $2, homepage = $3, language = $4, default_branch = $5,
			stars = $6, forks = $7, open_issues = $8, subscribers = $9, topics = $10,
			license = $11, fork = $12, archived = $13, pushed_at = $14,
			is_enriched = TRUE, last_synced_at = now(), updated_at = now()
		WHERE id = $1`,
		p.ID, p.Description, p.Homepage, p.Language, p.DefaultBranch,
		p.Stars, p.Forks, p.OpenIssues, p.Subscribers, p.Topics,
		p.License, p.Fork, p.Archived, p.PushedAt)
	return err
}

// MarkRepositoryEnriched force-flips the enriched flag without touching data
// fields. Used for entities gone upstream or past the attempt cap.
func (q *Queries) MarkRepositoryEnriched(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx,
		`UPDATE repositories SET is_enriched = TRUE, updated_at = now() WHERE id = $1`, id)
	return err
}

// ListStaleRepositories returns enriched repositories whose last sync is
// older than the cutoff, for the scheduler's re-ingest sweep.
func (q *Queries) ListStaleRepositories(ctx context.Context, cutoff time.Time, limit int32) ([]models.Repository, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+repositoryColumns+` FROM repositories
		 WHERE last_synced_at IS NULL OR last_synced_at < $1
		 ORDER BY last_synced_at ASC NULLS FIRST, github_id ASC
		 LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.Repository
	for rows.Next() {
		r, err := scanRepository(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

// CountRepositories returns total and unenriched counts for status reporting.
func (q *Queries) CountRepositories(ctx context.Context) (total, unenriched int64, err error) {
	err = q.db.QueryRow(ctx,
		`SELECT count(*), count(*) FILTER (WHERE is_enriched = FALSE) FROM repositories`,
	).Scan(&total, &unenriched)
	return total, unenriched, err
}
