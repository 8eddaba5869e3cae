package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/reposcope/reposcope/pkg/models"
)

const contributorColumns = `id, github_id, login, name, avatar_url, company, blog, location,
	bio, public_repos, followers, following, contributions, is_enriched,
	enrichment_attempts, created_at, updated_at`

func scanContributor(row pgx.Row) (models.Contributor, error) {
	var c models.Contributor
	err := row.Scan(
		&c.ID, &c.GithubID, &c.Login, &c.Name, &c.AvatarURL, &c.Company, &c.Blog,
		&c.Location, &c.Bio, &c.PublicRepos, &c.Followers, &c.Following,
		&c.Contributions, &c.IsEnriched, &c.EnrichmentAttempts, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

// UpsertContributor inserts or refreshes a contributor by GitHub ID.
// Contribution counts accumulate per repository upstream, so the upsert
// keeps the larger of the stored and incoming values.
func (q *Queries) UpsertContributor(ctx context.Context, c models.Contributor) (models.Contributor, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO contributors (github_id, login, avatar_url, contributions)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (github_id) DO UPDATE SET
			login = EXCLUDED.login,
			avatar_url = COALESCE(EXCLUDED.avatar_url, contributors.avatar_url),
			contributions = GREATEST(contributors.contributions, EXCLUDED.contributions),
			updated_at = now()
		RETURNING `+contributorColumns,
		c.GithubID, c.Login, c.AvatarURL, c.Contributions)
	return scanContributor(row)
}

func (q *Queries) GetContributorByLogin(ctx context.Context, login string) (models.Contributor, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+contributorColumns+` FROM contributors WHERE login = $1`, login)
	return scanContributor(row)
}

// SelectUnenrichedContributors mirrors the repository fairness ordering.
func (q *Queries) SelectUnenrichedContributors(ctx context.Context, limit int32) ([]models.Contributor, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+contributorColumns+` FROM contributors
		 WHERE is_enriched = FALSE
		 ORDER BY enrichment_attempts ASC, github_id ASC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.Contributor
	for rows.Next() {
		c, err := scanContributor(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (q *Queries) IncrementContributorAttempts(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx,
		`UPDATE contributors SET enrichment_attempts = enrichment_attempts + 1, updated_at = now() WHERE id = $1`, id)
	return err
}

func (q *Queries) DecrementContributorAttempts(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx,
		`UPDATE contributors SET enrichment_attempts = GREATEST(enrichment_attempts - 1, 0), updated_at = now() WHERE id = $1`, id)
	return err
}

type UpdateContributorEnrichmentParams struct {
	ID          uuid.UUID
	Name        *string
	AvatarURL   *string
	Company     *string
	Blog        *string
	Location    *string
	Bio         *string
	PublicRepos int
	Followers   int
	Following   int
}

func (q *Queries) UpdateContributorEnrichment(ctx context.Context, p UpdateContributorEnrichmentParams) error {
	_, err := q.db.Exec(ctx, `
		UPDATE contributors SET
			name = $2, avatar_url = $3, company = $4, blog = $5, location = $6, bio = $7,
			public_repos = $8, followers = $9, following = $10,
			is_enriched = TRUE, updated_at = now()
		WHERE id = $1`,
		p.ID, p.Name, p.AvatarURL, p.Company, p.Blog, p.Location, p.Bio,
		p.PublicRepos, p.Followers, p.Following)
	return err
}

func (q *Queries) MarkContributorEnriched(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx,
		`UPDATE contributors SET is_enriched = TRUE, updated_at = now() WHERE id = $1`, id)
	return err
}
