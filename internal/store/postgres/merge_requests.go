package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/reposcope/reposcope/pkg/models"
)

const mergeRequestColumns = `id, repository_id, github_id, number, title, state,
	author_login, author_github_id, additions, deletions, changed_files, commits,
	opened_at, merged_at, closed_at, is_enriched, enrichment_attempts, created_at, updated_at`

func scanMergeRequest(row pgx.Row) (models.MergeRequest, error) {
	var m models.MergeRequest
	err := row.Scan(
		&m.ID, &m.RepositoryID, &m.GithubID, &m.Number, &m.Title, &m.State,
		&m.AuthorLogin, &m.AuthorGithubID, &m.Additions, &m.Deletions,
		&m.ChangedFiles, &m.Commits, &m.OpenedAt, &m.MergedAt, &m.ClosedAt,
		&m.IsEnriched, &m.EnrichmentAttempts, &m.CreatedAt, &m.UpdatedAt,
	)
	return m, err
}

// UpsertMergeRequest inserts or refreshes a pull request scoped to its
// repository. The natural key is (repository_id, github_id).
func (q *Queries) UpsertMergeRequest(ctx context.Context, m models.MergeRequest) (models.MergeRequest, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO merge_requests (
			repository_id, github_id, number, title, state, author_login,
			author_github_id, additions, deletions, changed_files, commits,
			opened_at, merged_at, closed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (repository_id, github_id) DO UPDATE SET
			title = EXCLUDED.title,
			state = EXCLUDED.state,
			additions = EXCLUDED.additions,
			deletions = EXCLUDED.deletions,
			changed_files = EXCLUDED.changed_files,
			commits = EXCLUDED.commits,
			merged_at = EXCLUDED.merged_at,
			closed_at = EXCLUDED.closed_at,
			updated_at = now()
		RETURNING `+mergeRequestColumns,
		m.RepositoryID, m.GithubID, m.Number, m.Title, m.State, m.AuthorLogin,
		m.AuthorGithubID, m.Additions, m.Deletions, m.ChangedFiles, m.Commits,
		m.OpenedAt, m.MergedAt, m.ClosedAt)
	return scanMergeRequest(row)
}

func (q *Queries) ListMergeRequestsByRepository(ctx context.Context, repositoryID uuid.UUID, limit, offset int32) ([]models.MergeRequest, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+mergeRequestColumns+` FROM merge_requests
		 WHERE repository_id = $1
		 ORDER BY number DESC
		 LIMIT $2 OFFSET $3`, repositoryID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.MergeRequest
	for rows.Next() {
		m, err := scanMergeRequest(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}
