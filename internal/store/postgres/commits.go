package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/reposcope/reposcope/pkg/models"
)

const commitColumns = `id, repository_id, sha, message, author_name, author_email,
	author_login, author_github_id, committed_at, additions, deletions,
	is_enriched, enrichment_attempts, created_at, updated_at`

func scanCommit(row pgx.Row) (models.Commit, error) {
	var c models.Commit
	err := row.Scan(
		&c.ID, &c.RepositoryID, &c.SHA, &c.Message, &c.AuthorName, &c.AuthorEmail,
		&c.AuthorLogin, &c.AuthorGithubID, &c.CommittedAt, &c.Additions, &c.Deletions,
		&c.IsEnriched, &c.EnrichmentAttempts, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

// UpsertCommit inserts or refreshes a commit. The natural key is
// (repository_id, sha).
func (q *Queries) UpsertCommit(ctx context.Context, c models.Commit) (models.Commit, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO commits (
			repository_id, sha, message, author_name, author_email, author_login,
			author_github_id, committed_at, additions, deletions
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (repository_id, sha) DO UPDATE SET
			message = EXCLUDED.message,
			author_name = EXCLUDED.author_name,
			author_email = EXCLUDED.author_email,
			author_login = EXCLUDED.author_login,
			author_github_id = EXCLUDED.author_github_id,
			committed_at = EXCLUDED.committed_at,
			updated_at = now()
		RETURNING `+commitColumns,
		c.RepositoryID, c.SHA, c.Message, c.AuthorName, c.AuthorEmail, c.AuthorLogin,
		c.AuthorGithubID, c.CommittedAt, c.Additions, c.Deletions)
	return scanCommit(row)
}

func (q *Queries) ListCommitsByRepository(ctx context.Context, repositoryID uuid.UUID, limit, offset int32) ([]models.Commit, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+commitColumns+` FROM commits
		 WHERE repository_id = $1
		 ORDER BY committed_at DESC
		 LIMIT $2 OFFSET $3`, repositoryID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.Commit
	for rows.Next() {
		c, err := scanCommit(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// ReplaceCommitFiles swaps the file-change set of a commit. Called from the
// enrichment path where the full detail payload carries the file list.
func (q *Queries) ReplaceCommitFiles(ctx context.Context, commitID uuid.UUID, files []models.FileChange) error {
	if _, err := q.db.Exec(ctx, `DELETE FROM commit_files WHERE commit_id = $1`, commitID); err != nil {
		return err
	}
	for _, f := range files {
		_, err := q.db.Exec(ctx, `
			INSERT INTO commit_files (commit_id, path, status, additions, deletions)
			VALUES ($1, $2, $3, $4, $5)`,
			commitID, f.Path, f.Status, f.Additions, f.Deletions)
		if err != nil {
			return err
		}
	}
	return nil
}
