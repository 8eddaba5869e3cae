package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/reposcope/reposcope/pkg/models"
)

const ingestRunColumns = `id, repo_full_name, trigger, status, raw_processed,
	repositories_extracted, contributors_extracted, merge_requests_extracted,
	commits_extracted, error_count, error_message, started_at, finished_at, created_at`

func scanIngestRun(row pgx.Row) (models.IngestRun, error) {
	var r models.IngestRun
	err := row.Scan(
		&r.ID, &r.RepoFullName, &r.Trigger, &r.Status, &r.RawProcessed,
		&r.RepositoriesExtracted, &r.ContributorsExtracted, &r.MergeRequestsExtracted,
		&r.CommitsExtracted, &r.ErrorCount, &r.ErrorMessage, &r.StartedAt,
		&r.FinishedAt, &r.CreatedAt,
	)
	return r, err
}

func (q *Queries) CreateIngestRun(ctx context.Context, repoFullName, trigger string) (models.IngestRun, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO ingest_runs (repo_full_name, trigger, status)
		VALUES ($1, $2, 'pending')
		RETURNING `+ingestRunColumns, repoFullName, trigger)
	return scanIngestRun(row)
}

func (q *Queries) MarkIngestRunRunning(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx,
		`UPDATE ingest_runs SET status = 'running', started_at = now() WHERE id = $1`, id)
	return err
}

type FinishIngestRunParams struct {
	ID                     uuid.UUID
	Status                 models.RunStatus
	RawProcessed           int
	RepositoriesExtracted  int
	ContributorsExtracted  int
	MergeRequestsExtracted int
	CommitsExtracted       int
	ErrorCount             int
	ErrorMessage           *string
}

// FinishIngestRun records the terminal status and stat counters of a run.
func (q *Queries) FinishIngestRun(ctx context.Context, p FinishIngestRunParams) error {
	_, err := q.db.Exec(ctx, `
		UPDATE ingest_runs SET
			status = $2, raw_processed = $3, repositories_extracted = $4,
			contributors_extracted = $5, merge_requests_extracted = $6,
			commits_extracted = $7, error_count = $8, error_message = $9,
			finished_at = now()
		WHERE id = $1`,
		p.ID, p.Status, p.RawProcessed, p.RepositoriesExtracted,
		p.ContributorsExtracted, p.MergeRequestsExtracted, p.CommitsExtracted,
		p.ErrorCount, p.ErrorMessage)
	return err
}

func (q *Queries) GetIngestRun(ctx context.Context, id uuid.UUID) (models.IngestRun, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+ingestRunColumns+` FROM ingest_runs WHERE id = $1`, id)
	return scanIngestRun(row)
}

func (q *Queries) ListIngestRuns(ctx context.Context, limit, offset int32) ([]models.IngestRun, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+ingestRunColumns+` FROM ingest_runs ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.IngestRun
	for rows.Next() {
		r, err := scanIngestRun(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
