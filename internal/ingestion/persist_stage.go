package ingestion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/reposcope/reposcope/internal/pipeline"
	"github.com/reposcope/reposcope/internal/store/postgres"
)

// PersistStore is satisfied by *store.Store.
type PersistStore interface {
	WithTx(ctx context.Context, fn func(*postgres.Queries) error) error
}

// PersistStage writes the transformed entities in one transaction per run:
// either the whole run's data lands or none of it does, so a re-delivered
// job never observes half a run.
type PersistStage struct {
	store  PersistStore
	logger *slog.Logger
}

func NewPersistStage(store PersistStore, logger *slog.Logger) *PersistStage {
	return &PersistStage{store: store, logger: logger}
}

func (s *PersistStage) Name() string       { return "persist" }
func (s *PersistStage) AbortOnError() bool { return true }

func (s *PersistStage) Execute(ctx context.Context, rc *pipeline.RunContext, _ pipeline.Config) error {
	if err := pipeline.ValidateContext(rc, pipeline.KeyRepositories); err != nil {
		return err
	}

	return s.store.WithTx(ctx, func(q *postgres.Queries) error {
		// Repositories go first; their surrogate keys anchor everything else.
		idByGithub := make(map[int64]uuid.UUID, len(rc.Repositories()))
		for _, r := range rc.Repositories() {
			saved, err := q.UpsertRepository(ctx, r)
			if err != nil {
				return fmt.Errorf("upsert repository %s: %w", r.FullName, err)
			}
			idByGithub[saved.GithubID] = saved.ID
		}

		for _, c := range rc.Contributors() {
			if _, err := q.UpsertContributor(ctx, c); err != nil {
				return fmt.Errorf("upsert contributor %s: %w", c.Login, err)
			}
		}

		for _, mr := range rc.MergeRequests() {
			repoID, ok := idByGithub[mr.RepoGithubID]
			if !ok {
				return fmt.Errorf("merge request %d references unknown repository %d", mr.GithubID, mr.RepoGithubID)
			}
			mr.RepositoryID = repoID
			if _, err := q.UpsertMergeRequest(ctx, mr); err != nil {
				return fmt.Errorf("upsert merge request %d: %w", mr.GithubID, err)
			}
		}

		for _, c := range rc.Commits() {
			repoID, ok := idByGithub[c.RepoGithubID]
			if !ok {
				return fmt.Errorf("commit %s references unknown repository %d", c.SHA, c.RepoGithubID)
			}
			c.RepositoryID = repoID
			saved, err := q.UpsertCommit(ctx, c)
			if err != nil {
				return fmt.Errorf("upsert commit %s: %w", c.SHA, err)
			}
			if len(c.Files) > 0 {
				if err := q.ReplaceCommitFiles(ctx, saved.ID, c.Files); err != nil {
					return fmt.Errorf("replace files for commit %s: %w", c.SHA, err)
				}
			}
		}

		s.logger.Info("run persisted",
			slog.String("run_id", rc.RunID),
			slog.Int("repositories", len(rc.Repositories())),
			slog.Int("contributors", len(rc.Contributors())),
			slog.Int("merge_requests", len(rc.MergeRequests())),
			slog.Int("commits", len(rc.Commits())))
		return nil
	})
}
