package ingestion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/reposcope/reposcope/internal/pipeline"
	"github.com/reposcope/reposcope/internal/transform"
	"github.com/reposcope/reposcope/pkg/models"
)

// repoEntities is the transformed output for one target, kept together until
// it lands in the context buffers.
type repoEntities struct {
	repository    models.Repository
	contributors  []models.Contributor
	mergeRequests []models.MergeRequest
	commits       []models.Commit
}

// TransformStage maps raw payloads onto storage models. It never aborts the
// run: a payload the mapper chokes on is recorded and skipped, everything
// else still reaches the persist stage.
type TransformStage struct {
	logger *slog.Logger
}

func NewTransformStage(logger *slog.Logger) *TransformStage {
	return &TransformStage{logger: logger}
}

func (s *TransformStage) Name() string       { return "transform" }
func (s *TransformStage) AbortOnError() bool { return false }

func (s *TransformStage) Execute(ctx context.Context, rc *pipeline.RunContext, cfg pipeline.Config) error {
	if err := pipeline.ValidateContext(rc, pipeline.KeyRawData); err != nil {
		return err
	}

	results, failures, err := pipeline.BatchProcess(ctx, rc.RawData(), transformOne,
		pipeline.BatchOptions{BatchSize: cfg.BatchSize, Concurrency: cfg.Concurrency})
	if err != nil {
		return err
	}

	for _, f := range failures {
		rc.RecordError(s.Name(), fmt.Errorf("transform %s: %w", f.Item.Target.FullName(), f.Err))
		s.logger.Warn("target transform failed",
			slog.String("repo", f.Item.Target.FullName()),
			slog.String("error", f.Err.Error()))
	}

	for _, e := range results {
		rc.AddRepositories([]models.Repository{e.repository})
		rc.AddContributors(e.contributors)
		rc.AddMergeRequests(e.mergeRequests)
		rc.AddCommits(e.commits)
	}
	return nil
}

func transformOne(_ context.Context, rd pipeline.RawRepoData) (repoEntities, error) {
	if rd.Repository.ID == 0 {
		return repoEntities{}, fmt.Errorf("repository payload for %s has no id", rd.Target.FullName())
	}

	e := repoEntities{repository: transform.Repository(&rd.Repository)}

	e.contributors = make([]models.Contributor, 0, len(rd.Contributors))
	for _, c := range rd.Contributors {
		e.contributors = append(e.contributors, transform.Contributor(c))
	}

	e.mergeRequests = make([]models.MergeRequest, 0, len(rd.Pulls))
	for _, p := range rd.Pulls {
		mr := transform.MergeRequest(p)
		mr.RepoGithubID = rd.Repository.ID
		e.mergeRequests = append(e.mergeRequests, mr)
	}

	e.commits = make([]models.Commit, 0, len(rd.Commits))
	for _, c := range rd.Commits {
		commit := transform.Commit(c)
		commit.RepoGithubID = rd.Repository.ID
		commit.Files = transform.FileChanges(&c)
		e.commits = append(e.commits, commit)
	}

	return e, nil
}
