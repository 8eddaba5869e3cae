package ingestion

import (
	"context"
	"io"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reposcope/reposcope/internal/github"
	"github.com/reposcope/reposcope/internal/pipeline"
)

type fakeFetcher struct {
	repoCalls []string
	failRepos map[string]error
}

func (f *fakeFetcher) GetRepository(_ context.Context, owner, repo string) (*github.RepositoryPayload, error) {
	full := owner + "/" + repo
	f.repoCalls = append(f.repoCalls, full)
	if err, ok := f.failRepos[full]; ok {
		return nil, err
	}
	return &github.RepositoryPayload{
		ID:       int64(len(f.repoCalls)),
		FullName: full,
		Name:     repo,
		Owner:    github.OwnerPayload{ID: 1, Login: owner},
	}, nil
}

func (f *fakeFetcher) ListContributors(_ context.Context, owner, repo string, _ github.ListOptions) ([]github.ContributorPayload, error) {
	return []github.ContributorPayload{{ID: 10, Login: "alice", Contributions: 5}}, nil
}

func (f *fakeFetcher) ListPullRequests(_ context.Context, owner, repo string, opts github.ListOptions) ([]github.PullRequestPayload, error) {
	return []github.PullRequestPayload{{ID: 20, Number: 1, Title: "fix", State: "closed", CreatedAt: time.Now()}}, nil
}

func (f *fakeFetcher) ListCommits(_ context.Context, owner, repo string, _ github.ListOptions) ([]github.CommitPayload, error) {
	return []github.CommitPayload{{SHA: "abc123", Commit: github.CommitDetailPayload{Message: "initial"}}}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFetchStagePopulatesRawData(t *testing.T) {
	gh := &fakeFetcher{}
	stage := NewFetchStage(gh, quietLogger())
	rc := pipeline.NewRunContext("run-1", []pipeline.Target{
		{Owner: "acme", Name: "api"},
		{Owner: "acme", Name: "web"},
	})

	err := stage.Execute(context.Background(), rc, pipeline.Config{MaxRetries: 0})
	require.NoError(t, err)

	raw := rc.RawData()
	require.Len(t, raw, 2)
	assert.Equal(t, "acme/api", raw[0].Repository.FullName)
	assert.Len(t, raw[0].Contributors, 1)
	assert.Len(t, raw[0].Pulls, 1)
	assert.Len(t, raw[0].Commits, 1)
	// repo + contributor + pull + commit per target
	assert.Equal(t, 8, rc.Stats().RawProcessed)
}

func TestFetchStageRecordsPerTargetFailure(t *testing.T) {
	gh := &fakeFetcher{failRepos: map[string]error{
		"acme/broken": &github.APIError{StatusCode: 500, Message: "boom"},
	}}
	stage := NewFetchStage(gh, quietLogger())
	rc := pipeline.NewRunContext("run-1", []pipeline.Target{
		{Owner: "acme", Name: "broken"},
		{Owner: "acme", Name: "ok"},
	})

	err := stage.Execute(context.Background(), rc, pipeline.Config{MaxRetries: 1})
	require.NoError(t, err, "one healthy target keeps the stage green")

	require.Len(t, rc.RawData(), 1)
	assert.Equal(t, "acme/ok", rc.RawData()[0].Repository.FullName)
	errs := rc.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, "fetch", errs[0].Stage)
	// MaxRetries 1 means two attempts on the broken target.
	assert.Equal(t, []string{"acme/broken", "acme/broken", "acme/ok"}, gh.repoCalls)
}

func TestFetchStageAbortsWhenAllTargetsFail(t *testing.T) {
	gh := &fakeFetcher{failRepos: map[string]error{
		"acme/broken": fmt.Errorf("connection refused"),
	}}
	stage := NewFetchStage(gh, quietLogger())
	rc := pipeline.NewRunContext("run-1", []pipeline.Target{{Owner: "acme", Name: "broken"}})

	err := stage.Execute(context.Background(), rc, pipeline.Config{})
	require.Error(t, err)
	assert.True(t, stage.AbortOnError())
}

func TestFetchStageRequiresTargets(t *testing.T) {
	stage := NewFetchStage(&fakeFetcher{}, quietLogger())
	rc := pipeline.NewRunContext("run-1", nil)

	err := stage.Execute(context.Background(), rc, pipeline.Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "targets")
}

func TestTransformStageAssociatesEntities(t *testing.T) {
	rc := pipeline.NewRunContext("run-1", []pipeline.Target{{Owner: "acme", Name: "api"}})
	merged := time.Now()
	rc.AddRawData([]pipeline.RawRepoData{{
		Target: pipeline.Target{Owner: "acme", Name: "api"},
		Repository: github.RepositoryPayload{
			ID: 99, FullName: "acme/api", Name: "api",
			Owner: github.OwnerPayload{Login: "acme"},
		},
		Contributors: []github.ContributorPayload{{ID: 10, Login: "alice"}},
		Pulls: []github.PullRequestPayload{
			{ID: 20, Number: 1, State: "closed", MergedAt: &merged},
		},
		Commits: []github.CommitPayload{
			{SHA: "abc", Commit: github.CommitDetailPayload{Message: "initial"},
				Files: []github.CommitFilePayload{{Filename: "main.go", Status: "added", Additions: 3}}},
		},
	}})

	stage := NewTransformStage(quietLogger())
	err := stage.Execute(context.Background(), rc, pipeline.Config{BatchSize: 10, Concurrency: 2})
	require.NoError(t, err)

	require.Len(t, rc.Repositories(), 1)
	assert.Equal(t, int64(99), rc.Repositories()[0].GithubID)

	require.Len(t, rc.MergeRequests(), 1)
	assert.Equal(t, int64(99), rc.MergeRequests()[0].RepoGithubID)
	assert.Equal(t, "merged", rc.MergeRequests()[0].State)

	require.Len(t, rc.Commits(), 1)
	assert.Equal(t, int64(99), rc.Commits()[0].RepoGithubID)
	require.Len(t, rc.Commits()[0].Files, 1)
	assert.Equal(t, "main.go", rc.Commits()[0].Files[0].Path)

	stats := rc.Stats()
	assert.Equal(t, 1, stats.Repositories)
	assert.Equal(t, 1, stats.Contributors)
	assert.Equal(t, 1, stats.MergeRequests)
	assert.Equal(t, 1, stats.Commits)
}

func TestTransformStageSkipsBadPayload(t *testing.T) {
	rc := pipeline.NewRunContext("run-1", []pipeline.Target{{Owner: "acme", Name: "api"}})
	rc.AddRawData([]pipeline.RawRepoData{
		{Target: pipeline.Target{Owner: "acme", Name: "bad"}}, // zero repository id
		{
			Target: pipeline.Target{Owner: "acme", Name: "good"},
			Repository: github.RepositoryPayload{
				ID: 7, FullName: "acme/good", Name: "good",
				Owner: github.OwnerPayload{Login: "acme"},
			},
		},
	})

	stage := NewTransformStage(quietLogger())
	err := stage.Execute(context.Background(), rc, pipeline.Config{})
	require.NoError(t, err, "transform records bad payloads instead of aborting")
	assert.False(t, stage.AbortOnError())

	require.Len(t, rc.Repositories(), 1)
	assert.Equal(t, "acme/good", rc.Repositories()[0].FullName)
	require.Len(t, rc.Errors(), 1)
	assert.Equal(t, "transform", rc.Errors()[0].Stage)
}
