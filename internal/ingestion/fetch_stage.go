package ingestion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/reposcope/reposcope/internal/github"
	"github.com/reposcope/reposcope/internal/pipeline"
)

// maxListPages caps pagination per list endpoint so one huge repository
// cannot monopolize a run. At 100 items per page this bounds each entity
// type at 1000 rows per target; the scheduler's periodic re-ingest picks up
// the rest over time.
const maxListPages = 10

// Fetcher is the slice of the GitHub client the fetch stage needs.
type Fetcher interface {
	GetRepository(ctx context.Context, owner, repo string) (*github.RepositoryPayload, error)
	ListContributors(ctx context.Context, owner, repo string, opts github.ListOptions) ([]github.ContributorPayload, error)
	ListPullRequests(ctx context.Context, owner, repo string, opts github.ListOptions) ([]github.PullRequestPayload, error)
	ListCommits(ctx context.Context, owner, repo string, opts github.ListOptions) ([]github.CommitPayload, error)
}

// FetchStage pulls raw payloads for every target from the GitHub API.
// Failures are handled per target: one broken repository does not block the
// rest, but a run where every target failed aborts.
type FetchStage struct {
	gh     Fetcher
	logger *slog.Logger
}

func NewFetchStage(gh Fetcher, logger *slog.Logger) *FetchStage {
	return &FetchStage{gh: gh, logger: logger}
}

func (s *FetchStage) Name() string       { return "fetch" }
func (s *FetchStage) AbortOnError() bool { return true }

func (s *FetchStage) Execute(ctx context.Context, rc *pipeline.RunContext, cfg pipeline.Config) error {
	if err := pipeline.ValidateContext(rc, pipeline.KeyTargets); err != nil {
		return err
	}

	results, failures, err := pipeline.ProcessWithRetry(ctx, rc.Targets,
		func(ctx context.Context, t pipeline.Target) (pipeline.RawRepoData, error) {
			return s.fetchTarget(ctx, t)
		},
		pipeline.RetryOptions{MaxRetries: cfg.MaxRetries})
	if err != nil {
		return err
	}

	for _, f := range failures {
		rc.RecordError(s.Name(), fmt.Errorf("fetch %s after %d attempts: %w",
			f.Item.FullName(), f.Attempts, f.Err))
		s.logger.Warn("target fetch failed",
			slog.String("repo", f.Item.FullName()),
			slog.Int("attempts", f.Attempts),
			slog.String("error", f.Err.Error()))
	}

	rc.AddRawData(results)

	if len(results) == 0 && len(failures) > 0 {
		return fmt.Errorf("all %d targets failed to fetch", len(failures))
	}
	return nil
}

func (s *FetchStage) fetchTarget(ctx context.Context, t pipeline.Target) (pipeline.RawRepoData, error) {
	rd := pipeline.RawRepoData{Target: t}

	repo, err := s.gh.GetRepository(ctx, t.Owner, t.Name)
	if err != nil {
		return rd, fmt.Errorf("get repository: %w", err)
	}
	rd.Repository = *repo

	rd.Contributors, err = fetchAllPages(ctx, func(ctx context.Context, opts github.ListOptions) ([]github.ContributorPayload, error) {
		return s.gh.ListContributors(ctx, t.Owner, t.Name, opts)
	})
	if err != nil {
		return rd, fmt.Errorf("list contributors: %w", err)
	}

	rd.Pulls, err = fetchAllPages(ctx, func(ctx context.Context, opts github.ListOptions) ([]github.PullRequestPayload, error) {
		opts.State = "all"
		return s.gh.ListPullRequests(ctx, t.Owner, t.Name, opts)
	})
	if err != nil {
		return rd, fmt.Errorf("list pull requests: %w", err)
	}

	rd.Commits, err = fetchAllPages(ctx, func(ctx context.Context, opts github.ListOptions) ([]github.CommitPayload, error) {
		return s.gh.ListCommits(ctx, t.Owner, t.Name, opts)
	})
	if err != nil {
		return rd, fmt.Errorf("list commits: %w", err)
	}

	return rd, nil
}

// fetchAllPages walks a list endpoint until a short page or the page cap.
func fetchAllPages[T any](ctx context.Context, list func(context.Context, github.ListOptions) ([]T, error)) ([]T, error) {
	const perPage = 100
	var all []T
	for page := 1; page <= maxListPages; page++ {
		items, err := list(ctx, github.ListOptions{Page: page, PerPage: perPage})
		if err != nil {
			return all, err
		}
		all = append(all, items...)
		if len(items) < perPage {
			break
		}
	}
	return all, nil
}
