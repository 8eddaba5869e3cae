package transform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reposcope/reposcope/internal/github"
	"github.com/reposcope/reposcope/pkg/models"
)

func TestRepository(t *testing.T) {
	pushed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := &github.RepositoryPayload{
		ID:               42,
		FullName:         "acme/api",
		Name:             "api",
		Owner:            github.OwnerPayload{ID: 7, Login: "acme"},
		Description:      "an api",
		Language:         "Go",
		DefaultBranch:    "main",
		StargazersCount:  100,
		ForksCount:       10,
		OpenIssuesCount:  3,
		SubscribersCount: 8,
		Topics:           []string{"http", "api"},
		License:          &github.LicensePayload{Key: "mit", Name: "MIT License"},
		Archived:         true,
		PushedAt:         &pushed,
	}

	r := Repository(p)
	assert.Equal(t, int64(42), r.GithubID)
	assert.Equal(t, "acme", r.Owner)
	require.NotNil(t, r.Description)
	assert.Equal(t, "an api", *r.Description)
	assert.Nil(t, r.Homepage, "empty strings become nil, not empty pointers")
	require.NotNil(t, r.License)
	assert.Equal(t, "mit", *r.License)
	assert.Equal(t, 100, r.Stars)
	assert.True(t, r.Archived)
	assert.Equal(t, &pushed, r.PushedAt)
	assert.False(t, r.IsEnriched, "transform never sets enrichment state")
}

func TestRepositoryOwnerFallbackFromFullName(t *testing.T) {
	p := &github.RepositoryPayload{ID: 1, FullName: "acme/api", Name: "api"}
	r := Repository(p)
	assert.Equal(t, "acme", r.Owner)
}

func TestContributorProfileMerge(t *testing.T) {
	c := models.Contributor{GithubID: 9, Login: "alice", Contributions: 40}
	u := &github.UserPayload{
		ID: 9, Login: "alice", Name: "Alice", Company: "Acme",
		PublicRepos: 12, Followers: 300, Following: 7,
	}

	merged := ContributorProfile(c, u)
	require.NotNil(t, merged.Name)
	assert.Equal(t, "Alice", *merged.Name)
	require.NotNil(t, merged.Company)
	assert.Equal(t, "Acme", *merged.Company)
	assert.Nil(t, merged.Bio)
	assert.Equal(t, 300, merged.Followers)
	assert.Equal(t, 40, merged.Contributions, "contributions come from the list payload, not the profile")
}

func TestMergeRequestStateOverride(t *testing.T) {
	merged := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	p := github.PullRequestPayload{
		ID: 1, Number: 12, Title: "feature", State: "closed",
		User:     &github.OwnerPayload{ID: 3, Login: "bob"},
		MergedAt: &merged,
	}

	mr := MergeRequest(p)
	assert.Equal(t, "merged", mr.State, "merged PRs report closed upstream")
	require.NotNil(t, mr.AuthorLogin)
	assert.Equal(t, "bob", *mr.AuthorLogin)
	require.NotNil(t, mr.AuthorGithubID)
	assert.Equal(t, int64(3), *mr.AuthorGithubID)
}

func TestMergeRequestClosedUnmergedKeepsState(t *testing.T) {
	closed := time.Now()
	p := github.PullRequestPayload{ID: 1, Number: 1, State: "closed", ClosedAt: &closed}
	mr := MergeRequest(p)
	assert.Equal(t, "closed", mr.State)
	assert.Nil(t, mr.AuthorLogin)
}

func TestCommit(t *testing.T) {
	when := time.Date(2026, 2, 2, 8, 0, 0, 0, time.UTC)
	p := github.CommitPayload{
		SHA: "abc123",
		Commit: github.CommitDetailPayload{
			Message: "fix: handle nil owner",
			Author:  github.CommitAuthorPayload{Name: "Alice", Email: "a@example.com", Date: when},
		},
		Author: &github.OwnerPayload{ID: 9, Login: "alice"},
		Stats:  &github.CommitStatsPayload{Additions: 5, Deletions: 2},
	}

	c := Commit(p)
	assert.Equal(t, "abc123", c.SHA)
	assert.Equal(t, when, c.CommittedAt)
	require.NotNil(t, c.AuthorLogin)
	assert.Equal(t, "alice", *c.AuthorLogin)
	assert.Equal(t, 5, c.Additions)
}

func TestCommitWithoutOptionalParts(t *testing.T) {
	c := Commit(github.CommitPayload{SHA: "def", Commit: github.CommitDetailPayload{Message: "m"}})
	assert.Nil(t, c.AuthorLogin)
	assert.Zero(t, c.Additions)
}

func TestFileChanges(t *testing.T) {
	p := &github.CommitPayload{Files: []github.CommitFilePayload{
		{Filename: "main.go", Status: "modified", Additions: 4, Deletions: 1},
		{Filename: "old.go", Status: "removed", Deletions: 30},
	}}

	changes := FileChanges(p)
	require.Len(t, changes, 2)
	assert.Equal(t, "main.go", changes[0].Path)
	assert.Equal(t, "removed", changes[1].Status)

	assert.Nil(t, FileChanges(&github.CommitPayload{}))
}
