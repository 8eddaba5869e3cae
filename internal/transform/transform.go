// Package transform maps raw GitHub API payloads onto storage models.
// Functions here are pure: no I/O, no clock reads beyond copying upstream
// timestamps, so the same payload always yields the same record.
package transform

import (
	"strings"

	"github.com/reposcope/reposcope/internal/github"
	"github.com/reposcope/reposcope/pkg/models"
)

// Repository maps a repository payload to an unenriched record. Enrichment
// flags and surrogate keys are owned by the store, not set here.
func Repository(p *github.RepositoryPayload) models.Repository {
	owner := p.Owner.Login
	if owner == "" {
		// full_name is "owner/name"; fall back when the owner object is absent.
		if i := strings.IndexByte(p.FullName, '/'); i > 0 {
			owner = p.FullName[:i]
		}
	}

	r := models.Repository{
		GithubID:      p.ID,
		FullName:      p.FullName,
		Owner:         owner,
		Name:          p.Name,
		Description:   optional(p.Description),
		Homepage:      optional(p.Homepage),
		Language:      optional(p.Language),
		DefaultBranch: p.DefaultBranch,
		Stars:         p.StargazersCount,
		Forks:         p.ForksCount,
		OpenIssues:    p.OpenIssuesCount,
		Subscribers:   p.SubscribersCount,
		Topics:        p.Topics,
		Fork:          p.Fork,
		Archived:      p.Archived,
		PushedAt:      p.PushedAt,
	}
	if p.License != nil {
		r.License = optional(p.License.Key)
	}
	return r
}

// Contributor maps a contributors-list entry. Profile fields (name, company,
// bio) are filled later by the enricher from the full user payload.
func Contributor(p github.ContributorPayload) models.Contributor {
	return models.Contributor{
		GithubID:      p.ID,
		Login:         p.Login,
		AvatarURL:     optional(p.AvatarURL),
		Contributions: p.Contributions,
	}
}

// ContributorProfile merges a full user payload into an existing contributor
// record, used by the enrichment pass.
func ContributorProfile(c models.Contributor, u *github.UserPayload) models.Contributor {
	c.Name = optional(u.Name)
	c.AvatarURL = optional(u.AvatarURL)
	c.Company = optional(u.Company)
	c.Blog = optional(u.Blog)
	c.Location = optional(u.Location)
	c.Bio = optional(u.Bio)
	c.PublicRepos = u.PublicRepos
	c.Followers = u.Followers
	c.Following = u.Following
	return c
}

func MergeRequest(p github.PullRequestPayload) models.MergeRequest {
	mr := models.MergeRequest{
		GithubID:     p.ID,
		Number:       p.Number,
		Title:        p.Title,
		State:        p.State,
		Additions:    p.Additions,
		Deletions:    p.Deletions,
		ChangedFiles: p.ChangedFiles,
		Commits:      p.Commits,
		OpenedAt:     p.CreatedAt,
		MergedAt:     p.MergedAt,
		ClosedAt:     p.ClosedAt,
	}
	if p.User != nil {
		mr.AuthorLogin = optional(p.User.Login)
		id := p.User.ID
		mr.AuthorGithubID = &id
	}
	// GitHub reports merged PRs as closed; keep the more specific state.
	if p.MergedAt != nil {
		mr.State = "merged"
	}
	return mr
}

func Commit(p github.CommitPayload) models.Commit {
	c := models.Commit{
		SHA:         p.SHA,
		Message:     p.Commit.Message,
		AuthorName:  optional(p.Commit.Author.Name),
		AuthorEmail: optional(p.Commit.Author.Email),
		CommittedAt: p.Commit.Author.Date,
	}
	if p.Author != nil {
		c.AuthorLogin = optional(p.Author.Login)
		id := p.Author.ID
		c.AuthorGithubID = &id
	}
	if p.Stats != nil {
		c.Additions = p.Stats.Additions
		c.Deletions = p.Stats.Deletions
	}
	return c
}

// FileChanges maps the files of a commit-detail payload.
func FileChanges(p *github.CommitPayload) []models.FileChange {
	if len(p.Files) == 0 {
		return nil
	}
	changes := make([]models.FileChange, 0, len(p.Files))
	for _, f := range p.Files {
		changes = append(changes, models.FileChange{
			Path:      f.Filename,
			Status:    f.Status,
			Additions: f.Additions,
			Deletions: f.Deletions,
		})
	}
	return changes
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
