package models

import (
	"time"

	"github.com/google/uuid"
)

// MaxEnrichmentAttempts caps how often the enrichers will retry a single
// entity before marking it enriched-with-failure.
const MaxEnrichmentAttempts = 3

// Repository is a GitHub repository record. GithubID is the natural key used
// for upserts; ID is the surrogate key other entities reference.
type Repository struct {
	ID                 uuid.UUID  `json:"id"`
	GithubID           int64      `json:"github_id"`
	FullName           string     `json:"full_name"`
	Owner              string     `json:"owner"`
	Name               string     `json:"name"`
	Description        *string    `json:"description,omitempty"`
	Homepage           *string    `json:"homepage,omitempty"`
	Language           *string    `json:"language,omitempty"`
	DefaultBranch      string     `json:"default_branch"`
	Stars              int        `json:"stars"`
	Forks              int        `json:"forks"`
	OpenIssues         int        `json:"open_issues"`
	Subscribers        int        `json:"subscribers"`
	Topics             []string   `json:"topics,omitempty"`
	License            *string    `json:"license,omitempty"`
	Fork               bool       `json:"fork"`
	Archived           bool       `json:"archived"`
	PushedAt           *time.Time `json:"pushed_at,omitempty"`
	IsEnriched         bool       `json:"is_enriched"`
	EnrichmentAttempts int        `json:"enrichment_attempts"`
	LastSyncedAt       *time.Time `json:"last_synced_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

type Contributor struct {
	ID                 uuid.UUID `json:"id"`
	GithubID           int64     `json:"github_id"`
	Login              string    `json:"login"`
	Name               *string   `json:"name,omitempty"`
	AvatarURL          *string   `json:"avatar_url,omitempty"`
	Company            *string   `json:"company,omitempty"`
	Blog               *string   `json:"blog,omitempty"`
	Location           *string   `json:"location,omitempty"`
	Bio                *string   `json:"bio,omitempty"`
	PublicRepos        int       `json:"public_repos"`
	Followers          int       `json:"followers"`
	Following          int       `json:"following"`
	Contributions      int       `json:"contributions"`
	IsEnriched         bool      `json:"is_enriched"`
	EnrichmentAttempts int       `json:"enrichment_attempts"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// MergeRequest is a GitHub pull request. GithubID is globally unique upstream,
// but rows are scoped to a repository so the unique index is
// (repository_id, github_id).
type MergeRequest struct {
	ID           uuid.UUID `json:"id"`
	RepositoryID uuid.UUID `json:"repository_id"`
	// RepoGithubID carries the owning repository's GitHub id between the
	// transform and persist stages, where it is resolved to RepositoryID.
	// Not a stored column.
	RepoGithubID       int64      `json:"repo_github_id,omitempty"`
	GithubID           int64      `json:"github_id"`
	Number             int        `json:"number"`
	Title              string     `json:"title"`
	State              string     `json:"state"`
	AuthorLogin        *string    `json:"author_login,omitempty"`
	AuthorGithubID     *int64     `json:"author_github_id,omitempty"`
	Additions          int        `json:"additions"`
	Deletions          int        `json:"deletions"`
	ChangedFiles       int        `json:"changed_files"`
	Commits            int        `json:"commits"`
	OpenedAt           time.Time  `json:"opened_at"`
	MergedAt           *time.Time `json:"merged_at,omitempty"`
	ClosedAt           *time.Time `json:"closed_at,omitempty"`
	IsEnriched         bool       `json:"is_enriched"`
	EnrichmentAttempts int        `json:"enrichment_attempts"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Commit uses the SHA as its natural key, unique per repository.
type Commit struct {
	ID           uuid.UUID `json:"id"`
	RepositoryID uuid.UUID `json:"repository_id"`
	// RepoGithubID is the transform-to-persist association key, like the
	// field of the same name on MergeRequest. Not a stored column.
	RepoGithubID       int64      `json:"repo_github_id,omitempty"`
	SHA                string     `json:"sha"`
	Message            string     `json:"message"`
	AuthorName         *string    `json:"author_name,omitempty"`
	AuthorEmail        *string    `json:"author_email,omitempty"`
	AuthorLogin        *string    `json:"author_login,omitempty"`
	AuthorGithubID     *int64     `json:"author_github_id,omitempty"`
	CommittedAt        time.Time  `json:"committed_at"`
	Additions          int        `json:"additions"`
	Deletions          int        `json:"deletions"`
	IsEnriched         bool       `json:"is_enriched"`
	EnrichmentAttempts int        `json:"enrichment_attempts"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`

	// Files is populated only when the commit came from a detail payload.
	// Persisted into commit_files, not a column on commits.
	Files []FileChange `json:"files,omitempty"`
}

// FileChange is one file touched by a commit.
type FileChange struct {
	ID        uuid.UUID `json:"id"`
	CommitID  uuid.UUID `json:"commit_id"`
	Path      string    `json:"path"`
	Status    string    `json:"status"` // added, modified, removed, renamed
	Additions int       `json:"additions"`
	Deletions int       `json:"deletions"`
	CreatedAt time.Time `json:"created_at"`
}
