package github

import "time"

// Raw wire types for the subset of the GitHub REST API v3 the ingestion
// pipeline consumes. Field sets are intentionally partial; the transform
// package maps these onto storage models.

type OwnerPayload struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
	Type      string `json:"type"`
}

type LicensePayload struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

type RepositoryPayload struct {
	ID              int64           `json:"id"`
	FullName        string          `json:"full_name"`
	Name            string          `json:"name"`
	Owner           OwnerPayload    `json:"owner"`
	Description     string          `json:"description"`
	Homepage        string          `json:"homepage"`
	Language        string          `json:"language"`
	DefaultBranch   string          `json:"default_branch"`
	StargazersCount int             `json:"stargazers_count"`
	ForksCount      int             `json:"forks_count"`
	OpenIssuesCount int             `json:"open_issues_count"`
	SubscribersCount int            `json:"subscribers_count"`
	Topics          []string        `json:"topics"`
	License         *LicensePayload `json:"license"`
	Fork            bool            `json:"fork"`
	Archived        bool            `json:"archived"`
	PushedAt        *time.Time      `json:"pushed_at"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type ContributorPayload struct {
	ID            int64  `json:"id"`
	Login         string `json:"login"`
	AvatarURL     string `json:"avatar_url"`
	Contributions int    `json:"contributions"`
	Type          string `json:"type"`
}

// UserPayload is the full user profile returned by GET /users/{login},
// fetched during contributor enrichment.
type UserPayload struct {
	ID          int64  `json:"id"`
	Login       string `json:"login"`
	Name        string `json:"name"`
	AvatarURL   string `json:"avatar_url"`
	Company     string `json:"company"`
	Blog        string `json:"blog"`
	Location    string `json:"location"`
	Bio         string `json:"bio"`
	PublicRepos int    `json:"public_repos"`
	Followers   int    `json:"followers"`
	Following   int    `json:"following"`
}

type PullRequestPayload struct {
	ID           int64         `json:"id"`
	Number       int           `json:"number"`
	Title        string        `json:"title"`
	State        string        `json:"state"`
	User         *OwnerPayload `json:"user"`
	Additions    int           `json:"additions"`
	Deletions    int           `json:"deletions"`
	ChangedFiles int           `json:"changed_files"`
	Commits      int           `json:"commits"`
	CreatedAt    time.Time     `json:"created_at"`
	MergedAt     *time.Time    `json:"merged_at"`
	ClosedAt     *time.Time    `json:"closed_at"`
}

type CommitAuthorPayload struct {
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Date  time.Time `json:"date"`
}

type CommitDetailPayload struct {
	Message string              `json:"message"`
	Author  CommitAuthorPayload `json:"author"`
}

type CommitStatsPayload struct {
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
}

type CommitFilePayload struct {
	Filename  string `json:"filename"`
	Status    string `json:"status"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

type CommitPayload struct {
	SHA    string              `json:"sha"`
	Commit CommitDetailPayload `json:"commit"`
	Author *OwnerPayload       `json:"author"`
	Stats  *CommitStatsPayload `json:"stats"`
	Files  []CommitFilePayload `json:"files"`
}

// ListOptions are the paging parameters shared by all list endpoints.
type ListOptions struct {
	Page    int
	PerPage int
	// State filters pull requests: open, closed, all.
	State string
}
