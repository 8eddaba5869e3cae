// Package github is a thin authenticated client for the GitHub REST API.
// Every response updates a rate-limit snapshot callers can inspect, and
// exhausted quotas surface as *RateLimitError rather than a generic failure.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/reposcope/reposcope/internal/config"
)

const (
	defaultPerPage = 100
	apiVersion     = "2022-11-28"
)

// RateLimit is the quota snapshot parsed from response headers.
type RateLimit struct {
	Limit     int
	Remaining int
	Reset     time.Time
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	// limiter spaces outbound requests so a single worker cannot burn the
	// hourly quota in one burst.
	limiter *rate.Limiter

	mu       sync.Mutex
	lastRate RateLimit
}

func NewClient(cfg config.GitHubConfig) *Client {
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// RateLimit returns the quota observed on the most recent response.
func (c *Client) RateLimit() RateLimit {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRate
}

// GetRepository fetches full repository details.
func (c *Client) GetRepository(ctx context.Context, owner, repo string) (*RepositoryPayload, error) {
	var payload RepositoryPayload
	path := fmt.Sprintf("/repos/%s/%s", url.PathEscape(owner), url.PathEscape(repo))
	if err := c.get(ctx, path, nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// GetUser fetches a full user profile, used for contributor enrichment.
func (c *Client) GetUser(ctx context.Context, login string) (*UserPayload, error) {
	var payload UserPayload
	if err := c.get(ctx, "/users/"+url.PathEscape(login), nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// ListContributors returns one page of repository contributors.
func (c *Client) ListContributors(ctx context.Context, owner, repo string, opts ListOptions) ([]ContributorPayload, error) {
	var payload []ContributorPayload
	path := fmt.Sprintf("/repos/%s/%s/contributors", url.PathEscape(owner), url.PathEscape(repo))
	if err := c.get(ctx, path, pageQuery(opts), &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// ListPullRequests returns one page of pull requests.
func (c *Client) ListPullRequests(ctx context.Context, owner, repo string, opts ListOptions) ([]PullRequestPayload, error) {
	var payload []PullRequestPayload
	q := pageQuery(opts)
	if opts.State != "" {
		q.Set("state", opts.State)
	}
	path := fmt.Sprintf("/repos/%s/%s/pulls", url.PathEscape(owner), url.PathEscape(repo))
	if err := c.get(ctx, path, q, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// ListCommits returns one page of commits on the default branch.
func (c *Client) ListCommits(ctx context.Context, owner, repo string, opts ListOptions) ([]CommitPayload, error) {
	var payload []CommitPayload
	path := fmt.Sprintf("/repos/%s/%s/commits", url.PathEscape(owner), url.PathEscape(repo))
	if err := c.get(ctx, path, pageQuery(opts), &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// GetCommit fetches a single commit with stats and file changes.
func (c *Client) GetCommit(ctx context.Context, owner, repo, sha string) (*CommitPayload, error) {
	var payload CommitPayload
	path := fmt.Sprintf("/repos/%s/%s/commits/%s", url.PathEscape(owner), url.PathEscape(repo), url.PathEscape(sha))
	if err := c.get(ctx, path, nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func pageQuery(opts ListOptions) url.Values {
	q := url.Values{}
	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	q.Set("per_page", strconv.Itoa(perPage))
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	return q
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	rl := parseRateLimit(resp.Header)
	c.mu.Lock()
	c.lastRate = rl
	c.mu.Unlock()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		// 403/429 with an exhausted quota is the primary rate limit; anything
		// else is a plain API error.
		if (resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests) && rl.Remaining == 0 {
			return &RateLimitError{Reset: rl.Reset, Remaining: rl.Remaining}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

func parseRateLimit(h http.Header) RateLimit {
	rl := RateLimit{Remaining: -1}
	if v := h.Get("X-RateLimit-Limit"); v != "" {
		rl.Limit, _ = strconv.Atoi(v)
	}
	if v := h.Get("X-RateLimit-Remaining"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			rl.Remaining = n
		}
	}
	if v := h.Get("X-RateLimit-Reset"); v != "" {
		if epoch, err := strconv.ParseInt(v, 10, 64); err == nil {
			rl.Reset = time.Unix(epoch, 0)
		}
	}
	return rl
}

// errorMessage extracts the "message" field from a GitHub error body,
// falling back to a trimmed snippet of the raw body.
func errorMessage(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		return parsed.Message
	}
	snippet := strings.TrimSpace(string(body))
	if len(snippet) > 200 {
		snippet = snippet[:200] + "..."
	}
	return snippet
}
