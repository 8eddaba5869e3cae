package github

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reposcope/reposcope/internal/config"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.GitHubConfig{
		Token:          "test-token",
		BaseURL:        srv.URL,
		RequestsPerSec: 1000,
		Timeout:        5 * time.Second,
	})
}

func TestGetRepository(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/api", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/vnd.github+json", r.Header.Get("Accept"))
		w.Header().Set("X-RateLimit-Limit", "5000")
		w.Header().Set("X-RateLimit-Remaining", "4999")
		fmt.Fprint(w, `{"id": 42, "full_name": "acme/api", "name": "api", "stargazers_count": 7}`)
	})

	repo, err := client.GetRepository(context.Background(), "acme", "api")
	require.NoError(t, err)
	assert.Equal(t, int64(42), repo.ID)
	assert.Equal(t, 7, repo.StargazersCount)

	rl := client.RateLimit()
	assert.Equal(t, 5000, rl.Limit)
	assert.Equal(t, 4999, rl.Remaining)
}

func TestListPullRequestsQuery(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "all", r.URL.Query().Get("state"))
		assert.Equal(t, "50", r.URL.Query().Get("per_page"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		fmt.Fprint(w, `[{"id": 1, "number": 10, "title": "x", "state": "open"}]`)
	})

	pulls, err := client.ListPullRequests(context.Background(), "acme", "api",
		ListOptions{Page: 2, PerPage: 50, State: "all"})
	require.NoError(t, err)
	require.Len(t, pulls, 1)
	assert.Equal(t, 10, pulls[0].Number)
}

func TestRateLimitExhaustedBecomesRateLimitError(t *testing.T) {
	reset := time.Now().Add(time.Hour).Truncate(time.Second)
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message": "API rate limit exceeded"}`)
	})

	_, err := client.GetUser(context.Background(), "alice")
	require.Error(t, err)

	gotReset, ok := IsRateLimit(err)
	require.True(t, ok)
	assert.True(t, gotReset.Equal(reset))
}

func TestForbiddenWithQuotaLeftIsPlainAPIError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "100")
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message": "Resource protected by organization SAML enforcement"}`)
	})

	_, err := client.GetRepository(context.Background(), "acme", "api")
	require.Error(t, err)
	_, ok := IsRateLimit(err)
	assert.False(t, ok, "a 403 with quota left is not a rate limit")
	assert.ErrorContains(t, err, "SAML")
}

func TestForbiddenWithoutRateHeadersIsPlainAPIError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message": "Forbidden"}`)
	})

	_, err := client.GetRepository(context.Background(), "acme", "api")
	require.Error(t, err)
	_, ok := IsRateLimit(err)
	assert.False(t, ok, "absent headers must not read as an exhausted quota")
}

func TestNotFound(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "Not Found"}`)
	})

	_, err := client.GetRepository(context.Background(), "ghost", "gone")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestErrorMessageFallsBackToSnippet(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "upstream exploded")
	})

	_, err := client.GetUser(context.Background(), "alice")
	require.Error(t, err)
	assert.ErrorContains(t, err, "upstream exploded")
	assert.False(t, IsNotFound(err))
}
