package enrich

import (
	"context"
	"net/http"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reposcope/reposcope/internal/github"
	"github.com/reposcope/reposcope/internal/store/postgres"
	"github.com/reposcope/reposcope/pkg/models"
)

type fakeContributorStore struct {
	contributors []*models.Contributor

	decrements []uuid.UUID
	marked     []uuid.UUID
	updates    []postgres.UpdateContributorEnrichmentParams
}

func (s *fakeContributorStore) byID(id uuid.UUID) *models.Contributor {
	for _, c := range s.contributors {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (s *fakeContributorStore) SelectUnenrichedContributors(_ context.Context, limit int32) ([]models.Contributor, error) {
	var out []models.Contributor
	for _, c := range s.contributors {
		if !c.IsEnriched {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EnrichmentAttempts != out[j].EnrichmentAttempts {
			return out[i].EnrichmentAttempts < out[j].EnrichmentAttempts
		}
		return out[i].GithubID < out[j].GithubID
	})
	if int32(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeContributorStore) IncrementContributorAttempts(_ context.Context, id uuid.UUID) error {
	s.byID(id).EnrichmentAttempts++
	return nil
}

func (s *fakeContributorStore) DecrementContributorAttempts(_ context.Context, id uuid.UUID) error {
	s.decrements = append(s.decrements, id)
	if c := s.byID(id); c.EnrichmentAttempts > 0 {
		c.EnrichmentAttempts--
	}
	return nil
}

func (s *fakeContributorStore) UpdateContributorEnrichment(_ context.Context, p postgres.UpdateContributorEnrichmentParams) error {
	s.updates = append(s.updates, p)
	s.byID(p.ID).IsEnriched = true
	return nil
}

func (s *fakeContributorStore) MarkContributorEnriched(_ context.Context, id uuid.UUID) error {
	s.marked = append(s.marked, id)
	s.byID(id).IsEnriched = true
	return nil
}

type fakeUserFetcher struct {
	calls []string
	fetch func(login string) (*github.UserPayload, error)
}

func (f *fakeUserFetcher) GetUser(_ context.Context, login string) (*github.UserPayload, error) {
	f.calls = append(f.calls, login)
	return f.fetch(login)
}

func testContributor(githubID int64, login string) *models.Contributor {
	return &models.Contributor{ID: uuid.New(), GithubID: githubID, Login: login}
}

func TestContributorEnricherMergesProfile(t *testing.T) {
	c := testContributor(1, "octocat")
	c.Contributions = 120
	store := &fakeContributorStore{contributors: []*models.Contributor{c}}
	gh := &fakeUserFetcher{fetch: func(login string) (*github.UserPayload, error) {
		return &github.UserPayload{
			ID:        1,
			Login:     login,
			Name:      "The Octocat",
			Company:   "GitHub",
			Followers: 9000,
		}, nil
	}}

	e := NewContributorEnricher(store, gh, quietOptions(10))
	stats, err := e.EnrichBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Enriched)
	require.Len(t, store.updates, 1)
	require.NotNil(t, store.updates[0].Name)
	assert.Equal(t, "The Octocat", *store.updates[0].Name)
	require.NotNil(t, store.updates[0].Company)
	assert.Equal(t, "GitHub", *store.updates[0].Company)
	assert.Equal(t, 9000, store.updates[0].Followers)
	assert.True(t, c.IsEnriched)
}

func TestContributorEnricherRateLimitRevertsAttempt(t *testing.T) {
	contributors := []*models.Contributor{
		testContributor(1, "alice"),
		testContributor(2, "bob"),
	}
	store := &fakeContributorStore{contributors: contributors}
	gh := &fakeUserFetcher{fetch: func(login string) (*github.UserPayload, error) {
		return nil, &github.RateLimitError{Reset: time.Now().Add(time.Minute), Remaining: 0}
	}}

	e := NewContributorEnricher(store, gh, quietOptions(10))
	stats, err := e.EnrichBatch(context.Background())
	require.NoError(t, err)

	assert.True(t, stats.RateLimited)
	assert.Equal(t, 0, stats.Processed)
	// Only the first contributor was attempted, and its attempt was reverted.
	assert.Equal(t, []string{"alice"}, gh.calls)
	assert.Equal(t, 0, contributors[0].EnrichmentAttempts)
	assert.Equal(t, 0, contributors[1].EnrichmentAttempts)
}

func TestContributorEnricherNotFound(t *testing.T) {
	c := testContributor(5, "deleted-user")
	store := &fakeContributorStore{contributors: []*models.Contributor{c}}
	gh := &fakeUserFetcher{fetch: func(string) (*github.UserPayload, error) {
		return nil, &github.APIError{StatusCode: http.StatusNotFound, Message: "Not Found"}
	}}

	e := NewContributorEnricher(store, gh, quietOptions(10))
	stats, err := e.EnrichBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.NotFound)
	assert.True(t, c.IsEnriched)
	assert.Empty(t, store.updates)
}

func TestContributorEnricherFairnessOrdering(t *testing.T) {
	retried := testContributor(1, "retried")
	retried.EnrichmentAttempts = 2
	fresh := testContributor(2, "fresh")
	store := &fakeContributorStore{contributors: []*models.Contributor{retried, fresh}}
	gh := &fakeUserFetcher{fetch: func(login string) (*github.UserPayload, error) {
		return &github.UserPayload{Login: login}, nil
	}}

	e := NewContributorEnricher(store, gh, quietOptions(10))
	_, err := e.EnrichBatch(context.Background())
	require.NoError(t, err)

	// Fewer prior attempts go first.
	assert.Equal(t, []string{"fresh", "retried"}, gh.calls)
}
