// Package enrich implements the second ingestion phase: filling in the
// detail fields that the list endpoints of the GitHub API do not return.
// Enrichers run as a single writer per entity type; the attempt counters in
// the store assume no concurrent enricher touches the same rows.
package enrich

import (
	"log/slog"
	"time"

	"github.com/reposcope/reposcope/internal/pipeline"
)

const defaultBatchSize = 10

// resetSlack is added on top of the reported reset time before resuming, so
// a slightly skewed clock does not burn an attempt on a still-closed quota.
const resetSlack = time.Second

// Options configure an enricher. Sleep is injectable so tests do not wait
// out real rate-limit windows.
type Options struct {
	BatchSize int
	Sleep     pipeline.SleepFunc
	Logger    *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = defaultBatchSize
	}
	if o.Sleep == nil {
		o.Sleep = pipeline.Sleep
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Stats summarize one enrichment pass. Processed counts every entity an API
// call was made for; entities skipped because the batch was cut short by a
// rate limit are not processed.
type Stats struct {
	Processed      int       `json:"processed"`
	Enriched       int       `json:"enriched"`
	Failed         int       `json:"failed"`
	NotFound       int       `json:"not_found"`
	Selected       int       `json:"selected"`
	RateLimited    bool      `json:"rate_limited"`
	RateLimitReset time.Time `json:"rate_limit_reset,omitzero"`
}

func (s *Stats) add(other Stats) {
	s.Processed += other.Processed
	s.Enriched += other.Enriched
	s.Failed += other.Failed
	s.NotFound += other.NotFound
	s.Selected += other.Selected
	s.RateLimited = other.RateLimited
	s.RateLimitReset = other.RateLimitReset
}

// waitDuration is how long to pause before retrying after a rate limit.
// A zero reset time means the reset header was absent; back off a minute.
func waitDuration(reset time.Time, now time.Time) time.Duration {
	if reset.IsZero() {
		return time.Minute
	}
	d := reset.Sub(now) + resetSlack
	if d < resetSlack {
		d = resetSlack
	}
	return d
}
