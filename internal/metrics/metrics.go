// Package metrics holds the Prometheus instruments for the ingestion
// pipeline and the enrichers. Instruments register lazily on first use so
// binaries that never touch a subsystem do not export its series.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type instruments struct {
	once sync.Once

	stageDuration *prometheus.HistogramVec
	stageFailures *prometheus.CounterVec

	enriched         *prometheus.CounterVec
	enrichFailed     *prometheus.CounterVec
	enrichNotFound   *prometheus.CounterVec
	rateLimitHits    *prometheus.CounterVec
	attemptsReverted *prometheus.CounterVec
}

var inst instruments

func (m *instruments) init() {
	m.once.Do(func() {
		buckets := []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120}
		m.stageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "reposcope_pipeline_stage_seconds", Help: "Duration of one pipeline stage execution", Buckets: buckets,
		}, []string{"stage"})
		m.stageFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reposcope_pipeline_stage_failures_total", Help: "Stage executions that returned an error",
		}, []string{"stage"})

		m.enriched = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reposcope_enricher_enriched_total", Help: "Entities successfully enriched",
		}, []string{"entity"})
		m.enrichFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reposcope_enricher_failed_total", Help: "Enrichment attempts that failed",
		}, []string{"entity"})
		m.enrichNotFound = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reposcope_enricher_not_found_total", Help: "Entities gone upstream, marked enriched to stop retries",
		}, []string{"entity"})
		m.rateLimitHits = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reposcope_enricher_rate_limit_hits_total", Help: "Batches cut short by the GitHub rate limit",
		}, []string{"entity"})
		m.attemptsReverted = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reposcope_enricher_attempts_reverted_total", Help: "Attempt counters reverted after a rate-limit failure",
		}, []string{"entity"})

		prometheus.MustRegister(
			m.stageDuration, m.stageFailures,
			m.enriched, m.enrichFailed, m.enrichNotFound,
			m.rateLimitHits, m.attemptsReverted,
		)
	})
}

// ObserveStage records one stage execution.
func ObserveStage(stage string, d time.Duration, ok bool) {
	inst.init()
	inst.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
	if !ok {
		inst.stageFailures.WithLabelValues(stage).Inc()
	}
}

func RecordEnriched(entity string)        { inst.init(); inst.enriched.WithLabelValues(entity).Inc() }
func RecordEnrichFailed(entity string)    { inst.init(); inst.enrichFailed.WithLabelValues(entity).Inc() }
func RecordEnrichNotFound(entity string)  { inst.init(); inst.enrichNotFound.WithLabelValues(entity).Inc() }
func RecordRateLimitHit(entity string)    { inst.init(); inst.rateLimitHits.WithLabelValues(entity).Inc() }
func RecordAttemptReverted(entity string) { inst.init(); inst.attemptsReverted.WithLabelValues(entity).Inc() }
