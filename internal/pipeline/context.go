package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reposcope/reposcope/internal/github"
	"github.com/reposcope/reposcope/pkg/models"
)

type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

type CheckpointStatus string

const (
	CheckpointStarted   CheckpointStatus = "started"
	CheckpointCompleted CheckpointStatus = "completed"
	CheckpointFailed    CheckpointStatus = "failed"
)

// Target identifies one repository to ingest.
type Target struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

func (t Target) FullName() string { return t.Owner + "/" + t.Name }

// RawRepoData bundles everything the fetch stage pulled for one target, so
// downstream stages can keep pulls and commits associated with their
// repository.
type RawRepoData struct {
	Target       Target
	Repository   github.RepositoryPayload
	Contributors []github.ContributorPayload
	Pulls        []github.PullRequestPayload
	Commits      []github.CommitPayload
}

func (r RawRepoData) itemCount() int {
	return 1 + len(r.Contributors) + len(r.Pulls) + len(r.Commits)
}

// Stats are the running counters of one pipeline run. Counters only ever
// increase within a run.
type Stats struct {
	RawProcessed  int `json:"raw_processed"`
	Repositories  int `json:"repositories"`
	Contributors  int `json:"contributors"`
	MergeRequests int `json:"merge_requests"`
	Commits       int `json:"commits"`
	Errors        int `json:"errors"`
}

// StageError is one recorded stage failure. Batch is -1 outside of batched
// runs; RunBatched stamps the chunk index on merged errors.
type StageError struct {
	Stage     string    `json:"stage"`
	Message   string    `json:"message"`
	Batch     int       `json:"batch"`
	Timestamp time.Time `json:"timestamp"`
}

// Checkpoint marks one stage execution attempt. Re-entering a stage name
// within the same run overwrites the previous entry.
type Checkpoint struct {
	Status    CheckpointStatus `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Stats     Stats            `json:"stats"`
	Error     string           `json:"error,omitempty"`
}

// RunContext is the shared, run-scoped state stages operate on. All mutation
// goes through methods so the append-only and monotonicity invariants hold
// even when a stage processes items concurrently.
type RunContext struct {
	RunID   string
	Trigger string
	Targets []Target

	mu        sync.Mutex
	state     State
	startTime time.Time
	endTime   time.Time

	// Raw payloads fetched per target, carried from the fetch stage to the
	// transform stage within the same run.
	rawData []RawRepoData

	repositories  []models.Repository
	contributors  []models.Contributor
	mergeRequests []models.MergeRequest
	commits       []models.Commit

	stats       Stats
	errors      []StageError
	checkpoints map[string]Checkpoint
}

func NewRunContext(runID string, targets []Target) *RunContext {
	if runID == "" {
		runID = uuid.NewString()
	}
	return &RunContext{
		RunID:       runID,
		Targets:     targets,
		state:       StatePending,
		checkpoints: make(map[string]Checkpoint),
	}
}

// Start transitions the run to running. Must be called exactly once.
func (rc *RunContext) Start() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.state = StateRunning
	rc.startTime = time.Now()
}

// Complete transitions the run to completed. Only valid while running.
func (rc *RunContext) Complete() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.state == StateRunning {
		rc.state = StateCompleted
		rc.endTime = time.Now()
	}
}

// Fail transitions the run to failed and records the error under the
// "pipeline" stage tag.
func (rc *RunContext) Fail(err error) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.state != StateRunning {
		return
	}
	rc.state = StateFailed
	rc.endTime = time.Now()
	rc.errors = append(rc.errors, StageError{
		Stage:     "pipeline",
		Message:   err.Error(),
		Batch:     -1,
		Timestamp: time.Now(),
	})
	rc.stats.Errors++
}

func (rc *RunContext) State() State {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.state
}

// Duration is endTime-startTime, or time-since-start while still running.
func (rc *RunContext) Duration() time.Duration {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.startTime.IsZero() {
		return 0
	}
	if rc.endTime.IsZero() {
		return time.Since(rc.startTime)
	}
	return rc.endTime.Sub(rc.startTime)
}

// SetCheckpoint overwrites the checkpoint for a stage name. Timestamp is
// stamped here; callers only supply status and payload.
func (rc *RunContext) SetCheckpoint(stage string, cp Checkpoint) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	cp.Timestamp = time.Now()
	rc.checkpoints[stage] = cp
}

func (rc *RunContext) Checkpoint(stage string) (Checkpoint, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	cp, ok := rc.checkpoints[stage]
	return cp, ok
}

// RecordError appends a stage error and bumps the error counter.
func (rc *RunContext) RecordError(stage string, err error) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.errors = append(rc.errors, StageError{
		Stage:     stage,
		Message:   err.Error(),
		Batch:     -1,
		Timestamp: time.Now(),
	})
	rc.stats.Errors++
}

func (rc *RunContext) Errors() []StageError {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	out := make([]StageError, len(rc.errors))
	copy(out, rc.errors)
	return out
}

// AddRawData appends fetched payloads. RawProcessed counts individual
// payload items, not composites.
func (rc *RunContext) AddRawData(items []RawRepoData) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.rawData = append(rc.rawData, items...)
	for _, item := range items {
		rc.stats.RawProcessed += item.itemCount()
	}
}

func (rc *RunContext) RawData() []RawRepoData {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.rawData
}

func (rc *RunContext) AddRepositories(items []models.Repository) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.repositories = append(rc.repositories, items...)
	rc.stats.Repositories += len(items)
}

func (rc *RunContext) AddContributors(items []models.Contributor) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.contributors = append(rc.contributors, items...)
	rc.stats.Contributors += len(items)
}

func (rc *RunContext) AddMergeRequests(items []models.MergeRequest) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.mergeRequests = append(rc.mergeRequests, items...)
	rc.stats.MergeRequests += len(items)
}

func (rc *RunContext) AddCommits(items []models.Commit) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.commits = append(rc.commits, items...)
	rc.stats.Commits += len(items)
}

func (rc *RunContext) Repositories() []models.Repository {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.repositories
}

func (rc *RunContext) Contributors() []models.Contributor {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.contributors
}

func (rc *RunContext) MergeRequests() []models.MergeRequest {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.mergeRequests
}

func (rc *RunContext) Commits() []models.Commit {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.commits
}

// Stats returns a snapshot of the counters.
func (rc *RunContext) Stats() Stats {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.stats
}

// Summary is the read-only projection callers log or return over HTTP.
type Summary struct {
	RunID      string        `json:"run_id"`
	State      State         `json:"state"`
	Duration   time.Duration `json:"duration"`
	Stats      Stats         `json:"stats"`
	HasErrors  bool          `json:"has_errors"`
	ErrorCount int           `json:"error_count"`
}

func (rc *RunContext) Summary() Summary {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	dur := time.Duration(0)
	if !rc.startTime.IsZero() {
		if rc.endTime.IsZero() {
			dur = time.Since(rc.startTime)
		} else {
			dur = rc.endTime.Sub(rc.startTime)
		}
	}
	return Summary{
		RunID:      rc.RunID,
		State:      rc.state,
		Duration:   dur,
		Stats:      rc.stats,
		HasErrors:  len(rc.errors) > 0,
		ErrorCount: len(rc.errors),
	}
}

// merge folds a sub-context produced by one batch of a batched run into the
// receiver. Errors are re-stamped with the batch index.
func (rc *RunContext) merge(sub *RunContext, batch int) {
	sub.mu.Lock()
	repos := sub.repositories
	contribs := sub.contributors
	mrs := sub.mergeRequests
	commits := sub.commits
	errs := sub.errors
	raw := sub.stats.RawProcessed
	sub.mu.Unlock()

	rc.AddRepositories(repos)
	rc.AddContributors(contribs)
	rc.AddMergeRequests(mrs)
	rc.AddCommits(commits)

	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.stats.RawProcessed += raw
	for _, e := range errs {
		e.Batch = batch
		rc.errors = append(rc.errors, e)
		rc.stats.Errors++
	}
}
