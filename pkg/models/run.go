package models

import (
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// IngestRun is the persisted record of one pipeline run. The live run state
// is carried by pipeline.RunContext; the worker writes this row at start and
// finish so the API can report run history.
type IngestRun struct {
	ID                    uuid.UUID  `json:"id"`
	RepoFullName          string     `json:"repo_full_name"`
	Trigger               string     `json:"trigger"` // manual, schedule, webhook
	Status                RunStatus  `json:"status"`
	RawProcessed          int        `json:"raw_processed"`
	RepositoriesExtracted int        `json:"repositories_extracted"`
	ContributorsExtracted int        `json:"contributors_extracted"`
	MergeRequestsExtracted int       `json:"merge_requests_extracted"`
	CommitsExtracted      int        `json:"commits_extracted"`
	ErrorCount            int        `json:"error_count"`
	ErrorMessage          *string    `json:"error_message,omitempty"`
	StartedAt             *time.Time `json:"started_at,omitempty"`
	FinishedAt            *time.Time `json:"finished_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
}
