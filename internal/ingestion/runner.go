package ingestion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/reposcope/reposcope/internal/pipeline"
	"github.com/reposcope/reposcope/internal/store/postgres"
	"github.com/reposcope/reposcope/pkg/models"
)

// PipelineName is the registry key of the standard ingest pipeline.
const PipelineName = "ingest"

// RegisterStages wires the standard fetch/transform/persist set and the
// ingest pipeline into a registry.
func RegisterStages(reg *pipeline.Registry, gh Fetcher, st PersistStore, logger *slog.Logger) error {
	if err := reg.RegisterStage("fetch", func() pipeline.Stage { return NewFetchStage(gh, logger) }); err != nil {
		return err
	}
	if err := reg.RegisterStage("transform", func() pipeline.Stage { return NewTransformStage(logger) }); err != nil {
		return err
	}
	if err := reg.RegisterStage("persist", func() pipeline.Stage { return NewPersistStage(st, logger) }); err != nil {
		return err
	}
	return reg.RegisterPipeline(PipelineName, []string{"fetch", "transform", "persist"})
}

// RunStore is the slice of the store the runner needs for run bookkeeping.
type RunStore interface {
	MarkIngestRunRunning(ctx context.Context, id uuid.UUID) error
	FinishIngestRun(ctx context.Context, p postgres.FinishIngestRunParams) error
}

// Runner executes one queued ingest job end to end: flips the run row to
// running, drives the pipeline, and records the outcome.
type Runner struct {
	runs     RunStore
	registry *pipeline.Registry
	logger   *slog.Logger
}

func NewRunner(runs RunStore, registry *pipeline.Registry, logger *slog.Logger) *Runner {
	return &Runner{runs: runs, registry: registry, logger: logger}
}

// Handle processes one message. A pipeline failure is recorded on the run
// row and reported as handled: the ingest_runs row is the failure record,
// re-delivering the message would just fail the same way.
func (r *Runner) Handle(ctx context.Context, msg IngestMessage) error {
	log := r.logger.With(
		slog.String("run_id", msg.RunID.String()),
		slog.String("repo", msg.Owner+"/"+msg.Name))

	if err := r.runs.MarkIngestRunRunning(ctx, msg.RunID); err != nil {
		return fmt.Errorf("mark run running: %w", err)
	}

	targets := []pipeline.Target{{Owner: msg.Owner, Name: msg.Name}}
	rc, runErr := r.registry.Execute(ctx, PipelineName, targets, msg.RunID.String())
	if rc == nil {
		// Registry-level failure: the pipeline never started.
		rc = pipeline.NewRunContext(msg.RunID.String(), targets)
		rc.Start()
		rc.Fail(runErr)
	}

	status := models.RunStatusCompleted
	var errMsg *string
	if runErr != nil {
		status = models.RunStatusFailed
		m := runErr.Error()
		errMsg = &m
		log.Error("ingest run failed", slog.String("error", m))
	}

	stats := rc.Stats()
	finish := postgres.FinishIngestRunParams{
		ID:                     msg.RunID,
		Status:                 status,
		RawProcessed:           stats.RawProcessed,
		RepositoriesExtracted:  stats.Repositories,
		ContributorsExtracted:  stats.Contributors,
		MergeRequestsExtracted: stats.MergeRequests,
		CommitsExtracted:       stats.Commits,
		ErrorCount:             stats.Errors,
		ErrorMessage:           errMsg,
	}
	if err := r.runs.FinishIngestRun(ctx, finish); err != nil {
		return fmt.Errorf("finish run: %w", err)
	}

	if runErr == nil {
		log.Info("ingest run completed",
			slog.Int("raw_processed", stats.RawProcessed),
			slog.Int("errors", stats.Errors))
	}
	return nil
}
