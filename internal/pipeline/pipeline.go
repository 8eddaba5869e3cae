package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/reposcope/reposcope/internal/metrics"
)

// Pipeline runs an ordered list of stages over a shared RunContext. Stages
// execute strictly in sequence; a stage with AbortOnError aborts the run,
// anything else is recorded and skipped.
type Pipeline struct {
	name   string
	stages []Stage
	cfg    Config
	logger *slog.Logger
}

func New(name string, stages []Stage, cfg Config, logger *slog.Logger) *Pipeline {
	return &Pipeline{name: name, stages: stages, cfg: cfg.withDefaults(), logger: logger}
}

func (p *Pipeline) Name() string { return p.name }

// Run executes the pipeline over a fresh context for the given targets.
// The context is returned even on failure so callers can inspect partial
// results, checkpoints, and recorded errors.
func (p *Pipeline) Run(ctx context.Context, targets []Target, runID string) (*RunContext, error) {
	rc := NewRunContext(runID, targets)
	err := p.run(ctx, rc)
	return rc, err
}

func (p *Pipeline) run(ctx context.Context, rc *RunContext) error {
	rc.Start()
	p.logger.Info("pipeline started",
		slog.String("pipeline", p.name),
		slog.String("run_id", rc.RunID),
		slog.Int("targets", len(rc.Targets)))

	for _, stage := range p.stages {
		rc.SetCheckpoint(stage.Name(), Checkpoint{Status: CheckpointStarted})
		p.logger.Info("stage started",
			slog.String("stage", stage.Name()),
			slog.String("run_id", rc.RunID))

		started := time.Now()
		err := p.executeStage(ctx, stage, rc)
		metrics.ObserveStage(stage.Name(), time.Since(started), err == nil)

		if err != nil {
			rc.RecordError(stage.Name(), err)
			rc.SetCheckpoint(stage.Name(), Checkpoint{Status: CheckpointFailed, Error: err.Error()})

			if stage.AbortOnError() {
				wrapped := fmt.Errorf("stage %s failed: %w", stage.Name(), err)
				rc.Fail(wrapped)
				p.logger.Error("pipeline aborted",
					slog.String("stage", stage.Name()),
					slog.String("run_id", rc.RunID),
					slog.String("error", err.Error()))
				return wrapped
			}

			// Partial side effects of a non-aborting stage are not rolled
			// back; stages must tolerate re-entry on the next run.
			p.logger.Warn("stage failed, continuing",
				slog.String("stage", stage.Name()),
				slog.String("run_id", rc.RunID),
				slog.String("error", err.Error()))
			continue
		}

		rc.SetCheckpoint(stage.Name(), Checkpoint{Status: CheckpointCompleted, Stats: rc.Stats()})
		p.logger.Info("stage completed",
			slog.String("stage", stage.Name()),
			slog.String("run_id", rc.RunID))
	}

	rc.Complete()
	summary := rc.Summary()
	p.logger.Info("pipeline completed",
		slog.String("pipeline", p.name),
		slog.String("run_id", rc.RunID),
		slog.Int("repositories", summary.Stats.Repositories),
		slog.Int("contributors", summary.Stats.Contributors),
		slog.Int("merge_requests", summary.Stats.MergeRequests),
		slog.Int("commits", summary.Stats.Commits),
		slog.Int("errors", summary.ErrorCount))
	return nil
}

func (p *Pipeline) executeStage(ctx context.Context, stage Stage, rc *RunContext) error {
	if p.cfg.StageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.StageTimeout)
		defer cancel()
	}
	return stage.Execute(ctx, rc, p.cfg)
}

// RunBatched splits targets into chunks of batchSize and runs the pipeline
// independently per chunk, merging each sub-context into one master context.
// Chunks run strictly sequentially: a later chunk never races an earlier
// chunk's merge, and peak memory stays bounded by one chunk's payloads.
// A chunk that aborts is recorded against the master with its batch index
// and does not stop the remaining chunks.
func (p *Pipeline) RunBatched(ctx context.Context, targets []Target, batchSize int, runID string) (*RunContext, error) {
	if batchSize <= 0 {
		batchSize = p.cfg.BatchSize
	}

	master := NewRunContext(runID, targets)
	master.Start()

	batches := 0
	for start := 0; start < len(targets); start += batchSize {
		end := min(start+batchSize, len(targets))
		chunk := targets[start:end]

		sub := NewRunContext(fmt.Sprintf("%s-batch-%d", master.RunID, batches), chunk)
		if err := p.run(ctx, sub); err != nil {
			p.logger.Warn("batch failed",
				slog.String("run_id", master.RunID),
				slog.Int("batch", batches),
				slog.String("error", err.Error()))
		}
		master.merge(sub, batches)
		batches++

		if err := ctx.Err(); err != nil {
			master.Fail(err)
			return master, err
		}
	}

	master.Complete()
	p.logger.Info("batched run completed",
		slog.String("run_id", master.RunID),
		slog.Int("batches", batches),
		slog.Int("errors", master.Summary().ErrorCount))
	return master, nil
}
