package pipeline

import (
	"context"
	"io"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reposcope/reposcope/pkg/models"
)

type recordingStage struct {
	name    string
	abort   bool
	execute func(context.Context, *RunContext, Config) error
}

func (s *recordingStage) Name() string       { return s.name }
func (s *recordingStage) AbortOnError() bool { return s.abort }
func (s *recordingStage) Execute(ctx context.Context, rc *RunContext, cfg Config) error {
	if s.execute != nil {
		return s.execute(ctx, rc, cfg)
	}
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPipelineRunsStagesInOrder(t *testing.T) {
	var order []string
	mk := func(name string) Stage {
		return &recordingStage{name: name, execute: func(_ context.Context, rc *RunContext, _ Config) error {
			order = append(order, name)
			return nil
		}}
	}

	p := New("ingest", []Stage{mk("fetch"), mk("transform"), mk("persist")}, Config{}, testLogger())
	rc, err := p.Run(context.Background(), []Target{{Owner: "acme", Name: "api"}}, "run-1")
	require.NoError(t, err)

	assert.Equal(t, []string{"fetch", "transform", "persist"}, order)
	assert.Equal(t, StateCompleted, rc.State())

	for _, name := range order {
		cp, ok := rc.Checkpoint(name)
		require.True(t, ok, "checkpoint for %s", name)
		assert.Equal(t, CheckpointCompleted, cp.Status)
	}
}

func TestPipelineAbortOnError(t *testing.T) {
	var ran []string
	failing := &recordingStage{name: "fetch", abort: true,
		execute: func(context.Context, *RunContext, Config) error {
			ran = append(ran, "fetch")
			return fmt.Errorf("api down")
		}}
	next := &recordingStage{name: "transform",
		execute: func(context.Context, *RunContext, Config) error {
			ran = append(ran, "transform")
			return nil
		}}

	p := New("ingest", []Stage{failing, next}, Config{}, testLogger())
	rc, err := p.Run(context.Background(), []Target{{Owner: "a", Name: "b"}}, "run-1")
	require.Error(t, err)
	assert.ErrorContains(t, err, "stage fetch failed")

	assert.Equal(t, []string{"fetch"}, ran, "later stages are skipped")
	assert.Equal(t, StateFailed, rc.State())
	cp, ok := rc.Checkpoint("fetch")
	require.True(t, ok)
	assert.Equal(t, CheckpointFailed, cp.Status)
	assert.NotEmpty(t, cp.Error)
}

func TestPipelineContinueOnError(t *testing.T) {
	var ran []string
	tolerant := &recordingStage{name: "transform", abort: false,
		execute: func(context.Context, *RunContext, Config) error {
			ran = append(ran, "transform")
			return fmt.Errorf("one bad payload")
		}}
	next := &recordingStage{name: "persist",
		execute: func(context.Context, *RunContext, Config) error {
			ran = append(ran, "persist")
			return nil
		}}

	p := New("ingest", []Stage{tolerant, next}, Config{}, testLogger())
	rc, err := p.Run(context.Background(), []Target{{Owner: "a", Name: "b"}}, "run-1")
	require.NoError(t, err)

	assert.Equal(t, []string{"transform", "persist"}, ran)
	assert.Equal(t, StateCompleted, rc.State(), "a tolerated failure still completes the run")
	require.Len(t, rc.Errors(), 1)
	assert.Equal(t, "transform", rc.Errors()[0].Stage)
}

func TestPipelineStageTimeout(t *testing.T) {
	slow := &recordingStage{name: "fetch", abort: true,
		execute: func(ctx context.Context, _ *RunContext, _ Config) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
				return nil
			}
		}}

	p := New("ingest", []Stage{slow}, Config{StageTimeout: 10 * time.Millisecond}, testLogger())
	_, err := p.Run(context.Background(), []Target{{Owner: "a", Name: "b"}}, "run-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunBatchedSplitsAndMerges(t *testing.T) {
	var chunkSizes []int
	stage := &recordingStage{name: "fetch",
		execute: func(_ context.Context, rc *RunContext, _ Config) error {
			chunkSizes = append(chunkSizes, len(rc.Targets))
			for range rc.Targets {
				rc.AddRepositories([]models.Repository{{GithubID: 1}})
			}
			return nil
		}}

	targets := []Target{
		{Owner: "a", Name: "1"}, {Owner: "a", Name: "2"}, {Owner: "a", Name: "3"},
		{Owner: "a", Name: "4"}, {Owner: "a", Name: "5"},
	}
	p := New("ingest", []Stage{stage}, Config{}, testLogger())
	master, err := p.RunBatched(context.Background(), targets, 2, "run-1")
	require.NoError(t, err)

	assert.Equal(t, []int{2, 2, 1}, chunkSizes)
	assert.Equal(t, StateCompleted, master.State())
	assert.Equal(t, 5, master.Stats().Repositories)
}

func TestRunBatchedContinuesPastFailedChunk(t *testing.T) {
	stage := &recordingStage{name: "fetch", abort: true,
		execute: func(_ context.Context, rc *RunContext, _ Config) error {
			if rc.Targets[0].Name == "2" {
				return fmt.Errorf("chunk is cursed")
			}
			rc.AddRepositories([]models.Repository{{GithubID: 1}})
			return nil
		}}

	targets := []Target{{Owner: "a", Name: "1"}, {Owner: "a", Name: "2"}, {Owner: "a", Name: "3"}}
	p := New("ingest", []Stage{stage}, Config{}, testLogger())
	master, err := p.RunBatched(context.Background(), targets, 1, "run-1")
	require.NoError(t, err, "a failed chunk does not fail the batched run")

	assert.Equal(t, StateCompleted, master.State())
	assert.Equal(t, 2, master.Stats().Repositories)

	var batches []int
	for _, e := range master.Errors() {
		batches = append(batches, e.Batch)
	}
	assert.Contains(t, batches, 1, "errors carry the index of the chunk that produced them")
}
