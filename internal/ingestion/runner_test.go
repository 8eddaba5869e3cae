package ingestion

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reposcope/reposcope/internal/pipeline"
	"github.com/reposcope/reposcope/internal/store/postgres"
	"github.com/reposcope/reposcope/pkg/models"
)

type fakeRunStore struct {
	running  []uuid.UUID
	finished []postgres.FinishIngestRunParams
}

func (s *fakeRunStore) MarkIngestRunRunning(_ context.Context, id uuid.UUID) error {
	s.running = append(s.running, id)
	return nil
}

func (s *fakeRunStore) FinishIngestRun(_ context.Context, p postgres.FinishIngestRunParams) error {
	s.finished = append(s.finished, p)
	return nil
}

type stubStage struct {
	name  string
	abort bool
	run   func(*pipeline.RunContext) error
}

func (s *stubStage) Name() string       { return s.name }
func (s *stubStage) AbortOnError() bool { return s.abort }
func (s *stubStage) Execute(_ context.Context, rc *pipeline.RunContext, _ pipeline.Config) error {
	if s.run != nil {
		return s.run(rc)
	}
	return nil
}

func runnerRegistry(t *testing.T, run func(*pipeline.RunContext) error) *pipeline.Registry {
	t.Helper()
	reg := pipeline.NewRegistry(pipeline.Config{}, quietLogger())
	require.NoError(t, reg.RegisterStage("stub", func() pipeline.Stage {
		return &stubStage{name: "stub", abort: true, run: run}
	}))
	require.NoError(t, reg.RegisterPipeline(PipelineName, []string{"stub"}))
	return reg
}

func TestRunnerRecordsCompletedRun(t *testing.T) {
	runs := &fakeRunStore{}
	reg := runnerRegistry(t, func(rc *pipeline.RunContext) error {
		rc.AddRepositories([]models.Repository{{GithubID: 1, FullName: "acme/api"}})
		return nil
	})
	runner := NewRunner(runs, reg, quietLogger())

	msg := IngestMessage{RunID: uuid.New(), Owner: "acme", Name: "api", Trigger: "manual"}
	require.NoError(t, runner.Handle(context.Background(), msg))

	assert.Equal(t, []uuid.UUID{msg.RunID}, runs.running)
	require.Len(t, runs.finished, 1)
	assert.Equal(t, models.RunStatusCompleted, runs.finished[0].Status)
	assert.Equal(t, 1, runs.finished[0].RepositoriesExtracted)
	assert.Nil(t, runs.finished[0].ErrorMessage)
}

func TestRunnerRecordsFailedRun(t *testing.T) {
	runs := &fakeRunStore{}
	reg := runnerRegistry(t, func(*pipeline.RunContext) error {
		return fmt.Errorf("upstream unavailable")
	})
	runner := NewRunner(runs, reg, quietLogger())

	msg := IngestMessage{RunID: uuid.New(), Owner: "acme", Name: "api", Trigger: "schedule"}
	// A failed run is still a handled message; the run row carries the failure.
	require.NoError(t, runner.Handle(context.Background(), msg))

	require.Len(t, runs.finished, 1)
	assert.Equal(t, models.RunStatusFailed, runs.finished[0].Status)
	require.NotNil(t, runs.finished[0].ErrorMessage)
	assert.Contains(t, *runs.finished[0].ErrorMessage, "upstream unavailable")
	assert.Equal(t, 1, runs.finished[0].ErrorCount)
}
