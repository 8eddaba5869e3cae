package pipeline

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reposcope/reposcope/pkg/models"
)

func TestRunContextLifecycle(t *testing.T) {
	rc := NewRunContext("", []Target{{Owner: "acme", Name: "api"}})
	assert.NotEmpty(t, rc.RunID, "a run id is generated when none is given")
	assert.Equal(t, StatePending, rc.State())
	assert.Equal(t, time.Duration(0), rc.Duration())

	rc.Start()
	assert.Equal(t, StateRunning, rc.State())

	rc.Complete()
	assert.Equal(t, StateCompleted, rc.State())
	assert.Greater(t, rc.Duration(), time.Duration(0))
}

func TestRunContextFailOnlyWhileRunning(t *testing.T) {
	rc := NewRunContext("run-1", nil)
	rc.Fail(fmt.Errorf("too early"))
	assert.Equal(t, StatePending, rc.State(), "failing a pending run is a no-op")

	rc.Start()
	rc.Fail(fmt.Errorf("boom"))
	assert.Equal(t, StateFailed, rc.State())
	require.Len(t, rc.Errors(), 1)
	assert.Equal(t, "pipeline", rc.Errors()[0].Stage)

	rc.Complete()
	assert.Equal(t, StateFailed, rc.State(), "a failed run stays failed")
}

func TestRunContextCheckpointOverwrite(t *testing.T) {
	rc := NewRunContext("run-1", nil)

	rc.SetCheckpoint("fetch", Checkpoint{Status: CheckpointStarted})
	cp, ok := rc.Checkpoint("fetch")
	require.True(t, ok)
	assert.Equal(t, CheckpointStarted, cp.Status)
	first := cp.Timestamp

	rc.SetCheckpoint("fetch", Checkpoint{Status: CheckpointCompleted, Stats: Stats{Repositories: 3}})
	cp, ok = rc.Checkpoint("fetch")
	require.True(t, ok)
	assert.Equal(t, CheckpointCompleted, cp.Status)
	assert.Equal(t, 3, cp.Stats.Repositories)
	assert.False(t, cp.Timestamp.Before(first))

	_, ok = rc.Checkpoint("persist")
	assert.False(t, ok)
}

func TestRunContextCountersTrackBuffers(t *testing.T) {
	rc := NewRunContext("run-1", nil)

	rc.AddRepositories([]models.Repository{{GithubID: 1}, {GithubID: 2}})
	rc.AddContributors([]models.Contributor{{GithubID: 3}})
	rc.AddMergeRequests([]models.MergeRequest{{GithubID: 4}})
	rc.AddCommits([]models.Commit{{SHA: "abc"}, {SHA: "def"}, {SHA: "ghi"}})
	rc.RecordError("fetch", fmt.Errorf("transient"))

	stats := rc.Stats()
	assert.Equal(t, 2, stats.Repositories)
	assert.Equal(t, 1, stats.Contributors)
	assert.Equal(t, 1, stats.MergeRequests)
	assert.Equal(t, 3, stats.Commits)
	assert.Equal(t, 1, stats.Errors)

	assert.Len(t, rc.Repositories(), 2)
	assert.Len(t, rc.Commits(), 3)
}

func TestRunContextSummary(t *testing.T) {
	rc := NewRunContext("run-9", nil)
	rc.Start()
	rc.AddRepositories([]models.Repository{{GithubID: 1}})
	rc.RecordError("transform", fmt.Errorf("bad payload"))
	rc.Complete()

	s := rc.Summary()
	assert.Equal(t, "run-9", s.RunID)
	assert.Equal(t, StateCompleted, s.State)
	assert.True(t, s.HasErrors)
	assert.Equal(t, 1, s.ErrorCount)
	assert.Equal(t, 1, s.Stats.Repositories)
	assert.Greater(t, s.Duration, time.Duration(0))
}

func TestMergeStampsBatchIndex(t *testing.T) {
	master := NewRunContext("master", nil)
	master.Start()

	sub := NewRunContext("master-batch-2", nil)
	sub.Start()
	sub.AddRepositories([]models.Repository{{GithubID: 1}})
	sub.RecordError("fetch", fmt.Errorf("boom"))

	master.merge(sub, 2)

	require.Len(t, master.Errors(), 1)
	assert.Equal(t, 2, master.Errors()[0].Batch)
	assert.Equal(t, 1, master.Stats().Repositories)
	assert.Equal(t, 1, master.Stats().Errors)
}
