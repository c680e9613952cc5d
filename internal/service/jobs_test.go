package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemacat/schemacat/internal/models"
)

// fakeRunner blocks on release (if set) before returning its scripted result.
type fakeRunner struct {
	stats   *models.IngestionStats
	err     error
	release chan struct{}
}

func (r *fakeRunner) Run(ctx context.Context, req models.IngestionRequest) (*models.IngestionStats, error) {
	if r.release != nil {
		<-r.release
	}
	return r.stats, r.err
}

func newTestService(runner *fakeRunner) *JobService {
	return NewJobService(runner, slog.New(slog.DiscardHandler))
}

func waitForTerminal(t *testing.T, s *JobService, userID, jobID string) models.IngestionJob {
	t.Helper()
	var job models.IngestionJob
	require.Eventually(t, func() bool {
		var err error
		job, err = s.Job(userID, jobID)
		return err == nil && job.Status.Terminal()
	}, 2*time.Second, 5*time.Millisecond)
	return job
}

func TestStartRunsJobToCompletion(t *testing.T) {
	runner := &fakeRunner{stats: &models.IngestionStats{TablesProcessed: 3, ColumnsProcessed: 12}}
	s := newTestService(runner)

	queued := s.Start("user-1", models.IngestionRequest{ConnectionString: "postgres://localhost/db"})
	require.NotEmpty(t, queued.JobID)
	assert.Equal(t, models.JobStatusQueued, queued.Status)

	job := waitForTerminal(t, s, "user-1", queued.JobID)
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	require.NotNil(t, job.Stats)
	assert.Equal(t, 3, job.Stats.TablesProcessed)
	require.NotNil(t, job.CompletedAt)
	assert.Nil(t, job.Error)
}

func TestStartRecordsFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.New("connection refused")}
	s := newTestService(runner)

	queued := s.Start("user-1", models.IngestionRequest{ConnectionString: "postgres://localhost/db"})

	job := waitForTerminal(t, s, "user-1", queued.JobID)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	require.NotNil(t, job.Error)
	assert.Equal(t, "connection refused", *job.Error)
	assert.Nil(t, job.Stats)
}

func TestJobUnknownIDReturnsNotFound(t *testing.T) {
	s := newTestService(&fakeRunner{})

	_, err := s.Job("user-1", "no-such-job")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestJobOtherUserReturnsForbidden(t *testing.T) {
	runner := &fakeRunner{stats: &models.IngestionStats{}}
	s := newTestService(runner)

	queued := s.Start("owner", models.IngestionRequest{ConnectionString: "postgres://localhost/db"})

	_, err := s.Job("intruder", queued.JobID)
	assert.ErrorIs(t, err, ErrJobForbidden)

	_, err = s.Job("owner", queued.JobID)
	assert.NoError(t, err)
}

func TestListIsScopedPerUserAndMostRecentFirst(t *testing.T) {
	runner := &fakeRunner{stats: &models.IngestionStats{}, release: make(chan struct{})}
	s := newTestService(runner)

	first := s.Start("alice", models.IngestionRequest{ConnectionString: "postgres://localhost/a"})
	time.Sleep(2 * time.Millisecond)
	second := s.Start("alice", models.IngestionRequest{ConnectionString: "postgres://localhost/b"})
	s.Start("bob", models.IngestionRequest{ConnectionString: "postgres://localhost/c"})

	jobs := s.List("alice")
	require.Len(t, jobs, 2)
	assert.Equal(t, second.JobID, jobs[0].JobID)
	assert.Equal(t, first.JobID, jobs[1].JobID)

	assert.Len(t, s.List("bob"), 1)
	assert.Empty(t, s.List("carol"))

	close(runner.release)
}

func TestRunSyncReturnsTerminalSnapshot(t *testing.T) {
	runner := &fakeRunner{stats: &models.IngestionStats{TablesProcessed: 5}}
	s := newTestService(runner)

	job, err := s.RunSync(context.Background(), "user-1", models.IngestionRequest{ConnectionString: "postgres://localhost/db"})
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	require.NotNil(t, job.Stats)
	assert.Equal(t, 5, job.Stats.TablesProcessed)
	require.NotNil(t, job.CompletedAt)

	// The run is registered like any other job.
	listed := s.List("user-1")
	require.Len(t, listed, 1)
	assert.Equal(t, job.JobID, listed[0].JobID)
	assert.Equal(t, models.JobStatusCompleted, listed[0].Status)
}

func TestRunSyncSurfacesRunnerError(t *testing.T) {
	runner := &fakeRunner{err: errors.New("target unreachable")}
	s := newTestService(runner)

	_, err := s.RunSync(context.Background(), "user-1", models.IngestionRequest{ConnectionString: "postgres://localhost/db"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target unreachable")

	// The failure is still recorded against the job.
	listed := s.List("user-1")
	require.Len(t, listed, 1)
	job, err := s.Job("user-1", listed[0].JobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	require.NotNil(t, job.Error)
	assert.Equal(t, "target unreachable", *job.Error)
}

func TestRunningJobExposesRunningStatus(t *testing.T) {
	runner := &fakeRunner{stats: &models.IngestionStats{}, release: make(chan struct{})}
	s := newTestService(runner)

	queued := s.Start("user-1", models.IngestionRequest{ConnectionString: "postgres://localhost/db"})

	require.Eventually(t, func() bool {
		job, err := s.Job("user-1", queued.JobID)
		return err == nil && job.Status == models.JobStatusRunning
	}, 2*time.Second, 5*time.Millisecond)

	close(runner.release)
	waitForTerminal(t, s, "user-1", queued.JobID)
}
