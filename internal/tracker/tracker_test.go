package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/schemacat/schemacat/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testInterval = 10 * time.Millisecond
	settleTime   = 20 * testInterval
	waitTimeout  = 2 * time.Second
)

type scriptStep struct {
	job *models.IngestionJob
	err error
}

// fakeAPI serves scripted status sequences per job id. Once a script is
// exhausted its last step repeats. A gate, when set, blocks responses until
// released so tests can hold a request in flight.
type fakeAPI struct {
	mu         sync.Mutex
	script     map[string][]scriptStep
	calls      map[string]int
	gates      map[string]chan struct{}
	startID    string
	startErr   error
	startCalls int
	list       []models.JobSummary
	listErr    error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		script: make(map[string][]scriptStep),
		calls:  make(map[string]int),
		gates:  make(map[string]chan struct{}),
	}
}

func (f *fakeAPI) StartIngestion(ctx context.Context, req models.IngestionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls++
	return f.startID, f.startErr
}

func (f *fakeAPI) JobStatus(ctx context.Context, jobID string) (*models.IngestionJob, error) {
	f.mu.Lock()
	gate := f.gates[jobID]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[jobID]++

	steps := f.script[jobID]
	if len(steps) == 0 {
		return nil, fmt.Errorf("no script for job %s", jobID)
	}
	i := f.calls[jobID] - 1
	if i >= len(steps) {
		i = len(steps) - 1
	}
	step := steps[i]
	if step.err != nil {
		return nil, step.err
	}
	job := *step.job
	return &job, nil
}

func (f *fakeAPI) ListJobs(ctx context.Context) ([]models.JobSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	jobs := make([]models.JobSummary, len(f.list))
	copy(jobs, f.list)
	return jobs, nil
}

func (f *fakeAPI) count(jobID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[jobID]
}

func statusJob(id string, status models.JobStatus) *models.IngestionJob {
	return &models.IngestionJob{
		JobID:     id,
		Status:    status,
		StartedAt: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestWatchLeavesOnlyLastJobPolling(t *testing.T) {
	api := newFakeAPI()
	for _, id := range []string{"job-a", "job-b", "job-c"} {
		api.script[id] = []scriptStep{{job: statusJob(id, models.JobStatusRunning)}}
	}

	tr := New(api, Options{Interval: testInterval})
	tr.Watch("job-a")
	tr.Watch("job-b")
	tr.Watch("job-c")
	defer tr.Unwatch()

	require.Eventually(t, func() bool { return api.count("job-c") >= 2 }, waitTimeout, time.Millisecond)

	snap := tr.Snapshot()
	assert.Equal(t, "job-c", snap.WatchedJobID)
	assert.True(t, snap.Polling)

	// Earlier watches are released: their poll counts stop growing while
	// job-c keeps being polled.
	countA, countB, countC := api.count("job-a"), api.count("job-b"), api.count("job-c")
	time.Sleep(settleTime)
	assert.Equal(t, countA, api.count("job-a"))
	assert.Equal(t, countB, api.count("job-b"))
	assert.Greater(t, api.count("job-c"), countC)
}

func TestStaleResponseDoesNotOverwriteNewerWatch(t *testing.T) {
	api := newFakeAPI()
	api.script["job-a"] = []scriptStep{{job: statusJob("job-a", models.JobStatusRunning)}}
	api.script["job-b"] = []scriptStep{{job: statusJob("job-b", models.JobStatusRunning)}}

	gate := make(chan struct{})
	api.gates["job-a"] = gate

	// Long interval: only the immediate first fetches happen here.
	tr := New(api, Options{Interval: time.Hour})
	tr.Watch("job-a") // request held in flight by the gate
	tr.Watch("job-b")
	defer tr.Unwatch()

	require.Eventually(t, func() bool {
		snap := tr.Snapshot()
		return snap.Job != nil && snap.Job.JobID == "job-b"
	}, waitTimeout, time.Millisecond)

	// Release job-a's late response; it must be discarded.
	close(gate)
	require.Eventually(t, func() bool { return api.count("job-a") == 1 }, waitTimeout, time.Millisecond)
	time.Sleep(settleTime)

	snap := tr.Snapshot()
	require.NotNil(t, snap.Job)
	assert.Equal(t, "job-b", snap.Job.JobID)
	assert.Equal(t, "job-b", snap.WatchedJobID)
}

func TestPollingStopsAtTerminalStatus(t *testing.T) {
	api := newFakeAPI()
	api.script["job-1"] = []scriptStep{
		{job: statusJob("job-1", models.JobStatusRunning)},
		{job: statusJob("job-1", models.JobStatusRunning)},
		{job: statusJob("job-1", models.JobStatusCompleted)},
	}

	tr := New(api, Options{Interval: testInterval})
	tr.Watch("job-1")

	require.Eventually(t, func() bool { return !tr.Snapshot().Polling }, waitTimeout, time.Millisecond)

	// Exactly 3 polls: the immediate fetch plus two ticks. No 4th is
	// scheduled once the terminal status arrives.
	assert.Equal(t, 3, api.count("job-1"))
	time.Sleep(settleTime)
	assert.Equal(t, 3, api.count("job-1"))

	snap := tr.Snapshot()
	require.NotNil(t, snap.Job)
	assert.Equal(t, models.JobStatusCompleted, snap.Job.Status)
	assert.False(t, snap.Polling)
}

func TestTransientPollFailureDoesNotAbortWatch(t *testing.T) {
	api := newFakeAPI()
	api.script["job-1"] = []scriptStep{
		{job: statusJob("job-1", models.JobStatusRunning)},
		{err: errors.New("connection reset")},
		{job: statusJob("job-1", models.JobStatusCompleted)},
	}

	var mu sync.Mutex
	var pollErrs []error
	tr := New(api, Options{
		Interval: testInterval,
		OnPollError: func(jobID string, err error) {
			mu.Lock()
			pollErrs = append(pollErrs, err)
			mu.Unlock()
		},
	})
	tr.Watch("job-1")

	require.Eventually(t, func() bool { return !tr.Snapshot().Polling }, waitTimeout, time.Millisecond)

	assert.Equal(t, 3, api.count("job-1"))

	snap := tr.Snapshot()
	require.NotNil(t, snap.Job)
	assert.Equal(t, models.JobStatusCompleted, snap.Job.Status)
	assert.NoError(t, snap.LastPollError)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, pollErrs, 1)
	assert.Contains(t, pollErrs[0].Error(), "connection reset")
}

func TestPollFailureKeepsLastGoodSnapshot(t *testing.T) {
	api := newFakeAPI()
	api.script["job-1"] = []scriptStep{
		{job: statusJob("job-1", models.JobStatusRunning)},
		{err: errors.New("gateway timeout")},
	}

	tr := New(api, Options{Interval: testInterval})
	tr.Watch("job-1")
	defer tr.Unwatch()

	require.Eventually(t, func() bool {
		snap := tr.Snapshot()
		return snap.Job != nil && snap.LastPollError != nil
	}, waitTimeout, time.Millisecond)

	snap := tr.Snapshot()
	assert.Equal(t, models.JobStatusRunning, snap.Job.Status)
	assert.Contains(t, snap.LastPollError.Error(), "gateway timeout")
	assert.True(t, snap.Polling)
}

func TestWatchFetchesImmediately(t *testing.T) {
	api := newFakeAPI()
	api.script["job-1"] = []scriptStep{{job: statusJob("job-1", models.JobStatusRunning)}}

	// Interval of an hour: any observed fetch happened before the first tick.
	tr := New(api, Options{Interval: time.Hour})
	tr.Watch("job-1")
	defer tr.Unwatch()

	require.Eventually(t, func() bool {
		snap := tr.Snapshot()
		return snap.Job != nil && snap.Job.Status == models.JobStatusRunning
	}, waitTimeout, time.Millisecond)
	assert.Equal(t, 1, api.count("job-1"))
}

func TestStartIngestionRejectsEmptyConnectionString(t *testing.T) {
	api := newFakeAPI()
	tr := New(api, Options{Interval: testInterval})

	_, err := tr.StartIngestion(context.Background(), models.IngestionRequest{
		ConnectionString: "   ",
		Schema:           "public",
	})

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "connectionString", vErr.Field)
	assert.Zero(t, api.startCalls, "validation must reject before any network call")
	assert.False(t, tr.Snapshot().Polling)
}

func TestStartIngestionFailureLeavesWatchUntouched(t *testing.T) {
	api := newFakeAPI()
	api.script["job-old"] = []scriptStep{{job: statusJob("job-old", models.JobStatusRunning)}}
	api.startErr = errors.New("503 service unavailable")

	tr := New(api, Options{Interval: testInterval})
	tr.Watch("job-old")
	defer tr.Unwatch()

	require.Eventually(t, func() bool { return tr.Snapshot().Job != nil }, waitTimeout, time.Millisecond)

	_, err := tr.StartIngestion(context.Background(), models.IngestionRequest{
		ConnectionString: "postgresql://u:p@h:5432/db",
	})
	require.Error(t, err)

	snap := tr.Snapshot()
	assert.Equal(t, "job-old", snap.WatchedJobID)
	assert.True(t, snap.Polling)
}

func TestUnwatchIsIdempotentAndStopsPolling(t *testing.T) {
	api := newFakeAPI()
	api.script["job-1"] = []scriptStep{{job: statusJob("job-1", models.JobStatusRunning)}}

	tr := New(api, Options{Interval: testInterval})
	tr.Unwatch() // nothing watched: no-op

	tr.Watch("job-1")
	require.Eventually(t, func() bool { return api.count("job-1") >= 1 }, waitTimeout, time.Millisecond)

	tr.Unwatch()
	tr.Unwatch()

	count := api.count("job-1")
	time.Sleep(settleTime)
	assert.LessOrEqual(t, api.count("job-1"), count+1, "at most one in-flight poll may still resolve")

	snap := tr.Snapshot()
	assert.Empty(t, snap.WatchedJobID)
	assert.Nil(t, snap.Job)
	assert.False(t, snap.Polling)
}

func TestViewJobDoesNotArmTimer(t *testing.T) {
	api := newFakeAPI()
	api.script["job-9"] = []scriptStep{{job: statusJob("job-9", models.JobStatusCompleted)}}

	tr := New(api, Options{Interval: testInterval})
	job, err := tr.ViewJob(context.Background(), "job-9")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, job.Status)

	time.Sleep(settleTime)
	assert.Equal(t, 1, api.count("job-9"))

	snap := tr.Snapshot()
	assert.False(t, snap.Polling)
	require.NotNil(t, snap.Job)
	assert.Equal(t, "job-9", snap.Job.JobID)
}

func TestUnknownStatusFailsJobAndReleasesHandle(t *testing.T) {
	api := newFakeAPI()
	api.script["job-1"] = []scriptStep{{job: statusJob("job-1", models.JobStatus("weird"))}}

	var mu sync.Mutex
	var pollErrs []error
	var finished []models.IngestionJob
	tr := New(api, Options{
		Interval: testInterval,
		OnPollError: func(jobID string, err error) {
			mu.Lock()
			pollErrs = append(pollErrs, err)
			mu.Unlock()
		},
		OnFinished: func(job models.IngestionJob) {
			mu.Lock()
			finished = append(finished, job)
			mu.Unlock()
		},
	})
	tr.Watch("job-1")

	require.Eventually(t, func() bool { return !tr.Snapshot().Polling }, waitTimeout, time.Millisecond)

	// No further polls for that job.
	assert.Equal(t, 1, api.count("job-1"))
	time.Sleep(settleTime)
	assert.Equal(t, 1, api.count("job-1"))

	snap := tr.Snapshot()
	require.NotNil(t, snap.Job)
	assert.Equal(t, models.JobStatusFailed, snap.Job.Status)
	require.NotNil(t, snap.Job.Error)
	assert.Contains(t, *snap.Job.Error, "weird")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, pollErrs, 1)
	var unknownErr *UnknownStatusError
	require.True(t, errors.As(pollErrs[0], &unknownErr))
	assert.Equal(t, "weird", unknownErr.Status)
	require.Len(t, finished, 1)
	assert.Equal(t, models.JobStatusFailed, finished[0].Status)
}

func TestEndToEndIngestionScenario(t *testing.T) {
	api := newFakeAPI()
	api.startID = "job-42"
	api.script["job-42"] = []scriptStep{
		{job: statusJob("job-42", models.JobStatusRunning)},
		{job: &models.IngestionJob{
			JobID:     "job-42",
			Status:    models.JobStatusCompleted,
			StartedAt: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
			Stats: &models.IngestionStats{
				DatabasesProcessed: 1,
				TablesProcessed:    10,
				ColumnsProcessed:   120,
				DurationSeconds:    7.5,
			},
		}},
	}
	api.list = []models.JobSummary{
		{JobID: "job-42", Status: models.JobStatusCompleted},
		{JobID: "job-41", Status: models.JobStatusFailed},
	}

	history := NewHistory(api)
	tr := New(api, Options{
		Interval: testInterval,
		OnFinished: func(models.IngestionJob) {
			_ = history.Refresh(context.Background())
		},
	})

	jobID, err := tr.StartIngestion(context.Background(), models.IngestionRequest{
		ConnectionString: "postgresql://u:p@h:5432/db",
		Schema:           "public",
		TablePattern:     "%",
		EnrichWithGPT:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "job-42", jobID)

	require.Eventually(t, func() bool { return !tr.Snapshot().Polling }, waitTimeout, time.Millisecond)
	assert.Equal(t, 2, api.count("job-42"))

	snap := tr.Snapshot()
	require.NotNil(t, snap.Job)
	assert.Equal(t, models.JobStatusCompleted, snap.Job.Status)
	require.NotNil(t, snap.Job.Stats)
	assert.Equal(t, 10, snap.Job.Stats.TablesProcessed)

	// The finished signal refreshed the history; job-42 is its first entry.
	require.Eventually(t, func() bool { return len(history.Jobs()) == 2 }, waitTimeout, time.Millisecond)
	jobs := history.Jobs()
	assert.Equal(t, "job-42", jobs[0].JobID)
	assert.Equal(t, models.JobStatusCompleted, jobs[0].Status)
}
