// Package tracker drives the lifecycle of ingestion jobs on the client
// side: it starts a run, polls its status on a fixed cadence until the job
// reaches a terminal state, and keeps a history of past runs.
package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/schemacat/schemacat/internal/models"
)

// PollInterval is the fixed status-poll cadence. It is a design constant,
// not user-configurable.
const PollInterval = 3 * time.Second

// StatusAPI is the backend surface the tracker consumes.
type StatusAPI interface {
	StartIngestion(ctx context.Context, req models.IngestionRequest) (string, error)
	JobStatus(ctx context.Context, jobID string) (*models.IngestionJob, error)
}

// ValidationError rejects a malformed start request before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// UnknownStatusError reports a status value outside the enumerated set. The
// raw value is preserved so it can be diagnosed rather than silently polled
// forever.
type UnknownStatusError struct {
	JobID  string
	Status string
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("job %s returned unknown status %q", e.JobID, e.Status)
}

// Options configures a Tracker. The zero value is usable: polling runs at
// PollInterval and signals are dropped.
type Options struct {
	// Interval overrides the poll cadence. Tests use this; production code
	// leaves it zero and gets PollInterval.
	Interval time.Duration

	// OnFinished is invoked (outside the tracker's lock) with the terminal
	// snapshot once a watched job completes or fails. The composing layer
	// typically wires this to History.Refresh.
	OnFinished func(job models.IngestionJob)

	// OnPollError is invoked for each failed poll tick. A failed tick never
	// aborts the watch; this is reporting only.
	OnPollError func(jobID string, err error)

	Logger *slog.Logger
}

// Snapshot is the tracker's observable state, consumed by the view layer.
type Snapshot struct {
	WatchedJobID string
	Job          *models.IngestionJob
	Polling      bool
	// LastPollError is the error from the most recent failed poll, cleared
	// by the next successful one. The view shows the last good snapshot
	// plus this indication, never a blank state.
	LastPollError error
}

// Tracker owns at most one watched ingestion job at a time. All state
// mutations happen under one mutex; the stop channel is the poll handle and
// its presence is the only guard needed against double-polling.
type Tracker struct {
	api         StatusAPI
	interval    time.Duration
	onFinished  func(models.IngestionJob)
	onPollError func(string, error)
	logger      *slog.Logger

	mu          sync.Mutex
	watchedID   string
	lastKnown   *models.IngestionJob
	lastPollErr error
	gen         uint64        // bumped on every watch change; stale-response guard
	stop        chan struct{} // poll handle; nil when not polling
}

// New creates a Tracker talking to api.
func New(api StatusAPI, opts Options) *Tracker {
	interval := opts.Interval
	if interval <= 0 {
		interval = PollInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		api:         api,
		interval:    interval,
		onFinished:  opts.OnFinished,
		onPollError: opts.OnPollError,
		logger:      logger,
	}
}

// StartIngestion validates the request, asks the backend to start a run and
// begins watching the returned job. On failure the previous watch state is
// left untouched and no poll loop is started.
func (t *Tracker) StartIngestion(ctx context.Context, req models.IngestionRequest) (string, error) {
	if strings.TrimSpace(req.ConnectionString) == "" {
		return "", &ValidationError{Field: "connectionString", Reason: "must not be empty"}
	}

	jobID, err := t.api.StartIngestion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("start ingestion: %w", err)
	}

	t.logger.Info("ingestion started", "job_id", jobID)
	t.Watch(jobID)
	return jobID, nil
}

// Watch begins (or restarts) polling for jobID. Any previously held poll
// handle is released first, so at most one handle exists at any instant.
// The first status fetch is issued immediately, not after the first tick.
func (t *Tracker) Watch(jobID string) {
	t.mu.Lock()
	t.releaseLocked()
	t.watchedID = jobID
	t.lastKnown = nil
	t.lastPollErr = nil
	stop := make(chan struct{})
	t.stop = stop
	gen := t.gen
	t.mu.Unlock()

	go t.pollLoop(jobID, gen, stop)
}

// Unwatch releases the poll handle and clears the watch state. It is a
// no-op when nothing is watched. Cancellation is synchronous: once Unwatch
// returns, no in-flight poll for the old job can mutate state.
func (t *Tracker) Unwatch() {
	t.mu.Lock()
	t.releaseLocked()
	t.watchedID = ""
	t.lastKnown = nil
	t.lastPollErr = nil
	t.mu.Unlock()
}

// ViewJob fetches one job snapshot into the display slot without arming a
// timer. An active watch, if any, is released: the display slot shows
// exactly one job at a time.
func (t *Tracker) ViewJob(ctx context.Context, jobID string) (*models.IngestionJob, error) {
	job, err := t.api.JobStatus(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("view job %s: %w", jobID, err)
	}
	job = normalizeUnknown(job)

	t.mu.Lock()
	t.releaseLocked()
	t.watchedID = ""
	t.lastKnown = job
	t.lastPollErr = nil
	t.mu.Unlock()

	snapshot := *job
	return &snapshot, nil
}

// Snapshot returns a copy of the observable state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{
		WatchedJobID:  t.watchedID,
		Polling:       t.stop != nil,
		LastPollError: t.lastPollErr,
	}
	if t.lastKnown != nil {
		job := *t.lastKnown
		snap.Job = &job
	}
	return snap
}

// releaseLocked drops the poll handle and invalidates in-flight responses.
// Callers must hold t.mu.
func (t *Tracker) releaseLocked() {
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
	t.gen++
}

// pollLoop fetches immediately, then once per tick until the watch ends.
// Each fetch completes before the next becomes eligible, so responses are
// applied in request-issue order.
func (t *Tracker) pollLoop(jobID string, gen uint64, stop chan struct{}) {
	if !t.pollOnce(jobID, gen) {
		return
	}

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !t.pollOnce(jobID, gen) {
				return
			}
		}
	}
}

// pollOnce performs one status fetch and applies the result. It returns
// false when the loop must stop: the watch moved on or the job is terminal.
func (t *Tracker) pollOnce(jobID string, gen uint64) bool {
	job, err := t.api.JobStatus(context.Background(), jobID)

	t.mu.Lock()
	if gen != t.gen {
		// The watch moved on while this request was in flight. Late
		// responses for a no-longer-watched job are discarded.
		t.mu.Unlock()
		return false
	}

	if err != nil {
		// Transient failures never abort the watch; only a terminal status
		// or an explicit Unwatch stops polling.
		t.lastPollErr = err
		t.mu.Unlock()
		t.reportPollError(jobID, err)
		return true
	}

	if !job.Status.Known() {
		raw := string(job.Status)
		failed := *normalizeUnknown(job)
		t.lastKnown = &failed
		t.releaseLocked()
		t.mu.Unlock()

		t.reportPollError(jobID, &UnknownStatusError{JobID: jobID, Status: raw})
		t.notifyFinished(failed)
		return false
	}

	t.lastKnown = job
	t.lastPollErr = nil

	if job.Status.Terminal() {
		finished := *job
		t.releaseLocked()
		t.mu.Unlock()

		t.logger.Info("job finished", "job_id", jobID, "status", finished.Status)
		t.notifyFinished(finished)
		return false
	}

	t.mu.Unlock()
	return true
}

func (t *Tracker) reportPollError(jobID string, err error) {
	t.logger.Warn("status poll failed", "job_id", jobID, "error", err)
	if t.onPollError != nil {
		t.onPollError(jobID, err)
	}
}

func (t *Tracker) notifyFinished(job models.IngestionJob) {
	if t.onFinished != nil {
		t.onFinished(job)
	}
}

// normalizeUnknown maps a snapshot with an out-of-set status onto a failed
// one, preserving the raw value in the error message.
func normalizeUnknown(job *models.IngestionJob) *models.IngestionJob {
	if job.Status.Known() {
		return job
	}
	msg := fmt.Sprintf("unknown job status %q", string(job.Status))
	failed := *job
	failed.Status = models.JobStatusFailed
	failed.Error = &msg
	return &failed
}
