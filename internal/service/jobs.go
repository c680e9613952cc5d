// Package service provides business logic for schemacat server operations.
package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/schemacat/schemacat/internal/models"
)

var (
	// ErrJobNotFound means no job with that ID exists.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobForbidden means the job belongs to another user.
	ErrJobForbidden = errors.New("job belongs to another user")
)

// Runner executes one ingestion run to completion. *scan.Pipeline satisfies
// it; tests substitute a scripted fake.
type Runner interface {
	Run(ctx context.Context, req models.IngestionRequest) (*models.IngestionStats, error)
}

type jobRecord struct {
	job     models.IngestionJob
	ownerID string
}

// JobService tracks ingestion jobs in memory, scoped per user. Jobs do not
// survive a server restart; clients re-list after reconnecting.
type JobService struct {
	runner Runner
	logger *slog.Logger

	mu   sync.RWMutex
	jobs map[string]*jobRecord
}

// NewJobService creates a job service running ingestions through runner.
func NewJobService(runner Runner, logger *slog.Logger) *JobService {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobService{
		runner: runner,
		logger: logger,
		jobs:   make(map[string]*jobRecord),
	}
}

// Start registers a queued job for userID and launches the ingestion in the
// background. The returned snapshot reflects the queued state.
func (s *JobService) Start(userID string, req models.IngestionRequest) models.IngestionJob {
	job := models.IngestionJob{
		JobID:     uuid.New().String(),
		Status:    models.JobStatusQueued,
		StartedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.jobs[job.JobID] = &jobRecord{job: job, ownerID: userID}
	s.mu.Unlock()

	s.logger.Info("ingestion job queued", "job_id", job.JobID, "user_id", userID)
	go s.run(job.JobID, req)

	return job
}

// RunSync runs an ingestion to completion on the caller's context and
// returns the terminal snapshot. The run is registered like any other job,
// so it also appears in the owner's list. Meant for small databases where
// the caller wants the result in the response; large runs go through Start.
func (s *JobService) RunSync(ctx context.Context, userID string, req models.IngestionRequest) (models.IngestionJob, error) {
	job := models.IngestionJob{
		JobID:     uuid.New().String(),
		Status:    models.JobStatusRunning,
		StartedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.jobs[job.JobID] = &jobRecord{job: job, ownerID: userID}
	s.mu.Unlock()

	s.logger.Info("synchronous ingestion started", "job_id", job.JobID, "user_id", userID)
	stats, err := s.runner.Run(ctx, req)
	s.finish(job.JobID, stats, err)

	snapshot, jobErr := s.Job(userID, job.JobID)
	if jobErr != nil {
		return models.IngestionJob{}, jobErr
	}
	return snapshot, err
}

// run drives one job to a terminal state. It uses a background context so
// an ingestion outlives the HTTP request that started it.
func (s *JobService) run(jobID string, req models.IngestionRequest) {
	s.setStatus(jobID, models.JobStatusRunning)

	stats, err := s.runner.Run(context.Background(), req)
	s.finish(jobID, stats, err)
}

// finish records a job's terminal state.
func (s *JobService) finish(jobID string, stats *models.IngestionStats, err error) {
	s.mu.Lock()
	record, ok := s.jobs[jobID]
	if ok {
		now := time.Now().UTC()
		record.job.CompletedAt = &now
		if err != nil {
			record.job.Status = models.JobStatusFailed
			msg := err.Error()
			record.job.Error = &msg
		} else {
			record.job.Status = models.JobStatusCompleted
			record.job.Stats = stats
		}
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("ingestion job failed", "job_id", jobID, "error", err)
		return
	}
	s.logger.Info("ingestion job completed",
		"job_id", jobID,
		"tables", stats.TablesProcessed,
		"columns", stats.ColumnsProcessed,
		"errors", len(stats.Errors))
}

func (s *JobService) setStatus(jobID string, status models.JobStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.jobs[jobID]; ok {
		record.job.Status = status
	}
}

// Job returns a snapshot of one job. It fails with ErrJobNotFound for an
// unknown ID and ErrJobForbidden when the job belongs to a different user.
func (s *JobService) Job(userID, jobID string) (models.IngestionJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.jobs[jobID]
	if !ok {
		return models.IngestionJob{}, ErrJobNotFound
	}
	if record.ownerID != userID {
		return models.IngestionJob{}, ErrJobForbidden
	}
	return record.job, nil
}

// List returns summaries of the user's jobs, most recent first.
func (s *JobService) List(userID string) []models.JobSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]models.JobSummary, 0)
	for _, record := range s.jobs {
		if record.ownerID != userID {
			continue
		}
		summaries = append(summaries, models.JobSummary{
			JobID:     record.job.JobID,
			Status:    record.job.Status,
			StartedAt: record.job.StartedAt,
		})
	}

	slices.SortFunc(summaries, func(a, b models.JobSummary) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	return summaries
}
