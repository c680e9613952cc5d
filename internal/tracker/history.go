package tracker

import (
	"context"
	"fmt"
	"sync"

	"github.com/schemacat/schemacat/internal/models"
)

// ListAPI is the backend surface the history consumes.
type ListAPI interface {
	ListJobs(ctx context.Context) ([]models.JobSummary, error)
}

// History enumerates the jobs the current user has started, independent of
// which job the Tracker is actively watching. The list order is the
// backend's (most recent first); it is never re-sorted here.
type History struct {
	api ListAPI

	mu   sync.RWMutex
	jobs []models.JobSummary
}

// NewHistory creates an empty history backed by api.
func NewHistory(api ListAPI) *History {
	return &History{api: api}
}

// Refresh re-fetches the job list and replaces it in full. It is safe to
// call at any time, including while a watch is active.
func (h *History) Refresh(ctx context.Context) error {
	jobs, err := h.api.ListJobs(ctx)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}

	h.mu.Lock()
	h.jobs = jobs
	h.mu.Unlock()
	return nil
}

// Jobs returns a copy of the last fetched list.
func (h *History) Jobs() []models.JobSummary {
	h.mu.RLock()
	defer h.mu.RUnlock()

	jobs := make([]models.JobSummary, len(h.jobs))
	copy(jobs, h.jobs)
	return jobs
}
