// Package models defines data structures for the schemacat metadata catalog.
package models

import "time"

// JobStatus represents the state of an ingestion job.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Known reports whether s is one of the enumerated statuses. The backend
// never produces anything else, but clients must not trust that: an
// unrecognized status is surfaced as an error, not polled forever.
func (s JobStatus) Known() bool {
	switch s {
	case JobStatusQueued, JobStatusRunning, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transitions occur for this status.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// IngestionStats holds counters produced by an ingestion run. Counters are
// monotonically non-decreasing across successive status reads of a running
// job; each read supersedes the prior one.
type IngestionStats struct {
	DatabasesProcessed int      `json:"databasesProcessed"`
	TablesProcessed    int      `json:"tablesProcessed"`
	ColumnsProcessed   int      `json:"columnsProcessed"`
	DurationSeconds    float64  `json:"durationSeconds"`
	Errors             []string `json:"errors,omitempty"`
}

// IngestionJob is a snapshot of a backend-tracked ingestion job. The backend
// owns the job; clients only ever hold read copies. StartedAt is set once at
// creation and never changes.
type IngestionJob struct {
	JobID       string          `json:"jobId"`
	Status      JobStatus       `json:"status"`
	StartedAt   time.Time       `json:"startedAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
	Stats       *IngestionStats `json:"stats,omitempty"`
	Error       *string         `json:"error,omitempty"`
}

// JobSummary is the list-view projection of an ingestion job.
type JobSummary struct {
	JobID     string    `json:"jobId"`
	Status    JobStatus `json:"status"`
	StartedAt time.Time `json:"startedAt"`
}

// IngestionRequest carries the parameters for starting an ingestion run.
type IngestionRequest struct {
	ConnectionString string `json:"connectionString"`
	Schema           string `json:"schema"`
	TablePattern     string `json:"tablePattern"`
	EnrichWithGPT    bool   `json:"enrichWithGpt"`
}

// ConnectionTestResult reports the outcome of probing a target database.
type ConnectionTestResult struct {
	Success    bool   `json:"success"`
	Database   string `json:"database"`
	Version    string `json:"version"`
	TableCount int    `json:"tableCount"`
	Message    string `json:"message,omitempty"`
}
