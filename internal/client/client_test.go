package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/schemacat/schemacat/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartIngestionSendsBearerToken(t *testing.T) {
	var gotAuth string
	var gotReq models.IngestionRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(map[string]string{"jobId": "job-42"})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok-abc")
	jobID, err := c.StartIngestion(context.Background(), models.IngestionRequest{
		ConnectionString: "postgresql://u:p@h:5432/db",
		Schema:           "public",
		TablePattern:     "%",
		EnrichWithGPT:    true,
	})
	require.NoError(t, err)

	assert.Equal(t, "job-42", jobID)
	assert.Equal(t, "Bearer tok-abc", gotAuth)
	assert.Equal(t, "postgresql://u:p@h:5432/db", gotReq.ConnectionString)
	assert.True(t, gotReq.EnrichWithGPT)
}

func TestJobStatusDecodesStats(t *testing.T) {
	started := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ingestion/status/job-42", r.URL.Path)
		json.NewEncoder(w).Encode(models.IngestionJob{
			JobID:     "job-42",
			Status:    models.JobStatusCompleted,
			StartedAt: started,
			Stats: &models.IngestionStats{
				DatabasesProcessed: 1,
				TablesProcessed:    10,
				ColumnsProcessed:   120,
				DurationSeconds:    4.2,
				Errors:             []string{"table gold_tmp skipped"},
			},
		})
	}))
	defer srv.Close()

	job, err := New(srv.URL, "tok").JobStatus(context.Background(), "job-42")
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.True(t, job.StartedAt.Equal(started))
	require.NotNil(t, job.Stats)
	assert.Equal(t, 10, job.Stats.TablesProcessed)
	assert.Equal(t, []string{"table gold_tmp skipped"}, job.Stats.Errors)
}

func TestErrorNormalization(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantMsg    string
		wantIs     error
	}{
		{"message extracted", http.StatusBadRequest, `{"message":"invalid connection string"}`, "invalid connection string", nil},
		{"plain body kept", http.StatusInternalServerError, `boom`, "boom", nil},
		{"unauthorized sentinel", http.StatusUnauthorized, `{"message":"invalid auth token"}`, "invalid auth token", ErrUnauthorized},
		{"not found sentinel", http.StatusNotFound, `{"message":"job not found"}`, "job not found", ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL, "tok").ListJobs(context.Background())
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
			if tt.wantIs != nil {
				assert.True(t, errors.Is(err, tt.wantIs))
			}
		})
	}
}

func TestNetworkFailureIsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	_, err := New(srv.URL, "tok").ListJobs(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Zero(t, apiErr.StatusCode)
}

func TestListJobsPreservesBackendOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"jobs": []models.JobSummary{
				{JobID: "job-3", Status: models.JobStatusRunning},
				{JobID: "job-1", Status: models.JobStatusCompleted},
				{JobID: "job-2", Status: models.JobStatusFailed},
			},
		})
	}))
	defer srv.Close()

	jobs, err := New(srv.URL, "tok").ListJobs(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, "job-3", jobs[0].JobID)
	assert.Equal(t, "job-1", jobs[1].JobID)
	assert.Equal(t, "job-2", jobs[2].JobID)
}
