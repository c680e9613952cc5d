// Package client provides a typed REST client for the schemacat server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/schemacat/schemacat/internal/models"
)

// Client is a REST client for the schemacat server. Every request carries
// the bearer credential supplied at construction time; requests without one
// fail with 401 on the server side.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a new client.
// If baseURL is empty, uses the SCHEMACAT_SERVER_URL env var or defaults to
// localhost:8480. Timeout can be configured via SCHEMACAT_CLIENT_TIMEOUT
// (default 30s; status polls are cheap).
func New(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("SCHEMACAT_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8480"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	timeout := 30 * time.Second
	if t := os.Getenv("SCHEMACAT_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// errorResponse is the error payload shape produced by the server.
type errorResponse struct {
	Message string `json:"message"`
}

// do sends one JSON request and decodes the response into result (when
// non-nil). Non-2xx responses are normalized into *APIError.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("read response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(respBody))
		var errResp errorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Message != "" {
			msg = errResp.Message
		}
		if msg == "" {
			msg = resp.Status
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// =============================================================================
// AUTH
// =============================================================================

// Register creates a new account.
func (c *Client) Register(ctx context.Context, email, name, password string) error {
	payload := map[string]string{"email": email, "name": name, "password": password}
	return c.do(ctx, http.MethodPost, "/auth/register", payload, nil)
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	payload := map[string]string{"email": email, "password": password}

	var result struct {
		AccessToken string `json:"accessToken"`
		TokenType   string `json:"tokenType"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/login", payload, &result); err != nil {
		return "", err
	}
	return result.AccessToken, nil
}

// =============================================================================
// CATALOG
// =============================================================================

// DatabaseSummary is the list-view projection of a cataloged database.
type DatabaseSummary struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	BusinessDomain string `json:"businessDomain,omitempty"`
	TableCount     int    `json:"tableCount"`
}

// ListDatabases returns all cataloged databases.
func (c *Client) ListDatabases(ctx context.Context) ([]DatabaseSummary, error) {
	var result struct {
		Databases []DatabaseSummary `json:"databases"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/databases", nil, &result); err != nil {
		return nil, err
	}
	return result.Databases, nil
}

// GetDatabase returns one database with its tables.
func (c *Client) GetDatabase(ctx context.Context, id string) (*models.DatabaseMetadata, error) {
	var db models.DatabaseMetadata
	if err := c.do(ctx, http.MethodGet, "/api/databases/"+url.PathEscape(id), nil, &db); err != nil {
		return nil, err
	}
	return &db, nil
}

// DatabaseUpdate carries editable database fields; nil fields are untouched.
type DatabaseUpdate struct {
	Description    *string `json:"description,omitempty"`
	BusinessDomain *string `json:"businessDomain,omitempty"`
	Owner          *string `json:"owner,omitempty"`
	Sensitivity    *string `json:"sensitivity,omitempty"`
}

// UpdateDatabase edits database-level metadata.
func (c *Client) UpdateDatabase(ctx context.Context, id string, update DatabaseUpdate) (*models.DatabaseMetadata, error) {
	var db models.DatabaseMetadata
	if err := c.do(ctx, http.MethodPatch, "/api/databases/"+url.PathEscape(id), update, &db); err != nil {
		return nil, err
	}
	return &db, nil
}

// GetTable returns one table with its columns.
func (c *Client) GetTable(ctx context.Context, id string) (*models.TableMetadata, error) {
	var table models.TableMetadata
	if err := c.do(ctx, http.MethodGet, "/api/tables/"+url.PathEscape(id), nil, &table); err != nil {
		return nil, err
	}
	return &table, nil
}

// TableUpdate carries editable table fields; nil fields are untouched.
type TableUpdate struct {
	DisplayName     *string `json:"displayName,omitempty"`
	Description     *string `json:"description,omitempty"`
	BusinessPurpose *string `json:"businessPurpose,omitempty"`
	Status          *string `json:"status,omitempty"`
}

// UpdateTable edits table-level metadata.
func (c *Client) UpdateTable(ctx context.Context, id string, update TableUpdate) (*models.TableMetadata, error) {
	var table models.TableMetadata
	if err := c.do(ctx, http.MethodPatch, "/api/tables/"+url.PathEscape(id), update, &table); err != nil {
		return nil, err
	}
	return &table, nil
}

// ColumnUpdate carries editable column fields; nil fields are untouched.
type ColumnUpdate struct {
	Description  *string `json:"description,omitempty"`
	ValidValues  *string `json:"validValues,omitempty"`
	ExampleValue *string `json:"exampleValue,omitempty"`
}

// UpdateColumn edits column-level metadata.
func (c *Client) UpdateColumn(ctx context.Context, id string, update ColumnUpdate) (*models.ColumnMetadata, error) {
	var column models.ColumnMetadata
	if err := c.do(ctx, http.MethodPatch, "/api/columns/"+url.PathEscape(id), update, &column); err != nil {
		return nil, err
	}
	return &column, nil
}

// =============================================================================
// INGESTION
// =============================================================================

// StartIngestion triggers a metadata-ingestion run and returns its job id.
func (c *Client) StartIngestion(ctx context.Context, req models.IngestionRequest) (string, error) {
	var result struct {
		JobID string `json:"jobId"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/ingestion/run", req, &result); err != nil {
		return "", err
	}
	return result.JobID, nil
}

// JobStatus fetches the current snapshot of one ingestion job.
func (c *Client) JobStatus(ctx context.Context, jobID string) (*models.IngestionJob, error) {
	var job models.IngestionJob
	if err := c.do(ctx, http.MethodGet, "/api/ingestion/status/"+url.PathEscape(jobID), nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// ListJobs returns the caller's ingestion jobs, most recent first. Ordering
// is the backend's; callers do not re-sort.
func (c *Client) ListJobs(ctx context.Context) ([]models.JobSummary, error) {
	var result struct {
		Jobs []models.JobSummary `json:"jobs"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/ingestion/jobs", nil, &result); err != nil {
		return nil, err
	}
	return result.Jobs, nil
}

// TestConnection probes a target database without running ingestion.
func (c *Client) TestConnection(ctx context.Context, connectionString string) (*models.ConnectionTestResult, error) {
	payload := map[string]string{"connectionString": connectionString}

	var result models.ConnectionTestResult
	if err := c.do(ctx, http.MethodPost, "/api/ingestion/test-connection", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
