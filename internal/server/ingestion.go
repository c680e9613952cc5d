package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/schemacat/schemacat/internal/models"
	"github.com/schemacat/schemacat/internal/scan"
	"github.com/schemacat/schemacat/internal/service"
)

func (s *Server) handleRunIngestion(c echo.Context) error {
	var req models.IngestionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validateConnectionString(req.ConnectionString); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	job := s.jobs.Start(currentUser(c).ID, req)
	return c.JSON(http.StatusOK, map[string]string{"jobId": job.JobID})
}

// handleRunIngestionSync runs the ingestion on the request's context and
// returns the terminal job snapshot. The run is registered like any other
// job, so it also shows up in the owner's job list afterwards.
func (s *Server) handleRunIngestionSync(c echo.Context) error {
	var req models.IngestionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validateConnectionString(req.ConnectionString); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	job, err := s.jobs.RunSync(c.Request().Context(), currentUser(c).ID, req)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "ingestion failed: "+err.Error())
	}
	return c.JSON(http.StatusOK, job)
}

func (s *Server) handleJobStatus(c echo.Context) error {
	job, err := s.jobs.Job(currentUser(c).ID, c.Param("jobId"))
	if err != nil {
		return jobError(err)
	}
	return c.JSON(http.StatusOK, job)
}

func (s *Server) handleListJobs(c echo.Context) error {
	jobs := s.jobs.List(currentUser(c).ID)
	return c.JSON(http.StatusOK, map[string]any{"jobs": jobs})
}

type testConnectionRequest struct {
	ConnectionString string `json:"connectionString"`
}

func (s *Server) handleTestConnection(c echo.Context) error {
	var req testConnectionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validateConnectionString(req.ConnectionString); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	extractor, err := scan.Connect(ctx, req.ConnectionString, s.logger)
	if err != nil {
		// A failed probe is a result, not a server error.
		return c.JSON(http.StatusOK, models.ConnectionTestResult{
			Success: false,
			Message: err.Error(),
		})
	}
	defer extractor.Close(ctx)

	result, err := extractor.Probe(ctx)
	if err != nil {
		return c.JSON(http.StatusOK, models.ConnectionTestResult{
			Success: false,
			Message: err.Error(),
		})
	}
	return c.JSON(http.StatusOK, result)
}

func validateConnectionString(connectionString string) error {
	connectionString = strings.TrimSpace(connectionString)
	if connectionString == "" {
		return errors.New("connectionString is required")
	}
	if !strings.HasPrefix(connectionString, "postgres://") &&
		!strings.HasPrefix(connectionString, "postgresql://") {
		return errors.New("connection string must start with postgres:// or postgresql://")
	}
	return nil
}

func jobError(err error) error {
	switch {
	case errors.Is(err, service.ErrJobNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "job not found")
	case errors.Is(err, service.ErrJobForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "job belongs to another user")
	}
	return err
}
