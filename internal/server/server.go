// Package server provides the REST API with lifecycle management.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/schemacat/schemacat/internal/metrics"
	"github.com/schemacat/schemacat/internal/service"
	"github.com/schemacat/schemacat/internal/store"
)

// Server wraps the echo HTTP server with dependencies and lifecycle
// management.
type Server struct {
	echo      *echo.Echo
	store     *store.Store
	jobs      *service.JobService
	collector *metrics.Collector
	jwtSecret []byte
	logger    *slog.Logger
}

// New creates the API server and registers all routes.
func New(st *store.Store, jobs *service.JobService, collector *metrics.Collector, jwtSecret string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if collector == nil {
		collector = metrics.NewCollector()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:      e,
		store:     st,
		jobs:      jobs,
		collector: collector,
		jwtSecret: []byte(jwtSecret),
		logger:    logger,
	}

	e.Use(echomiddleware.Recover())
	e.Use(s.requestLogger())
	s.routes()

	return s
}

func (s *Server) routes() {
	s.echo.GET("/healthz", s.handleHealth)
	s.echo.POST("/auth/register", s.handleRegister)
	s.echo.POST("/auth/login", s.handleLogin)

	api := s.echo.Group("/api", s.requireAuth)

	api.GET("/databases", s.handleListDatabases)
	api.GET("/databases/:id", s.handleGetDatabase)
	api.PATCH("/databases/:id", s.handleUpdateDatabase)
	api.DELETE("/databases/:id", s.handleDeleteDatabase)
	api.POST("/tables", s.handleCreateTable)
	api.GET("/tables/:id", s.handleGetTable)
	api.PATCH("/tables/:id", s.handleUpdateTable)
	api.DELETE("/tables/:id", s.handleDeleteTable)
	api.PATCH("/columns/:id", s.handleUpdateColumn)

	api.GET("/export/json", s.handleExportJSON)

	api.POST("/ingestion/run", s.handleRunIngestion)
	api.POST("/ingestion/run-sync", s.handleRunIngestionSync)
	api.GET("/ingestion/status/:jobId", s.handleJobStatus)
	api.GET("/ingestion/jobs", s.handleListJobs)
	api.POST("/ingestion/test-connection", s.handleTestConnection)

	api.GET("/stats", s.handleStats)
}

// ServeHTTP makes the server usable directly with httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on addr and blocks until the server stops.
func (s *Server) Start(addr string) error {
	s.logger.Info("starting API server", "addr", addr)
	err := s.echo.Start(addr)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleStats(c echo.Context) error {
	return c.JSON(http.StatusOK, s.collector.Snapshot())
}

// handleHealth reports whether the catalog store is reachable. No auth: load
// balancers and container probes call it.
func (s *Server) handleHealth(c echo.Context) error {
	if err := s.store.Ping(c.Request().Context()); err != nil {
		s.logger.Error("health check failed", "error", err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "catalog store unreachable")
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
