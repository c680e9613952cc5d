package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/schemacat/schemacat/internal/metrics"
	"github.com/schemacat/schemacat/internal/models"
	"github.com/schemacat/schemacat/internal/store"
)

type databaseSummary struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	BusinessDomain string `json:"businessDomain,omitempty"`
	TableCount     int    `json:"tableCount"`
}

func (s *Server) handleListDatabases(c echo.Context) error {
	start := time.Now()
	defer func() { s.collector.RecordTiming(metrics.OpCatalogRead, time.Since(start)) }()

	databases, err := s.store.ListDatabases(c.Request().Context())
	if err != nil {
		return err
	}

	summaries := make([]databaseSummary, 0, len(databases))
	for _, db := range databases {
		summaries = append(summaries, databaseSummary{
			ID:             db.ID,
			Name:           db.DatabaseName,
			Description:    db.Description,
			BusinessDomain: db.BusinessDomain,
			TableCount:     len(db.Tables),
		})
	}

	return c.JSON(http.StatusOK, map[string]any{"databases": summaries})
}

func (s *Server) handleGetDatabase(c echo.Context) error {
	start := time.Now()
	defer func() { s.collector.RecordTiming(metrics.OpCatalogRead, time.Since(start)) }()

	db, err := s.store.DatabaseByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return catalogError(err, "database not found")
	}
	return c.JSON(http.StatusOK, db)
}

type databaseUpdate struct {
	Description    *string `json:"description"`
	BusinessDomain *string `json:"businessDomain"`
	Owner          *string `json:"owner"`
	Sensitivity    *string `json:"sensitivity"`
}

func (s *Server) handleUpdateDatabase(c echo.Context) error {
	start := time.Now()
	defer func() { s.collector.RecordTiming(metrics.OpCatalogWrite, time.Since(start)) }()

	var update databaseUpdate
	if err := c.Bind(&update); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx := c.Request().Context()
	db, err := s.store.DatabaseByID(ctx, c.Param("id"))
	if err != nil {
		return catalogError(err, "database not found")
	}

	changes := newChangeSet()
	if update.Description != nil {
		changes.set("description", db.Description, *update.Description)
		db.Description = *update.Description
	}
	if update.BusinessDomain != nil {
		changes.set("businessDomain", db.BusinessDomain, *update.BusinessDomain)
		db.BusinessDomain = *update.BusinessDomain
	}
	if update.Owner != nil {
		changes.set("owner", db.Owner, *update.Owner)
		db.Owner = *update.Owner
	}
	if update.Sensitivity != nil {
		sensitivity, err := parseSensitivity(*update.Sensitivity)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		changes.set("sensitivity", string(db.Sensitivity), string(sensitivity))
		db.Sensitivity = sensitivity
	}

	if err := s.store.SaveDatabase(ctx, db); err != nil {
		return err
	}
	s.audit(c, "update", "database", db.ID, changes)

	return c.JSON(http.StatusOK, db)
}

func (s *Server) handleDeleteDatabase(c echo.Context) error {
	start := time.Now()
	defer func() { s.collector.RecordTiming(metrics.OpCatalogWrite, time.Since(start)) }()

	if err := s.store.DeleteDatabase(c.Request().Context(), c.Param("id")); err != nil {
		return catalogError(err, "database not found")
	}
	return c.NoContent(http.StatusNoContent)
}

type tableCreate struct {
	DatabaseID    string `json:"databaseId"`
	TechnicalName string `json:"technicalName"`
	DisplayName   string `json:"displayName"`
	Description   string `json:"description"`
}

func (s *Server) handleCreateTable(c echo.Context) error {
	start := time.Now()
	defer func() { s.collector.RecordTiming(metrics.OpCatalogWrite, time.Since(start)) }()

	var req tableCreate
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.TechnicalName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "technicalName is required")
	}

	ctx := c.Request().Context()
	if _, err := s.store.DatabaseByID(ctx, req.DatabaseID); err != nil {
		return catalogError(err, "database not found")
	}

	table := &models.TableMetadata{
		DatabaseID:    req.DatabaseID,
		TechnicalName: req.TechnicalName,
		DisplayName:   req.DisplayName,
		Description:   req.Description,
	}
	if err := s.store.CreateTable(ctx, table); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return echo.NewHTTPError(http.StatusConflict, "table already exists")
		}
		return err
	}

	changes := newChangeSet()
	changes.set("technicalName", "", table.TechnicalName)
	s.audit(c, "create", "table", table.ID, changes)

	return c.JSON(http.StatusCreated, table)
}

func (s *Server) handleDeleteTable(c echo.Context) error {
	start := time.Now()
	defer func() { s.collector.RecordTiming(metrics.OpCatalogWrite, time.Since(start)) }()

	ctx := c.Request().Context()
	table, err := s.store.TableByID(ctx, c.Param("id"))
	if err != nil {
		return catalogError(err, "table not found")
	}
	if err := s.store.DeleteTable(ctx, table.ID); err != nil {
		return catalogError(err, "table not found")
	}

	changes := newChangeSet()
	changes.set("technicalName", table.TechnicalName, "")
	s.audit(c, "delete", "table", table.ID, changes)

	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleGetTable(c echo.Context) error {
	start := time.Now()
	defer func() { s.collector.RecordTiming(metrics.OpCatalogRead, time.Since(start)) }()

	table, err := s.store.TableByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return catalogError(err, "table not found")
	}
	return c.JSON(http.StatusOK, table)
}

type tableUpdate struct {
	DisplayName     *string `json:"displayName"`
	Description     *string `json:"description"`
	BusinessPurpose *string `json:"businessPurpose"`
	Status          *string `json:"status"`
}

func (s *Server) handleUpdateTable(c echo.Context) error {
	start := time.Now()
	defer func() { s.collector.RecordTiming(metrics.OpCatalogWrite, time.Since(start)) }()

	var update tableUpdate
	if err := c.Bind(&update); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx := c.Request().Context()
	table, err := s.store.TableByID(ctx, c.Param("id"))
	if err != nil {
		return catalogError(err, "table not found")
	}

	changes := newChangeSet()
	if update.DisplayName != nil {
		changes.set("displayName", table.DisplayName, *update.DisplayName)
		table.DisplayName = *update.DisplayName
	}
	if update.Description != nil {
		changes.set("description", table.Description, *update.Description)
		table.Description = *update.Description
	}
	if update.BusinessPurpose != nil {
		changes.set("businessPurpose", table.BusinessPurpose, *update.BusinessPurpose)
		table.BusinessPurpose = *update.BusinessPurpose
	}
	if update.Status != nil {
		changes.set("status", table.Status, *update.Status)
		table.Status = *update.Status
	}

	if err := s.store.SaveTable(ctx, table); err != nil {
		return err
	}
	s.audit(c, "update", "table", table.ID, changes)

	return c.JSON(http.StatusOK, table)
}

type columnUpdate struct {
	Description  *string `json:"description"`
	ValidValues  *string `json:"validValues"`
	ExampleValue *string `json:"exampleValue"`
}

func (s *Server) handleUpdateColumn(c echo.Context) error {
	start := time.Now()
	defer func() { s.collector.RecordTiming(metrics.OpCatalogWrite, time.Since(start)) }()

	var update columnUpdate
	if err := c.Bind(&update); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx := c.Request().Context()
	column, err := s.store.ColumnByID(ctx, c.Param("id"))
	if err != nil {
		return catalogError(err, "column not found")
	}

	changes := newChangeSet()
	if update.Description != nil {
		changes.set("description", column.Description, *update.Description)
		column.Description = *update.Description
	}
	if update.ValidValues != nil {
		changes.set("validValues", column.ValidValues, *update.ValidValues)
		column.ValidValues = *update.ValidValues
	}
	if update.ExampleValue != nil {
		changes.set("exampleValue", column.ExampleValue, *update.ExampleValue)
		column.ExampleValue = *update.ExampleValue
	}

	if err := s.store.SaveColumn(ctx, column); err != nil {
		return err
	}
	s.audit(c, "update", "column", column.ID, changes)

	return c.JSON(http.StatusOK, column)
}

// changeSet collects before/after values for audit logging.
type changeSet struct {
	before map[string]string
	after  map[string]string
}

func newChangeSet() *changeSet {
	return &changeSet{before: make(map[string]string), after: make(map[string]string)}
}

func (cs *changeSet) set(field, before, after string) {
	cs.before[field] = before
	cs.after[field] = after
}

func (cs *changeSet) empty() bool {
	return len(cs.after) == 0
}

// audit records a catalog edit. Audit failures are logged, never surfaced:
// the edit itself already succeeded.
func (s *Server) audit(c echo.Context, action, targetType, targetID string, changes *changeSet) {
	if changes.empty() {
		return
	}

	before, _ := json.Marshal(changes.before)
	after, _ := json.Marshal(changes.after)
	entry := models.AuditLog{
		ActionType: action,
		TargetType: targetType,
		TargetID:   targetID,
		Before:     string(before),
		After:      string(after),
	}
	if user := currentUser(c); user != nil {
		entry.UserID = user.ID
	}

	if err := s.store.RecordAudit(c.Request().Context(), entry); err != nil {
		s.logger.Error("audit write failed", "target_type", targetType, "target_id", targetID, "error", err)
	}
}

func parseSensitivity(value string) (models.Sensitivity, error) {
	switch models.Sensitivity(value) {
	case models.SensitivityPublic, models.SensitivityInternal,
		models.SensitivityConfidential, models.SensitivityPII:
		return models.Sensitivity(value), nil
	}
	return "", errors.New("sensitivity must be one of: public, internal, confidential, pii")
}

// catalogError maps store lookup failures to HTTP errors.
func catalogError(err error, notFoundMessage string) error {
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, notFoundMessage)
	}
	return err
}
