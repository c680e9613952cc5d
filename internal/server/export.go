package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/schemacat/schemacat/internal/metrics"
	"github.com/schemacat/schemacat/internal/models"
)

type exportColumn struct {
	Name         string `json:"name"`
	DataType     string `json:"dataType,omitempty"`
	IsNullable   bool   `json:"isNullable"`
	IsPrimaryKey bool   `json:"isPrimaryKey"`
	IsPII        bool   `json:"isPii"`
	Description  string `json:"description,omitempty"`
	ExampleValue string `json:"exampleValue,omitempty"`
}

type exportTable struct {
	ID            string         `json:"id"`
	TechnicalName string         `json:"technicalName"`
	DisplayName   string         `json:"displayName,omitempty"`
	Description   string         `json:"description,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	Columns       []exportColumn `json:"columns"`
}

// handleExportJSON dumps tables and their columns as a flat JSON document.
// tableIds narrows the export to a comma-separated id list; without it the
// whole catalog is exported.
func (s *Server) handleExportJSON(c echo.Context) error {
	start := time.Now()
	defer func() { s.collector.RecordTiming(metrics.OpCatalogRead, time.Since(start)) }()

	ids, err := parseTableIDs(c.QueryParam("tableIds"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	tables, err := s.store.TablesWithColumns(c.Request().Context(), ids)
	if err != nil {
		return err
	}

	payload := make([]exportTable, 0, len(tables))
	for _, t := range tables {
		payload = append(payload, toExportTable(t))
	}
	return c.JSON(http.StatusOK, payload)
}

// parseTableIDs splits a comma-separated id list and rejects anything that
// is not a uuid. An empty parameter means "all tables".
func parseTableIDs(param string) ([]string, error) {
	if strings.TrimSpace(param) == "" {
		return nil, nil
	}

	var ids []string
	for _, raw := range strings.Split(param, ",") {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		if _, err := uuid.Parse(id); err != nil {
			return nil, errors.New("invalid table IDs provided")
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errors.New("invalid table IDs provided")
	}
	return ids, nil
}

func toExportTable(t models.TableMetadata) exportTable {
	out := exportTable{
		ID:            t.ID,
		TechnicalName: t.TechnicalName,
		DisplayName:   t.DisplayName,
		Description:   t.Description,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
		Columns:       make([]exportColumn, 0, len(t.Columns)),
	}
	for _, col := range t.Columns {
		out.Columns = append(out.Columns, exportColumn{
			Name:         col.ColumnName,
			DataType:     col.DataType,
			IsNullable:   col.IsNullable,
			IsPrimaryKey: col.IsPrimaryKey,
			IsPII:        col.IsPII,
			Description:  col.Description,
			ExampleValue: col.ExampleValue,
		})
	}
	return out
}
