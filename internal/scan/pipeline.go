package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/schemacat/schemacat/internal/models"
	"github.com/schemacat/schemacat/internal/store"
)

// Pipeline orchestrates one ingestion run: extract schema facts from the
// target database, optionally enrich them, and upsert catalog records.
type Pipeline struct {
	store    *store.Store
	enricher *Enricher
	logger   *slog.Logger
}

// NewPipeline creates a pipeline writing to st. The enricher may be built
// around a nil Generator, in which case every record gets fallback metadata.
func NewPipeline(st *store.Store, enricher *Enricher, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if enricher == nil {
		enricher = NewEnricher(nil, logger)
	}
	return &Pipeline{store: st, enricher: enricher, logger: logger}
}

// Run ingests metadata from the target database. Per-table failures are
// recorded in the returned stats and processing continues; only target- or
// catalog-level failures abort the run.
func (p *Pipeline) Run(ctx context.Context, req models.IngestionRequest) (*models.IngestionStats, error) {
	schema := req.Schema
	if schema == "" {
		schema = "public"
	}
	pattern := req.TablePattern
	if pattern == "" {
		pattern = "%"
	}

	p.logger.Info("starting metadata ingestion", "schema", schema, "pattern", pattern, "enrich", req.EnrichWithGPT)
	start := time.Now()
	stats := &models.IngestionStats{}

	extractor, err := Connect(ctx, req.ConnectionString, p.logger)
	if err != nil {
		return nil, err
	}
	defer extractor.Close(ctx)

	info, err := extractor.DatabaseInfo(ctx, schema)
	if err != nil {
		return nil, err
	}
	dbID, err := p.upsertDatabase(ctx, info, req.EnrichWithGPT)
	if err != nil {
		return nil, err
	}
	stats.DatabasesProcessed = 1

	tables, err := extractor.Tables(ctx, schema, pattern)
	if err != nil {
		return nil, err
	}
	p.logger.Info("found tables matching pattern", "count", len(tables))

	for _, table := range tables {
		columns, err := p.processTable(ctx, extractor, dbID, table, req.EnrichWithGPT)
		if err != nil {
			msg := fmt.Sprintf("error processing table %s: %v", table.Name, err)
			p.logger.Error("table ingestion failed", "table", table.Name, "error", err)
			stats.Errors = append(stats.Errors, msg)
			continue
		}
		stats.TablesProcessed++
		stats.ColumnsProcessed += columns
	}

	stats.DurationSeconds = time.Since(start).Seconds()
	p.logger.Info("ingestion complete",
		"tables", stats.TablesProcessed,
		"columns", stats.ColumnsProcessed,
		"errors", len(stats.Errors),
		"duration_s", stats.DurationSeconds)
	return stats, nil
}

func (p *Pipeline) upsertDatabase(ctx context.Context, info DatabaseInfo, enrich bool) (string, error) {
	record, err := p.store.DatabaseByName(ctx, info.Name)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("look up database %s: %w", info.Name, err)
	}

	var enriched DatabaseEnrichment
	if enrich {
		enriched = p.enricher.EnrichDatabase(ctx, info)
	} else {
		enriched = DatabaseEnrichment{
			BusinessDomain: "Unknown",
			Description:    fmt.Sprintf("Database: %s", info.Name),
			Sensitivity:    models.SensitivityInternal,
		}
	}

	if record == nil {
		record = &models.DatabaseMetadata{DatabaseName: info.Name}
	}
	record.BusinessDomain = enriched.BusinessDomain
	record.Description = enriched.Description
	record.Sensitivity = enriched.Sensitivity

	if err := p.store.SaveDatabase(ctx, record); err != nil {
		return "", fmt.Errorf("save database %s: %w", info.Name, err)
	}
	p.logger.Info("upserted database", "database", info.Name)
	return record.ID, nil
}

// processTable ingests one table and its columns, returning the number of
// columns processed.
func (p *Pipeline) processTable(ctx context.Context, extractor *Extractor, dbID string, table TableInfo, enrich bool) (int, error) {
	columns, err := extractor.Columns(ctx, table.Schema, table.Name)
	if err != nil {
		return 0, err
	}
	rel, err := extractor.Relationships(ctx, table.Schema, table.Name)
	if err != nil {
		return 0, err
	}

	var enriched TableEnrichment
	if enrich {
		enriched = p.enricher.EnrichTable(ctx, table, columns, rel)
	} else {
		enriched = fallbackTableEnrichment(table)
	}
	if enriched.Description == "" && table.Comment != "" {
		enriched.Description = table.Comment
	}

	tableID, err := p.upsertTable(ctx, dbID, table, enriched, rel)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, col := range columns {
		if err := p.upsertColumn(ctx, tableID, col, table.TechnicalName, enrich); err != nil {
			// A single bad column does not fail the table.
			p.logger.Error("column ingestion failed", "table", table.Name, "column", col.Name, "error", err)
			continue
		}
		processed++
	}

	p.logger.Info("processed table", "table", table.TechnicalName, "columns", processed)
	return processed, nil
}

func (p *Pipeline) upsertTable(ctx context.Context, dbID string, table TableInfo, enriched TableEnrichment, rel Relationships) (string, error) {
	record, err := p.store.TableByTechnicalName(ctx, table.TechnicalName)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("look up table %s: %w", table.TechnicalName, err)
	}

	if record == nil {
		record = &models.TableMetadata{
			DatabaseID:    dbID,
			TechnicalName: table.TechnicalName,
		}
	}
	record.DisplayName = enriched.DisplayName
	record.Description = enriched.Description
	record.TableType = enriched.TableType
	record.BusinessPurpose = enriched.BusinessPurpose
	record.DataSensitivity = enriched.Sensitivity
	record.ForeignKeys = strings.Join(rel.ForeignKeys, "\n")

	if err := p.store.SaveTable(ctx, record); err != nil {
		return "", fmt.Errorf("save table %s: %w", table.TechnicalName, err)
	}
	return record.ID, nil
}

func (p *Pipeline) upsertColumn(ctx context.Context, tableID string, col ColumnInfo, tableContext string, enrich bool) error {
	record, err := p.store.ColumnByTableAndName(ctx, tableID, col.Name)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("look up column %s: %w", col.Name, err)
	}

	var enriched ColumnEnrichment
	if enrich {
		enriched = p.enricher.EnrichColumn(ctx, col, tableContext)
	} else {
		enriched = ColumnEnrichment{
			Description:     fmt.Sprintf("Column: %s (%s)", col.Name, col.DataType),
			DownstreamUsage: "General purpose column",
		}
	}

	if record == nil {
		record = &models.ColumnMetadata{
			TableID:    tableID,
			ColumnName: col.Name,
		}
	}
	record.DataType = col.DataType
	record.Description = enriched.Description
	record.IsNullable = col.IsNullable
	record.IsPII = enriched.IsPII
	record.Cardinality = col.Cardinality
	record.DownstreamUsage = enriched.DownstreamUsage

	record.ValidValues = enriched.ValidValues
	if record.ValidValues == "" {
		record.ValidValues = strings.Join(capList(col.SampleValues, 10), ", ")
	}
	if len(col.SampleValues) > 0 {
		record.ExampleValue = col.SampleValues[0]
	}

	if err := p.store.SaveColumn(ctx, record); err != nil {
		return fmt.Errorf("save column %s: %w", col.Name, err)
	}
	return nil
}
