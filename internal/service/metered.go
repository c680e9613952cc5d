package service

import (
	"context"
	"time"

	"github.com/schemacat/schemacat/internal/metrics"
	"github.com/schemacat/schemacat/internal/models"
)

// MeteredRunner wraps a Runner and records per-run timing and record counts.
type MeteredRunner struct {
	runner    Runner
	collector *metrics.Collector
}

// NewMeteredRunner wraps runner with metrics collection.
func NewMeteredRunner(runner Runner, collector *metrics.Collector) *MeteredRunner {
	return &MeteredRunner{runner: runner, collector: collector}
}

func (m *MeteredRunner) Run(ctx context.Context, req models.IngestionRequest) (*models.IngestionStats, error) {
	start := time.Now()
	stats, err := m.runner.Run(ctx, req)

	var tables, columns int64
	if stats != nil {
		tables = int64(stats.TablesProcessed)
		columns = int64(stats.ColumnsProcessed)
	}
	m.collector.RecordIngestion(time.Since(start), tables, columns)

	return stats, err
}
