// Package metrics provides in-memory runtime statistics collection.
package metrics

import (
	"math"
	"sync"
	"time"
)

// OperationMetrics holds aggregated metrics for a single operation type.
type OperationMetrics struct {
	Count     int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration

	// Record counters (only for ingestion runs)
	TotalTables  int64
	TotalColumns int64
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Count       int64   `json:"count"`
	TotalTimeMs int64   `json:"totalTimeMs"`
	AvgTimeMs   float64 `json:"avgTimeMs"`
	MinTimeMs   int64   `json:"minTimeMs"`
	MaxTimeMs   int64   `json:"maxTimeMs"`

	// Record counters (nil if not applicable)
	TotalTables  *int64 `json:"totalTables,omitempty"`
	TotalColumns *int64 `json:"totalColumns,omitempty"`
}

// Snapshot represents the full server statistics at a point in time.
type Snapshot struct {
	UptimeSeconds float64            `json:"uptimeSeconds"`
	IngestionRun  *OperationSnapshot `json:"ingestionRun,omitempty"`
	CatalogRead   *OperationSnapshot `json:"catalogRead,omitempty"`
	CatalogWrite  *OperationSnapshot `json:"catalogWrite,omitempty"`
	Auth          *OperationSnapshot `json:"auth,omitempty"`
}

// Operation names for the collector.
const (
	OpIngestionRun = "ingestion_run"
	OpCatalogRead  = "catalog_read"
	OpCatalogWrite = "catalog_write"
	OpAuth         = "auth"
)

// Collector aggregates in-memory runtime statistics.
// All methods are thread-safe.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	ops       map[string]*OperationMetrics
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
	}
}

// getOrCreate returns existing metrics or creates new ones for an operation.
// Caller must hold write lock.
func (c *Collector) getOrCreate(op string) *OperationMetrics {
	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{MinTime: time.Duration(math.MaxInt64)}
		c.ops[op] = m
	}
	return m
}

// RecordTiming records timing for an operation.
func (c *Collector) RecordTiming(op string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.record(op, duration)
}

// RecordIngestion records timing and record counts for one ingestion run.
func (c *Collector) RecordIngestion(duration time.Duration, tables, columns int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.record(OpIngestionRun, duration)
	m.TotalTables += tables
	m.TotalColumns += columns
}

func (c *Collector) record(op string, duration time.Duration) *OperationMetrics {
	m := c.getOrCreate(op)
	m.Count++
	m.TotalTime += duration

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
	return m
}

// snapshotOp creates a snapshot for an operation, returning nil if no data.
func snapshotOp(m *OperationMetrics, includeRecords bool) *OperationSnapshot {
	if m == nil || m.Count == 0 {
		return nil
	}

	snap := &OperationSnapshot{
		Count:       m.Count,
		TotalTimeMs: m.TotalTime.Milliseconds(),
		AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs:   m.MinTime.Milliseconds(),
		MaxTimeMs:   m.MaxTime.Milliseconds(),
	}

	if includeRecords {
		tables := m.TotalTables
		columns := m.TotalColumns
		snap.TotalTables = &tables
		snap.TotalColumns = &columns
	}

	return snap
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),
		IngestionRun:  snapshotOp(c.ops[OpIngestionRun], true),
		CatalogRead:   snapshotOp(c.ops[OpCatalogRead], false),
		CatalogWrite:  snapshotOp(c.ops[OpCatalogWrite], false),
		Auth:          snapshotOp(c.ops[OpAuth], false),
	}
}
