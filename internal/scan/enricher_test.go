package scan

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemacat/schemacat/internal/models"
)

// scriptedGenerator returns canned responses in order; the last one repeats.
type scriptedGenerator struct {
	responses []string
	err       error
	calls     int
}

func (g *scriptedGenerator) GenerateWithSystem(ctx context.Context, system, prompt string) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	idx := g.calls - 1
	if idx >= len(g.responses) {
		idx = len(g.responses) - 1
	}
	return g.responses[idx], nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestEnrichDatabaseParsesResponse(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		`{"business_domain": "Sales", "description": "Order tracking.", "sensitivity": "confidential"}`,
	}}
	e := NewEnricher(gen, discardLogger())

	got := e.EnrichDatabase(context.Background(), DatabaseInfo{Name: "orders", Schema: "public", TableCount: 4})

	assert.Equal(t, "Sales", got.BusinessDomain)
	assert.Equal(t, "Order tracking.", got.Description)
	assert.Equal(t, models.SensitivityConfidential, got.Sensitivity)
}

func TestEnrichDatabaseFallsBackOnError(t *testing.T) {
	gen := &scriptedGenerator{err: errors.New("model unavailable")}
	e := NewEnricher(gen, discardLogger())

	got := e.EnrichDatabase(context.Background(), DatabaseInfo{Name: "orders"})

	assert.Equal(t, "Unknown", got.BusinessDomain)
	assert.Equal(t, "Database: orders", got.Description)
	assert.Equal(t, models.SensitivityInternal, got.Sensitivity)
}

func TestEnrichDatabaseStripsMarkdownFences(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		"```json\n{\"business_domain\": \"Finance\", \"description\": \"Ledgers.\", \"sensitivity\": \"pii\"}\n```",
	}}
	e := NewEnricher(gen, discardLogger())

	got := e.EnrichDatabase(context.Background(), DatabaseInfo{Name: "ledger"})

	assert.Equal(t, "Finance", got.BusinessDomain)
	assert.Equal(t, models.SensitivityPII, got.Sensitivity)
}

func TestEnrichTableMapsEnums(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		`{"display_name": "Gold Orders", "description": "Curated orders.", "table_type": "fact",
		  "business_purpose": "Reporting", "sensitivity": "internal"}`,
	}}
	e := NewEnricher(gen, discardLogger())

	table := TableInfo{Name: "gold_orders", Schema: "public", TechnicalName: "public.gold_orders"}
	got := e.EnrichTable(context.Background(), table, []ColumnInfo{{Name: "id", DataType: "uuid"}}, Relationships{})

	assert.Equal(t, "Gold Orders", got.DisplayName)
	assert.Equal(t, models.TableTypeFact, got.TableType)
	assert.Equal(t, "Reporting", got.BusinessPurpose)
}

func TestEnrichTableUnknownTypeDefaultsToRaw(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		`{"display_name": "X", "description": "y", "table_type": "hypercube", "business_purpose": "z", "sensitivity": "internal"}`,
	}}
	e := NewEnricher(gen, discardLogger())

	got := e.EnrichTable(context.Background(), TableInfo{Name: "x"}, nil, Relationships{})

	assert.Equal(t, models.TableTypeRaw, got.TableType)
}

func TestEnrichColumnFlagsPII(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		`{"description": "Customer email address.", "is_pii": true, "valid_values": "", "downstream_usage": "Notifications"}`,
	}}
	e := NewEnricher(gen, discardLogger())

	got := e.EnrichColumn(context.Background(), ColumnInfo{Name: "email", DataType: "text"}, "public.customers")

	assert.True(t, got.IsPII)
	assert.Equal(t, "Customer email address.", got.Description)
	assert.Equal(t, "Notifications", got.DownstreamUsage)
}

func TestEnrichColumnMalformedJSONFallsBack(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{`certainly! here is the metadata you asked for`}}
	e := NewEnricher(gen, discardLogger())

	got := e.EnrichColumn(context.Background(), ColumnInfo{Name: "amount", DataType: "numeric"}, "public.orders")

	assert.Equal(t, "Column: amount (numeric)", got.Description)
	assert.False(t, got.IsPII)
}

func TestNilGeneratorNeverCallsModel(t *testing.T) {
	e := NewEnricher(nil, discardLogger())

	db := e.EnrichDatabase(context.Background(), DatabaseInfo{Name: "d"})
	table := e.EnrichTable(context.Background(), TableInfo{Name: "order_items"}, nil, Relationships{})
	col := e.EnrichColumn(context.Background(), ColumnInfo{Name: "c", DataType: "int"}, "t")

	require.Equal(t, "Database: d", db.Description)
	require.Equal(t, "Order Items", table.DisplayName)
	require.Equal(t, "Column: c (int)", col.Description)
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare json", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  {\"a\":1}\n", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripFences(tt.in); got != tt.want {
				t.Errorf("stripFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTitleCase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"gold_orders", "Gold Orders"},
		{"customers", "Customers"},
		{"raw__events", "Raw Events"},
	}

	for _, tt := range tests {
		if got := titleCase(tt.in); got != tt.want {
			t.Errorf("titleCase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestClassifyCardinality(t *testing.T) {
	tests := []struct {
		name     string
		distinct int64
		total    int64
		want     string
	}{
		{"empty table", 0, 0, "empty"},
		{"unique", 100, 100, "unique"},
		{"low", 3, 1000, "low"},
		{"medium", 50, 1000, "medium"},
		{"high", 950, 1000, "high"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyCardinality(tt.distinct, tt.total); got != tt.want {
				t.Errorf("classifyCardinality(%d, %d) = %q, want %q", tt.distinct, tt.total, got, tt.want)
			}
		})
	}
}
