package scan

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/schemacat/schemacat/internal/models"
)

const enricherSystemPrompt = "You are a data catalog expert. Respond ONLY with valid JSON."

// Generator produces text from a system and a user prompt. *llm.Model
// satisfies it; tests substitute a scripted fake.
type Generator interface {
	GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Enricher derives semantic metadata from raw schema facts using an LLM.
// Enrichment is best-effort: every method falls back to deterministic
// defaults on any failure, so a flaky model never fails an ingestion run.
type Enricher struct {
	llm    Generator
	logger *slog.Logger
}

// NewEnricher creates an enricher. A nil llm disables model calls entirely:
// every enrichment returns its fallback.
func NewEnricher(llm Generator, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{llm: llm, logger: logger}
}

// DatabaseEnrichment is semantic metadata for a database.
type DatabaseEnrichment struct {
	BusinessDomain string
	Description    string
	Sensitivity    models.Sensitivity
}

// EnrichDatabase derives database-level metadata.
func (e *Enricher) EnrichDatabase(ctx context.Context, info DatabaseInfo) DatabaseEnrichment {
	fallback := DatabaseEnrichment{
		BusinessDomain: "Unknown",
		Description:    fmt.Sprintf("Database: %s", info.Name),
		Sensitivity:    models.SensitivityInternal,
	}
	if e.llm == nil {
		return fallback
	}

	prompt := fmt.Sprintf(`Analyze this database and provide semantic metadata:

Database Name: %s
Schema: %s
Table Count: %d

Respond with ONLY valid JSON (no markdown, no explanation):
{
    "business_domain": "Primary business domain (e.g., Sales, Finance, Operations)",
    "description": "2-3 sentence description of database purpose",
    "sensitivity": "internal|confidential|pii|public"
}`, info.Name, info.Schema, info.TableCount)

	var raw struct {
		BusinessDomain string `json:"business_domain"`
		Description    string `json:"description"`
		Sensitivity    string `json:"sensitivity"`
	}
	if err := e.generateJSON(ctx, prompt, &raw); err != nil {
		e.logger.Warn("database enrichment failed", "database", info.Name, "error", err)
		return fallback
	}

	return DatabaseEnrichment{
		BusinessDomain: nonEmpty(raw.BusinessDomain, fallback.BusinessDomain),
		Description:    nonEmpty(raw.Description, fallback.Description),
		Sensitivity:    parseSensitivity(raw.Sensitivity),
	}
}

// TableEnrichment is semantic metadata for a table.
type TableEnrichment struct {
	DisplayName     string
	Description     string
	TableType       models.TableType
	BusinessPurpose string
	Sensitivity     models.Sensitivity
}

// EnrichTable derives table-level metadata from its columns and
// relationships.
func (e *Enricher) EnrichTable(ctx context.Context, table TableInfo, columns []ColumnInfo, rel Relationships) TableEnrichment {
	fallback := fallbackTableEnrichment(table)
	if e.llm == nil {
		return fallback
	}

	// Cap the context to stay inside token limits.
	columnSummary := make([]string, 0, 15)
	for _, col := range columns {
		if len(columnSummary) == 15 {
			break
		}
		columnSummary = append(columnSummary, fmt.Sprintf("%s (%s)", col.Name, col.DataType))
	}

	prompt := fmt.Sprintf(`Analyze this database table and provide semantic metadata:

Table: %s
Row Count: %d
Columns: %s
Foreign Keys: %s
Referenced By: %s

Respond with ONLY valid JSON (no markdown, no explanation):
{
    "display_name": "User-friendly table name",
    "description": "2-3 sentence description of table purpose",
    "table_type": "fact|dimension|reference|staging|raw|view",
    "business_purpose": "How this table supports business operations",
    "sensitivity": "internal|confidential|pii|public"
}`,
		table.TechnicalName,
		table.RowCount,
		strings.Join(columnSummary, ", "),
		strings.Join(capList(rel.ForeignKeys, 5), ", "),
		strings.Join(capList(rel.ReferencedBy, 5), ", "))

	var raw struct {
		DisplayName     string `json:"display_name"`
		Description     string `json:"description"`
		TableType       string `json:"table_type"`
		BusinessPurpose string `json:"business_purpose"`
		Sensitivity     string `json:"sensitivity"`
	}
	if err := e.generateJSON(ctx, prompt, &raw); err != nil {
		e.logger.Warn("table enrichment failed", "table", table.Name, "error", err)
		return fallback
	}

	return TableEnrichment{
		DisplayName:     nonEmpty(raw.DisplayName, fallback.DisplayName),
		Description:     nonEmpty(raw.Description, fallback.Description),
		TableType:       parseTableType(raw.TableType),
		BusinessPurpose: nonEmpty(raw.BusinessPurpose, fallback.BusinessPurpose),
		Sensitivity:     parseSensitivity(raw.Sensitivity),
	}
}

// ColumnEnrichment is semantic metadata for a column.
type ColumnEnrichment struct {
	Description     string
	IsPII           bool
	ValidValues     string
	DownstreamUsage string
}

// EnrichColumn derives column-level metadata.
func (e *Enricher) EnrichColumn(ctx context.Context, col ColumnInfo, tableContext string) ColumnEnrichment {
	fallback := ColumnEnrichment{
		Description:     fmt.Sprintf("Column: %s (%s)", col.Name, col.DataType),
		DownstreamUsage: "General purpose column",
	}
	if e.llm == nil {
		return fallback
	}

	prompt := fmt.Sprintf(`Analyze this database column and provide semantic metadata:

Table Context: %s
Column: %s
Data Type: %s
Nullable: %t
Cardinality: %s
Sample Values: %s

Respond with ONLY valid JSON (no markdown, no explanation):
{
    "description": "Clear 1-2 sentence description of what this column represents",
    "is_pii": true|false,
    "valid_values": "Description of valid values or range (if applicable)",
    "downstream_usage": "How analytics/reports typically use this column"
}`,
		tableContext, col.Name, col.DataType, col.IsNullable, col.Cardinality,
		strings.Join(capList(col.SampleValues, 5), ", "))

	var raw struct {
		Description     string `json:"description"`
		IsPII           bool   `json:"is_pii"`
		ValidValues     string `json:"valid_values"`
		DownstreamUsage string `json:"downstream_usage"`
	}
	if err := e.generateJSON(ctx, prompt, &raw); err != nil {
		e.logger.Warn("column enrichment failed", "column", col.Name, "error", err)
		return fallback
	}

	return ColumnEnrichment{
		Description:     nonEmpty(raw.Description, fallback.Description),
		IsPII:           raw.IsPII,
		ValidValues:     raw.ValidValues,
		DownstreamUsage: nonEmpty(raw.DownstreamUsage, fallback.DownstreamUsage),
	}
}

// generateJSON runs one prompt and decodes the response into out.
func (e *Enricher) generateJSON(ctx context.Context, prompt string, out any) error {
	response, err := e.llm.GenerateWithSystem(ctx, enricherSystemPrompt, prompt)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(stripFences(response)), out); err != nil {
		return fmt.Errorf("parse enrichment response: %w", err)
	}
	return nil
}

func fallbackTableEnrichment(table TableInfo) TableEnrichment {
	return TableEnrichment{
		DisplayName:     titleCase(table.Name),
		Description:     fmt.Sprintf("Table: %s", table.Name),
		TableType:       models.TableTypeRaw,
		BusinessPurpose: fmt.Sprintf("Data storage for %s", table.Name),
		Sensitivity:     models.SensitivityInternal,
	}
}

func parseSensitivity(s string) models.Sensitivity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "public":
		return models.SensitivityPublic
	case "confidential":
		return models.SensitivityConfidential
	case "pii":
		return models.SensitivityPII
	default:
		return models.SensitivityInternal
	}
}

func parseTableType(s string) models.TableType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fact":
		return models.TableTypeFact
	case "dimension":
		return models.TableTypeDimension
	case "reference":
		return models.TableTypeReference
	case "staging":
		return models.TableTypeStaging
	case "view":
		return models.TableTypeView
	default:
		return models.TableTypeRaw
	}
}

// stripFences removes a markdown code fence if the model wrapped its JSON in
// one despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// titleCase turns a technical name like "gold_orders" into "Gold Orders".
func titleCase(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == ' '
	})
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func capList(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func nonEmpty(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
