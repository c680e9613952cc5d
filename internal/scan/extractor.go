// Package scan extracts schema metadata from a target Postgres database and
// enriches it into catalog records.
package scan

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v4"

	"github.com/schemacat/schemacat/internal/models"
)

// DatabaseInfo is high-level information about the target database.
type DatabaseInfo struct {
	Name       string
	Schema     string
	TableCount int
}

// TableInfo is raw table-level metadata from the target.
type TableInfo struct {
	Name          string
	Schema        string
	TechnicalName string // schema-qualified
	RowCount      int64
	Comment       string
}

// ColumnInfo is raw column-level metadata from the target.
type ColumnInfo struct {
	Name          string
	DataType      string
	IsNullable    bool
	Default       string
	SampleValues  []string
	Cardinality   string
	DistinctCount int64
}

// Relationships lists foreign keys from and into a table, formatted as
// "column -> schema.table.column" and "schema.table.column" respectively.
type Relationships struct {
	ForeignKeys  []string
	ReferencedBy []string
}

// Extractor reads schema metadata from a target database. It holds a single
// connection; extraction queries run sequentially.
type Extractor struct {
	conn   *pgx.Conn
	logger *slog.Logger
}

// Connect opens a connection to the target database.
func Connect(ctx context.Context, connectionString string, logger *slog.Logger) (*Extractor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := pgx.Connect(ctx, connectionString)
	if err != nil {
		return nil, fmt.Errorf("connect to target: %w", err)
	}
	return &Extractor{conn: conn, logger: logger}, nil
}

// Close releases the target connection.
func (e *Extractor) Close(ctx context.Context) error {
	return e.conn.Close(ctx)
}

// Probe validates connectivity and reports basic facts about the target.
func (e *Extractor) Probe(ctx context.Context) (*models.ConnectionTestResult, error) {
	var dbName, version string
	err := e.conn.QueryRow(ctx, "SELECT current_database(), version()").Scan(&dbName, &version)
	if err != nil {
		return nil, fmt.Errorf("probe target: %w", err)
	}
	// Keep only the "PostgreSQL x.y" part of the version banner.
	if i := strings.Index(version, ","); i > 0 {
		version = version[:i]
	}

	var tableCount int
	err = e.conn.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
	`).Scan(&tableCount)
	if err != nil {
		return nil, fmt.Errorf("count tables: %w", err)
	}

	return &models.ConnectionTestResult{
		Success:    true,
		Database:   dbName,
		Version:    version,
		TableCount: tableCount,
		Message:    "Connection successful",
	}, nil
}

// DatabaseInfo extracts high-level database information.
func (e *Extractor) DatabaseInfo(ctx context.Context, schema string) (DatabaseInfo, error) {
	var info DatabaseInfo
	info.Schema = schema

	if err := e.conn.QueryRow(ctx, "SELECT current_database()").Scan(&info.Name); err != nil {
		return info, fmt.Errorf("current database: %w", err)
	}

	err := e.conn.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
	`, schema).Scan(&info.TableCount)
	if err != nil {
		return info, fmt.Errorf("count tables: %w", err)
	}
	return info, nil
}

// Tables extracts table-level metadata for base tables matching the LIKE
// pattern.
func (e *Extractor) Tables(ctx context.Context, schema, pattern string) ([]TableInfo, error) {
	rows, err := e.conn.Query(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1
			AND table_name LIKE $2
			AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`, schema, pattern)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	rows.Close()
	if rows.Err() != nil {
		return nil, fmt.Errorf("list tables: %w", rows.Err())
	}

	tables := make([]TableInfo, 0, len(names))
	for _, name := range names {
		table := TableInfo{
			Name:          name,
			Schema:        schema,
			TechnicalName: schema + "." + name,
		}

		var estimate *int64
		err := e.conn.QueryRow(ctx, `
			SELECT reltuples::bigint
			FROM pg_class
			WHERE relname = $1 AND relnamespace = $2::regnamespace
		`, name, schema).Scan(&estimate)
		if err != nil {
			e.logger.Warn("could not get row count", "table", name, "error", err)
		} else if estimate != nil && *estimate > 0 {
			table.RowCount = *estimate
		}

		var comment *string
		err = e.conn.QueryRow(ctx, `
			SELECT obj_description(
				(quote_ident($1) || '.' || quote_ident($2))::regclass,
				'pg_class'
			)
		`, schema, name).Scan(&comment)
		if err == nil && comment != nil {
			table.Comment = *comment
		}

		tables = append(tables, table)
	}
	return tables, nil
}

// Columns extracts column-level metadata including sample values and a
// cardinality classification.
func (e *Extractor) Columns(ctx context.Context, schema, tableName string) ([]ColumnInfo, error) {
	rows, err := e.conn.Query(ctx, `
		SELECT column_name, data_type, is_nullable, column_default
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`, schema, tableName)
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}

	var columns []ColumnInfo
	for rows.Next() {
		var col ColumnInfo
		var nullable string
		var def *string
		if err := rows.Scan(&col.Name, &col.DataType, &nullable, &def); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan column: %w", err)
		}
		col.IsNullable = nullable == "YES"
		if def != nil {
			col.Default = *def
		}
		columns = append(columns, col)
	}
	rows.Close()
	if rows.Err() != nil {
		return nil, fmt.Errorf("list columns: %w", rows.Err())
	}

	qualified := pgx.Identifier{schema, tableName}.Sanitize()
	for i := range columns {
		col := &columns[i]
		ident := pgx.Identifier{col.Name}.Sanitize()

		// Up to 5 distinct non-null sample values.
		sampleRows, err := e.conn.Query(ctx, fmt.Sprintf(`
			SELECT DISTINCT %s::text
			FROM %s
			WHERE %s IS NOT NULL
			LIMIT 5
		`, ident, qualified, ident))
		if err != nil {
			e.logger.Warn("could not get samples", "table", tableName, "column", col.Name, "error", err)
		} else {
			for sampleRows.Next() {
				var v string
				if err := sampleRows.Scan(&v); err == nil && v != "" {
					col.SampleValues = append(col.SampleValues, v)
				}
			}
			sampleRows.Close()
		}

		var distinct, total int64
		err = e.conn.QueryRow(ctx, fmt.Sprintf(`
			SELECT COUNT(DISTINCT %s), COUNT(*) FROM %s
		`, ident, qualified)).Scan(&distinct, &total)
		if err != nil {
			col.Cardinality = "unknown"
			continue
		}
		col.DistinctCount = distinct
		col.Cardinality = classifyCardinality(distinct, total)
	}

	return columns, nil
}

// Relationships extracts foreign keys from and into a table.
func (e *Extractor) Relationships(ctx context.Context, schema, tableName string) (Relationships, error) {
	var rel Relationships

	rows, err := e.conn.Query(ctx, `
		SELECT
			kcu.column_name,
			ccu.table_schema,
			ccu.table_name,
			ccu.column_name
		FROM information_schema.table_constraints AS tc
		JOIN information_schema.key_column_usage AS kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage AS ccu
			ON ccu.constraint_name = tc.constraint_name
		WHERE tc.constraint_type = 'FOREIGN KEY'
			AND tc.table_schema = $1
			AND tc.table_name = $2
	`, schema, tableName)
	if err != nil {
		return rel, fmt.Errorf("foreign keys: %w", err)
	}
	for rows.Next() {
		var col, fSchema, fTable, fCol string
		if err := rows.Scan(&col, &fSchema, &fTable, &fCol); err != nil {
			rows.Close()
			return rel, fmt.Errorf("scan foreign key: %w", err)
		}
		rel.ForeignKeys = append(rel.ForeignKeys, fmt.Sprintf("%s -> %s.%s.%s", col, fSchema, fTable, fCol))
	}
	rows.Close()
	if rows.Err() != nil {
		return rel, fmt.Errorf("foreign keys: %w", rows.Err())
	}

	rows, err = e.conn.Query(ctx, `
		SELECT tc.table_schema, tc.table_name, kcu.column_name
		FROM information_schema.table_constraints AS tc
		JOIN information_schema.key_column_usage AS kcu
			ON tc.constraint_name = kcu.constraint_name
		JOIN information_schema.constraint_column_usage AS ccu
			ON ccu.constraint_name = tc.constraint_name
		WHERE tc.constraint_type = 'FOREIGN KEY'
			AND ccu.table_schema = $1
			AND ccu.table_name = $2
	`, schema, tableName)
	if err != nil {
		return rel, fmt.Errorf("referencing tables: %w", err)
	}
	for rows.Next() {
		var rSchema, rTable, rCol string
		if err := rows.Scan(&rSchema, &rTable, &rCol); err != nil {
			rows.Close()
			return rel, fmt.Errorf("scan referencing table: %w", err)
		}
		rel.ReferencedBy = append(rel.ReferencedBy, fmt.Sprintf("%s.%s.%s", rSchema, rTable, rCol))
	}
	rows.Close()
	if rows.Err() != nil {
		return rel, fmt.Errorf("referencing tables: %w", rows.Err())
	}

	return rel, nil
}

// classifyCardinality buckets a column by distinct-value count.
func classifyCardinality(distinct, total int64) string {
	switch {
	case total == 0:
		return "empty"
	case distinct == total:
		return "unique"
	case distinct < 10:
		return "low"
	case distinct < 100:
		return "medium"
	default:
		return "high"
	}
}
