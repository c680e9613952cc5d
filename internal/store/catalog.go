package store

import (
	"context"

	"github.com/schemacat/schemacat/internal/models"
)

// ListDatabases returns all cataloged databases with their tables loaded.
func (s *Store) ListDatabases(ctx context.Context) ([]models.DatabaseMetadata, error) {
	var dbs []models.DatabaseMetadata
	err := s.db.WithContext(ctx).
		Preload("Tables").
		Order("database_name").
		Find(&dbs).Error
	return dbs, wrapError(err)
}

// DatabaseByID returns one database with its tables.
func (s *Store) DatabaseByID(ctx context.Context, id string) (*models.DatabaseMetadata, error) {
	var db models.DatabaseMetadata
	err := s.db.WithContext(ctx).
		Preload("Tables").
		First(&db, "id = ?", id).Error
	if err != nil {
		return nil, wrapError(err)
	}
	return &db, nil
}

// DatabaseByName returns one database by its unique name.
func (s *Store) DatabaseByName(ctx context.Context, name string) (*models.DatabaseMetadata, error) {
	var db models.DatabaseMetadata
	err := s.db.WithContext(ctx).First(&db, "database_name = ?", name).Error
	if err != nil {
		return nil, wrapError(err)
	}
	return &db, nil
}

// SaveDatabase creates or updates a database record.
func (s *Store) SaveDatabase(ctx context.Context, db *models.DatabaseMetadata) error {
	return wrapError(s.db.WithContext(ctx).Save(db).Error)
}

// DeleteDatabase removes a database. Its tables and columns go with it via
// the FK cascade.
func (s *Store) DeleteDatabase(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&models.DatabaseMetadata{}, "id = ?", id)
	if result.Error != nil {
		return wrapError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// TableByID returns one table with its columns.
func (s *Store) TableByID(ctx context.Context, id string) (*models.TableMetadata, error) {
	var table models.TableMetadata
	err := s.db.WithContext(ctx).
		Preload("Columns").
		First(&table, "id = ?", id).Error
	if err != nil {
		return nil, wrapError(err)
	}
	return &table, nil
}

// TableByTechnicalName returns one table by its unique schema-qualified name.
func (s *Store) TableByTechnicalName(ctx context.Context, technicalName string) (*models.TableMetadata, error) {
	var table models.TableMetadata
	err := s.db.WithContext(ctx).First(&table, "technical_name = ?", technicalName).Error
	if err != nil {
		return nil, wrapError(err)
	}
	return &table, nil
}

// SaveTable creates or updates a table record.
func (s *Store) SaveTable(ctx context.Context, table *models.TableMetadata) error {
	return wrapError(s.db.WithContext(ctx).Save(table).Error)
}

// CreateTable inserts a new table record. A duplicate technical name fails
// with ErrAlreadyExists.
func (s *Store) CreateTable(ctx context.Context, table *models.TableMetadata) error {
	return wrapError(s.db.WithContext(ctx).Create(table).Error)
}

// DeleteTable removes a table and, via the FK cascade, its columns.
func (s *Store) DeleteTable(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&models.TableMetadata{}, "id = ?", id)
	if result.Error != nil {
		return wrapError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// TablesWithColumns returns tables with their columns loaded, ordered by
// technical name. With a non-empty ids list only those tables are returned;
// otherwise the whole catalog.
func (s *Store) TablesWithColumns(ctx context.Context, ids []string) ([]models.TableMetadata, error) {
	query := s.db.WithContext(ctx).
		Preload("Columns").
		Order("technical_name")
	if len(ids) > 0 {
		query = query.Where("id IN ?", ids)
	}

	var tables []models.TableMetadata
	err := query.Find(&tables).Error
	return tables, wrapError(err)
}

// ColumnByID returns one column.
func (s *Store) ColumnByID(ctx context.Context, id string) (*models.ColumnMetadata, error) {
	var column models.ColumnMetadata
	err := s.db.WithContext(ctx).First(&column, "id = ?", id).Error
	if err != nil {
		return nil, wrapError(err)
	}
	return &column, nil
}

// ColumnByTableAndName returns one column by its (table, name) key.
func (s *Store) ColumnByTableAndName(ctx context.Context, tableID, columnName string) (*models.ColumnMetadata, error) {
	var column models.ColumnMetadata
	err := s.db.WithContext(ctx).
		First(&column, "table_id = ? AND column_name = ?", tableID, columnName).Error
	if err != nil {
		return nil, wrapError(err)
	}
	return &column, nil
}

// SaveColumn creates or updates a column record.
func (s *Store) SaveColumn(ctx context.Context, column *models.ColumnMetadata) error {
	return wrapError(s.db.WithContext(ctx).Save(column).Error)
}
