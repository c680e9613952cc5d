// Package store persists the metadata catalog in Postgres.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/schemacat/schemacat/internal/models"
)

// Config holds catalog database connection settings.
type Config struct {
	URL string
}

// Store wraps the catalog database handle.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open connects to the catalog database and migrates the schema.
func Open(cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := gorm.Open(postgres.Open(cfg.URL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to catalog: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate catalog schema: %w", err)
	}

	logger.Info("catalog store ready")
	return s, nil
}

func (s *Store) migrate() error {
	return s.db.AutoMigrate(
		&models.User{},
		&models.DatabaseMetadata{},
		&models.TableMetadata{},
		&models.ColumnMetadata{},
		&models.AuditLog{},
	)
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping verifies the catalog database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}
