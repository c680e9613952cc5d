package store

import (
	"context"

	"github.com/schemacat/schemacat/internal/models"
)

// RecordAudit logs a catalog edit. Audit failures are reported to the
// caller but are typically logged and not treated as fatal.
func (s *Store) RecordAudit(ctx context.Context, entry models.AuditLog) error {
	return wrapError(s.db.WithContext(ctx).Create(&entry).Error)
}

// AuditTrail returns the most recent audit entries, newest first.
func (s *Store) AuditTrail(ctx context.Context, limit int) ([]models.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}
	var entries []models.AuditLog
	err := s.db.WithContext(ctx).
		Order("timestamp DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, wrapError(err)
}
