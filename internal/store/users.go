package store

import (
	"context"

	"github.com/schemacat/schemacat/internal/models"
)

// CreateUser inserts a new account. A duplicate email yields
// ErrAlreadyExists.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	return wrapError(s.db.WithContext(ctx).Create(user).Error)
}

// UserByEmail looks up an account by its unique email.
func (s *Store) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "email = ?", email).Error
	if err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}
