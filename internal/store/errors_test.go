package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestWrapError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil passes through", nil, nil},
		{"gorm not found", gorm.ErrRecordNotFound, ErrNotFound},
		{
			"uuid cast failure is not found",
			errors.New(`ERROR: invalid input syntax for type uuid: "abc" (SQLSTATE 22P02)`),
			ErrNotFound,
		},
		{
			"unique violation is already exists",
			errors.New(`ERROR: duplicate key value violates unique constraint "idx_users_email" (SQLSTATE 23505)`),
			ErrAlreadyExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wrapError(tt.in)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}

func TestWrapErrorPassesUnknownThrough(t *testing.T) {
	in := errors.New("connection refused")
	got := wrapError(in)
	assert.Equal(t, in, got)
	assert.NotErrorIs(t, got, ErrNotFound)
	assert.NotErrorIs(t, got, ErrAlreadyExists)
}
