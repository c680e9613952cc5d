package store

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Sentinel errors for catalog operations. Check with errors.Is().
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists indicates a unique constraint was violated, e.g. a
	// second user registering with the same email.
	ErrAlreadyExists = errors.New("record already exists")
)

// wrapError maps driver-level failures onto the package sentinels. Unknown
// errors pass through unchanged.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, err)
	}
	// Postgres rejects non-uuid values in id predicates with a cast error
	// (22P02). From the caller's view that record cannot exist.
	if strings.Contains(err.Error(), "SQLSTATE 22P02") ||
		strings.Contains(err.Error(), "invalid input syntax for type uuid") {
		return fmt.Errorf("%w: %s", ErrNotFound, err)
	}
	if strings.Contains(err.Error(), "duplicate key value") ||
		strings.Contains(err.Error(), "SQLSTATE 23505") {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, err)
	}
	return err
}
