package client

import (
	"errors"
	"fmt"
)

// ErrUnauthorized indicates a missing or expired credential. It is
// propagated to the caller, never retried here.
var ErrUnauthorized = errors.New("unauthorized")

// ErrNotFound indicates the requested resource does not exist.
var ErrNotFound = errors.New("not found")

// APIError is a normalized transport-level failure: a network error or a
// non-2xx response. Message carries the human-readable detail extracted from
// the backend payload when one was present.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return e.Message
	}
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
}

// Unwrap maps well-known status codes onto sentinel errors so callers can
// branch with errors.Is.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case 401:
		return ErrUnauthorized
	case 404:
		return ErrNotFound
	}
	return nil
}
