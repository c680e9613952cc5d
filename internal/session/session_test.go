package session

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	sess := Session{
		Token:     "tok-123",
		Email:     "ana@example.com",
		ServerURL: "http://localhost:8480",
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, store.Save(sess))

	got, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, sess, *got)
}

func TestLoadWithoutSession(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load()
	require.True(t, errors.Is(err, ErrNotLoggedIn))
}

func TestClearIsIdempotent(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Clear())

	require.NoError(t, store.Save(Session{Token: "tok"}))
	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())

	_, err = store.Load()
	require.True(t, errors.Is(err, ErrNotLoggedIn))
}

func TestLoadRejectsEmptyToken(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save(Session{Email: "ana@example.com"}))

	_, err = store.Load()
	require.True(t, errors.Is(err, ErrNotLoggedIn))
}
