// Package session persists the CLI's auth credentials between runs.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrNotLoggedIn indicates no stored session exists.
var ErrNotLoggedIn = errors.New("not logged in")

// Session holds the bearer credential and identity of the signed-in user.
type Session struct {
	Token     string    `yaml:"token"`
	Email     string    `yaml:"email"`
	ServerURL string    `yaml:"server_url"`
	CreatedAt time.Time `yaml:"created_at"`
}

// Store reads and writes the session file.
type Store struct {
	path string
}

// NewStore creates a store rooted at dir. If dir is empty the default
// ~/.schemacat directory is used.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		dir = filepath.Join(home, ".schemacat")
	}
	return &Store{path: filepath.Join(dir, "session.yaml")}, nil
}

// Load reads the stored session. Returns ErrNotLoggedIn if none exists.
func (s *Store) Load() (*Session, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotLoggedIn
		}
		return nil, fmt.Errorf("read session: %w", err)
	}

	var sess Session
	if err := yaml.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	if sess.Token == "" {
		return nil, ErrNotLoggedIn
	}
	return &sess, nil
}

// Save writes the session, creating the directory if needed. The file is
// user-readable only since it holds a credential.
func (s *Store) Save(sess Session) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	data, err := yaml.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Clear removes the stored session. Clearing a missing session is a no-op.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
