// Package json persists the coach session token pair as a JSON file.
package json

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fwojciec/coach"
)

// Interface compliance check.
var _ coach.SessionStore = (*SessionStore)(nil)

// envelope is the v1 wire format for the persisted token pair. The key
// names are fixed; expiry is deliberately not stored.
type envelope struct {
	Version      int    `json:"version"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// MarshalSession serializes the token pair of s in v1 envelope format.
func MarshalSession(s coach.Session) ([]byte, error) {
	return json.MarshalIndent(envelope{
		Version:      1,
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
	}, "", "  ")
}

// UnmarshalSession deserializes a token pair from v1 envelope format.
func UnmarshalSession(data []byte) (coach.Session, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return coach.Session{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Version != 1 {
		return coach.Session{}, fmt.Errorf("unsupported envelope version: %d", env.Version)
	}
	return coach.Session{AccessToken: env.AccessToken, RefreshToken: env.RefreshToken}, nil
}

// SessionStore implements [coach.SessionStore] on a single file. Writers in
// different processes are not coordinated; the last write wins.
type SessionStore struct {
	path string
}

// NewSessionStore returns a store backed by the file at path.
func NewSessionStore(path string) *SessionStore {
	return &SessionStore{path: path}
}

// Path returns the backing file path.
func (s *SessionStore) Path() string { return s.path }

// Load reads the token pair. It returns [coach.ErrNoSession] when the file
// does not exist.
func (s *SessionStore) Load() (coach.Session, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return coach.Session{}, coach.ErrNoSession
	}
	if err != nil {
		return coach.Session{}, fmt.Errorf("read file: %w", err)
	}
	return UnmarshalSession(data)
}

// Save writes the token pair atomically, creating parent directories as
// needed. The file is readable by the owner only.
func (s *SessionStore) Save(sess coach.Session) error {
	data, err := MarshalSession(sess)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp) // best-effort cleanup
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Clear removes the file. A missing file is not an error.
func (s *SessionStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}
