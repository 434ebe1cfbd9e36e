package jsonstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// JSON-backed session storage. Single file, human-readable.
// No locking; one terminal session per datadir is assumed.

const sessionFileName = "session.json"

// Session records a wallet the user explicitly connected, so later
// start-ups can reconnect without asking again.
type Session struct {
	PublicKey string    `json:"public_key"`
	Wallet    string    `json:"wallet"`
	TrustedAt time.Time `json:"trusted_at"`
}

type Store struct {
	path string
}

func New(dir string) *Store {
	return &Store{path: filepath.Join(dir, sessionFileName)}
}

func (s *Store) Path() string { return s.path }

// Load returns nil, nil when no session was saved.
func (s *Store) Load() (*Session, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	return &sess, nil
}

func (s *Store) Save(sess Session) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	b, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	if err := os.WriteFile(s.path, b, 0o600); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

func (s *Store) Delete() error {
	if err := os.Remove(s.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}
