// Package state provides a persistent JSON store of scan verdicts keyed by
// file path. A verdict is reused only while both the file content and the
// signature set it was computed with are unchanged.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/umbrella-scan/umbrella/internal/types"
)

// Entry is the stored verdict for a single file.
type Entry struct {
	// Digest covers the decoded text and the signature set.
	Digest    string       `json:"digest"`
	Status    types.Status `json:"status"`
	Signature string       `json:"signature,omitempty"`
	UpdatedAt string       `json:"updated_at"`
}

// Store persists verdicts to a JSON file on disk.
type Store struct {
	mu      sync.RWMutex
	Entries map[string]Entry `json:"entries"`
	path    string
}

// New creates a new Store backed by the given file path.
func New(path string) *Store {
	return &Store{
		Entries: make(map[string]Entry),
		path:    path,
	}
}

// DefaultPath returns the default state file path (~/.umbrella/state.json).
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".umbrella/state.json"
	}
	return filepath.Join(home, ".umbrella", "state.json")
}

// Load reads the state file from disk. If the file doesn't exist,
// the store starts empty (no error). Symlinks are rejected.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Lstat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("state file is a symlink (rejected for security): %s", s.path)
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, s); err != nil {
		return fmt.Errorf("parsing %s: %w", s.path, err)
	}
	if s.Entries == nil {
		s.Entries = make(map[string]Entry)
	}
	return nil
}

// Save writes the current state to disk, creating parent directories if needed.
// Directories are created with 0o700, files with 0o600 (owner-only).
// Symlinks are rejected.
func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if info, err := os.Lstat(s.path); err == nil {
		if info.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("state file is a symlink (rejected for security): %s", s.path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0o600)
}

// Lookup returns the stored verdict for path if it was computed for the
// same digest.
func (s *Store) Lookup(path, digest string) (types.Status, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.Entries[key(path)]
	if !ok || e.Digest != digest {
		return types.StatusClean, "", false
	}
	return e.Status, e.Signature, true
}

// Remember records a verdict. Unscannable verdicts are not stored.
func (s *Store) Remember(path, digest string, status types.Status, signature string) {
	if status == types.StatusUnscannable {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Entries[key(path)] = Entry{
		Digest:    digest,
		Status:    status,
		Signature: signature,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// Get returns the raw entry for path.
func (s *Store) Get(path string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.Entries[key(path)]
	return e, ok
}

// Len returns the number of stored verdicts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.Entries)
}

// Path returns the file path of this store.
func (s *Store) Path() string {
	return s.path
}

func key(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
