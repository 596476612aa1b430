// Package identity persists the participant's chosen display name so it
// survives restarts. Absence of a stored name is a normal, expected outcome,
// never an error; a failing store only costs persistence, the session itself
// proceeds.
package identity

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileName is the storage key for the persisted display name.
const FileName = "sp_user"

// Store reads and writes the persisted display name.
type Store interface {
	// Read returns the persisted name. ok is false when nothing usable is
	// stored; that is not an error condition.
	Read() (name string, ok bool)

	// Write persists the name. Callers treat failure as non-fatal.
	Write(name string) error
}

// Compile-time interface checks.
var (
	_ Store = FileStore{}
	_ Store = Noop{}
)

// Noop is the recovery path for storage-unavailable conditions: nothing is
// ever stored, so the user re-enters their name on the next run.
type Noop struct{}

// Read always reports absence.
func (Noop) Read() (string, bool) { return "", false }

// Write discards the name.
func (Noop) Write(string) error { return nil }

// FileStore keeps the display name in a single file under a config
// directory.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at the user config directory,
// e.g. ~/.config/scrum-poker on Linux.
func NewFileStore() (FileStore, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return FileStore{}, fmt.Errorf("identity: resolve config dir: %w", err)
	}

	return FileStore{dir: filepath.Join(base, "scrum-poker")}, nil
}

// NewDirStore returns a store rooted at an explicit directory.
func NewDirStore(dir string) FileStore {
	return FileStore{dir: dir}
}

// Dir returns the directory the store writes into.
func (s FileStore) Dir() string { return s.dir }

func (s FileStore) path() string { return filepath.Join(s.dir, FileName) }

// Read returns the persisted display name. A missing file, unreadable
// storage, or an empty value all report ok=false.
func (s FileStore) Read() (string, bool) {
	data, err := os.ReadFile(s.path())
	if err != nil {
		return "", false
	}

	name := strings.TrimSpace(string(data))
	if name == "" {
		return "", false
	}

	return name, true
}

// Write persists the display name, creating the config directory if needed.
func (s FileStore) Write(name string) error {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("identity: create config dir: %w", err)
	}

	if err := os.WriteFile(s.path(), []byte(name+"\n"), 0o600); err != nil {
		return fmt.Errorf("identity: write name: %w", err)
	}

	return nil
}
