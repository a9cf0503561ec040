package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

const (
	stateDir  = ".atelier"
	stateFile = "current_session"
)

// StateFilePath returns the path of the current-session state file,
// creating ~/.atelier if needed.
func StateFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	dir := filepath.Join(home, stateDir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create state directory: %w", err)
	}
	return filepath.Join(dir, stateFile), nil
}

// withStateLock runs fn while holding an exclusive file lock next to
// the state file, so concurrent CLI invocations don't interleave
// read-modify-write cycles.
func withStateLock(path string, fn func() error) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock state file: %w", err)
	}
	defer func() { _ = lock.Unlock() }()
	return fn()
}

// LoadCurrentID returns the session ID the CLI last worked in, or nil
// when no current session is recorded. A missing file is not an error.
func LoadCurrentID() (*uuid.UUID, error) {
	path, err := StateFilePath()
	if err != nil {
		return nil, err
	}

	var id *uuid.UUID
	err = withStateLock(path, func() error {
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read state file: %w", err)
		}
		raw := strings.TrimSpace(string(data))
		if raw == "" {
			return nil
		}
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid session id in state file: %w", err)
		}
		id = &parsed
		return nil
	})
	return id, err
}

// SaveCurrentID records the session the CLI is working in.
func SaveCurrentID(id uuid.UUID) error {
	path, err := StateFilePath()
	if err != nil {
		return err
	}
	return withStateLock(path, func() error {
		if err := os.WriteFile(path, []byte(id.String()), 0o600); err != nil {
			return fmt.Errorf("write state file: %w", err)
		}
		return nil
	})
}

// ClearCurrentID forgets the current session. Idempotent.
func ClearCurrentID() error {
	path, err := StateFilePath()
	if err != nil {
		return err
	}
	return withStateLock(path, func() error {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove state file: %w", err)
		}
		return nil
	})
}
