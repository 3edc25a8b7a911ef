// Package file stores sessions and profiles as JSON documents on the local filesystem.
//
// Layout under the base directory:
//
//	sessions/<user_id>.json
//	profiles/<user_id>.json
//
// User IDs are path-escaped so any opaque identifier maps to a single file.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/byland-ai/byland/pkg/domain"
)

const ext = ".json"

// Store implements ports.SessionStore and ports.ProfileStore using the local filesystem.
type Store struct {
	BasePath string
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".byland".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = ".byland"
	}
	return &Store{BasePath: basePath}
}

func (s *Store) sessionDir() string { return filepath.Join(s.BasePath, "sessions") }
func (s *Store) profileDir() string { return filepath.Join(s.BasePath, "profiles") }

func fileName(userID string) string {
	return url.PathEscape(userID) + ext
}

// Save persists the session to a JSON file atomically.
func (s *Store) Save(ctx context.Context, userID string, session *domain.Session) error {
	if userID == "" {
		return fmt.Errorf("userID cannot be empty")
	}
	return writeAtomic(s.sessionDir(), fileName(userID), session)
}

// Load retrieves the session from its JSON file.
func (s *Store) Load(ctx context.Context, userID string) (*domain.Session, error) {
	var session domain.Session
	if err := readJSON(filepath.Join(s.sessionDir(), fileName(userID)), &session); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

// Delete removes the session file. Missing sessions are not an error.
func (s *Store) Delete(ctx context.Context, userID string) error {
	err := os.Remove(filepath.Join(s.sessionDir(), fileName(userID)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}

// List returns all stored user IDs, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.sessionDir())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	users := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ext || strings.HasPrefix(name, "tmp-") {
			continue
		}
		id, err := url.PathUnescape(strings.TrimSuffix(name, ext))
		if err != nil {
			continue
		}
		users = append(users, id)
	}
	sort.Strings(users)
	return users, nil
}

// Upsert writes the profile, replacing any previous version.
func (s *Store) Upsert(ctx context.Context, profile *domain.HikerProfile) error {
	if profile.UserID == "" {
		return fmt.Errorf("profile user ID cannot be empty")
	}
	return writeAtomic(s.profileDir(), fileName(profile.UserID), profile)
}

// Get reads the profile of userID.
func (s *Store) Get(ctx context.Context, userID string) (*domain.HikerProfile, error) {
	var profile domain.HikerProfile
	if err := readJSON(filepath.Join(s.profileDir(), fileName(userID)), &profile); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}
	return &profile, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return err
		}
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", filepath.Base(path), err)
	}
	return nil
}

// writeAtomic writes v as JSON to dir/name via a synced temp file and a rename,
// so readers never observe a partial document.
func writeAtomic(dir, name string, v any) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to ensure directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	// Same directory keeps the rename on one filesystem.
	tmpFile, err := os.CreateTemp(dir, "tmp-*"+ext)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath) // no-op once renamed
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, filepath.Join(dir, name)); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
