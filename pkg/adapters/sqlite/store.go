// Package sqlite persists onboarding sessions and hiker profiles in a local
// SQLite database (pure Go driver, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/byland-ai/byland/pkg/domain"
	_ "modernc.org/sqlite"
)

// Store implements ports.SessionStore and ports.ProfileStore on one database.
type Store struct {
	db *sql.DB
}

// Open creates the database directory if needed, opens the file in WAL mode
// and ensures the schema exists.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS sessions (
		user_id TEXT PRIMARY KEY,
		current_state TEXT NOT NULL,
		fields_json TEXT NOT NULL,
		profile_summary TEXT NOT NULL DEFAULT '',
		profile_complete INTEGER NOT NULL DEFAULT 0,
		transcript_json TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);

	CREATE TABLE IF NOT EXISTS profiles (
		user_id TEXT PRIMARY KEY,
		fields_json TEXT NOT NULL,
		profile_summary TEXT NOT NULL DEFAULT '',
		profile_complete INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Save creates or replaces the session of userID.
func (s *Store) Save(ctx context.Context, userID string, session *domain.Session) error {
	fields, err := json.Marshal(session.Fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}
	transcript := session.Transcript
	if transcript == nil {
		transcript = []domain.Message{}
	}
	messages, err := json.Marshal(transcript)
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}

	query := `
	INSERT INTO sessions (user_id, current_state, fields_json, profile_summary, profile_complete, transcript_json, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		current_state = excluded.current_state,
		fields_json = excluded.fields_json,
		profile_summary = excluded.profile_summary,
		profile_complete = excluded.profile_complete,
		transcript_json = excluded.transcript_json,
		updated_at = excluded.updated_at`

	_, err = s.db.ExecContext(ctx, query,
		userID, string(session.CurrentState), string(fields),
		session.ProfileSummary, boolToInt(session.ProfileComplete), string(messages),
		session.CreatedAt.UnixMilli(), session.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// Load retrieves the session of userID.
func (s *Store) Load(ctx context.Context, userID string) (*domain.Session, error) {
	query := `
		SELECT current_state, fields_json, profile_summary, profile_complete,
		       transcript_json, created_at, updated_at
		FROM sessions WHERE user_id = ?`

	var (
		state, fields, messages string
		complete                int
		createdAt, updatedAt    int64
	)
	session := &domain.Session{UserID: userID}
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&state, &fields, &session.ProfileSummary, &complete,
		&messages, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	if err := json.Unmarshal([]byte(fields), &session.Fields); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	if err := json.Unmarshal([]byte(messages), &session.Transcript); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}
	session.CurrentState = domain.OnboardingState(state)
	session.ProfileComplete = complete != 0
	session.CreatedAt = time.UnixMilli(createdAt).UTC()
	session.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return session, nil
}

// Delete removes the session of userID. Deleting a missing session is not an error.
func (s *Store) Delete(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// List returns the user IDs with a stored session, most recently updated first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	users := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

// Upsert creates or replaces the profile of profile.UserID.
func (s *Store) Upsert(ctx context.Context, profile *domain.HikerProfile) error {
	fields, err := json.Marshal(profile.ProfileFields)
	if err != nil {
		return fmt.Errorf("marshal profile fields: %w", err)
	}
	updated := profile.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}

	query := `
	INSERT INTO profiles (user_id, fields_json, profile_summary, profile_complete, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		fields_json = excluded.fields_json,
		profile_summary = excluded.profile_summary,
		profile_complete = excluded.profile_complete,
		updated_at = excluded.updated_at`

	_, err = s.db.ExecContext(ctx, query,
		profile.UserID, string(fields), profile.ProfileSummary,
		boolToInt(profile.ProfileComplete), updated.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// Get retrieves the profile of userID.
func (s *Store) Get(ctx context.Context, userID string) (*domain.HikerProfile, error) {
	query := `SELECT fields_json, profile_summary, profile_complete, updated_at FROM profiles WHERE user_id = ?`

	var (
		fields    string
		complete  int
		updatedAt int64
	)
	profile := &domain.HikerProfile{UserID: userID}
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&fields, &profile.ProfileSummary, &complete, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan profile row: %w", err)
	}
	if err := json.Unmarshal([]byte(fields), &profile.ProfileFields); err != nil {
		return nil, fmt.Errorf("decode profile fields: %w", err)
	}
	profile.ProfileComplete = complete != 0
	profile.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return profile, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
