package ports

import (
	"context"

	"github.com/byland-ai/byland/pkg/domain"
)

// SessionStore defines the interface for persisting onboarding sessions.
type SessionStore interface {
	// Save persists the session for a given user ID.
	Save(ctx context.Context, userID string, session *domain.Session) error

	// Load retrieves the session for a given user ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, userID string) (*domain.Session, error)

	// Delete removes the session for a given user ID.
	Delete(ctx context.Context, userID string) error

	// List returns the user IDs with a stored session.
	List(ctx context.Context) ([]string, error)
}

// ProfileStore persists confirmed hiker profiles.
type ProfileStore interface {
	// Upsert creates or replaces the profile of profile.UserID.
	Upsert(ctx context.Context, profile *domain.HikerProfile) error

	// Get retrieves a profile.
	// Returns domain.ErrProfileNotFound if the user has none.
	Get(ctx context.Context, userID string) (*domain.HikerProfile, error)
}
