package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/byland-ai/byland/pkg/domain"
)

// Store implements ports.SessionStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Session
	mu   sync.RWMutex
}

// NewStore creates a new in-memory session store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Session),
	}
}

// Save persists a deep copy of the session.
func (s *Store) Save(ctx context.Context, userID string, session *domain.Session) error {
	copied := session.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[userID] = copied
	return nil
}

// Load retrieves a copy of the session so callers can't mutate the stored one.
func (s *Store) Load(ctx context.Context, userID string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.data[userID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session.Snapshot(), nil
}

// Delete removes the session.
func (s *Store) Delete(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, userID)
	return nil
}

// List returns the stored user IDs in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]string, 0, len(s.data))
	for id := range s.data {
		users = append(users, id)
	}
	sort.Strings(users)
	return users, nil
}

// ProfileStore implements ports.ProfileStore in memory.
type ProfileStore struct {
	data map[string]domain.HikerProfile
	mu   sync.RWMutex
}

// NewProfileStore creates a new in-memory profile store.
func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		data: make(map[string]domain.HikerProfile),
	}
}

// Upsert stores a copy of the profile.
func (s *ProfileStore) Upsert(ctx context.Context, profile *domain.HikerProfile) error {
	copied := *profile
	copied.ProfileFields = profile.ProfileFields.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[profile.UserID] = copied
	return nil
}

// Get returns a copy of the stored profile.
func (s *ProfileStore) Get(ctx context.Context, userID string) (*domain.HikerProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.data[userID]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	p.ProfileFields = p.ProfileFields.Clone()
	return &p, nil
}
