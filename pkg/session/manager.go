package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/byland-ai/byland/internal/logging"
	"github.com/byland-ai/byland/pkg/domain"
	"github.com/byland-ai/byland/pkg/onboarding"
	"github.com/byland-ai/byland/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed lock survives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager serializes the turns of each user and persists their outcome.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	sessions ports.SessionStore
	profiles ports.ProfileStore
	engine   *onboarding.Engine

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
}

// TurnResult is the outcome of one durable onboarding turn.
type TurnResult struct {
	Session *domain.Session
	Diff    *domain.TurnDiff
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithEngine replaces the default onboarding engine (e.g. to attach hooks).
func WithEngine(engine *onboarding.Engine) Option {
	return func(m *Manager) {
		m.engine = engine
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Session Manager over the given stores.
func NewManager(sessions ports.SessionStore, profiles ports.ProfileStore, opts ...Option) *Manager {
	m := &Manager{
		sessions: sessions,
		profiles: profiles,
		locks:    make(map[string]*lockEntry),
		lockTTL:  DefaultLockTTL,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.engine == nil {
		m.engine = onboarding.NewEngine(onboarding.WithLogger(m.logger))
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(userID) after unlocking.
func (m *Manager) acquire(userID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[userID]
	if !exists {
		entry = &lockEntry{}
		m.locks[userID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[userID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, userID)
	}
}

// Turn applies one onboarding turn for userID and makes it durable.
//
// A missing session starts at intro. When the turn completes the profile, the
// profile is written before the session so that a failed write leaves the
// stored session un-advanced. Every store failure is reported as
// domain.ErrPersistence and the caller must treat the turn as not taken.
func (m *Manager) Turn(ctx context.Context, userID, input string) (*TurnResult, error) {
	var result *TurnResult
	err := m.WithLock(ctx, userID, func(ctx context.Context) error {
		current, err := m.sessions.Load(ctx, userID)
		switch {
		case errors.Is(err, domain.ErrSessionNotFound):
			current = domain.NewSession(userID)
		case err != nil:
			return persistenceError("load session", err)
		}

		next := m.engine.Advance(ctx, current, input)
		next.UserID = userID

		if next.ProfileComplete {
			if err := m.profiles.Upsert(ctx, domain.ProfileFromSession(next)); err != nil {
				return persistenceError("save profile", err)
			}
		}
		if err := m.sessions.Save(ctx, userID, next); err != nil {
			return persistenceError("save session", err)
		}

		result = &TurnResult{Session: next, Diff: domain.Diff(current, next)}
		return nil
	})
	if err != nil {
		m.logger.Error("Onboarding turn failed", "user_id", userID, "error", err)
		return nil, err
	}
	return result, nil
}

// Start discards any previous conversation and stores a fresh session and
// an empty profile for userID.
func (m *Manager) Start(ctx context.Context, userID string) (*domain.Session, error) {
	var s *domain.Session
	err := m.WithLock(ctx, userID, func(ctx context.Context) error {
		s = domain.NewSession(userID)
		if err := m.profiles.Upsert(ctx, domain.ProfileFromSession(s)); err != nil {
			return persistenceError("save profile", err)
		}
		if err := m.sessions.Save(ctx, userID, s); err != nil {
			return persistenceError("save session", err)
		}
		return nil
	})
	return s, err
}

// Load retrieves the last durable session of userID. It takes no lock, so it
// still answers while the distributed locker is unreachable.
func (m *Manager) Load(ctx context.Context, userID string) (*domain.Session, error) {
	return m.sessions.Load(ctx, userID)
}

// Delete removes the session of userID. The next turn starts over at intro.
func (m *Manager) Delete(ctx context.Context, userID string) error {
	return m.WithLock(ctx, userID, func(ctx context.Context) error {
		return m.sessions.Delete(ctx, userID)
	})
}

// List delegates to the session store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.sessions.List(ctx)
}

// Profile returns the stored profile of userID.
func (m *Manager) Profile(ctx context.Context, userID string) (*domain.HikerProfile, error) {
	return m.profiles.Get(ctx, userID)
}

// UpdateProfile applies a partial edit to an existing profile and regenerates its summary.
func (m *Manager) UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.HikerProfile, error) {
	var p *domain.HikerProfile
	err := m.WithLock(ctx, userID, func(ctx context.Context) error {
		var err error
		p, err = m.profiles.Get(ctx, userID)
		if err != nil {
			return err
		}
		update.Apply(p)
		if err := m.profiles.Upsert(ctx, p); err != nil {
			return persistenceError("save profile", err)
		}
		return nil
	})
	return p, err
}

// Sessions returns the underlying session store.
func (m *Manager) Sessions() ports.SessionStore {
	return m.sessions
}

// WithLock executes a function while holding the lock for the user.
// A locker failure is reported as domain.ErrPersistence unless ctx is done.
func (m *Manager) WithLock(ctx context.Context, userID string, fn func(context.Context) error) error {
	entry := m.acquire(userID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(userID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, userID, m.lockTTL)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("failed to acquire distributed lock: %w", err)
			}
			return persistenceError("acquire lock", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"user_id", userID,
					"error", err,
				)
			}
		}()
	}

	return fn(ctx)
}

func persistenceError(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(domain.ErrPersistence, err))
}
