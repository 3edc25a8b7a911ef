package byland

import (
	"context"
	"log/slog"
	"time"

	"github.com/byland-ai/byland/internal/logging"
	"github.com/byland-ai/byland/pkg/adapters/memory"
	"github.com/byland-ai/byland/pkg/agents"
	"github.com/byland-ai/byland/pkg/domain"
	"github.com/byland-ai/byland/pkg/onboarding"
	"github.com/byland-ai/byland/pkg/planner"
	"github.com/byland-ai/byland/pkg/ports"
	"github.com/byland-ai/byland/pkg/session"
)

// App is the high-level entry point of the library. It wires the onboarding
// engine to durable storage and exposes the trip planner.
type App struct {
	sessions ports.SessionStore
	profiles ports.ProfileStore
	locker   ports.DistributedLocker

	hooks           domain.LifecycleHooks
	logger          *slog.Logger
	producerTimeout time.Duration
	maxDays         int
	gearItems       []string
	plannerOpts     []planner.Option

	manager *session.Manager
	planner *planner.Aggregator
}

// Option defines a functional option for configuring the App.
type Option func(*App)

// WithSessionStore sets where onboarding sessions are kept (default: in memory).
func WithSessionStore(s ports.SessionStore) Option {
	return func(a *App) {
		a.sessions = s
	}
}

// WithProfileStore sets where hiker profiles are kept (default: in memory).
func WithProfileStore(s ports.ProfileStore) Option {
	return func(a *App) {
		a.profiles = s
	}
}

// WithLocker serializes turns across replicas.
func WithLocker(l ports.DistributedLocker) Option {
	return func(a *App) {
		a.locker = l
	}
}

// WithLifecycleHooks registers observability hooks on both the engine and the planner.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(a *App) {
		a.hooks = hooks
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// WithProducerTimeout bounds each trip producer call.
func WithProducerTimeout(d time.Duration) Option {
	return func(a *App) {
		a.producerTimeout = d
	}
}

// WithMaxDays caps the trip length the planner accepts.
func WithMaxDays(n int) Option {
	return func(a *App) {
		a.maxDays = n
	}
}

// WithGearItems replaces the default gear list of the stub gear agent.
func WithGearItems(items ...string) Option {
	return func(a *App) {
		a.gearItems = items
	}
}

// WithPlannerOptions passes extra options to the aggregator, e.g. real producers.
func WithPlannerOptions(opts ...planner.Option) Option {
	return func(a *App) {
		a.plannerOpts = append(a.plannerOpts, opts...)
	}
}

// New builds an App. Without options everything runs in memory with stub producers.
func New(opts ...Option) *App {
	a := &App{
		logger:          logging.NewNop(),
		producerTimeout: planner.DefaultProducerTimeout,
		maxDays:         planner.DefaultMaxDays,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.sessions == nil {
		a.sessions = memory.NewStore()
	}
	if a.profiles == nil {
		a.profiles = memory.NewProfileStore()
	}

	engine := onboarding.NewEngine(
		onboarding.WithHooks(a.hooks),
		onboarding.WithLogger(a.logger),
	)
	mgrOpts := []session.Option{session.WithEngine(engine), session.WithLogger(a.logger)}
	if a.locker != nil {
		mgrOpts = append(mgrOpts, session.WithLocker(a.locker))
	}
	a.manager = session.NewManager(a.sessions, a.profiles, mgrOpts...)

	plannerOpts := []planner.Option{
		planner.WithProducerTimeout(a.producerTimeout),
		planner.WithMaxDays(a.maxDays),
		planner.WithHooks(a.hooks),
		planner.WithLogger(a.logger),
	}
	if len(a.gearItems) > 0 {
		plannerOpts = append(plannerOpts, planner.WithGearSuggester(agents.NewGearSuggester(a.gearItems...)))
	}
	a.planner = planner.New(append(plannerOpts, a.plannerOpts...)...)
	return a
}

// Turn runs one onboarding turn for userID.
func (a *App) Turn(ctx context.Context, userID, input string) (*session.TurnResult, error) {
	return a.manager.Turn(ctx, userID, input)
}

// Plan produces a trip plan.
func (a *App) Plan(ctx context.Context, req domain.TripRequest) (*domain.TripPlan, error) {
	return a.planner.Plan(ctx, req)
}

// Sessions exposes the session manager for lifecycle operations (start, reset, profile edits).
func (a *App) Sessions() *session.Manager {
	return a.manager
}

// Planner exposes the trip plan aggregator.
func (a *App) Planner() *planner.Aggregator {
	return a.planner
}

// Logger returns the configured logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}
