package onboarding

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/byland-ai/byland/internal/logging"
	"github.com/byland-ai/byland/pkg/domain"
)

// transition mutates s (already a private copy) for one turn and returns the
// system message to append.
type transition func(s *domain.Session, input string) string

// transitions is the closed transition table. Every member of domain.States has an entry.
var transitions = map[domain.OnboardingState]transition{
	domain.StateIntro: func(s *domain.Session, _ string) string {
		return msgWelcome
	},
	domain.StateExperience: func(s *domain.Session, input string) string {
		s.Fields.HikingExperience = input
		return msgAskGear
	},
	domain.StateGear: func(s *domain.Session, input string) string {
		s.Fields.GearStyle = input
		return msgAskTerrain
	},
	domain.StateTerrain: func(s *domain.Session, input string) string {
		s.Fields.PreferredTerrain = SplitList(input)
		return msgAskPersona
	},
	domain.StatePersonality: func(s *domain.Session, input string) string {
		s.Fields.PersonalityTags = SplitList(input)
		return msgAskSafety
	},
	domain.StateSafety: func(s *domain.Session, input string) string {
		s.Fields.DietaryNeeds = input
		return msgGenerating
	},
	domain.StateSummary: func(s *domain.Session, _ string) string {
		s.ProfileSummary = domain.BuildSummary(s.Fields)
		return fmt.Sprintf(msgSummaryTmpl, s.ProfileSummary)
	},
	domain.StateConfirmation: func(s *domain.Session, input string) string {
		// Rejection stays in confirmation: routing back to a specific field is not supported.
		s.ProfileComplete = IsAffirmative(input)
		if s.ProfileComplete {
			return msgComplete
		}
		return msgEdit
	},
}

// Advance fires exactly one transition and returns the resulting session.
// The argument is never mutated. A nil session or an unrecognized state is
// handled as a fresh session at intro.
func Advance(s *domain.Session, input string) *domain.Session {
	next, _ := advance(s, input)
	return next
}

func advance(s *domain.Session, input string) (*domain.Session, bool) {
	var next *domain.Session
	reset := false
	switch {
	case s == nil:
		next = domain.NewSession("")
	case !s.CurrentState.Valid():
		next = s.Snapshot()
		next.CurrentState = domain.StateIntro
		reset = true
	default:
		next = s.Snapshot()
	}
	if next.Transcript == nil {
		next.Transcript = []domain.Message{}
	}

	from := next.CurrentState
	reply := transitions[from](next, input)
	next.CurrentState = from.Next()
	next.Transcript = append(next.Transcript, domain.Message{Role: domain.RoleSystem, Content: reply})
	next.UpdatedAt = time.Now().UTC()
	return next, reset
}

// SplitList splits comma-separated input and trims each element.
// Empty elements are kept as-is.
func SplitList(input string) []string {
	parts := strings.Split(input, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// Engine wraps Advance with logging and lifecycle hooks.
type Engine struct {
	hooks  domain.LifecycleHooks
	logger *slog.Logger
}

// Option configures the Engine.
type Option func(*Engine)

// WithHooks registers observability hooks.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger configures a logger for the Engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates an onboarding engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Advance fires one transition for s and reports it to the hooks.
func (e *Engine) Advance(ctx context.Context, s *domain.Session, input string) *domain.Session {
	next, reset := advance(s, input)

	from := domain.StateIntro
	if s != nil && !reset {
		from = s.CurrentState
	}
	if reset {
		e.logger.Warn("Unrecognized onboarding state, restarting at intro",
			"user_id", next.UserID,
			"state", s.CurrentState,
		)
	}
	e.logger.Debug("Onboarding transition",
		"user_id", next.UserID,
		"from", from,
		"to", next.CurrentState,
		"profile_complete", next.ProfileComplete,
	)

	if e.hooks.OnTransition != nil {
		e.hooks.OnTransition(ctx, &domain.TransitionEvent{
			EventBase:       domain.EventBase{Timestamp: time.Now(), Type: domain.EventTransition},
			UserID:          next.UserID,
			From:            from,
			To:              next.CurrentState,
			Reset:           reset,
			ProfileComplete: next.ProfileComplete,
		})
	}
	return next
}

// Transitions describes the state chain as (from, to) edges, for introspection.
func Transitions() [][2]domain.OnboardingState {
	edges := make([][2]domain.OnboardingState, 0, len(domain.States))
	for _, s := range domain.States {
		edges = append(edges, [2]domain.OnboardingState{s, s.Next()})
	}
	return edges
}
