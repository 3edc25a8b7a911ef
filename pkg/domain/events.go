package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventTransition     EventType = "transition"
	EventProducerCall   EventType = "producer_call"
	EventProducerReturn EventType = "producer_return"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// TransitionEvent is emitted after an onboarding transition fired.
type TransitionEvent struct {
	EventBase
	UserID          string          `json:"user_id"`
	From            OnboardingState `json:"from"`
	To              OnboardingState `json:"to"`
	Reset           bool            `json:"reset,omitempty"`
	ProfileComplete bool            `json:"profile_complete"`
}

// ProducerEvent represents one producer invocation.
type ProducerEvent struct {
	EventBase
	Producer string        `json:"producer"`
	Request  TripRequest   `json:"request"`
	Duration time.Duration `json:"duration,omitempty"`
	Err      error         `json:"-"`
}

// LifecycleHooks defines callbacks for observability.
// Nil callbacks are skipped.
type LifecycleHooks struct {
	OnTransition     func(context.Context, *TransitionEvent)
	OnProducerCall   func(context.Context, *ProducerEvent)
	OnProducerReturn func(context.Context, *ProducerEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnTransition:     chain(h.OnTransition, other.OnTransition),
		OnProducerCall:   chain(h.OnProducerCall, other.OnProducerCall),
		OnProducerReturn: chain(h.OnProducerReturn, other.OnProducerReturn),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
