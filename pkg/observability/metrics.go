package observability

import (
	"context"
	"errors"
	"net/http"

	"github.com/byland-ai/byland/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Producer call outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeTimeout  = "timeout"
	OutcomeCanceled = "canceled"
)

// Metrics holds the collectors fed by lifecycle hooks.
type Metrics struct {
	Transitions       *prometheus.CounterVec
	ProfilesCompleted prometheus.Counter
	ProducerCalls     *prometheus.CounterVec
	ProducerDuration  *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg uses a fresh private registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "byland_onboarding_transitions_total",
				Help: "Onboarding transitions fired, by source and target state",
			},
			[]string{"from", "to"},
		),
		ProfilesCompleted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "byland_profiles_completed_total",
				Help: "Confirmation turns that completed a hiker profile",
			},
		),
		ProducerCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "byland_producer_calls_total",
				Help: "Trip producer invocations, by outcome",
			},
			[]string{"producer", "outcome"},
		),
		ProducerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "byland_producer_duration_seconds",
				Help:    "Duration of trip producer invocations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"producer"},
		),
		gatherer: reg,
	}
	reg.MustRegister(m.Transitions, m.ProfilesCompleted, m.ProducerCalls, m.ProducerDuration)
	return m
}

// Hooks returns lifecycle hooks that update the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			m.Transitions.WithLabelValues(string(e.From), string(e.To)).Inc()
			if e.From == domain.StateConfirmation && e.ProfileComplete {
				m.ProfilesCompleted.Inc()
			}
		},
		OnProducerReturn: func(_ context.Context, e *domain.ProducerEvent) {
			m.ProducerCalls.WithLabelValues(e.Producer, outcome(e.Err)).Inc()
			m.ProducerDuration.WithLabelValues(e.Producer).Observe(e.Duration.Seconds())
		},
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	case errors.Is(err, context.Canceled):
		return OutcomeCanceled
	}
	return OutcomeError
}
