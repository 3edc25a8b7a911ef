package planner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/byland-ai/byland/internal/logging"
	"github.com/byland-ai/byland/pkg/agents"
	"github.com/byland-ai/byland/pkg/domain"
	"github.com/byland-ai/byland/pkg/ports"
	"golang.org/x/sync/errgroup"
)

// DefaultProducerTimeout bounds each producer call.
const DefaultProducerTimeout = 10 * time.Second

// Aggregator fans a trip request out to the four producers and merges their results.
type Aggregator struct {
	route   ports.RoutePlanner
	gear    ports.GearSuggester
	weather ports.WeatherForecaster
	permits ports.PermitsChecker

	timeout time.Duration
	maxDays int
	hooks   domain.LifecycleHooks
	logger  *slog.Logger
}

// Option configures the Aggregator.
type Option func(*Aggregator)

// WithProducerTimeout sets the per-producer deadline.
func WithProducerTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithMaxDays sets the longest trip accepted, in days.
func WithMaxDays(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.maxDays = n
		}
	}
}

// WithHooks registers observability hooks.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(a *Aggregator) {
		a.hooks = hooks
	}
}

// WithLogger configures a logger for the Aggregator.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

// WithRoutePlanner replaces the route producer.
func WithRoutePlanner(p ports.RoutePlanner) Option {
	return func(a *Aggregator) { a.route = p }
}

// WithGearSuggester replaces the gear producer.
func WithGearSuggester(p ports.GearSuggester) Option {
	return func(a *Aggregator) { a.gear = p }
}

// WithWeatherForecaster replaces the weather producer.
func WithWeatherForecaster(p ports.WeatherForecaster) Option {
	return func(a *Aggregator) { a.weather = p }
}

// WithPermitsChecker replaces the permits producer.
func WithPermitsChecker(p ports.PermitsChecker) Option {
	return func(a *Aggregator) { a.permits = p }
}

// New creates an Aggregator. Producers not supplied through options default
// to the built-in agents.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		route:   agents.NewRoutePlanner(),
		gear:    agents.NewGearSuggester(),
		weather: agents.NewWeatherForecaster(""),
		permits: agents.NewPermitsChecker(),
		timeout: DefaultProducerTimeout,
		maxDays: DefaultMaxDays,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Plan validates req, runs the four producers concurrently and merges their output.
// The first producer failure cancels the others and fails the whole plan.
func (a *Aggregator) Plan(ctx context.Context, req domain.TripRequest) (*domain.TripPlan, error) {
	if err := validate(req, a.maxDays); err != nil {
		return nil, err
	}

	var plan domain.TripPlan
	g, gctx := errgroup.WithContext(ctx)

	// Each goroutine writes a distinct field of the plan, so no locking is needed.
	g.Go(func() (err error) {
		plan.Route, err = a.planRoute(gctx, req)
		return err
	})
	g.Go(func() (err error) {
		plan.GearList, err = a.suggestGear(gctx, req)
		return err
	})
	g.Go(func() (err error) {
		plan.Forecast, err = a.forecast(gctx, req)
		return err
	})
	g.Go(func() (err error) {
		plan.Permits, err = a.checkPermits(gctx, req)
		return err
	})

	if err := g.Wait(); err != nil {
		a.logger.Warn("Trip plan failed",
			"origin", req.Origin,
			"destination", req.Destination,
			"days", req.Days,
			"error", err,
		)
		return nil, err
	}

	a.logger.Info("Trip plan assembled",
		"origin", req.Origin,
		"destination", req.Destination,
		"days", req.Days,
		"waypoints", len(plan.Route),
	)
	return &plan, nil
}

// Route runs only the route producer, with the same validation, deadline and
// output checks as Plan.
func (a *Aggregator) Route(ctx context.Context, req domain.TripRequest) ([]string, error) {
	if err := validate(req, a.maxDays); err != nil {
		return nil, err
	}
	return a.planRoute(ctx, req)
}

// Gear runs only the gear producer.
func (a *Aggregator) Gear(ctx context.Context, req domain.TripRequest) ([]string, error) {
	if err := validate(req, a.maxDays); err != nil {
		return nil, err
	}
	return a.suggestGear(ctx, req)
}

// Weather runs only the weather producer.
func (a *Aggregator) Weather(ctx context.Context, req domain.TripRequest) ([]domain.ForecastDay, error) {
	if err := validate(req, a.maxDays); err != nil {
		return nil, err
	}
	return a.forecast(ctx, req)
}

// Permits runs only the permits producer.
func (a *Aggregator) Permits(ctx context.Context, req domain.TripRequest) (domain.Permits, error) {
	if err := validate(req, a.maxDays); err != nil {
		return domain.Permits{}, err
	}
	return a.checkPermits(ctx, req)
}

func (a *Aggregator) planRoute(ctx context.Context, req domain.TripRequest) ([]string, error) {
	var route []string
	err := a.call(ctx, domain.ProducerRoute, req, func(ctx context.Context) error {
		out, err := a.route.PlanRoute(ctx, req)
		if err != nil {
			return err
		}
		if err := checkRoute(req, out); err != nil {
			return err
		}
		route = out
		return nil
	})
	return route, err
}

func (a *Aggregator) suggestGear(ctx context.Context, req domain.TripRequest) ([]string, error) {
	var gear []string
	err := a.call(ctx, domain.ProducerGear, req, func(ctx context.Context) error {
		out, err := a.gear.SuggestGear(ctx, req)
		if err != nil {
			return err
		}
		gear = agents.Dedupe(out)
		return nil
	})
	return gear, err
}

func (a *Aggregator) forecast(ctx context.Context, req domain.TripRequest) ([]domain.ForecastDay, error) {
	var forecast []domain.ForecastDay
	err := a.call(ctx, domain.ProducerWeather, req, func(ctx context.Context) error {
		out, err := a.weather.Forecast(ctx, req)
		if err != nil {
			return err
		}
		if err := checkForecast(req, out); err != nil {
			return err
		}
		forecast = out
		return nil
	})
	return forecast, err
}

func (a *Aggregator) checkPermits(ctx context.Context, req domain.TripRequest) (domain.Permits, error) {
	var permits domain.Permits
	err := a.call(ctx, domain.ProducerPermits, req, func(ctx context.Context) error {
		out, err := a.permits.CheckPermits(ctx, req)
		if err != nil {
			return err
		}
		permits = out
		return nil
	})
	return permits, err
}

// call runs one producer under its own deadline.
func (a *Aggregator) call(ctx context.Context, name string, req domain.TripRequest, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	if a.hooks.OnProducerCall != nil {
		a.hooks.OnProducerCall(ctx, &domain.ProducerEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventProducerCall},
			Producer:  name,
			Request:   req,
		})
	}

	start := time.Now()
	err := fn(ctx)
	if err == nil && ctx.Err() != nil {
		// A producer that ignores its context still loses once the deadline passed.
		err = ctx.Err()
	}
	elapsed := time.Since(start)

	if err != nil {
		err = &ProducerError{Producer: name, Err: err}
	}

	if a.hooks.OnProducerReturn != nil {
		a.hooks.OnProducerReturn(ctx, &domain.ProducerEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventProducerReturn},
			Producer:  name,
			Request:   req,
			Duration:  elapsed,
			Err:       err,
		})
	}

	if err != nil {
		a.logger.Debug("Producer failed", "producer", name, "elapsed", elapsed, "error", err)
		return fmt.Errorf("plan %s→%s: %w", req.Origin, req.Destination, err)
	}
	return nil
}
