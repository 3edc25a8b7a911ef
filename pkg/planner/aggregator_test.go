package planner_test

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/byland-ai/byland/pkg/domain"
	"github.com/byland-ai/byland/pkg/planner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingWeather struct{ err error }

func (f failingWeather) Forecast(ctx context.Context, req domain.TripRequest) ([]domain.ForecastDay, error) {
	return nil, f.err
}

type shortWeather struct{}

func (shortWeather) Forecast(ctx context.Context, req domain.TripRequest) ([]domain.ForecastDay, error) {
	return []domain.ForecastDay{{Day: 1, Weather: "Rain"}}, nil
}

type slowRoute struct{}

func (slowRoute) PlanRoute(ctx context.Context, req domain.TripRequest) ([]string, error) {
	select {
	case <-time.After(5 * time.Second):
		return []string{req.Origin, req.Destination}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type badRoute struct{}

func (badRoute) PlanRoute(ctx context.Context, req domain.TripRequest) ([]string, error) {
	return []string{req.Destination, req.Origin}, nil
}

// cancelAwareGear records whether it observed cancellation triggered by a sibling failure.
type cancelAwareGear struct{ canceled atomic.Bool }

func (g *cancelAwareGear) SuggestGear(ctx context.Context, req domain.TripRequest) ([]string, error) {
	select {
	case <-ctx.Done():
		g.canceled.Store(true)
		return nil, ctx.Err()
	case <-time.After(2 * time.Second):
		return []string{"Tent"}, nil
	}
}

type dupGear struct{}

func (dupGear) SuggestGear(ctx context.Context, req domain.TripRequest) ([]string, error) {
	return []string{"Tent", "Stove", "Tent"}, nil
}

func TestPlan_MergesAllProducers(t *testing.T) {
	agg := planner.New()

	plan, err := agg.Plan(context.Background(), domain.TripRequest{Origin: "Golden Gate", Destination: "Yosemite", Days: 3})
	require.NoError(t, err)

	require.Len(t, plan.Forecast, 3)
	for i, d := range plan.Forecast {
		assert.Equal(t, i+1, d.Day)
	}
	require.GreaterOrEqual(t, len(plan.Route), 2)
	assert.Equal(t, "Golden Gate", plan.Route[0])
	assert.Equal(t, "Yosemite", plan.Route[len(plan.Route)-1])
	assert.NotEmpty(t, plan.GearList)
	assert.False(t, plan.Permits.Required)
}

func TestPlan_ProducerFailureFailsWholePlan(t *testing.T) {
	boom := errors.New("weather service down")
	agg := planner.New(planner.WithWeatherForecaster(failingWeather{err: boom}))

	plan, err := agg.Plan(context.Background(), domain.TripRequest{Origin: "Golden Gate", Destination: "Yosemite", Days: 3})
	require.Error(t, err)
	assert.Nil(t, plan, "no partial plan may be returned")
	assert.ErrorIs(t, err, domain.ErrProducerFailed)
	assert.ErrorIs(t, err, boom)

	var perr *planner.ProducerError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, domain.ProducerWeather, perr.Producer)
	assert.False(t, perr.Timeout())
}

func TestPlan_FailureCancelsSiblings(t *testing.T) {
	gear := &cancelAwareGear{}
	agg := planner.New(
		planner.WithWeatherForecaster(failingWeather{err: errors.New("down")}),
		planner.WithGearSuggester(gear),
	)

	start := time.Now()
	_, err := agg.Plan(context.Background(), domain.TripRequest{Origin: "A", Destination: "B", Days: 1})
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, gear.canceled.Load(), "sibling producer should observe cancellation")
}

func TestPlan_ProducerTimeout(t *testing.T) {
	agg := planner.New(
		planner.WithRoutePlanner(slowRoute{}),
		planner.WithProducerTimeout(50*time.Millisecond),
	)

	_, err := agg.Plan(context.Background(), domain.TripRequest{Origin: "A", Destination: "B", Days: 2})
	require.Error(t, err)

	var perr *planner.ProducerError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, domain.ProducerRoute, perr.Producer)
	assert.True(t, perr.Timeout())
}

func TestPlan_ContractViolations(t *testing.T) {
	req := domain.TripRequest{Origin: "A", Destination: "B", Days: 3}

	_, err := planner.New(planner.WithWeatherForecaster(shortWeather{})).Plan(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrProducerFailed, "forecast length must equal days")

	_, err = planner.New(planner.WithRoutePlanner(badRoute{})).Plan(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrProducerFailed, "route must run origin to destination")
}

func TestPlan_GearIsDeduplicated(t *testing.T) {
	plan, err := planner.New(planner.WithGearSuggester(dupGear{})).Plan(context.Background(), domain.TripRequest{Origin: "A", Destination: "B", Days: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"Tent", "Stove"}, plan.GearList)
}

func TestPlan_Validation(t *testing.T) {
	tests := []struct {
		name  string
		req   domain.TripRequest
		field string
	}{
		{"zero days", domain.TripRequest{Origin: "A", Destination: "B", Days: 0}, "days"},
		{"negative days", domain.TripRequest{Origin: "A", Destination: "B", Days: -2}, "days"},
		{"empty origin", domain.TripRequest{Origin: " ", Destination: "B", Days: 1}, "origin"},
		{"empty destination", domain.TripRequest{Origin: "A", Days: 1}, "destination"},
		{"days above default max", domain.TripRequest{Origin: "A", Destination: "B", Days: planner.DefaultMaxDays + 1}, "days"},
		{"max int days", domain.TripRequest{Origin: "A", Destination: "B", Days: math.MaxInt}, "days"},
	}

	var called atomic.Int32
	agg := planner.New(planner.WithHooks(domain.LifecycleHooks{
		OnProducerCall: func(context.Context, *domain.ProducerEvent) { called.Add(1) },
	}))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := agg.Plan(context.Background(), tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidTripRequest)
			assert.NotErrorIs(t, err, domain.ErrProducerFailed)

			var verr *planner.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
	assert.Zero(t, called.Load(), "producers must not run for invalid requests")
}

func TestWithMaxDays(t *testing.T) {
	agg := planner.New(planner.WithMaxDays(3))
	ctx := context.Background()

	plan, err := agg.Plan(ctx, domain.TripRequest{Origin: "A", Destination: "B", Days: 3})
	require.NoError(t, err)
	assert.Len(t, plan.Forecast, 3)

	tooLong := domain.TripRequest{Origin: "A", Destination: "B", Days: 4}
	calls := map[string]func() error{
		"plan": func() error {
			_, err := agg.Plan(ctx, tooLong)
			return err
		},
		"route": func() error {
			_, err := agg.Route(ctx, tooLong)
			return err
		},
		"weather": func() error {
			_, err := agg.Weather(ctx, domain.TripRequest{Origin: "A", Destination: "B", Days: math.MaxInt})
			return err
		},
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			err := call()
			assert.ErrorIs(t, err, domain.ErrInvalidTripRequest)
			var verr *planner.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "days", verr.Field)
		})
	}
}

func TestPlan_HooksObserveEveryProducer(t *testing.T) {
	var calls, returns atomic.Int32
	agg := planner.New(planner.WithHooks(domain.LifecycleHooks{
		OnProducerCall:   func(context.Context, *domain.ProducerEvent) { calls.Add(1) },
		OnProducerReturn: func(context.Context, *domain.ProducerEvent) { returns.Add(1) },
	}))

	_, err := agg.Plan(context.Background(), domain.TripRequest{Origin: "A", Destination: "B", Days: 2})
	require.NoError(t, err)
	assert.Equal(t, int32(4), calls.Load())
	assert.Equal(t, int32(4), returns.Load())
}

func TestSingleProducers(t *testing.T) {
	ctx := context.Background()
	req := domain.TripRequest{Origin: "Golden Gate", Destination: "Yosemite", Days: 2}
	agg := planner.New(planner.WithGearSuggester(dupGear{}))

	route, err := agg.Route(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, []string{"Golden Gate", "Waypoint 1", "Yosemite"}, route)

	gear, err := agg.Gear(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, []string{"Tent", "Stove"}, gear)

	forecast, err := agg.Weather(ctx, req)
	require.NoError(t, err)
	assert.Len(t, forecast, 2)

	permits, err := agg.Permits(ctx, req)
	require.NoError(t, err)
	assert.False(t, permits.Required)

	_, err = agg.Route(ctx, domain.TripRequest{Origin: "A", Destination: "B"})
	assert.ErrorIs(t, err, domain.ErrInvalidTripRequest)

	_, err = planner.New(planner.WithWeatherForecaster(shortWeather{})).Weather(ctx, req)
	assert.ErrorIs(t, err, domain.ErrProducerFailed)
}
