package ports

import (
	"context"

	"github.com/byland-ai/byland/pkg/domain"
)

// RoutePlanner produces the ordered waypoint labels of a trip.
type RoutePlanner interface {
	PlanRoute(ctx context.Context, req domain.TripRequest) ([]string, error)
}

// GearSuggester produces the gear checklist of a trip.
type GearSuggester interface {
	SuggestGear(ctx context.Context, req domain.TripRequest) ([]string, error)
}

// WeatherForecaster produces one forecast entry per trip day.
type WeatherForecaster interface {
	Forecast(ctx context.Context, req domain.TripRequest) ([]domain.ForecastDay, error)
}

// PermitsChecker reports the permit requirements of a trip.
type PermitsChecker interface {
	CheckPermits(ctx context.Context, req domain.TripRequest) (domain.Permits, error)
}
