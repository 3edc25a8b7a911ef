package planner

import (
	"fmt"
	"strings"

	"github.com/byland-ai/byland/pkg/domain"
)

// DefaultMaxDays caps trip length. Producers size their output by day count.
const DefaultMaxDays = 365

// Validate rejects trip parameters the producers cannot serve, using DefaultMaxDays.
func Validate(req domain.TripRequest) error {
	return validate(req, DefaultMaxDays)
}

func validate(req domain.TripRequest, maxDays int) error {
	if strings.TrimSpace(req.Origin) == "" {
		return &ValidationError{Field: "origin", Reason: "must not be empty"}
	}
	if strings.TrimSpace(req.Destination) == "" {
		return &ValidationError{Field: "destination", Reason: "must not be empty"}
	}
	if req.Days < 1 {
		return &ValidationError{Field: "days", Reason: "must be at least 1"}
	}
	if req.Days > maxDays {
		return &ValidationError{Field: "days", Reason: fmt.Sprintf("must be at most %d", maxDays)}
	}
	return nil
}

func checkRoute(req domain.TripRequest, route []string) error {
	if len(route) < 2 {
		return fmt.Errorf("%w: route has %d waypoints", errContract, len(route))
	}
	if route[0] != req.Origin || route[len(route)-1] != req.Destination {
		return fmt.Errorf("%w: route must start at origin and end at destination", errContract)
	}
	return nil
}

func checkForecast(req domain.TripRequest, forecast []domain.ForecastDay) error {
	if len(forecast) != req.Days {
		return fmt.Errorf("%w: forecast has %d days, want %d", errContract, len(forecast), req.Days)
	}
	for i, d := range forecast {
		if d.Day != i+1 {
			return fmt.Errorf("%w: forecast entry %d has day %d", errContract, i, d.Day)
		}
	}
	return nil
}
