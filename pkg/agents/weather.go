package agents

import (
	"context"

	"github.com/byland-ai/byland/pkg/domain"
)

// WeatherForecaster reports the same condition for every day.
type WeatherForecaster struct {
	condition string
}

// NewWeatherForecaster creates a forecaster. An empty condition means "Sunny".
func NewWeatherForecaster(condition string) *WeatherForecaster {
	if condition == "" {
		condition = "Sunny"
	}
	return &WeatherForecaster{condition: condition}
}

// Forecast returns one entry per day, indexed 1..days.
func (w *WeatherForecaster) Forecast(ctx context.Context, req domain.TripRequest) ([]domain.ForecastDay, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	days := make([]domain.ForecastDay, 0, req.Days)
	for i := 1; i <= req.Days; i++ {
		days = append(days, domain.ForecastDay{Day: i, Weather: w.condition})
	}
	return days, nil
}
