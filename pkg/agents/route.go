package agents

import (
	"context"
	"fmt"

	"github.com/byland-ai/byland/pkg/domain"
)

// RoutePlanner lays out one intermediate waypoint per overnight stop.
type RoutePlanner struct{}

// NewRoutePlanner creates a RoutePlanner.
func NewRoutePlanner() *RoutePlanner {
	return &RoutePlanner{}
}

// PlanRoute returns [origin, "Waypoint 1", ..., "Waypoint days-1", destination].
func (p *RoutePlanner) PlanRoute(ctx context.Context, req domain.TripRequest) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	route := make([]string, 0, req.Days+1)
	route = append(route, req.Origin)
	for day := 1; day < req.Days; day++ {
		route = append(route, fmt.Sprintf("Waypoint %d", day))
	}
	route = append(route, req.Destination)
	return route, nil
}
