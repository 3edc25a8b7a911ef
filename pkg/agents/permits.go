package agents

import (
	"context"

	"github.com/byland-ai/byland/pkg/domain"
)

// PermitsChecker reports that no permit is needed.
type PermitsChecker struct{}

// NewPermitsChecker creates a PermitsChecker.
func NewPermitsChecker() *PermitsChecker {
	return &PermitsChecker{}
}

// CheckPermits always answers "not required".
func (c *PermitsChecker) CheckPermits(ctx context.Context, _ domain.TripRequest) (domain.Permits, error) {
	if err := ctx.Err(); err != nil {
		return domain.Permits{}, err
	}
	return domain.Permits{Required: false, Details: "No permits needed for this route"}, nil
}
