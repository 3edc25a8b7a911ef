package agents

import (
	"context"

	"github.com/byland-ai/byland/pkg/domain"
)

// DefaultGear is the baseline checklist.
var DefaultGear = []string{
	"Tent",
	"Sleeping Bag",
	"Hiking Boots",
	"Water Filter",
	"First Aid Kit",
}

// GearSuggester returns a fixed checklist.
type GearSuggester struct {
	items []string
}

// NewGearSuggester creates a GearSuggester. With no items, DefaultGear is used.
func NewGearSuggester(items ...string) *GearSuggester {
	if len(items) == 0 {
		items = DefaultGear
	}
	return &GearSuggester{items: Dedupe(items)}
}

// SuggestGear returns the configured checklist.
func (g *GearSuggester) SuggestGear(ctx context.Context, _ domain.TripRequest) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]string, len(g.items))
	copy(out, g.items)
	return out, nil
}

// Dedupe drops repeated items, keeping the first occurrence.
func Dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}
