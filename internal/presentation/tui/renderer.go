package tui

import (
	"fmt"
	"strings"

	"github.com/byland-ai/byland/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
// Falls back to the raw markdown when no renderer could be built.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
	)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// PlanMarkdown formats a trip plan as a markdown document.
func PlanMarkdown(req domain.TripRequest, plan *domain.TripPlan) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s to %s (%d days)\n\n", req.Origin, req.Destination, req.Days)

	sb.WriteString("## Route\n\n")
	for i, wp := range plan.Route {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, wp)
	}

	sb.WriteString("\n## Gear\n\n")
	for _, g := range plan.GearList {
		fmt.Fprintf(&sb, "- %s\n", g)
	}

	sb.WriteString("\n## Forecast\n\n| Day | Weather |\n| --- | --- |\n")
	for _, f := range plan.Forecast {
		fmt.Fprintf(&sb, "| %d | %s |\n", f.Day, f.Weather)
	}

	sb.WriteString("\n## Permits\n\n")
	if plan.Permits.Required {
		sb.WriteString("**Required.** ")
	} else {
		sb.WriteString("Not required. ")
	}
	sb.WriteString(plan.Permits.Details)
	sb.WriteString("\n")
	return sb.String()
}

// ProfileMarkdown formats a hiker profile as a markdown document.
func ProfileMarkdown(p *domain.HikerProfile) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Hiker %s\n\n", p.UserID)
	if p.ProfileComplete {
		sb.WriteString("Profile **complete**.\n\n")
	} else {
		sb.WriteString("Profile in progress.\n\n")
	}
	if p.ProfileSummary != "" {
		fmt.Fprintf(&sb, "> %s\n\n", p.ProfileSummary)
	}
	f := p.ProfileFields
	rows := [][2]string{
		{"Experience", f.HikingExperience},
		{"Gear style", f.GearStyle},
		{"Terrain", strings.Join(f.PreferredTerrain, ", ")},
		{"Personality", strings.Join(f.PersonalityTags, ", ")},
		{"Dietary needs", f.DietaryNeeds},
		{"Medical notes", f.MedicalNotes},
	}
	sb.WriteString("| Field | Value |\n| --- | --- |\n")
	for _, r := range rows {
		fmt.Fprintf(&sb, "| %s | %s |\n", r[0], r[1])
	}
	return sb.String()
}
