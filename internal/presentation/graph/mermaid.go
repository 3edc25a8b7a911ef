package graph

import (
	"fmt"
	"strings"

	"github.com/byland-ai/byland/pkg/domain"
)

// Overlay contains session data to visualize on the graph.
type Overlay struct {
	Visited []domain.OnboardingState
	Current domain.OnboardingState
}

// OverlayFor marks every state before the session's current one as visited.
func OverlayFor(s *domain.Session) *Overlay {
	if s == nil {
		return nil
	}
	o := &Overlay{Current: s.CurrentState}
	for _, st := range domain.States {
		if st == s.CurrentState {
			break
		}
		o.Visited = append(o.Visited, st)
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart of the onboarding state machine.
// It applies semantic styling:
// - Intro: ((Circle))
// - Confirmation: {Rhombus}, it is the only state that branches on input
// - Default: [Rectangle]
// Self-loops are drawn dotted. Overlay styles (visited/current) are applied when provided.
func GenerateMermaid(edges [][2]domain.OnboardingState, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	declared := make(map[domain.OnboardingState]bool)
	declare := func(s domain.OnboardingState) {
		if declared[s] {
			return
		}
		declared[s] = true
		opener, closer := "[", "]"
		switch s {
		case domain.StateIntro:
			opener, closer = "((", "))"
		case domain.StateConfirmation:
			opener, closer = "{", "}"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", sanitizeMermaidID(string(s)), opener, s, closer))
	}

	for _, e := range edges {
		from, to := e[0], e[1]
		declare(from)
		declare(to)

		arrow := "-->"
		if from == to {
			arrow = `-. "not yes" .->`
		}
		sb.WriteString(fmt.Sprintf("    %s %s %s\n", sanitizeMermaidID(string(from)), arrow, sanitizeMermaidID(string(to))))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text for contrast regardless of theme
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, st := range overlay.Visited {
			id := sanitizeMermaidID(string(st))
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			sb.WriteString(fmt.Sprintf("    class %s visited;\n", id))
		}
		if overlay.Current != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(string(overlay.Current))))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
