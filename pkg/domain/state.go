package domain

// OnboardingState names a step of the onboarding conversation.
type OnboardingState string

const (
	StateIntro        OnboardingState = "intro"
	StateExperience   OnboardingState = "experience"
	StateGear         OnboardingState = "gear"
	StateTerrain      OnboardingState = "terrain"
	StatePersonality  OnboardingState = "personality"
	StateSafety       OnboardingState = "safety"
	StateSummary      OnboardingState = "summary"
	StateConfirmation OnboardingState = "confirmation"
)

// States is the fixed, ordered onboarding sequence.
var States = []OnboardingState{
	StateIntro,
	StateExperience,
	StateGear,
	StateTerrain,
	StatePersonality,
	StateSafety,
	StateSummary,
	StateConfirmation,
}

// Valid reports whether s is a member of the fixed state set.
func (s OnboardingState) Valid() bool {
	return s.index() >= 0
}

// Next returns the state that follows s in the linear chain.
// Confirmation loops onto itself.
func (s OnboardingState) Next() OnboardingState {
	i := s.index()
	if i < 0 {
		return StateIntro
	}
	if i == len(States)-1 {
		return StateConfirmation
	}
	return States[i+1]
}

func (s OnboardingState) index() int {
	for i, st := range States {
		if st == s {
			return i
		}
	}
	return -1
}
