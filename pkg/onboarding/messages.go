package onboarding

import "strings"

const (
	msgWelcome     = "Welcome to ByLand.ai! Let's build your hiker profile. First, tell me about your hiking experience."
	msgAskGear     = "Great! What is your preferred gear style? (e.g., ultralight, luxury, hammock, tent, cowboy camping)"
	msgAskTerrain  = "What terrain do you prefer? (desert, alpine, coastal, forest, etc.)"
	msgAskPersona  = "How would you describe your trail personality? (introverted, adventurous, social, poetic, etc.)"
	msgAskSafety   = "Any dietary needs, allergies, or medical notes you'd like to share?"
	msgGenerating  = "Thanks! Generating your hiker profile summary..."
	msgSummaryTmpl = "Here is your profile summary: %s. Would you like to confirm or edit?"
	msgComplete    = "Profile complete!"
	msgEdit        = "Let's edit your profile. Which part would you like to change?"
)

// affirmative is the set of confirmation answers, compared lowercased.
var affirmative = map[string]struct{}{
	"yes":        {},
	"confirm":    {},
	"ok":         {},
	"looks good": {},
}

// IsAffirmative reports whether input confirms the profile.
func IsAffirmative(input string) bool {
	_, ok := affirmative[strings.ToLower(input)]
	return ok
}
