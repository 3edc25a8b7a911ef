package domain

// TurnDiff represents what a single onboarding turn changed.
// It is designed to be serialized to JSON for partial updates on the client.
type TurnDiff struct {
	UserID string `json:"user_id"`

	// CurrentState is set when the state moved.
	CurrentState *OnboardingState `json:"current_state,omitempty"`

	// Appended holds the transcript entries added by the turn.
	Appended []Message `json:"appended"`

	// Fields lists the collected keys that were added or changed.
	Fields []string `json:"fields,omitempty"`

	// ProfileComplete is set when the flag flipped.
	ProfileComplete *bool `json:"profile_complete,omitempty"`
}

// Diff calculates the difference between oldSession and newSession.
// If oldSession is nil, the diff describes newSession entirely.
func Diff(oldSession, newSession *Session) *TurnDiff {
	if newSession == nil {
		return nil
	}

	diff := &TurnDiff{UserID: newSession.UserID}

	if oldSession == nil {
		diff.CurrentState = &newSession.CurrentState
		diff.Appended = newSession.LastMessages(0)
		diff.Fields = newSession.CollectedKeys()
		if newSession.ProfileComplete {
			diff.ProfileComplete = &newSession.ProfileComplete
		}
		return diff
	}

	if oldSession.CurrentState != newSession.CurrentState {
		diff.CurrentState = &newSession.CurrentState
	}
	diff.Appended = newSession.LastMessages(len(oldSession.Transcript))
	diff.Fields = changedFields(oldSession.Fields, newSession.Fields)
	if oldSession.ProfileComplete != newSession.ProfileComplete {
		diff.ProfileComplete = &newSession.ProfileComplete
	}
	return diff
}

func changedFields(a, b ProfileFields) []string {
	var out []string
	if a.HikingExperience != b.HikingExperience {
		out = append(out, FieldHikingExperience)
	}
	if a.GearStyle != b.GearStyle {
		out = append(out, FieldGearStyle)
	}
	if !equalStrings(a.PreferredTerrain, b.PreferredTerrain) {
		out = append(out, FieldPreferredTerrain)
	}
	if !equalStrings(a.PersonalityTags, b.PersonalityTags) {
		out = append(out, FieldPersonalityTags)
	}
	if a.DietaryNeeds != b.DietaryNeeds {
		out = append(out, FieldDietaryNeeds)
	}
	if a.MedicalNotes != b.MedicalNotes {
		out = append(out, FieldMedicalNotes)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
