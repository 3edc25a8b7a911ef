package domain

import (
	"strings"
	"time"
)

// Message roles used in the transcript.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Field keys of the collected onboarding answers.
const (
	FieldHikingExperience = "hiking_experience"
	FieldGearStyle        = "gear_style"
	FieldPreferredTerrain = "preferred_terrain"
	FieldPersonalityTags  = "personality_tags"
	FieldDietaryNeeds     = "dietary_needs"
	FieldMedicalNotes     = "medical_notes"
)

// Message is one transcript entry.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ProfileFields holds the structured answers collected during onboarding.
type ProfileFields struct {
	HikingExperience string   `json:"hiking_experience,omitempty"`
	GearStyle        string   `json:"gear_style,omitempty"`
	PreferredTerrain []string `json:"preferred_terrain,omitempty"`
	PersonalityTags  []string `json:"personality_tags,omitempty"`
	DietaryNeeds     string   `json:"dietary_needs,omitempty"`
	MedicalNotes     string   `json:"medical_notes,omitempty"`
}

// Clone returns a copy that shares no slices with f.
func (f ProfileFields) Clone() ProfileFields {
	out := f
	out.PreferredTerrain = cloneStrings(f.PreferredTerrain)
	out.PersonalityTags = cloneStrings(f.PersonalityTags)
	return out
}

// Session is one user's onboarding conversation.
type Session struct {
	UserID          string          `json:"user_id"`
	CurrentState    OnboardingState `json:"current_state"`
	Fields          ProfileFields   `json:"collected_fields"`
	ProfileSummary  string          `json:"profile_summary,omitempty"`
	ProfileComplete bool            `json:"profile_complete"`
	Transcript      []Message       `json:"transcript"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// NewSession creates a fresh session at the intro state with an empty transcript.
func NewSession(userID string) *Session {
	now := time.Now().UTC()
	return &Session{
		UserID:       userID,
		CurrentState: StateIntro,
		Transcript:   []Message{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Snapshot returns a deep copy of the session.
func (s *Session) Snapshot() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Fields = s.Fields.Clone()
	out.Transcript = make([]Message, len(s.Transcript))
	copy(out.Transcript, s.Transcript)
	return &out
}

// fieldOwners maps each collecting state to the key it populates.
var fieldOwners = []struct {
	state OnboardingState
	key   string
}{
	{StateExperience, FieldHikingExperience},
	{StateGear, FieldGearStyle},
	{StateTerrain, FieldPreferredTerrain},
	{StatePersonality, FieldPersonalityTags},
	{StateSafety, FieldDietaryNeeds},
}

// CollectedKeys lists the field keys whose collecting transition has already fired.
// The chain is linear, so a key is collected once the session has moved past its state.
func (s *Session) CollectedKeys() []string {
	current := s.CurrentState.index()
	keys := []string{}
	for _, owner := range fieldOwners {
		if current > owner.state.index() {
			keys = append(keys, owner.key)
		}
	}
	return keys
}

// LastMessages returns the transcript entries appended after the first n.
func (s *Session) LastMessages(n int) []Message {
	if n < 0 || n >= len(s.Transcript) {
		return []Message{}
	}
	out := make([]Message, len(s.Transcript)-n)
	copy(out, s.Transcript[n:])
	return out
}

// BuildSummary joins the collected answers into the profile summary line.
func BuildSummary(f ProfileFields) string {
	return strings.Join([]string{
		f.HikingExperience,
		f.GearStyle,
		strings.Join(f.PreferredTerrain, ", "),
		strings.Join(f.PersonalityTags, ", "),
		f.DietaryNeeds,
	}, ", ")
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
