package domain

import "time"

// HikerProfile is the persisted snapshot of a confirmed onboarding.
type HikerProfile struct {
	UserID string `json:"user_id"`
	ProfileFields
	ProfileSummary  string    `json:"profile_summary"`
	ProfileComplete bool      `json:"profile_complete"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ProfileFromSession materializes the profile carried by a session.
func ProfileFromSession(s *Session) *HikerProfile {
	return &HikerProfile{
		UserID:          s.UserID,
		ProfileFields:   s.Fields.Clone(),
		ProfileSummary:  s.ProfileSummary,
		ProfileComplete: s.ProfileComplete,
		UpdatedAt:       time.Now().UTC(),
	}
}

// ProfileUpdate carries a partial edit. Nil fields are left untouched.
type ProfileUpdate struct {
	HikingExperience *string   `json:"hiking_experience,omitempty"`
	GearStyle        *string   `json:"gear_style,omitempty"`
	PreferredTerrain *[]string `json:"preferred_terrain,omitempty"`
	PersonalityTags  *[]string `json:"personality_tags,omitempty"`
	DietaryNeeds     *string   `json:"dietary_needs,omitempty"`
	MedicalNotes     *string   `json:"medical_notes,omitempty"`
}

// Apply merges the non-nil fields into p and regenerates the summary.
func (u ProfileUpdate) Apply(p *HikerProfile) {
	if u.HikingExperience != nil {
		p.HikingExperience = *u.HikingExperience
	}
	if u.GearStyle != nil {
		p.GearStyle = *u.GearStyle
	}
	if u.PreferredTerrain != nil {
		p.PreferredTerrain = cloneStrings(*u.PreferredTerrain)
	}
	if u.PersonalityTags != nil {
		p.PersonalityTags = cloneStrings(*u.PersonalityTags)
	}
	if u.DietaryNeeds != nil {
		p.DietaryNeeds = *u.DietaryNeeds
	}
	if u.MedicalNotes != nil {
		p.MedicalNotes = *u.MedicalNotes
	}
	p.ProfileSummary = BuildSummary(p.ProfileFields)
	p.UpdatedAt = time.Now().UTC()
}
