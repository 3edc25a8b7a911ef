package ports

import (
	"context"
	"testing"
	"time"

	"github.com/byland-ai/byland/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore implementation
// adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	userID := "contract-test-user-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		session := domain.NewSession(userID)
		session.CurrentState = domain.StatePersonality
		session.Fields.HikingExperience = "intermediate"
		session.Fields.PreferredTerrain = []string{"alpine", "coastal"}
		session.Transcript = append(session.Transcript,
			domain.Message{Role: domain.RoleSystem, Content: "Welcome"},
			domain.Message{Role: domain.RoleSystem, Content: "Gear?"},
		)

		err := store.Save(ctx, userID, session)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, userID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, userID, loaded.UserID)
		assert.Equal(t, domain.StatePersonality, loaded.CurrentState)
		assert.Equal(t, "intermediate", loaded.Fields.HikingExperience)
		assert.Equal(t, []string{"alpine", "coastal"}, loaded.Fields.PreferredTerrain)
		assert.Equal(t, session.Transcript, loaded.Transcript)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+userID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Overwrite", func(t *testing.T) {
		first := domain.NewSession(userID)
		require.NoError(t, store.Save(ctx, userID, first))

		second := domain.NewSession(userID)
		second.CurrentState = domain.StateConfirmation
		second.ProfileComplete = true
		require.NoError(t, store.Save(ctx, userID, second))

		loaded, err := store.Load(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, domain.StateConfirmation, loaded.CurrentState)
		assert.True(t, loaded.ProfileComplete)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, userID, domain.NewSession(userID))
		require.NoError(t, err)

		err = store.Delete(ctx, userID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, userID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := userID + "-1"
		id2 := userID + "-2"
		_ = store.Save(ctx, id1, domain.NewSession(id1))
		_ = store.Save(ctx, id2, domain.NewSession(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		users, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, users, id1)
		assert.Contains(t, users, id2)
	})
}

// RunProfileStoreContract verifies that a ProfileStore implementation honours the contract.
func RunProfileStoreContract(t *testing.T, store ProfileStore) {
	ctx := context.Background()
	userID := "contract-profile-" + time.Now().Format("20060102150405")

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, "missing-"+userID)
		assert.ErrorIs(t, err, domain.ErrProfileNotFound)
	})

	t.Run("Upsert and Get", func(t *testing.T) {
		profile := &domain.HikerProfile{
			UserID: userID,
			ProfileFields: domain.ProfileFields{
				HikingExperience: "intermediate",
				GearStyle:        "ultralight",
				PreferredTerrain: []string{"alpine"},
				PersonalityTags:  []string{"adventurous", "poetic"},
				DietaryNeeds:     "none",
				MedicalNotes:     "asthma",
			},
			ProfileSummary:  "intermediate, ultralight, alpine, adventurous, poetic, none",
			ProfileComplete: true,
		}
		require.NoError(t, store.Upsert(ctx, profile))

		got, err := store.Get(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, profile.ProfileFields, got.ProfileFields)
		assert.Equal(t, profile.ProfileSummary, got.ProfileSummary)
		assert.True(t, got.ProfileComplete)
	})

	t.Run("Upsert Replaces", func(t *testing.T) {
		require.NoError(t, store.Upsert(ctx, &domain.HikerProfile{
			UserID:        userID,
			ProfileFields: domain.ProfileFields{GearStyle: "hammock"},
		}))

		got, err := store.Get(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, "hammock", got.GearStyle)
		assert.Empty(t, got.PreferredTerrain)
		assert.False(t, got.ProfileComplete)
	})
}
