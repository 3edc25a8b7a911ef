package memory_test

import (
	"context"
	"testing"

	"github.com/byland-ai/byland/pkg/adapters/memory"
	"github.com/byland-ai/byland/pkg/domain"
	"github.com/byland-ai/byland/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	ports.RunSessionStoreContract(t, memory.NewStore())
}

func TestMemoryProfileStore_Contract(t *testing.T) {
	ports.RunProfileStoreContract(t, memory.NewProfileStore())
}

func TestMemoryStore_Isolation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	s := domain.NewSession("u1")
	s.Fields.PreferredTerrain = []string{"alpine"}
	require.NoError(t, store.Save(ctx, "u1", s))

	// Mutating the caller's copy must not leak into the store.
	s.Fields.PreferredTerrain[0] = "desert"
	s.Transcript = append(s.Transcript, domain.Message{Role: domain.RoleSystem, Content: "x"})

	loaded, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpine"}, loaded.Fields.PreferredTerrain)
	assert.Empty(t, loaded.Transcript)

	loaded.Fields.PreferredTerrain[0] = "coastal"
	again, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpine"}, again.Fields.PreferredTerrain)
}
