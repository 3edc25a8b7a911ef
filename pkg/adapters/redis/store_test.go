package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/byland-ai/byland/pkg/adapters/redis"
	"github.com/byland-ai/byland/pkg/domain"
	"github.com/byland-ai/byland/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunSessionStoreContract(t, redis.NewFromClient(client))
}

func TestRedisProfileStore_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunProfileStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()
	userID := "hiker-ttl"

	require.NoError(t, store.Save(ctx, userID, domain.NewSession(userID)))

	users, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, users, userID)

	// Key expiration in miniredis is driven by FastForward.
	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, userID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	// Index pruning compares against wall-clock time.
	time.Sleep(1200 * time.Millisecond)

	users, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestRedisStore_ProfilesDoNotExpire(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithTTL(time.Second))
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, &domain.HikerProfile{UserID: "u1", ProfileSummary: "s"}))
	mr.FastForward(time.Hour)

	p, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "s", p.ProfileSummary)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()
	userID := "my-user"

	require.NoError(t, store.Save(ctx, userID, domain.NewSession(userID)))
	require.NoError(t, store.Upsert(ctx, &domain.HikerProfile{UserID: userID}))

	assert.True(t, mr.Exists("custom:app:session:my-user"), "Expected session key with custom prefix")
	assert.True(t, mr.Exists("custom:app:session:index"), "Expected index with custom prefix")
	assert.True(t, mr.Exists("custom:app:profile:my-user"), "Expected profile key with custom prefix")

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, list, userID)
}

func TestRedisStore_ConnectionError(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client)
	mr.Close()

	_, err := store.Load(context.Background(), "u1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrSessionNotFound)
}
