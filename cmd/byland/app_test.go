package main

import (
	"context"
	"encoding/base64"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/byland-ai/byland/internal/config"
	"github.com/byland-ai/byland/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("BYLAND_STORE_DRIVER", "memory")
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func roundTrip(t *testing.T, st *stores) {
	t.Helper()
	ctx := context.Background()
	s := domain.NewSession("hiker-1")
	s.Fields.HikingExperience = "seasoned"
	require.NoError(t, st.sessions.Save(ctx, "hiker-1", s))

	got, err := st.sessions.Load(ctx, "hiker-1")
	require.NoError(t, err)
	assert.Equal(t, "seasoned", got.Fields.HikingExperience)
}

func TestOpenStores_Memory(t *testing.T) {
	st, err := openStores(testConfig(t))
	require.NoError(t, err)
	defer st.close()

	assert.Nil(t, st.locker)
	roundTrip(t, st)
}

func TestOpenStores_File(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Driver = "file"
	cfg.Store.FileDir = t.TempDir()

	st, err := openStores(cfg)
	require.NoError(t, err)
	defer st.close()

	roundTrip(t, st)
}

func TestOpenStores_SQLite(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Driver = "sqlite"
	cfg.Store.SQLitePath = filepath.Join(t.TempDir(), "byland.db")

	st, err := openStores(cfg)
	require.NoError(t, err)
	defer st.close()

	roundTrip(t, st)
}

func TestOpenStores_RedisWithLocker(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Store.Driver = "redis"
	cfg.Redis.Addr = mr.Addr()

	st, err := openStores(cfg)
	require.NoError(t, err)
	defer st.close()

	require.NotNil(t, st.locker)
	roundTrip(t, st)
	assert.True(t, mr.Exists("byland:session:hiker-1"))
}

func TestOpenStores_EncryptsAtRest(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Store.Driver = "redis"
	cfg.Redis.Addr = mr.Addr()
	cfg.Encryption.Key = base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))

	st, err := openStores(cfg)
	require.NoError(t, err)
	defer st.close()

	roundTrip(t, st)
	raw, err := mr.Get("byland:session:hiker-1")
	require.NoError(t, err)
	assert.NotContains(t, raw, "seasoned")
}

func TestOpenStores_UnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Driver = "etcd"

	_, err := openStores(cfg)
	assert.Error(t, err)
}
