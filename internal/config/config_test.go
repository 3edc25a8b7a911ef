package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTP.Port)
	assert.Equal(t, []string{"*"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 10*time.Second, cfg.Planner.ProducerTimeout)
	assert.Equal(t, 365, cfg.Planner.MaxDays)
	assert.Equal(t, 4096, cfg.Input.MaxSize)
	assert.Equal(t, "byland:", cfg.Redis.Prefix)
	assert.Empty(t, cfg.Gear.Items)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "byland.yaml")
	yamlData := `
http:
  port: "9090"
store:
  driver: sqlite
  sqlite_path: /tmp/trail.db
planner:
  producer_timeout: 2s
  max_days: 30
gear:
  items: [Stove, Map]
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yamlData), 0o600))

	t.Setenv("BYLAND_HTTP_PORT", "7070")
	t.Setenv("BYLAND_REDIS_SESSION_TTL", "1h")
	t.Setenv("BYLAND_HTTP_CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.HTTP.Port, "env overrides file")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "/tmp/trail.db", cfg.Store.SQLitePath)
	assert.Equal(t, 2*time.Second, cfg.Planner.ProducerTimeout)
	assert.Equal(t, 30, cfg.Planner.MaxDays)
	assert.Equal(t, time.Hour, cfg.Redis.SessionTTL)
	assert.Equal(t, []string{"Stove", "Map"}, cfg.Gear.Items)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format, "untouched defaults survive")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := decode(Defaults())
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty port", func(c *Config) { c.HTTP.Port = "" }},
		{"unknown driver", func(c *Config) { c.Store.Driver = "mongo" }},
		{"zero max days", func(c *Config) { c.Planner.MaxDays = 0 }},
		{"max days above cap", func(c *Config) { c.Planner.MaxDays = 10_000 }},
		{"sqlite without path", func(c *Config) { c.Store.Driver = "sqlite"; c.Store.SQLitePath = "" }},
		{"file without dir", func(c *Config) { c.Store.Driver = "file"; c.Store.FileDir = "" }},
		{"redis without addr", func(c *Config) { c.Store.Driver = "redis"; c.Redis.Addr = "" }},
		{"zero timeout", func(c *Config) { c.Planner.ProducerTimeout = 0 }},
		{"zero input size", func(c *Config) { c.Input.MaxSize = 0 }},
		{"bad key encoding", func(c *Config) { c.Encryption.Key = "%%%" }},
		{"short key", func(c *Config) { c.Encryption.Key = base64.StdEncoding.EncodeToString([]byte("short")) }},
	}

	require.NoError(t, valid().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestEncryptionKey(t *testing.T) {
	cfg := &Config{}
	key, err := cfg.EncryptionKey()
	require.NoError(t, err)
	assert.Nil(t, key)

	raw := make([]byte, 32)
	cfg.Encryption.Key = base64.StdEncoding.EncodeToString(raw)
	key, err = cfg.EncryptionKey()
	require.NoError(t, err)
	assert.Len(t, key, 32)
}
