// Package config provides application configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// BYLAND_* environment variables (a .env file is honoured). The merged tree is
// decoded with mapstructure so durations and lists may be given as strings.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/byland-ai/byland/pkg/planner"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "BYLAND_"

// Config holds all application configuration.
type Config struct {
	HTTP       HTTPConfig       `mapstructure:"http"`
	Store      StoreConfig      `mapstructure:"store"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Planner    PlannerConfig    `mapstructure:"planner"`
	Gear       GearConfig       `mapstructure:"gear"`
	Log        LogConfig        `mapstructure:"log"`
	Input      InputConfig      `mapstructure:"input"`
	Encryption EncryptionConfig `mapstructure:"encryption"`
}

type HTTPConfig struct {
	Port        string   `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// StoreConfig selects the session/profile backend: memory, file, sqlite or redis.
type StoreConfig struct {
	Driver     string `mapstructure:"driver"`
	SQLitePath string `mapstructure:"sqlite_path"`
	FileDir    string `mapstructure:"file_dir"`
}

type RedisConfig struct {
	Addr       string        `mapstructure:"addr"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	Prefix     string        `mapstructure:"prefix"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

type PlannerConfig struct {
	ProducerTimeout time.Duration `mapstructure:"producer_timeout"`
	MaxDays         int           `mapstructure:"max_days"`
}

type GearConfig struct {
	Items []string `mapstructure:"items"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type InputConfig struct {
	MaxSize int `mapstructure:"max_size"`
}

// EncryptionConfig enables at-rest session encryption when Key is set.
// Key is base64 of 32 random bytes.
type EncryptionConfig struct {
	Key string `mapstructure:"key"`
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() map[string]any {
	return map[string]any{
		"http": map[string]any{
			"port":         "8080",
			"cors_origins": []any{"*"},
		},
		"store": map[string]any{
			"driver":      "memory",
			"sqlite_path": "./data/byland.db",
			"file_dir":    "./data/byland",
		},
		"redis": map[string]any{
			"addr":        "localhost:6379",
			"password":    "",
			"db":          0,
			"prefix":      "byland:",
			"session_ttl": "0s",
		},
		"planner": map[string]any{
			"producer_timeout": "10s",
			"max_days":         planner.DefaultMaxDays,
		},
		"gear": map[string]any{
			"items": []any{},
		},
		"log": map[string]any{
			"level":  "info",
			"format": "text",
		},
		"input": map[string]any{
			"max_size": 4096,
		},
		"encryption": map[string]any{
			"key": "",
		},
	}
}

// Load reads .env (if present), the YAML file at path (if non-empty) and the
// environment, then validates the result.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	tree := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		var file map[string]any
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		merge(tree, file)
	}

	overlayEnv(tree, os.Environ())

	cfg, err := decode(tree)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func decode(tree map[string]any) (*Config, error) {
	var cfg Config
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(tree); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// merge copies src into dst, descending into nested maps.
func merge(dst, src map[string]any) {
	for k, v := range src {
		sub, ok := v.(map[string]any)
		if !ok {
			dst[k] = v
			continue
		}
		existing, ok := dst[k].(map[string]any)
		if !ok {
			existing = map[string]any{}
			dst[k] = existing
		}
		merge(existing, sub)
	}
}

// overlayEnv maps BYLAND_SECTION_KEY=value onto tree[section][key].
// Only sections already present in tree are considered.
func overlayEnv(tree map[string]any, environ []string) {
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) {
			continue
		}
		rest := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
		section, key, ok := strings.Cut(rest, "_")
		if !ok {
			continue
		}
		sub, ok := tree[section].(map[string]any)
		if !ok {
			continue
		}
		sub[key] = value
	}
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.HTTP.Port == "" {
		return fmt.Errorf("http.port cannot be empty")
	}
	switch c.Store.Driver {
	case "memory":
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path cannot be empty for sqlite driver")
		}
	case "file":
		if c.Store.FileDir == "" {
			return fmt.Errorf("store.file_dir cannot be empty for file driver")
		}
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr cannot be empty for redis driver")
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	if c.Planner.ProducerTimeout <= 0 {
		return fmt.Errorf("planner.producer_timeout must be > 0")
	}
	if c.Planner.MaxDays <= 0 || c.Planner.MaxDays > planner.DefaultMaxDays {
		return fmt.Errorf("planner.max_days must be in 1..%d", planner.DefaultMaxDays)
	}
	if c.Redis.SessionTTL < 0 {
		return fmt.Errorf("redis.session_ttl must be >= 0")
	}
	if c.Input.MaxSize <= 0 {
		return fmt.Errorf("input.max_size must be > 0")
	}
	if c.Encryption.Key != "" {
		if _, err := c.EncryptionKey(); err != nil {
			return err
		}
	}
	return nil
}

// EncryptionKey decodes the configured key. It returns nil when encryption is off.
func (c *Config) EncryptionKey() ([]byte, error) {
	if c.Encryption.Key == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(c.Encryption.Key)
	if err != nil {
		return nil, fmt.Errorf("encryption.key is not valid base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption.key must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}
