package main

import (
	"errors"
	"fmt"

	"github.com/byland-ai/byland"
	"github.com/byland-ai/byland/internal/config"
	"github.com/byland-ai/byland/pkg/adapters/file"
	"github.com/byland-ai/byland/pkg/adapters/memory"
	"github.com/byland-ai/byland/pkg/adapters/redis"
	"github.com/byland-ai/byland/pkg/adapters/sqlite"
	"github.com/byland-ai/byland/pkg/observability"
	"github.com/byland-ai/byland/pkg/persistence/middleware"
	"github.com/byland-ai/byland/pkg/ports"
	"github.com/spf13/cobra"
)

// stores groups the persistence backends selected by configuration.
type stores struct {
	sessions ports.SessionStore
	profiles ports.ProfileStore
	locker   ports.DistributedLocker
	close    func() error
}

// openStores builds the configured backend and wraps it with encryption when a key is set.
func openStores(cfg *config.Config) (*stores, error) {
	st := &stores{close: func() error { return nil }}

	switch cfg.Store.Driver {
	case "memory":
		st.sessions = memory.NewStore()
		st.profiles = memory.NewProfileStore()
	case "file":
		fs := file.New(cfg.Store.FileDir)
		st.sessions, st.profiles = fs, fs
	case "sqlite":
		db, err := sqlite.Open(cfg.Store.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		st.sessions, st.profiles, st.close = db, db, db.Close
	case "redis":
		rs := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redis.WithPrefix(cfg.Redis.Prefix),
			redis.WithTTL(cfg.Redis.SessionTTL),
		)
		st.sessions, st.profiles, st.close = rs, rs, rs.Close
		st.locker = redis.NewLocker(rs.Client(), rs.Prefix())
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	key, err := cfg.EncryptionKey()
	if err != nil {
		return nil, errors.Join(err, st.close())
	}
	if key != nil {
		enc := middleware.EncryptionConfig{ActiveKey: key}
		st.sessions = middleware.NewEncryptionMiddleware(enc)(st.sessions)
		st.profiles = middleware.NewProfileEncryptionMiddleware(enc)(st.profiles)
	}
	return st, nil
}

// runtimeDeps is everything a command needs to drive the application.
type runtimeDeps struct {
	cfg     *config.Config
	app     *byland.App
	metrics *observability.Metrics
	close   func() error
}

// setup loads configuration and builds the App with metrics hooks attached.
func setup(cmd *cobra.Command) (*runtimeDeps, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	st, err := openStores(cfg)
	if err != nil {
		return nil, err
	}

	metrics := observability.NewMetrics(nil)
	opts := []byland.Option{
		byland.WithSessionStore(st.sessions),
		byland.WithProfileStore(st.profiles),
		byland.WithLifecycleHooks(metrics.Hooks()),
		byland.WithLogger(logger),
		byland.WithProducerTimeout(cfg.Planner.ProducerTimeout),
		byland.WithMaxDays(cfg.Planner.MaxDays),
		byland.WithGearItems(cfg.Gear.Items...),
	}
	if st.locker != nil {
		opts = append(opts, byland.WithLocker(st.locker))
	}

	return &runtimeDeps{
		cfg:     cfg,
		app:     byland.New(opts...),
		metrics: metrics,
		close:   st.close,
	}, nil
}
