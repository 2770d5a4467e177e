// Package agent wires the cache layer together for host applications: one
// fx module providing the logger, event bus, data-dir lock, chat and user
// caches, and the sync engine.
package agent

import (
	"context"
	"errors"
	"os"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/openchat-labs/occache/internal/bus"
	"github.com/openchat-labs/occache/internal/cache"
	"github.com/openchat-labs/occache/internal/config"
	"github.com/openchat-labs/occache/internal/lock"
	"github.com/openchat-labs/occache/internal/logging"
	"github.com/openchat-labs/occache/internal/paths"
	occsync "github.com/openchat-labs/occache/internal/sync"
)

// Params selects the account and data directory for the agent. Empty fields
// fall back to the persisted config, then to defaults.
type Params struct {
	Principal string
	DataDir   string
}

// Settings is the fully resolved runtime configuration.
type Settings struct {
	Principal string
	DataDir   string
	Disabled  bool
}

// Module composes the cache agent. The host application must additionally
// provide a sync.Fetcher implementation if it constructs the sync engine.
func Module(p Params) fx.Option {
	return fx.Module("agent",
		fx.Supply(p),
		fx.Provide(
			Resolve,
			provideLogger,
			provideBus,
			provideLock,
			provideChats,
			provideUsers,
			provideEngine,
		),
		fx.Invoke(registerLifecycle),
	)
}

// Resolve merges explicit params with the persisted config. A missing
// config file is not an error; everything has a default except the
// principal, which must come from somewhere.
func Resolve(p Params) (Settings, error) {
	return resolveFrom(p, paths.ConfigPath())
}

func resolveFrom(p Params, configPath string) (Settings, error) {
	s := Settings{Principal: p.Principal, DataDir: p.DataDir}

	cfg, err := config.Load(configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Settings{}, err
		}
		cfg = &config.Config{}
	}

	if s.Principal == "" {
		s.Principal = cfg.Principal
	}
	if s.DataDir == "" {
		s.DataDir = cfg.DataDir
	}
	if s.DataDir == "" {
		s.DataDir = paths.BaseDir()
	}
	s.Disabled = cfg.CachingDisabled()

	if err := paths.ValidatePrincipal(s.Principal); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func provideLogger(s Settings) (*zap.Logger, error) {
	return logging.New(paths.LogPath(s.DataDir), s.Principal)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(s Settings, logger *zap.Logger) (*lock.Lock, error) {
	if err := paths.EnsureDir(s.DataDir); err != nil {
		return nil, err
	}
	l, err := lock.Acquire(s.DataDir)
	if err != nil {
		return nil, err
	}
	logger.Info("data dir lock acquired", zap.String("dir", s.DataDir))
	return l, nil
}

func provideChats(s Settings, logger *zap.Logger, b *bus.Bus) (*cache.Chats, error) {
	c := cache.NewChats(s.DataDir, s.Disabled, logger, b)
	if err := c.Init(s.Principal); err != nil {
		return nil, err
	}
	return c, nil
}

func provideUsers(s Settings, logger *zap.Logger) *cache.Users {
	return cache.NewUsers(s.DataDir, s.Disabled, logger)
}

func provideEngine(c *cache.Chats, f occsync.Fetcher, b *bus.Bus, logger *zap.Logger) *occsync.Engine {
	return occsync.NewEngine(c, f, b, logger)
}

func registerLifecycle(lc fx.Lifecycle, s Settings, lk *lock.Lock, chats *cache.Chats, users *cache.Users, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			logger.Info("cache agent ready",
				zap.String("principal", s.Principal),
				zap.Bool("caching_disabled", s.Disabled))
			return nil
		},
		OnStop: func(context.Context) error {
			if err := chats.Close(); err != nil {
				logger.Warn("error closing chat cache", zap.Error(err))
			}
			if err := users.Close(); err != nil {
				logger.Warn("error closing user cache", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("cache agent stopped")
			return nil
		},
	})
}
