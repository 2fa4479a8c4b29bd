package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mesh-intelligence/eric/internal/alert"
	"github.com/mesh-intelligence/eric/internal/backup"
	"github.com/mesh-intelligence/eric/internal/memory"
	"github.com/mesh-intelligence/eric/internal/monday"
	"github.com/mesh-intelligence/eric/internal/redis"
	"github.com/mesh-intelligence/eric/internal/sqlite"
	"github.com/mesh-intelligence/eric/pkg/items"
	"github.com/mesh-intelligence/eric/pkg/types"
)

// cacheHandle is an opened cache backend.
type cacheHandle struct {
	store types.CacheStore
	// ping reports whether the backend is reachable.
	ping  func(ctx context.Context) error
	close func() error
}

func (h *cacheHandle) Close() error {
	if h.close == nil {
		return nil
	}
	return h.close()
}

// openCache opens the configured cache backend.
func openCache(cfg types.Config) (*cacheHandle, error) {
	noop := func(context.Context) error { return nil }
	switch cfg.CacheBackend {
	case types.CacheBackendRedis:
		s, err := redis.NewStore(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return &cacheHandle{store: s, ping: s.Ping, close: s.Close}, nil
	case types.CacheBackendSQLite:
		s := sqlite.NewStore()
		if err := s.Attach(cfg.DataDir); err != nil {
			return nil, sysErr("open sqlite cache: %w", err)
		}
		return &cacheHandle{store: s, ping: noop, close: s.Detach}, nil
	case types.CacheBackendMemory:
		return &cacheHandle{store: memory.NewStore(), ping: noop}, nil
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrCacheBackendUnknown, cfg.CacheBackend)
	}
}

// newLogger builds the process logger from log_level and log_format.
func newLogger(w io.Writer, cfg types.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// runtime is the set of collaborators a command works with.
type runtime struct {
	logger *slog.Logger
	cache  *cacheHandle
	env    *items.Env
}

func (r *runtime) Close() error { return r.cache.Close() }

// newRuntime opens the cache and builds an items.Env around it. The observer
// and alert counter are optional.
func (a *app) newRuntime(logw io.Writer, observer items.Observer, counter alert.Counter) (*runtime, error) {
	logger := newLogger(logw, a.config)
	cache, err := openCache(a.config)
	if err != nil {
		return nil, err
	}
	alertOpts := []alert.Option{alert.WithWebhook(a.config.AlertWebhookURL)}
	if counter != nil {
		alertOpts = append(alertOpts, alert.WithCounter(counter))
	}
	env := &items.Env{
		Client:   monday.New(a.config.MondayAPIURL, a.config.MondayToken),
		Cache:    cache.store,
		Alerts:   alert.New(logger, alertOpts...),
		Logger:   logger,
		Observer: observer,
	}
	return &runtime{logger: logger, cache: cache, env: env}, nil
}

// openBackup opens the dump bucket named in the configuration.
func (a *app) openBackup(ctx context.Context) (*backup.Store, error) {
	if a.config.BackupBucket == "" {
		return nil, fmt.Errorf("backup_bucket is not configured")
	}
	return backup.Open(ctx, backup.Config{
		Bucket:          a.config.BackupBucket,
		Region:          a.config.BackupRegion,
		Endpoint:        a.config.BackupEndpoint,
		AccessKeyID:     a.config.BackupAccessKey,
		SecretAccessKey: a.config.BackupSecretKey,
	})
}
