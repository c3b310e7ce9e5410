// Package store builds the prediction cache selected by configuration.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/HatiCode/motoblu/cmd/predictor/config"
	"github.com/HatiCode/motoblu/pkg/storage"
)

// Cache is a storage.Store that can be health-checked and released.
type Cache interface {
	storage.Store
	Ping(ctx context.Context) error
	Close() error
}

// New returns the configured cache, or nil when caching is disabled.
func New(cfg *config.Config, logger *slog.Logger) (Cache, error) {
	switch cfg.Cache {
	case config.CacheNone:
		logger.Info("prediction cache disabled")
		return nil, nil

	case config.CacheRedis:
		logger.Info("using redis prediction cache",
			"addr", cfg.RedisAddr,
			"db", cfg.RedisDB,
			"ttl", cfg.CacheTTL,
		)
		s, err := storage.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return s, nil

	case config.CacheMemory:
		logger.Info("using in-memory prediction cache",
			"ttl", cfg.CacheTTL,
			"max_entries", cfg.CacheMaxEntries,
		)
		return storage.NewMemoryStoreWithTTL(cfg.CacheTTL, cfg.CacheTTL/2, storage.WithMaxEntries(cfg.CacheMaxEntries)), nil

	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache)
	}
}

// Close releases c if caching is enabled and logs any error. Safe on nil.
func Close(c Cache, logger *slog.Logger) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		logger.Error("failed to close cache", "error", err)
	}
}
