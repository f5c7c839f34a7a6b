// Package app wires configuration to the gateway, cache and repository and runs
// the startup phases shared by the command line tools.
package app

import (
	"context" // Cancellation
	"fmt"     // Error wrapping
	"io"      // Log output

	"kudo/internal/cache"   // Category read cache
	"kudo/internal/config"  // Environment configuration
	"kudo/internal/db"      // Persistence gateway
	"kudo/internal/errs"    // Error taxonomy
	"kudo/internal/storage" // Domain operations

	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Structured logging
)

// SetupLogging configures the standard logrus logger from cfg
func SetupLogging(cfg *config.Config, out io.Writer) error {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	logrus.SetLevel(level)
	logrus.SetOutput(out)
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

// OpenGateway connects to the configured store. An unusable configuration is
// reported as errs.ErrStoreUnavailable, like an unreachable store.
func OpenGateway(cfg *config.Config) (*db.Gateway, error) {
	dsn, err := cfg.ConnectionString()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrStoreUnavailable, err)
	}
	return db.Open(cfg.DBDriver, dsn)
}

// OpenCache connects to Redis when REDIS_ADDR is set. It returns a nil cache and
// a no-op close func otherwise.
func OpenCache(ctx context.Context, cfg *config.Config) (*cache.Cache, func() error, error) {
	if cfg.RedisAddr == "" {
		return nil, func() error { return nil }, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})
	// Test Redis connection
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("connect to Redis: %w", err)
	}
	return cache.New(rdb, "kudo:", cfg.CacheTTL), rdb.Close, nil
}

// Migrate is startup phase one: apply pending migrations on a dedicated gateway
func Migrate(ctx context.Context, cfg *config.Config) error {
	gw, err := OpenGateway(cfg)
	if err != nil {
		return err
	}
	defer gw.Close()
	return gw.EnsureMigrated(ctx)
}

// Seed is startup phase two: fill an empty store with the default data on a
// fresh gateway. It reports whether anything was written.
func Seed(ctx context.Context, cfg *config.Config) (bool, error) {
	gw, err := OpenGateway(cfg)
	if err != nil {
		return false, err
	}
	defer gw.Close()
	return storage.NewRepository(gw).SeedDefaultData(ctx)
}

// Bootstrap runs both startup phases in order
func Bootstrap(ctx context.Context, cfg *config.Config) (bool, error) {
	if err := Migrate(ctx, cfg); err != nil {
		return false, err
	}
	return Seed(ctx, cfg)
}

// Reset drops every table owned by the module
func Reset(ctx context.Context, cfg *config.Config) error {
	gw, err := OpenGateway(cfg)
	if err != nil {
		return err
	}
	defer gw.Close()
	return gw.EnsureDeleted(ctx)
}
