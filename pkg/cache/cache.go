// Package cache provides a Redis-backed key/value system with lifecycle coordination.
package cache

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/pkg/lifecycle"
)

// ErrMiss indicates the key is not present.
var ErrMiss = errors.New("cache miss")

// System is a byte-oriented key/value store with expiry.
type System interface {
	// Start registers a best-effort connectivity check and client shutdown.
	Start(lc *lifecycle.Coordinator) error
	// Get returns the value stored at key or ErrMiss.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value at key. A zero ttl keeps the key until deleted.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
	// DeleteMatching removes every key matching the glob pattern and
	// reports how many were removed.
	DeleteMatching(ctx context.Context, pattern string) (int, error)
}

const scanBatch = 100

type redisCache struct {
	client *redis.Client
	logger *slog.Logger
}

// New creates a cache system. No connection is made until first use.
func New(cfg *Config, logger *slog.Logger) System {
	opts := &redis.Options{
		Addr:        cfg.Addr,
		Username:    cfg.Username,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeoutDuration(),
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	return &redisCache{
		client: redis.NewClient(opts),
		logger: logger.With("system", "cache"),
	}
}

func (c *redisCache) Start(lc *lifecycle.Coordinator) error {
	c.logger.Info("starting cache system")

	lc.OnStartup(lifecycle.Hook{
		Name: "cache",
		Run: func(ctx context.Context) error {
			if err := c.client.Ping(ctx).Err(); err != nil {
				c.logger.Warn("cache unavailable, drafts will be read from the store", "error", err)
				return err
			}
			c.logger.Info("cache connection established")
			return nil
		},
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		if err := c.client.Close(); err != nil {
			c.logger.Error("cache close failed", "error", err)
			return
		}
		c.logger.Info("cache connection closed")
	})

	return nil
}

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get %s: %w", key, err)
	}
	return b, nil
}

func (c *redisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

func (c *redisCache) DeleteMatching(ctx context.Context, pattern string) (int, error) {
	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return removed, fmt.Errorf("cache scan %s: %w", pattern, err)
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return removed, fmt.Errorf("cache delete %s: %w", pattern, err)
			}
			removed += int(n)
		}
		if next == 0 {
			return removed, nil
		}
		cursor = next
	}
}
