// Package redis connects to Redis for cross-process conversion locks.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yi-nology/mediable/pkg/config"
	"github.com/yi-nology/mediable/pkg/lock"
)

const pingTimeout = 5 * time.Second

// NewClient creates a Redis client based on the provided configuration.
// Returns nil, nil if Redis is not enabled.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	client := redis.NewClient(options(cfg))

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Address, err)
	}
	return client, nil
}

// options maps the config onto client options. Lock traffic is a SETNX
// poll plus one script call per conversion, so the pool stays small unless
// configured otherwise.
func options(cfg config.RedisConfig) *redis.Options {
	addr := cfg.Address
	if addr == "" {
		addr = "localhost:6379"
	}
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}
	return &redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     poolSize,
		DialTimeout:  pingTimeout,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}
}

// NewLocker connects and returns a conversion locker on the configured key
// prefix and timings. Returns nil, nil, nil if Redis is not enabled; the
// caller closes the client.
func NewLocker(ctx context.Context, cfg config.RedisConfig) (*lock.RedisLocker, *redis.Client, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil || client == nil {
		return nil, nil, err
	}
	return lock.NewRedis(client, cfg.KeyPrefix, cfg.LockTTL, cfg.LockWait), client, nil
}
