// AngelaMos | 2026
// redis.go

package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/tenantgate/internal/config"
)

var ErrRedisDisabled = errors.New("redis not configured")

// Redis backs request throttling only. Tenant, principal and plan state is
// always read from Postgres so every request sees current standing.
//
// A nil *Redis is valid: every method treats it as "not configured" and the
// rate limiters fall back to per-process buckets.
type Redis struct {
	Client *redis.Client
}

// NewRedis returns nil, nil when no URL is configured. A failed initial ping
// still returns the client alongside the error: go-redis reconnects on its
// own, so readiness and the limiters pick Redis up once it comes back.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*Redis, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.PoolTimeout = 30 * time.Second
	opts.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return &Redis{Client: client}, fmt.Errorf("ping redis: %w", err)
	}

	return &Redis{Client: client}, nil
}

// Limiter is the client handed to the rate limit middleware, nil when Redis
// is not configured.
func (r *Redis) Limiter() *redis.Client {
	if r == nil {
		return nil
	}
	return r.Client
}

func (r *Redis) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}

func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return ErrRedisDisabled
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := r.Client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	return nil
}

// PoolStats is nil when Redis is not configured.
func (r *Redis) PoolStats() *redis.PoolStats {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.PoolStats()
}
