// File path: internal/cache/redis.go
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/marginalia-dev/redline/internal/common"
)

// Redis is the networked backend. It implements the same contract as
// Memory; TTL expiry is handled server-side.
type Redis struct {
	client *redis.Client
}

func NewRedis(cfg Config) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	common.Logger().Info("cache: redis backend configured", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
	return &Redis{client: client}
}

// Ping probes the server. Construction never fails; callers that need a
// hard guarantee probe explicitly.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.client == nil {
		return fmt.Errorf("cache: redis client not configured")
	}
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	if r == nil || r.client == nil {
		return nil, fmt.Errorf("cache: redis client not configured")
	}
	value, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("cache: redis get: %w", err)
	}
	return value, nil
}

func (r *Redis) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if r == nil || r.client == nil {
		return fmt.Errorf("cache: redis client not configured")
	}
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache: redis set: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}

var _ Cache = (*Redis)(nil)
