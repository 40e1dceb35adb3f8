// Package ratelimit throttles vote submissions per user over fixed windows
// (Redis-backed limiter plus a permissive noop).
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/marcelojr/cineclube/internal/domain"
)

var ErrLimitExceeded = fmt.Errorf("vote rate limit exceeded")

// RedisLimiter counts actions per key in fixed windows using INCR + EXPIRE.
type RedisLimiter struct {
	client    *redis.Client
	limit     int
	window    time.Duration
	keyPrefix string
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisLimiter{
		client:    client,
		limit:     limit,
		window:    window,
		keyPrefix: prefix,
	}
}

func (r *RedisLimiter) Allow(ctx context.Context, key string) error {
	if r.client == nil || r.limit <= 0 || r.window <= 0 {
		// Invalid configuration falls back to permissive mode.
		return nil
	}

	redisKey := fmt.Sprintf("%s:%s", r.keyPrefix, key)
	count, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return fmt.Errorf("ratelimit: incr failed: %w", err)
	}

	if count == 1 {
		if err := r.client.Expire(ctx, redisKey, r.window).Err(); err != nil {
			return fmt.Errorf("ratelimit: expire failed: %w", err)
		}
	}

	if int(count) > r.limit {
		return ErrLimitExceeded
	}

	return nil
}

var _ domain.RateLimiter = (*RedisLimiter)(nil)
