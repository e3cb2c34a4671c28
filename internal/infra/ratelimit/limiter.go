package ratelimit

import (
	"time"

	"mintgate/internal/config"
	"mintgate/internal/domain"
)

// NewFromConfig returns a Redis-backed limiter when REDIS_ADDR is set so
// counts are shared across replicas, and an in-memory one otherwise.
func NewFromConfig(cfg config.Config, now func() time.Time) (domain.RateLimiter, error) {
	if cfg.RedisAddr != "" {
		limiter, err := NewRedisLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, now)
		if err != nil {
			return nil, err
		}
		return limiter, nil
	}
	return NewMemoryLimiter(MemoryLimiterConfig{Now: now, MaxKeys: cfg.RateLimitMaxKeys}), nil
}

// NewQuotaFromConfig returns the sliding-window limiter backing the signing
// quota. It never shares state with the per-client limiter.
func NewQuotaFromConfig(cfg config.Config, now func() time.Time) (domain.RateLimiter, error) {
	if cfg.RedisAddr != "" {
		limiter, err := NewRedisSlidingLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, now)
		if err != nil {
			return nil, err
		}
		return limiter, nil
	}
	return NewSlidingMemoryLimiter(MemoryLimiterConfig{Now: now}), nil
}
