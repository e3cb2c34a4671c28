package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"mintgate/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisQuotaPrefix = "mintgate:quota:"

type slidingMemoryLimiter struct {
	mu      sync.Mutex
	now     func() time.Time
	hits    map[string][]time.Time
	maxKeys int
}

// NewSlidingMemoryLimiter keeps the timestamp of every granted call per key
// and counts the ones inside the trailing window, so at most limit calls land
// in any window-long span.
func NewSlidingMemoryLimiter(cfg MemoryLimiterConfig) domain.RateLimiter {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxKeys <= 0 {
		cfg.MaxKeys = 10000
	}
	return &slidingMemoryLimiter{
		now:     cfg.Now,
		hits:    make(map[string][]time.Time),
		maxKeys: cfg.MaxKeys,
	}
}

func (m *slidingMemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (domain.RateLimitDecision, error) {
	if limit <= 0 {
		return domain.RateLimitDecision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	if window <= 0 {
		window = time.Second
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	hits, ok := m.hits[key]
	if !ok && len(m.hits) >= m.maxKeys {
		m.evictIdle(now, window)
		if len(m.hits) >= m.maxKeys {
			return domain.RateLimitDecision{}, ErrCapacity
		}
	}
	hits = trimBefore(hits, now.Add(-window))

	decision := domain.RateLimitDecision{Limit: limit}
	if len(hits) >= limit {
		m.hits[key] = hits
		decision.ResetAt = hits[0].Add(window)
		return decision, nil
	}
	hits = append(hits, now)
	m.hits[key] = hits
	decision.Allowed = true
	decision.Remaining = limit - len(hits)
	decision.ResetAt = hits[0].Add(window)
	return decision, nil
}

func (m *slidingMemoryLimiter) evictIdle(now time.Time, window time.Duration) {
	cutoff := now.Add(-window)
	for key, hits := range m.hits {
		if len(hits) == 0 || !hits[len(hits)-1].After(cutoff) {
			delete(m.hits, key)
		}
	}
}

// trimBefore drops timestamps at or before cutoff. hits is in grant order.
func trimBefore(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return hits
	}
	return append(hits[:0:0], hits[i:]...)
}

// slidingWindowScript drops members older than the window, adds the call when
// there is room, and returns {allowed, count, oldest score in ms}.
var slidingWindowScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", now - window)
local count = redis.call("ZCARD", KEYS[1])
local allowed = 0
if count < limit then
  redis.call("ZADD", KEYS[1], now, ARGV[4])
  count = count + 1
  allowed = 1
end
redis.call("PEXPIRE", KEYS[1], window)
local oldest = redis.call("ZRANGE", KEYS[1], 0, 0, "WITHSCORES")
local oldestScore = now
if oldest[2] then
  oldestScore = tonumber(oldest[2])
end
return {allowed, count, oldestScore}
`)

// RedisSlidingLimiter is the shared-store counterpart of
// NewSlidingMemoryLimiter, one sorted set of call times per key.
type RedisSlidingLimiter struct {
	*RedisLimiter
}

func NewRedisSlidingLimiter(addr, password string, db int, now func() time.Time) (*RedisSlidingLimiter, error) {
	base, err := NewRedisLimiter(addr, password, db, now)
	if err != nil {
		return nil, err
	}
	return &RedisSlidingLimiter{RedisLimiter: base}, nil
}

func (r *RedisSlidingLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (domain.RateLimitDecision, error) {
	if limit <= 0 {
		return domain.RateLimitDecision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	windowMillis := window.Milliseconds()
	if windowMillis <= 0 {
		windowMillis = 1000
	}
	nowMillis := r.now().UnixMilli()
	member := fmt.Sprintf("%d-%s", nowMillis, uuid.NewString())
	result, err := slidingWindowScript.Run(ctx, r.client, []string{redisQuotaPrefix + key}, nowMillis, windowMillis, limit, member).Result()
	if err != nil {
		return domain.RateLimitDecision{}, err
	}
	values, ok := result.([]any)
	if !ok || len(values) != 3 {
		return domain.RateLimitDecision{}, errors.New("unexpected redis quota response")
	}
	allowed, ok1 := values[0].(int64)
	count, ok2 := values[1].(int64)
	oldest, ok3 := values[2].(int64)
	if !ok1 || !ok2 || !ok3 {
		return domain.RateLimitDecision{}, errors.New("invalid redis quota response")
	}
	return slidingDecision(limit, allowed == 1, count, time.UnixMilli(oldest).Add(time.Duration(windowMillis)*time.Millisecond)), nil
}

func slidingDecision(limit int, allowed bool, count int64, resetAt time.Time) domain.RateLimitDecision {
	remaining := limit - int(count)
	if remaining < 0 || !allowed {
		remaining = 0
	}
	return domain.RateLimitDecision{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}
