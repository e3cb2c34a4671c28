package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"mintgate/internal/domain"
)

// ErrCapacity is returned when every tracked window is still live and a new
// key would exceed MaxKeys.
var ErrCapacity = errors.New("rate limiter capacity exceeded")

type memoryLimiter struct {
	mu      sync.Mutex
	now     func() time.Time
	windows map[string]*fixedWindow
	maxKeys int
}

type fixedWindow struct {
	used  int
	endAt time.Time
}

type MemoryLimiterConfig struct {
	Now     func() time.Time
	MaxKeys int
}

// NewMemoryLimiter counts requests per key in fixed windows held in process
// memory. Counts are lost on restart and are not shared between replicas.
func NewMemoryLimiter(cfg MemoryLimiterConfig) domain.RateLimiter {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxKeys <= 0 {
		cfg.MaxKeys = 10000
	}
	return &memoryLimiter{
		now:     cfg.Now,
		windows: make(map[string]*fixedWindow),
		maxKeys: cfg.MaxKeys,
	}
}

func (m *memoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (domain.RateLimitDecision, error) {
	if limit <= 0 {
		return domain.RateLimitDecision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	if window <= 0 {
		window = time.Second
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[key]
	if !ok || !now.Before(w.endAt) {
		if !ok && len(m.windows) >= m.maxKeys {
			m.evictExpired(now)
			if len(m.windows) >= m.maxKeys {
				return domain.RateLimitDecision{}, ErrCapacity
			}
		}
		w = &fixedWindow{endAt: now.Add(window)}
		m.windows[key] = w
	}

	decision := domain.RateLimitDecision{Limit: limit, ResetAt: w.endAt}
	if w.used >= limit {
		return decision, nil
	}
	w.used++
	decision.Allowed = true
	decision.Remaining = limit - w.used
	return decision, nil
}

func (m *memoryLimiter) evictExpired(now time.Time) {
	for key, w := range m.windows {
		if !now.Before(w.endAt) {
			delete(m.windows, key)
		}
	}
}
