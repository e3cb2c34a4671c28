package http

import (
	"context"
	"io"
	"time"

	"mintgate/internal/domain"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// limiterStatus reports the shared counter store: "memory" when counts are
// process local, otherwise the result of a ping.
func limiterStatus(ctx context.Context, limiter domain.RateLimiter) string {
	p, ok := limiter.(pinger)
	if !ok {
		return "memory"
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return "unreachable"
	}
	return "ok"
}

func closeLimiter(limiter domain.RateLimiter) error {
	if c, ok := limiter.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
