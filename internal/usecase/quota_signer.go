package usecase

import (
	"context"
	"fmt"
	"time"

	"mintgate/internal/domain"
)

const (
	SigningQuotaWindow = time.Hour
	signingQuotaKey    = "signing-quota"
)

// QuotaSigner spends one unit of the execution quota per signature. Limiter
// is expected to count a trailing window (ratelimit.NewQuotaFromConfig). A
// limiter failure is treated as an exhausted quota source and fails closed.
type QuotaSigner struct {
	Next    VoucherSigner
	Limiter domain.RateLimiter
	Key     string
	Limit   int
	Window  time.Duration
	Metrics IssuanceMetrics
}

func (s *QuotaSigner) Sign(ctx context.Context, hash domain.Hash) (domain.Voucher, error) {
	if s == nil || s.Next == nil {
		return domain.Voucher{}, fmt.Errorf("%w: signer not configured", domain.ErrSigning)
	}
	if s.Limiter != nil && s.Limit > 0 {
		decision, err := s.Limiter.Allow(ctx, s.key(), s.Limit, s.window())
		if err != nil {
			return domain.Voucher{}, fmt.Errorf("%w: quota unavailable: %v", domain.ErrSigning, err)
		}
		if !decision.Allowed {
			if s.Metrics != nil {
				s.Metrics.QuotaExceeded()
			}
			return domain.Voucher{}, fmt.Errorf("%w: resets at %s", domain.ErrQuotaExceeded, decision.ResetAt.UTC().Format(time.RFC3339))
		}
	}
	return s.Next.Sign(ctx, hash)
}

func (s *QuotaSigner) key() string {
	if s.Key == "" {
		return signingQuotaKey
	}
	return s.Key
}

func (s *QuotaSigner) window() time.Duration {
	if s.Window <= 0 {
		return SigningQuotaWindow
	}
	return s.Window
}
