package usecase

import (
	"context"
	"time"

	"mintgate/internal/domain"
)

type AdmissionVerifier interface {
	Verify(ctx context.Context, token string) (domain.AdmissionVerdict, error)
}

type SlotOracle interface {
	CurrentSlot(ctx context.Context, resource domain.Address) (domain.Slot, error)
}

type Canonicalizer interface {
	Canonicalize(requester domain.Address, slot domain.Slot, resource domain.Address) domain.CanonicalMessage
}

type VoucherSigner interface {
	Sign(ctx context.Context, hash domain.Hash) (domain.Voucher, error)
}

// Minter turns an admitted requester into a voucher, either by running the
// local pipeline or by delegating to a remote custody service.
type Minter interface {
	Mint(ctx context.Context, requester domain.Address, resource domain.Address) (*MintResult, error)
}

type MintResult struct {
	Voucher domain.Voucher
	// Slot is nil when the voucher came from a remote custody service.
	Slot *domain.Slot
}

type IssuancePolicy interface {
	Evaluate(ctx context.Context, input domain.PolicyInput) (domain.PolicyEvaluation, error)
}

type IssuanceEventRepository interface {
	Append(ctx context.Context, event domain.IssuanceEvent) (domain.IssuanceEvent, error)
}

type IssuanceMetrics interface {
	ObserveIssuance(stage domain.Stage, outcome domain.IssuanceOutcome)
	QuotaExceeded()
}

type Clock func() time.Time
