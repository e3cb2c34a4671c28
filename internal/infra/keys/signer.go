package keys

import (
	"context"
	"fmt"

	"mintgate/internal/domain"
	cryptoinfra "mintgate/internal/infra/crypto"
)

// VoucherSigner signs canonical message hashes with the identity named by Ref.
// Every call goes through the KeyManager, so remote backends are read once
// per voucher.
type VoucherSigner struct {
	Keys domain.KeyManager
	Ref  domain.KeyRef
}

func NewVoucherSigner(keys domain.KeyManager, ref domain.KeyRef) *VoucherSigner {
	return &VoucherSigner{Keys: keys, Ref: ref}
}

func (s *VoucherSigner) Sign(ctx context.Context, hash domain.Hash) (domain.Voucher, error) {
	if s == nil || s.Keys == nil {
		return domain.Voucher{}, fmt.Errorf("%w: key manager not configured", domain.ErrSigning)
	}
	digest := cryptoinfra.PersonalMessageHash(hash)
	sig, err := s.Keys.Sign(ctx, s.Ref, digest[:])
	if err != nil {
		return domain.Voucher{}, fmt.Errorf("%w: %v", domain.ErrSigning, err)
	}
	if len(sig) != domain.SignatureLength {
		return domain.Voucher{}, fmt.Errorf("%w: unexpected signature length %d", domain.ErrSigning, len(sig))
	}
	return domain.Voucher{Hash: hash, Signature: sig}, nil
}
