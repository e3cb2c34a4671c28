package crypto

import (
	"errors"

	"mintgate/internal/domain"
)

type Service struct{}

func NewService() *Service {
	return &Service{}
}

func (s *Service) Canonicalize(requester domain.Address, slot domain.Slot, resource domain.Address) domain.CanonicalMessage {
	return Canonicalize(requester, slot, resource)
}

// VerifyVoucher checks that the voucher hash matches the fields and that the
// signature recovers to signer.
func (s *Service) VerifyVoucher(v domain.Voucher, requester domain.Address, slot domain.Slot, resource domain.Address, signer domain.Address) error {
	msg := Canonicalize(requester, slot, resource)
	if msg.Hash != v.Hash {
		return errors.New("voucher hash mismatch")
	}
	digest := PersonalMessageHash(v.Hash)
	return VerifyDigest(digest[:], v.Signature, signer)
}
