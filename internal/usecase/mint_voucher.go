package usecase

import (
	"context"
	"errors"
	"fmt"

	"mintgate/internal/domain"
)

// MintVoucher is the local pipeline: read the slot, canonicalize, sign.
// There is no lock between the read and the signature, so two concurrent
// callers can be issued vouchers for the same slot.
type MintVoucher struct {
	Oracle        SlotOracle
	Canonicalizer Canonicalizer
	Signer        VoucherSigner
}

func (uc *MintVoucher) Mint(ctx context.Context, requester domain.Address, resource domain.Address) (*MintResult, error) {
	if uc == nil || uc.Oracle == nil || uc.Canonicalizer == nil || uc.Signer == nil {
		return nil, &domain.StageError{Stage: domain.StageSlotRead, Err: errors.New("mint pipeline not configured")}
	}
	slot, err := uc.Oracle.CurrentSlot(ctx, resource)
	if err != nil {
		return nil, &domain.StageError{Stage: domain.StageSlotRead, Err: ensure(err, domain.ErrOracle)}
	}
	msg := uc.Canonicalizer.Canonicalize(requester, slot, resource)
	voucher, err := uc.Signer.Sign(ctx, msg.Hash)
	if err != nil {
		return nil, &domain.StageError{Stage: domain.StageSigned, Err: ensure(err, domain.ErrSigning)}
	}
	if voucher.Hash != msg.Hash {
		return nil, &domain.StageError{Stage: domain.StageSigned, Err: fmt.Errorf("%w: signer returned a different hash", domain.ErrSigning)}
	}
	return &MintResult{Voucher: voucher, Slot: &slot}, nil
}

func ensure(err error, kind error) error {
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %v", kind, err)
}
