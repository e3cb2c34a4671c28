package usecase

import (
	"context"
	"errors"
	"fmt"

	"mintgate/internal/domain"
)

type AdmissionGate struct {
	Verifier AdmissionVerifier
}

// Admit validates the raw request and consults the verifier once. Malformed
// input never reaches the verifier.
func (g *AdmissionGate) Admit(ctx context.Context, raw domain.RawMintRequest) (domain.AdmissionResult, error) {
	req, err := domain.ParseMintRequest(raw)
	if err != nil {
		return domain.AdmissionResult{}, err
	}
	return g.AdmitRequest(ctx, req)
}

func (g *AdmissionGate) AdmitRequest(ctx context.Context, req domain.MintRequest) (domain.AdmissionResult, error) {
	result := domain.AdmissionResult{Request: req}
	if g == nil || g.Verifier == nil {
		return result, fmt.Errorf("%w: verifier not configured", domain.ErrAdmissionUnavailable)
	}
	verdict, err := g.Verifier.Verify(ctx, req.ProofToken)
	if err != nil {
		if !errors.Is(err, domain.ErrAdmissionUnavailable) {
			err = fmt.Errorf("%w: %v", domain.ErrAdmissionUnavailable, err)
		}
		return result, err
	}
	result.ErrorCodes = verdict.ErrorCodes
	if !verdict.Success {
		return result, domain.ErrAdmissionRejected
	}
	result.Approved = true
	return result, nil
}
