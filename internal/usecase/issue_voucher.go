package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"mintgate/internal/domain"

	"github.com/sirupsen/logrus"
)

type IssueVoucherRequest struct {
	RequestID string
	Raw       domain.RawMintRequest
}

type IssueVoucherResponse struct {
	Requester domain.Address
	Voucher   domain.Voucher
	Slot      *domain.Slot
}

// IssueVoucher runs Received -> Admitted -> Minted -> Responded. The first
// failing stage ends the request; nothing is retried.
type IssueVoucher struct {
	Gate     *AdmissionGate
	Minter   Minter
	Resource domain.Address

	Policy  IssuancePolicy
	Audit   *AuditEmitter
	Metrics IssuanceMetrics
	Log     logrus.FieldLogger
}

func (uc *IssueVoucher) Execute(ctx context.Context, req IssueVoucherRequest) (*IssueVoucherResponse, error) {
	mintReq, err := domain.ParseMintRequest(req.Raw)
	if err != nil {
		return nil, uc.fail(ctx, req.RequestID, nil, &domain.StageError{Stage: domain.StageReceived, Err: err})
	}
	requester := &mintReq.Requester

	if err := uc.checkPolicy(ctx, mintReq.Requester); err != nil {
		return nil, uc.fail(ctx, req.RequestID, requester, &domain.StageError{Stage: domain.StageReceived, Err: err})
	}

	admission, err := uc.Gate.AdmitRequest(ctx, mintReq)
	if err != nil {
		uc.logger().WithFields(logrus.Fields{
			"request_id":  req.RequestID,
			"error_codes": admission.ErrorCodes,
		}).Debug("admission not granted")
		return nil, uc.fail(ctx, req.RequestID, requester, &domain.StageError{Stage: domain.StageAdmitted, Err: err})
	}

	if uc.Minter == nil {
		return nil, uc.fail(ctx, req.RequestID, requester, &domain.StageError{Stage: domain.StageSlotRead, Err: errors.New("minter not configured")})
	}
	minted, err := uc.Minter.Mint(ctx, admission.Request.Requester, uc.Resource)
	if err != nil {
		var stageErr *domain.StageError
		if !errors.As(err, &stageErr) {
			err = &domain.StageError{Stage: domain.StageSigned, Err: err}
		}
		return nil, uc.fail(ctx, req.RequestID, requester, err)
	}

	resp := &IssueVoucherResponse{
		Requester: admission.Request.Requester,
		Voucher:   minted.Voucher,
		Slot:      minted.Slot,
	}
	uc.record(ctx, req.RequestID, requester, minted.Slot, domain.StageResponded, domain.IssuanceIssued, "")
	fields := logrus.Fields{
		"request_id": req.RequestID,
		"requester":  resp.Requester.Hex(),
		"hash":       resp.Voucher.Hash.Hex(),
	}
	if resp.Slot != nil {
		fields["slot"] = resp.Slot.String()
	}
	uc.logger().WithFields(fields).Info("voucher issued")
	return resp, nil
}

func (uc *IssueVoucher) checkPolicy(ctx context.Context, requester domain.Address) error {
	if uc.Policy == nil {
		return nil
	}
	eval, err := uc.Policy.Evaluate(ctx, domain.PolicyInput{
		Requester: requester.Hex(),
		Resource:  uc.Resource.Hex(),
	})
	if err != nil {
		if errors.Is(err, domain.ErrPolicyUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrPolicyUnavailable, err)
	}
	if !eval.Result.Allow {
		codes := make([]string, 0, len(eval.Result.Deny))
		for _, deny := range eval.Result.Deny {
			codes = append(codes, deny.Code)
		}
		return fmt.Errorf("%w: %v", domain.ErrPolicyDenied, codes)
	}
	return nil
}

func (uc *IssueVoucher) fail(ctx context.Context, requestID string, requester *domain.Address, err error) error {
	stage := domain.StageReceived
	var stageErr *domain.StageError
	if errors.As(err, &stageErr) {
		stage = stageErr.Stage
	}
	outcome := OutcomeFor(err)
	code := ErrorCode(err)
	uc.record(ctx, requestID, requester, nil, stage, outcome, code)

	entry := uc.logger().WithFields(logrus.Fields{
		"request_id": requestID,
		"stage":      string(stage),
		"error_code": code,
	}).WithError(err)
	if outcome == domain.IssuanceFailed {
		entry.Error("voucher issuance failed")
	} else {
		entry.Warn("voucher issuance rejected")
	}
	return err
}

func (uc *IssueVoucher) record(ctx context.Context, requestID string, requester *domain.Address, slot *domain.Slot, stage domain.Stage, outcome domain.IssuanceOutcome, code string) {
	if uc.Metrics != nil {
		uc.Metrics.ObserveIssuance(stage, outcome)
	}
	if uc.Audit == nil {
		return
	}
	event := domain.IssuanceEvent{
		RequestID: requestID,
		Resource:  uc.Resource.Hex(),
		Stage:     stage,
		Outcome:   outcome,
		ErrorCode: code,
	}
	if requester != nil {
		event.Requester = requester.Hex()
	}
	if slot != nil {
		event.Slot = slot.String()
	}
	if _, err := uc.Audit.Emit(ctx, event); err != nil {
		uc.logger().WithField("request_id", requestID).WithError(err).Warn("issuance audit write failed")
	}
}

func (uc *IssueVoucher) logger() logrus.FieldLogger {
	if uc.Log == nil {
		return logrus.StandardLogger()
	}
	return uc.Log
}

// OutcomeFor classifies a pipeline error: caller-attributable failures are
// rejections, everything else is a service failure.
func OutcomeFor(err error) domain.IssuanceOutcome {
	switch {
	case err == nil:
		return domain.IssuanceIssued
	case errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, domain.ErrAdmissionRejected),
		errors.Is(err, domain.ErrAdmissionUnavailable),
		errors.Is(err, domain.ErrPolicyDenied),
		errors.Is(err, domain.ErrQuotaExceeded):
		return domain.IssuanceRejected
	default:
		return domain.IssuanceFailed
	}
}

// ErrorCode is the stable label used in logs, metrics and the audit trail.
func ErrorCode(err error) string {
	var upstream *domain.UpstreamStatusError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &upstream):
		return upstream.Service + "_status_" + strconv.Itoa(upstream.StatusCode)
	case errors.Is(err, domain.ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, domain.ErrAdmissionRejected):
		return "admission_rejected"
	case errors.Is(err, domain.ErrAdmissionUnavailable):
		return "admission_unavailable"
	case errors.Is(err, domain.ErrPolicyDenied):
		return "policy_denied"
	case errors.Is(err, domain.ErrPolicyUnavailable):
		return "policy_unavailable"
	case errors.Is(err, domain.ErrOracle):
		return "oracle_failed"
	case errors.Is(err, domain.ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, domain.ErrSigning):
		return "signing_failed"
	default:
		return "internal"
	}
}
