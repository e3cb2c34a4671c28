package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrAdmissionRejected    = errors.New("admission rejected")
	ErrAdmissionUnavailable = errors.New("admission unavailable")
	ErrOracle               = errors.New("sequence oracle failed")
	ErrSigning              = errors.New("signing failed")
	ErrQuotaExceeded        = fmt.Errorf("%w: quota exceeded", ErrSigning)
	ErrPolicyDenied         = errors.New("policy denied")
	ErrPolicyUnavailable    = errors.New("policy unavailable")
)

// UpstreamStatusError reports a non-2xx answer from an external service whose
// status is passed through to the caller.
type UpstreamStatusError struct {
	Service    string
	StatusCode int
	Err        error
}

func (e *UpstreamStatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s responded %d: %v", e.Service, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s responded %d", e.Service, e.StatusCode)
}

func (e *UpstreamStatusError) Unwrap() error {
	return e.Err
}
