package domain

import (
	"fmt"
	"time"
)

type Stage string

const (
	StageReceived      Stage = "received"
	StageAdmitted      Stage = "admitted"
	StageSlotRead      Stage = "slot_read"
	StageCanonicalized Stage = "canonicalized"
	StageSigned        Stage = "signed"
	StageResponded     Stage = "responded"
)

// StageError records the pipeline stage a request failed in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

type IssuanceOutcome string

const (
	IssuanceIssued   IssuanceOutcome = "issued"
	IssuanceRejected IssuanceOutcome = "rejected"
	IssuanceFailed   IssuanceOutcome = "failed"
)

// IssuanceEvent is the audit record of one request. It never carries the
// voucher signature.
type IssuanceEvent struct {
	ID        string
	RequestID string
	Requester string
	Resource  string
	Slot      string
	Stage     Stage
	Outcome   IssuanceOutcome
	ErrorCode string
	CreatedAt time.Time
}
