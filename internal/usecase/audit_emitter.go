package usecase

import (
	"context"
	"errors"
	"time"

	"mintgate/internal/domain"

	"github.com/google/uuid"
)

type AuditEmitter struct {
	Repo  IssuanceEventRepository
	Clock Clock
}

func NewAuditEmitter(repo IssuanceEventRepository, clock Clock) *AuditEmitter {
	return &AuditEmitter{
		Repo:  repo,
		Clock: clock,
	}
}

func (e *AuditEmitter) Emit(ctx context.Context, event domain.IssuanceEvent) (domain.IssuanceEvent, error) {
	if e == nil || e.Repo == nil {
		return domain.IssuanceEvent{}, errors.New("issuance event repository required")
	}
	if event.Stage == "" || event.Outcome == "" {
		return domain.IssuanceEvent{}, errors.New("issuance event missing required fields")
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = e.now().UTC()
	} else {
		event.CreatedAt = event.CreatedAt.UTC()
	}
	return e.Repo.Append(ctx, event)
}

func (e *AuditEmitter) now() time.Time {
	if e.Clock == nil {
		return time.Now()
	}
	return e.Clock()
}
