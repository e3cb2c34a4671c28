package db

import (
	"context"
	"errors"
	"time"

	"mintgate/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type IssuanceEventRepository struct {
	db *gorm.DB
}

func NewIssuanceEventRepository(db *gorm.DB) *IssuanceEventRepository {
	return &IssuanceEventRepository{db: db}
}

func (r *IssuanceEventRepository) Append(ctx context.Context, event domain.IssuanceEvent) (domain.IssuanceEvent, error) {
	if r.db == nil {
		return domain.IssuanceEvent{}, errDBUnavailable
	}
	if event.Stage == "" || event.Outcome == "" {
		return domain.IssuanceEvent{}, errors.New("stage and outcome are required")
	}
	if event.Resource == "" {
		return domain.IssuanceEvent{}, errors.New("resource is required")
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	} else {
		event.CreatedAt = event.CreatedAt.UTC()
	}
	event.CreatedAt = event.CreatedAt.Truncate(time.Microsecond)

	model := issuanceEventModelFromDomain(event)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.IssuanceEvent{}, err
	}
	return event, nil
}

// ListByRequester returns the requester's events, oldest first.
func (r *IssuanceEventRepository) ListByRequester(ctx context.Context, requester string, limit int) ([]domain.IssuanceEvent, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	if limit <= 0 {
		limit = 100
	}
	var models []IssuanceEventModel
	if err := r.db.WithContext(ctx).
		Where("requester = ?", requester).
		Order("created_at asc, id asc").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.IssuanceEvent, 0, len(models))
	for _, model := range models {
		out = append(out, issuanceEventFromModel(model))
	}
	return out, nil
}

func issuanceEventModelFromDomain(event domain.IssuanceEvent) IssuanceEventModel {
	return IssuanceEventModel{
		ID:        event.ID,
		RequestID: event.RequestID,
		Requester: event.Requester,
		Resource:  event.Resource,
		Slot:      nullableString(event.Slot),
		Stage:     string(event.Stage),
		Outcome:   string(event.Outcome),
		ErrorCode: event.ErrorCode,
		CreatedAt: event.CreatedAt,
	}
}

func issuanceEventFromModel(model IssuanceEventModel) domain.IssuanceEvent {
	return domain.IssuanceEvent{
		ID:        model.ID,
		RequestID: model.RequestID,
		Requester: model.Requester,
		Resource:  model.Resource,
		Slot:      derefString(model.Slot),
		Stage:     domain.Stage(model.Stage),
		Outcome:   domain.IssuanceOutcome(model.Outcome),
		ErrorCode: model.ErrorCode,
		CreatedAt: model.CreatedAt.UTC(),
	}
}
