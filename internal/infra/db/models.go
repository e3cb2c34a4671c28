package db

import "time"

type IssuanceEventModel struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	RequestID string    `gorm:"not null"`
	Requester string    `gorm:"index;not null"`
	Resource  string    `gorm:"not null"`
	Slot      *string   `gorm:"type:numeric(78,0)"`
	Stage     string    `gorm:"not null"`
	Outcome   string    `gorm:"index;not null"`
	ErrorCode string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (IssuanceEventModel) TableName() string {
	return "issuance_events"
}
