package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Webhook providers recorded in the ledger.
const (
	WebhookProviderLemonSqueezy = "lemon_squeezy"
	WebhookProviderClerk        = "clerk"
)

// WebhookEvent is an append-only ledger entry for every verified inbound
// webhook. ExternalEventID is the idempotency key; NULL is allowed for
// providers without a reliable key and MySQL permits repeated NULLs in the
// unique index.
type WebhookEvent struct {
	ID              string     `gorm:"primaryKey;type:char(36)" json:"id"`
	Provider        string     `gorm:"type:varchar(50);not null;index" json:"provider"`
	EventName       string     `gorm:"type:varchar(100);not null" json:"event_name"`
	ExternalEventID *string    `gorm:"type:varchar(255);default:null;uniqueIndex" json:"external_event_id,omitempty"`
	RawPayload      string     `gorm:"type:longtext;not null" json:"raw_payload"`
	Processed       bool       `gorm:"not null;default:false;index" json:"processed"`
	ProcessedAt     *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
}

func (e *WebhookEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return nil
}
