package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// ErrMissingPaymentMethod flags a succeeded setup intent that carries no
// payment method. That can only come from a broken collection flow, so
// the delivery fails instead of being acknowledged.
var ErrMissingPaymentMethod = errors.New("setup_intent_missing_payment_method")

type Service interface {
	// HandleEvent verifies and processes one webhook delivery. A nil
	// return acknowledges the event to the provider; only signature
	// failures and unrecoverable processing errors propagate so Stripe
	// redelivers.
	HandleEvent(ctx context.Context, payload []byte, signatureHeader string) error
}

// EventRecord is the audit log of received webhook deliveries. Payloads
// are stored with card and billing details masked.
type EventRecord struct {
	ID              snowflake.ID   `json:"id" gorm:"primaryKey"`
	ProviderEventID string         `json:"provider_event_id" gorm:"type:text;not null;uniqueIndex"`
	EventType       string         `json:"event_type" gorm:"type:text;not null;index"`
	SubmissionID    *snowflake.ID  `json:"submission_id" gorm:"index"`
	Payload         datatypes.JSON `json:"payload" gorm:"type:jsonb"`
	ReceivedAt      time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt     *time.Time     `json:"processed_at"`
}

func (EventRecord) TableName() string { return "webhook_events" }
