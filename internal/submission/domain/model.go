package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

// Submission is the persisted order aggregate: one row per onboarding
// attempt, created when the wizard is submitted and mutated first by the
// checkout pipeline (provider identifiers) and then by the webhook
// reconciler (payment outcome). Once StripeSubscriptionID is set it is
// never nulled out by a later, less-informed update.
type Submission struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	SessionID string       `json:"session_id" gorm:"type:text;not null;index"`
	Status    Status       `json:"status" gorm:"type:text;not null;default:draft"`

	Email        string                      `json:"email" gorm:"type:text"`
	BusinessName string                      `json:"business_name" gorm:"type:text"`
	Languages    datatypes.JSONSlice[string] `json:"languages" gorm:"type:jsonb"`
	FormData     datatypes.JSONMap           `json:"form_data" gorm:"type:jsonb"`

	StripeCustomerID     string `json:"stripe_customer_id" gorm:"type:text;index"`
	StripeSubscriptionID string `json:"stripe_subscription_id" gorm:"type:text;index"`
	StripeScheduleID     string `json:"stripe_schedule_id" gorm:"type:text;index"`
	// StripePaymentIntentID holds the last payment-intent or setup-intent
	// id, whichever kind of handle the checkout produced.
	StripePaymentIntentID string `json:"stripe_payment_intent_id" gorm:"type:text;index"`
	StripeInvoiceID       string `json:"stripe_invoice_id" gorm:"type:text"`

	AmountTotal    int64             `json:"amount_total"`
	Currency       string            `json:"currency" gorm:"type:text"`
	DiscountCode   *string           `json:"discount_code" gorm:"type:text"`
	DiscountAmount *int64            `json:"discount_amount"`
	PaymentMeta    datatypes.JSONMap `json:"payment_meta" gorm:"type:jsonb"`

	PaymentCompletedAt *time.Time `json:"payment_completed_at"`
	CreatedAt          time.Time  `json:"created_at" gorm:"not null"`
	UpdatedAt          time.Time  `json:"updated_at" gorm:"not null"`
}

func (Submission) TableName() string { return "submissions" }

// CheckoutAttempt is the audit/rate-limit side table: one row per
// checkout call, counted over a rolling window per session.
type CheckoutAttempt struct {
	ID           snowflake.ID `json:"id" gorm:"primaryKey"`
	SessionID    string       `json:"session_id" gorm:"type:text;not null;index"`
	SubmissionID snowflake.ID `json:"submission_id" gorm:"not null;index"`
	CreatedAt    time.Time    `json:"created_at" gorm:"not null;index"`
}

func (CheckoutAttempt) TableName() string { return "checkout_attempts" }

// AnalyticsEvent rows are best-effort: the session row they reference may
// already be cleaned up by the time a webhook lands, so inserts tolerate
// foreign-key violations.
type AnalyticsEvent struct {
	ID        snowflake.ID   `json:"id" gorm:"primaryKey"`
	SessionID string         `json:"session_id" gorm:"type:text;index"`
	Name      string         `json:"name" gorm:"type:text;not null"`
	Payload   datatypes.JSON `json:"payload" gorm:"type:jsonb"`
	CreatedAt time.Time      `json:"created_at" gorm:"not null"`
}

func (AnalyticsEvent) TableName() string { return "analytics_events" }
