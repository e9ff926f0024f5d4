package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

const (
	HandlePaymentIntent = "payment_intent"
	HandleSetupIntent   = "setup_intent"
)

// SummaryLine is one invoice line in the display breakdown.
type SummaryLine struct {
	ID                string `json:"id"`
	Description       string `json:"description"`
	Amount            int64  `json:"amount"`
	PreDiscountAmount int64  `json:"pre_discount_amount"`
	Quantity          int64  `json:"quantity"`
	DiscountAmount    int64  `json:"discount_amount"`
	Recurring         bool   `json:"recurring"`
}

// PricingSummary is derived from the finalized invoice, never persisted as
// source of truth. The provider's invoice is authoritative.
type PricingSummary struct {
	Subtotal             int64         `json:"subtotal"`
	Total                int64         `json:"total"`
	DiscountAmount       int64         `json:"discount_amount"`
	RecurringAmount      int64         `json:"recurring_amount"`
	RecurringDiscount    int64         `json:"recurring_discount"`
	TaxAmount            int64         `json:"tax_amount"`
	Currency             string        `json:"currency"`
	RecurringDescription string        `json:"recurring_description"`
	Lines                []SummaryLine `json:"lines"`
}

// Result is what the checkout API returns to the client, which renders a
// payment form against ClientSecret.
type Result struct {
	PaymentRequired bool           `json:"payment_required"`
	HandleKind      string         `json:"handle_kind"`
	ClientSecret    string         `json:"client_secret"`
	Summary         PricingSummary `json:"pricing_summary"`

	CustomerID     string `json:"customer_id"`
	SubscriptionID string `json:"subscription_id"`
	ScheduleID     string `json:"schedule_id"`
	InvoiceID      string `json:"invoice_id"`
	IntentID       string `json:"intent_id"`
}

type Service interface {
	CreateCheckout(ctx context.Context, submissionID snowflake.ID, requestedLanguages []string, discountCode string) (*Result, error)
}
