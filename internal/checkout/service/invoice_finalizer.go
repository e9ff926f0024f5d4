package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	checkoutdomain "github.com/sitewandlabs/sitewand/internal/checkout/domain"
	"github.com/sitewandlabs/sitewand/internal/config"
	"github.com/sitewandlabs/sitewand/internal/pricing"
	"github.com/sitewandlabs/sitewand/internal/stripe"
	submissiondomain "github.com/sitewandlabs/sitewand/internal/submission/domain"
	"go.uber.org/zap"
)

// InvoiceFinalizer attaches the one-time add-on items to the first
// invoice, applies the discount at the invoice level, finalizes, and
// derives the client-side payment handle. A $0 amount due switches to a
// setup-only flow: we must still collect a payment method or the first
// real renewal invoice has nothing to charge.
type InvoiceFinalizer struct {
	stripe  *stripe.Client
	repo    submissiondomain.Repository
	billing config.BillingConfig
	log     *zap.Logger
}

func NewInvoiceFinalizer(client *stripe.Client, repo submissiondomain.Repository, cfg config.Config, log *zap.Logger) *InvoiceFinalizer {
	return &InvoiceFinalizer{
		stripe:  client,
		repo:    repo,
		billing: cfg.Billing,
		log:     log.Named("checkout.finalizer"),
	}
}

type FinalizeInput struct {
	SubmissionID snowflake.ID
	CustomerID   string
	Subscription *stripe.Subscription
	Languages    []string
	Discount     *pricing.Discount
}

type FinalizeOutput struct {
	PaymentRequired bool
	HandleKind      string
	ClientSecret    string
	IntentID        string
	InvoiceID       string
	AmountDue       int64
	Summary         checkoutdomain.PricingSummary
}

func (f *InvoiceFinalizer) Finalize(ctx context.Context, input FinalizeInput) (*FinalizeOutput, error) {
	invoiceID := input.Subscription.LatestInvoice
	if invoiceID == "" {
		return nil, errors.New("subscription has no first invoice")
	}

	for _, lang := range input.Languages {
		if _, err := f.stripe.CreateInvoiceItem(ctx, stripe.InvoiceItemInput{
			CustomerID:  input.CustomerID,
			InvoiceID:   invoiceID,
			AmountCents: f.billing.AddonPriceCents,
			Currency:    f.billing.Currency,
			Description: "Additional language: " + lang,
		}); err != nil {
			return nil, err
		}
	}

	couponID := ""
	if input.Discount != nil {
		// Applied on the invoice itself, not only on the subscription
		// phase, so an unrestricted coupon also covers the add-on items.
		couponID = input.Discount.CouponID
	}
	if _, err := f.stripe.UpdateInvoice(ctx, invoiceID, map[string]string{
		"submission_id": input.SubmissionID.String(),
	}, couponID); err != nil {
		return nil, err
	}

	invoice, err := f.stripe.FinalizeInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	out := &FinalizeOutput{
		InvoiceID: invoice.ID,
		AmountDue: invoice.AmountDue,
		Summary:   f.buildSummary(invoice, input.Discount),
	}

	if invoice.AmountDue > 0 {
		return f.chargeHandle(ctx, input, invoice, out)
	}
	return f.setupHandle(ctx, input, out)
}

func (f *InvoiceFinalizer) chargeHandle(ctx context.Context, input FinalizeInput, invoice *stripe.Invoice, out *FinalizeOutput) (*FinalizeOutput, error) {
	intentID := invoice.PaymentIntentID()
	if intentID == "" {
		// Shape variance: the finalize response may omit the intent; a
		// targeted re-fetch with expansions usually carries it.
		refreshed, err := f.stripe.GetInvoice(ctx, invoice.ID,
			"payment_intent", "payments", "confirmation_secret")
		if err != nil {
			return nil, err
		}
		intentID = refreshed.PaymentIntentID()
	}
	if intentID == "" {
		return nil, fmt.Errorf("%w: finalized invoice %s has no payment intent",
			checkoutdomain.ErrPaymentProvider, invoice.ID)
	}

	intent, err := f.stripe.UpdatePaymentIntentMetadata(ctx, intentID, map[string]string{
		"submission_id": input.SubmissionID.String(),
	})
	if err != nil {
		return nil, err
	}

	out.PaymentRequired = true
	out.HandleKind = checkoutdomain.HandlePaymentIntent
	out.IntentID = intent.ID
	out.ClientSecret = intent.ClientSecret
	return out, nil
}

func (f *InvoiceFinalizer) setupHandle(ctx context.Context, input FinalizeInput, out *FinalizeOutput) (*FinalizeOutput, error) {
	intent, err := f.stripe.CreateSetupIntent(ctx, input.CustomerID, map[string]string{
		"submission_id":   input.SubmissionID.String(),
		"customer_id":     input.CustomerID,
		"subscription_id": input.Subscription.ID,
	})
	if err != nil {
		return nil, err
	}

	// Persist the setup intent id before returning so the succeeded
	// webhook can correlate even if it beats every other event.
	if err := f.repo.UpdateFields(ctx, input.SubmissionID, map[string]any{
		"stripe_payment_intent_id": intent.ID,
	}); err != nil {
		f.log.Error("failed to persist setup intent id",
			zap.String("setup_intent_id", intent.ID), zap.Error(err))
		return nil, errors.Join(checkoutdomain.ErrSubmissionUpdateFailed, err)
	}

	out.PaymentRequired = false
	out.HandleKind = checkoutdomain.HandleSetupIntent
	out.IntentID = intent.ID
	out.ClientSecret = intent.ClientSecret
	return out, nil
}

// buildSummary derives the display summary from the finalized invoice's
// actual lines, not from the pre-finalization estimate: rounding and tax
// can differ from the preview.
func (f *InvoiceFinalizer) buildSummary(invoice *stripe.Invoice, discount *pricing.Discount) checkoutdomain.PricingSummary {
	summary := checkoutdomain.PricingSummary{
		Subtotal:             invoice.Subtotal,
		Total:                invoice.Total,
		DiscountAmount:       invoice.DiscountAmount(),
		TaxAmount:            invoice.Tax,
		Currency:             invoice.Currency,
		RecurringAmount:      f.billing.BasePriceCents,
		RecurringDescription: pricing.RecurringFullPrice,
	}

	basePrice := f.billing.BasePriceCents
	for _, line := range invoice.Lines.Data {
		var lineDiscount int64
		for _, d := range line.DiscountAmounts {
			lineDiscount += d.Amount
		}
		summary.Lines = append(summary.Lines, checkoutdomain.SummaryLine{
			ID:                line.ID,
			Description:       line.Description,
			Amount:            line.Amount - lineDiscount,
			PreDiscountAmount: line.Amount,
			Quantity:          line.Quantity,
			DiscountAmount:    lineDiscount,
			Recurring:         line.Recurring(),
		})
		if line.Recurring() {
			basePrice = line.Amount
		}
	}

	if discount != nil {
		switch discount.Duration {
		case pricing.DurationForever:
			summary.RecurringDiscount = discount.Off(basePrice)
			summary.RecurringAmount = basePrice - summary.RecurringDiscount
			summary.RecurringDescription = pricing.RecurringDiscounted
		case pricing.DurationRepeating:
			summary.RecurringDiscount = discount.Off(basePrice)
			summary.RecurringAmount = basePrice - summary.RecurringDiscount
			summary.RecurringDescription = pricing.RecurringDiscountedThenFull
		default:
			summary.RecurringAmount = basePrice
			summary.RecurringDescription = pricing.RecurringFullPrice
		}
	} else {
		summary.RecurringAmount = basePrice
	}

	return summary
}
