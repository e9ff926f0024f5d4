package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	checkoutdomain "github.com/sitewandlabs/sitewand/internal/checkout/domain"
	"github.com/sitewandlabs/sitewand/internal/config"
	"github.com/sitewandlabs/sitewand/internal/pricing"
	submissiondomain "github.com/sitewandlabs/sitewand/internal/submission/domain"
	"github.com/sitewandlabs/sitewand/pkg/retry"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type OrchestratorParams struct {
	fx.In

	Repo      submissiondomain.Repository
	Discounts *DiscountValidator
	Customers *CustomerResolver
	Schedules *ScheduleBuilder
	Finalizer *InvoiceFinalizer
	Cfg       config.Config
	Log       *zap.Logger
}

// Orchestrator sequences one checkout attempt. Two attempts for the same
// order racing is handled by detect-then-reset, not locking: a stale
// subscription found on the record is cancelled before a fresh one is
// built. A window between detection and reset remains; per-order attempt
// serialization was judged out of scope.
type Orchestrator struct {
	repo      submissiondomain.Repository
	discounts *DiscountValidator
	customers *CustomerResolver
	schedules *ScheduleBuilder
	finalizer *InvoiceFinalizer
	cfg       config.Config
	log       *zap.Logger
}

func NewOrchestrator(p OrchestratorParams) checkoutdomain.Service {
	return &Orchestrator{
		repo:      p.Repo,
		discounts: p.Discounts,
		customers: p.Customers,
		schedules: p.Schedules,
		finalizer: p.Finalizer,
		cfg:       p.Cfg,
		log:       p.Log.Named("checkout.service"),
	}
}

func (o *Orchestrator) CreateCheckout(ctx context.Context, submissionID snowflake.ID, requestedLanguages []string, discountCode string) (*checkoutdomain.Result, error) {
	sub, err := o.repo.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, submissiondomain.ErrSubmissionNotFound) {
			return nil, checkoutdomain.ErrInvalidSubmissionID
		}
		return nil, err
	}
	if strings.TrimSpace(sub.SessionID) == "" {
		return nil, checkoutdomain.ErrMissingSessionID
	}

	// A subscription already on the record means this is a retry: tear
	// down the provider-side leftovers and reset payment fields so the
	// fresh attempt cannot double-bill.
	if sub.StripeSubscriptionID != "" || sub.StripeScheduleID != "" {
		if err := o.schedules.Teardown(ctx, sub.StripeScheduleID, sub.StripeSubscriptionID); err != nil {
			return nil, errors.Join(checkoutdomain.ErrPaymentProvider, err)
		}
		if err := o.repo.UpdateFields(ctx, sub.ID, map[string]any{
			"stripe_subscription_id":   "",
			"stripe_schedule_id":       "",
			"stripe_payment_intent_id": "",
			"stripe_invoice_id":        "",
			"amount_total":             0,
			"discount_amount":          nil,
		}); err != nil {
			return nil, errors.Join(checkoutdomain.ErrSubmissionUpdateFailed, err)
		}
	}

	// The persisted language set is the source of truth; the caller's
	// list is only a fallback so stale client state cannot override it.
	languages := []string(sub.Languages)
	if len(languages) == 0 {
		languages = requestedLanguages
	}
	if err := o.validateLanguages(languages); err != nil {
		return nil, err
	}

	count, err := o.repo.CountAttemptsSince(ctx, sub.SessionID, time.Now().UTC().Add(-o.cfg.Checkout.AttemptWindow))
	if err != nil {
		return nil, err
	}
	if count >= int64(o.cfg.Checkout.MaxAttempts) {
		o.log.Warn("checkout rate limited",
			zap.String("session_id", sub.SessionID),
			zap.Int64("attempts", count))
		return nil, checkoutdomain.ErrRateLimited
	}
	if err := o.repo.LogAttempt(ctx, sub.SessionID, sub.ID); err != nil {
		return nil, err
	}

	customerID, err := o.customers.FindOrCreate(ctx, sub.Email, sub.BusinessName, map[string]string{
		"submission_id": sub.ID.String(),
		"session_id":    sub.SessionID,
	})
	if err != nil {
		return nil, err
	}

	var discount *pricing.Discount
	discountCode = strings.TrimSpace(discountCode)
	if discountCode != "" {
		discount, err = o.discounts.Validate(ctx, discountCode)
		if err != nil {
			return nil, errors.Join(checkoutdomain.ErrPaymentProvider, err)
		}
		if discount == nil {
			return nil, checkoutdomain.ErrInvalidDiscountCode
		}
	}
	if err := o.persistDiscountCode(ctx, sub, discountCode); err != nil {
		o.log.Warn("failed to persist discount code on form data", zap.Error(err))
	}

	metadata := map[string]string{
		"submission_id": sub.ID.String(),
		"session_id":    sub.SessionID,
	}
	couponID := ""
	if discount != nil {
		couponID = discount.CouponID
	}
	built, err := o.schedules.Create(ctx, customerID, couponID, metadata)
	if err != nil {
		if errors.Is(err, checkoutdomain.ErrMetadataUpdateFailed) {
			return nil, err
		}
		return nil, errors.Join(checkoutdomain.ErrPaymentProvider, err)
	}

	finalized, err := o.finalizer.Finalize(ctx, FinalizeInput{
		SubmissionID: sub.ID,
		CustomerID:   customerID,
		Subscription: built.Subscription,
		Languages:    languages,
		Discount:     discount,
	})
	if err != nil {
		if errors.Is(err, checkoutdomain.ErrSubmissionUpdateFailed) || errors.Is(err, checkoutdomain.ErrPaymentProvider) {
			return nil, err
		}
		return nil, errors.Join(checkoutdomain.ErrPaymentProvider, err)
	}

	fields := map[string]any{
		"stripe_customer_id":       customerID,
		"stripe_subscription_id":   built.Subscription.ID,
		"stripe_schedule_id":       built.Schedule.ID,
		"stripe_payment_intent_id": finalized.IntentID,
		"stripe_invoice_id":        finalized.InvoiceID,
		"currency":                 finalized.Summary.Currency,
	}
	if discountCode != "" {
		fields["discount_code"] = discountCode
	}
	// Provider-side state now exists; losing this write leaves the local
	// record inconsistent with Stripe, which needs operator attention.
	err = retry.Do(ctx, 2, 200*time.Millisecond, retry.Always, func() error {
		return o.repo.UpdateFields(ctx, sub.ID, fields)
	})
	if err != nil {
		o.log.Error("submission update failed after provider setup",
			zap.String("submission_id", sub.ID.String()),
			zap.String("subscription_id", built.Subscription.ID),
			zap.Error(err))
		return nil, errors.Join(checkoutdomain.ErrSubmissionUpdateFailed, err)
	}

	return &checkoutdomain.Result{
		PaymentRequired: finalized.PaymentRequired,
		HandleKind:      finalized.HandleKind,
		ClientSecret:    finalized.ClientSecret,
		Summary:         finalized.Summary,
		CustomerID:      customerID,
		SubscriptionID:  built.Subscription.ID,
		ScheduleID:      built.Schedule.ID,
		InvoiceID:       finalized.InvoiceID,
		IntentID:        finalized.IntentID,
	}, nil
}

func (o *Orchestrator) validateLanguages(languages []string) error {
	known := make(map[string]bool, len(o.cfg.Checkout.SupportedLanguages))
	for _, l := range o.cfg.Checkout.SupportedLanguages {
		known[strings.ToLower(l)] = true
	}
	for _, l := range languages {
		if !known[strings.ToLower(strings.TrimSpace(l))] {
			return checkoutdomain.ErrInvalidLanguageCode
		}
	}
	return nil
}

// persistDiscountCode records the (possibly empty) code on the order's
// form data for audit, merging rather than replacing the blob.
func (o *Orchestrator) persistDiscountCode(ctx context.Context, sub *submissiondomain.Submission, code string) error {
	form := sub.FormData
	if form == nil {
		form = datatypes.JSONMap{}
	}
	if code == "" {
		delete(form, "discount_code")
	} else {
		form["discount_code"] = code
	}
	return o.repo.UpdateFields(ctx, sub.ID, map[string]any{"form_data": form})
}
