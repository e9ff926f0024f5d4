package service

import (
	"context"
	"strconv"
	"time"

	"github.com/sitewandlabs/sitewand/internal/notification"
	"github.com/sitewandlabs/sitewand/internal/pricing"
	"github.com/sitewandlabs/sitewand/internal/stripe"
	submissiondomain "github.com/sitewandlabs/sitewand/internal/submission/domain"
	webhookdomain "github.com/sitewandlabs/sitewand/internal/webhook/domain"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// handleInvoicePaid is the primary reconciliation path. It backfills
// every provider id the invoice exposes, resolves the applied discount,
// and flips the submission to paid. All field writes go through
// setIfNotEmpty so a replayed or out-of-order event never erases an id
// written earlier.
func (s *Service) handleInvoicePaid(ctx context.Context, event *stripe.Event) (outcome, error) {
	var invoice stripe.Invoice
	if err := decodeObject(event, &invoice); err != nil {
		return outcomeIgnored, err
	}
	return s.reconcileInvoice(ctx, event.ID, &invoice)
}

func (s *Service) reconcileInvoice(ctx context.Context, eventID string, invoice *stripe.Invoice) (outcome, error) {
	scheduleID := ""
	var subscription *stripe.Subscription
	if invoice.Subscription != "" {
		sub, err := s.stripe.GetSubscription(ctx, invoice.Subscription)
		if err != nil {
			s.log.Warn("could not fetch subscription for invoice",
				zap.String("invoice_id", invoice.ID),
				zap.String("subscription_id", invoice.Subscription),
				zap.Error(err))
		} else {
			subscription = sub
			scheduleID = sub.Schedule
		}
	}

	record, err := s.resolveSubmission(ctx, lookupHints{
		ScheduleID:     scheduleID,
		CustomerID:     invoice.Customer,
		SubscriptionID: invoice.Subscription,
		SubmissionID:   invoice.Metadata["submission_id"],
		PaymentID:      invoice.PaymentIntentID(),
	})
	if err != nil {
		return outcomeIgnored, err
	}
	if record == nil {
		return outcomeUnmatched, nil
	}
	s.markEventSubmission(ctx, eventID, record.ID)

	code, coupon := s.resolveInvoiceDiscount(ctx, invoice, subscription)

	fields := map[string]any{
		"amount_total": invoice.AmountPaid,
	}
	setIfNotEmpty(fields, "currency", invoice.Currency)
	setIfNotEmpty(fields, "stripe_customer_id", invoice.Customer)
	setIfNotEmpty(fields, "stripe_subscription_id", invoice.Subscription)
	setIfNotEmpty(fields, "stripe_schedule_id", scheduleID)
	setIfNotEmpty(fields, "stripe_invoice_id", invoice.ID)
	setIfNotEmpty(fields, "stripe_payment_intent_id", invoice.PaymentIntentID())

	if amount := invoice.DiscountAmount(); amount > 0 {
		fields["discount_amount"] = amount
	}
	if code != "" && (record.DiscountCode == nil || *record.DiscountCode == "") {
		fields["discount_code"] = code
	}

	fields["payment_meta"] = s.paymentMeta(invoice, coupon)

	// A submission cancelled before the event arrived stays cancelled;
	// the money side is still recorded above.
	if record.Status != submissiondomain.StatusCancelled {
		fields["status"] = submissiondomain.StatusPaid
	}
	if record.PaymentCompletedAt == nil {
		fields["payment_completed_at"] = time.Now().UTC()
	}

	if err := s.repo.UpdateFields(ctx, record.ID, fields); err != nil {
		return outcomeIgnored, err
	}

	s.insertAnalytics(ctx, record, "payment_completed", invoice.AmountPaid)
	s.sendPaymentMail(ctx, record, invoice.AmountPaid, invoice.Currency, code)
	return outcomeProcessed, nil
}

// resolveInvoiceDiscount finds the discount code applied to an invoice.
// The discounts array may arrive expanded, as bare ids, or not at all
// when the coupon lives on the customer or subscription instead.
func (s *Service) resolveInvoiceDiscount(ctx context.Context, invoice *stripe.Invoice, subscription *stripe.Subscription) (string, *stripe.Coupon) {
	if code, coupon := firstDiscountCode(invoice.ExpandedDiscounts()); code != "" {
		return code, coupon
	}

	if invoice.FirstDiscountID() != "" {
		expanded, err := s.stripe.GetInvoice(ctx, invoice.ID, "discounts", "discounts.promotion_code")
		if err != nil {
			s.log.Warn("could not expand invoice discounts",
				zap.String("invoice_id", invoice.ID), zap.Error(err))
		} else if code, coupon := firstDiscountCode(expanded.ExpandedDiscounts()); code != "" {
			return code, coupon
		}
	}

	if invoice.Customer != "" {
		customer, err := s.stripe.GetCustomer(ctx, invoice.Customer)
		if err == nil && customer.Discount != nil {
			if code, coupon := firstDiscountCode([]stripe.Discount{*customer.Discount}); code != "" {
				return code, coupon
			}
		}
	}

	// A coupon applied on the schedule phase surfaces on the subscription
	// only, never on the invoice's own discounts array.
	if subscription != nil {
		if code, coupon := firstDiscountCode(subscription.ExpandedDiscounts()); code != "" {
			return code, coupon
		}
	}
	return "", nil
}

func firstDiscountCode(discounts []stripe.Discount) (string, *stripe.Coupon) {
	for _, d := range discounts {
		if code := d.PromotionCodeID(); code != "" {
			return code, d.Coupon
		}
		if d.Coupon != nil && d.Coupon.ID != "" {
			return d.Coupon.ID, d.Coupon
		}
	}
	return "", nil
}

// paymentMeta records the renewal terms alongside the payment. The
// recurring amount is recomputed from the coupon semantics because a
// duration=once coupon discounts the invoice but not the renewal.
func (s *Service) paymentMeta(invoice *stripe.Invoice, coupon *stripe.Coupon) datatypes.JSONMap {
	var base int64
	for _, line := range invoice.Lines.Data {
		if line.Recurring() {
			base += line.Amount
		}
	}
	if base == 0 {
		base = s.cfg.Billing.BasePriceCents
	}

	recurring := base
	description := pricing.RecurringFullPrice
	if coupon != nil {
		d := pricing.Discount{
			PercentOff:     coupon.PercentOff,
			AmountOff:      coupon.AmountOff,
			Duration:       pricing.DiscountDuration(coupon.Duration),
			DurationMonths: coupon.DurationInMonths,
		}
		switch d.Duration {
		case pricing.DurationForever:
			recurring = base - d.Off(base)
			description = pricing.RecurringDiscounted
		case pricing.DurationRepeating:
			recurring = base - d.Off(base)
			description = pricing.RecurringDiscountedThenFull
		}
	}

	return datatypes.JSONMap{
		"invoice_id":            invoice.ID,
		"amount_paid":           invoice.AmountPaid,
		"tax":                   invoice.Tax,
		"recurring_amount":      recurring,
		"recurring_description": description,
	}
}

// handlePaymentIntentSucceeded delegates to the invoice path when the
// intent belongs to an invoice; standalone intents are reconciled from
// the metadata stamped on at checkout time.
func (s *Service) handlePaymentIntentSucceeded(ctx context.Context, event *stripe.Event) (outcome, error) {
	var pi stripe.PaymentIntent
	if err := decodeObject(event, &pi); err != nil {
		return outcomeIgnored, err
	}

	invoice, err := s.dereferencePaymentIntent(ctx, &pi)
	if err != nil {
		return outcomeIgnored, err
	}
	if invoice != nil {
		return s.reconcileInvoice(ctx, event.ID, invoice)
	}

	record, err := s.resolveSubmission(ctx, hintsFromIntentMetadata(pi.Metadata, pi.Customer, pi.ID))
	if err != nil {
		return outcomeIgnored, err
	}
	if record == nil {
		return outcomeUnmatched, nil
	}
	s.markEventSubmission(ctx, event.ID, record.ID)

	fields := map[string]any{"amount_total": pi.Amount}
	setIfNotEmpty(fields, "currency", pi.Currency)
	setIfNotEmpty(fields, "stripe_customer_id", pi.Customer)
	setIfNotEmpty(fields, "stripe_payment_intent_id", pi.ID)
	if record.Status != submissiondomain.StatusCancelled {
		fields["status"] = submissiondomain.StatusPaid
	}
	if record.PaymentCompletedAt == nil {
		fields["payment_completed_at"] = time.Now().UTC()
	}
	if err := s.repo.UpdateFields(ctx, record.ID, fields); err != nil {
		return outcomeIgnored, err
	}

	s.insertAnalytics(ctx, record, "payment_completed", pi.Amount)
	s.sendPaymentMail(ctx, record, pi.Amount, pi.Currency, derefString(record.DiscountCode))
	return outcomeProcessed, nil
}

// handleSetupIntentSucceeded completes the zero-due checkout path: a
// fully discounted first invoice means no payment intent ever existed,
// so the collected payment method is attached here for the renewal.
func (s *Service) handleSetupIntentSucceeded(ctx context.Context, event *stripe.Event) (outcome, error) {
	var si stripe.SetupIntent
	if err := decodeObject(event, &si); err != nil {
		return outcomeIgnored, err
	}

	record, err := s.resolveSubmission(ctx, hintsFromIntentMetadata(si.Metadata, si.Customer, si.ID))
	if err != nil {
		return outcomeIgnored, err
	}
	if record == nil {
		return outcomeUnmatched, nil
	}
	s.markEventSubmission(ctx, event.ID, record.ID)

	if si.PaymentMethod == "" {
		s.log.Error("setup intent succeeded without a payment method",
			zap.String("setup_intent_id", si.ID),
			zap.String("submission_id", record.ID.String()))
		return outcomeIgnored, webhookdomain.ErrMissingPaymentMethod
	}

	subscriptionID := record.StripeSubscriptionID
	if subscriptionID == "" {
		subscriptionID = si.Metadata["subscription_id"]
	}
	if subscriptionID != "" {
		if err := s.stripe.SetSubscriptionDefaultPaymentMethod(ctx, subscriptionID, si.PaymentMethod); err != nil {
			if stripe.IsResourceMissing(err) {
				s.log.Warn("subscription gone while attaching payment method",
					zap.String("subscription_id", subscriptionID))
			} else {
				return outcomeIgnored, err
			}
		}
	}
	customerID := record.StripeCustomerID
	if customerID == "" {
		customerID = si.Customer
	}
	if customerID != "" {
		if err := s.stripe.SetCustomerDefaultPaymentMethod(ctx, customerID, si.PaymentMethod); err != nil {
			if stripe.IsResourceMissing(err) {
				s.log.Warn("customer gone while attaching payment method",
					zap.String("customer_id", customerID))
			} else {
				return outcomeIgnored, err
			}
		}
	}

	fields := map[string]any{}
	setIfNotEmpty(fields, "stripe_customer_id", si.Customer)
	setIfNotEmpty(fields, "stripe_payment_intent_id", si.ID)
	if record.Status != submissiondomain.StatusCancelled {
		fields["status"] = submissiondomain.StatusPaid
	}
	if record.PaymentCompletedAt == nil {
		fields["payment_completed_at"] = time.Now().UTC()
	}
	if err := s.repo.UpdateFields(ctx, record.ID, fields); err != nil {
		return outcomeIgnored, err
	}

	s.insertAnalytics(ctx, record, "payment_completed", record.AmountTotal)
	s.sendPaymentMail(ctx, record, record.AmountTotal, record.Currency, derefString(record.DiscountCode))
	return outcomeProcessed, nil
}

// handleSubscriptionCreated backfills the subscription id onto the
// submission that owns the schedule.
func (s *Service) handleSubscriptionCreated(ctx context.Context, event *stripe.Event) (outcome, error) {
	var sub stripe.Subscription
	if err := decodeObject(event, &sub); err != nil {
		return outcomeIgnored, err
	}

	record, err := s.resolveSubmission(ctx, lookupHints{
		ScheduleID:   sub.Schedule,
		CustomerID:   sub.Customer,
		SubmissionID: sub.Metadata["submission_id"],
	})
	if err != nil {
		return outcomeIgnored, err
	}
	if record == nil {
		return outcomeUnmatched, nil
	}
	s.markEventSubmission(ctx, event.ID, record.ID)

	if record.StripeSubscriptionID != "" && record.StripeSubscriptionID != sub.ID {
		// Keep the id we already have; a second subscription for the same
		// submission means a retried checkout whose teardown lagged.
		s.log.Warn("subscription id conflict on submission",
			zap.String("submission_id", record.ID.String()),
			zap.String("existing", record.StripeSubscriptionID),
			zap.String("incoming", sub.ID))
		return outcomeProcessed, nil
	}

	fields := map[string]any{}
	setIfNotEmpty(fields, "stripe_subscription_id", sub.ID)
	setIfNotEmpty(fields, "stripe_schedule_id", sub.Schedule)
	setIfNotEmpty(fields, "stripe_customer_id", sub.Customer)
	if len(fields) == 0 {
		return outcomeProcessed, nil
	}
	if err := s.repo.UpdateFields(ctx, record.ID, fields); err != nil {
		return outcomeIgnored, err
	}
	return outcomeProcessed, nil
}

func (s *Service) handleSubscriptionDeleted(ctx context.Context, event *stripe.Event) (outcome, error) {
	var sub stripe.Subscription
	if err := decodeObject(event, &sub); err != nil {
		return outcomeIgnored, err
	}

	record, err := s.resolveSubmission(ctx, lookupHints{
		SubscriptionID: sub.ID,
		ScheduleID:     sub.Schedule,
		CustomerID:     sub.Customer,
		SubmissionID:   sub.Metadata["submission_id"],
	})
	if err != nil {
		return outcomeIgnored, err
	}
	if record == nil {
		return outcomeUnmatched, nil
	}
	s.markEventSubmission(ctx, event.ID, record.ID)

	if err := s.repo.UpdateFields(ctx, record.ID, map[string]any{
		"status": submissiondomain.StatusCancelled,
	}); err != nil {
		return outcomeIgnored, err
	}

	s.insertAnalytics(ctx, record, "subscription_cancelled", 0)

	info := s.paymentInfo(record, record.AmountTotal, record.Currency, derefString(record.DiscountCode))
	if err := s.notifier.CancellationNotification(ctx, info); err != nil {
		s.log.Warn("cancellation admin mail failed", zap.Error(err))
	}
	if record.Email != "" {
		if err := s.notifier.CancellationConfirmation(ctx, info); err != nil {
			s.log.Warn("cancellation customer mail failed", zap.Error(err))
		}
	}
	return outcomeProcessed, nil
}

// handleAuditOnly tags the stored event with the submission it concerns
// and leaves the submission itself untouched.
func (s *Service) handleAuditOnly(ctx context.Context, event *stripe.Event) (outcome, error) {
	var obj struct {
		ID           string            `json:"id"`
		Customer     string            `json:"customer"`
		Subscription string            `json:"subscription"`
		Schedule     string            `json:"schedule"`
		Metadata     map[string]string `json:"metadata"`
	}
	if err := decodeObject(event, &obj); err != nil {
		return outcomeIgnored, err
	}

	record, err := s.resolveSubmission(ctx, lookupHints{
		ScheduleID:     obj.Schedule,
		CustomerID:     obj.Customer,
		SubscriptionID: obj.Subscription,
		SubmissionID:   obj.Metadata["submission_id"],
	})
	if err != nil {
		return outcomeIgnored, err
	}
	if record == nil {
		return outcomeUnmatched, nil
	}
	s.markEventSubmission(ctx, event.ID, record.ID)
	s.log.Info("audit event recorded",
		zap.String("event_type", event.Type),
		zap.String("submission_id", record.ID.String()))
	return outcomeProcessed, nil
}

func (s *Service) insertAnalytics(ctx context.Context, record *submissiondomain.Submission, name string, amount int64) {
	event := &submissiondomain.AnalyticsEvent{
		ID:        s.genID.Generate(),
		SessionID: record.SessionID,
		Name:      name,
		Payload:   []byte(`{"submission_id":"` + record.ID.String() + `","amount":` + strconv.FormatInt(amount, 10) + `}`),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.InsertAnalyticsEvent(ctx, event); err != nil {
		s.log.Debug("analytics insert failed", zap.Error(err))
	}
}

func (s *Service) sendPaymentMail(ctx context.Context, record *submissiondomain.Submission, amount int64, currency, discountCode string) {
	info := s.paymentInfo(record, amount, currency, discountCode)
	if err := s.notifier.PaymentNotification(ctx, info); err != nil {
		s.log.Warn("payment admin mail failed", zap.Error(err))
	}
	if record.Email == "" {
		s.log.Warn("no customer email on paid submission",
			zap.String("submission_id", record.ID.String()))
		return
	}
	if err := s.notifier.PaymentConfirmation(ctx, info); err != nil {
		s.log.Warn("payment customer mail failed", zap.Error(err))
	}
}

func (s *Service) paymentInfo(record *submissiondomain.Submission, amount int64, currency, discountCode string) notification.PaymentInfo {
	if currency == "" {
		currency = s.cfg.Billing.Currency
	}
	return notification.PaymentInfo{
		SubmissionID: record.ID.String(),
		Email:        record.Email,
		BusinessName: record.BusinessName,
		AmountCents:  amount,
		Currency:     currency,
		DiscountCode: discountCode,
	}
}

func setIfNotEmpty(fields map[string]any, key, value string) {
	if value != "" {
		fields[key] = value
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
