package service

import (
	"context"
	"errors"
	"time"

	"github.com/sitewandlabs/sitewand/internal/checkout/domain"
	"github.com/sitewandlabs/sitewand/internal/config"
	"github.com/sitewandlabs/sitewand/internal/stripe"
	"github.com/sitewandlabs/sitewand/pkg/retry"
	"go.uber.org/zap"
)

// ScheduleBuilder creates the time-bounded subscription: one phase at the
// base price running for the commitment period, end_behavior=release so
// billing continues open-ended afterwards.
type ScheduleBuilder struct {
	stripe  *stripe.Client
	billing config.BillingConfig
	log     *zap.Logger
}

func NewScheduleBuilder(client *stripe.Client, cfg config.Config, log *zap.Logger) *ScheduleBuilder {
	return &ScheduleBuilder{
		stripe:  client,
		billing: cfg.Billing,
		log:     log.Named("checkout.schedule"),
	}
}

type ScheduleResult struct {
	Schedule     *stripe.SubscriptionSchedule
	Subscription *stripe.Subscription
}

func (b *ScheduleBuilder) Create(ctx context.Context, customerID, couponID string, metadata map[string]string) (*ScheduleResult, error) {
	months := b.billing.CommitmentMonths
	if months <= 0 {
		months = 12
	}

	schedule, err := b.stripe.CreateSubscriptionSchedule(ctx, stripe.ScheduleInput{
		CustomerID: customerID,
		PriceID:    b.billing.BasePriceID,
		EndDate:    time.Now().UTC().AddDate(0, months, 0),
		CouponID:   couponID,
		Metadata:   metadata,
	})
	if err != nil {
		return nil, err
	}

	subscriptionID := schedule.Subscription
	if subscriptionID == "" {
		// The schedule starts "now", so the subscription should exist
		// immediately; re-fetch once in case creation returned early.
		refreshed, err := b.stripe.GetSubscriptionSchedule(ctx, schedule.ID)
		if err != nil {
			return nil, err
		}
		schedule = refreshed
		subscriptionID = refreshed.Subscription
	}
	if subscriptionID == "" {
		return nil, errors.New("schedule has no subscription attached")
	}

	var subscription *stripe.Subscription
	err = retry.Do(ctx, 2, 300*time.Millisecond, retry.Always, func() error {
		var uerr error
		subscription, uerr = b.stripe.UpdateSubscriptionSettings(ctx, subscriptionID, metadata)
		return uerr
	})
	if err != nil {
		b.log.Error("subscription metadata update failed",
			zap.String("subscription_id", subscriptionID), zap.Error(err))
		return nil, errors.Join(domain.ErrMetadataUpdateFailed, err)
	}

	return &ScheduleResult{Schedule: schedule, Subscription: subscription}, nil
}

// Teardown cancels a schedule and its subscription left behind by an
// earlier attempt. A resource that is already gone is the desired end
// state and is not an error.
func (b *ScheduleBuilder) Teardown(ctx context.Context, scheduleID, subscriptionID string) error {
	if scheduleID != "" {
		if err := b.stripe.CancelSubscriptionSchedule(ctx, scheduleID); err != nil {
			if !stripe.IsResourceMissing(err) {
				b.log.Error("failed to cancel stale schedule",
					zap.String("schedule_id", scheduleID), zap.Error(err))
				return err
			}
			b.log.Warn("stale schedule already gone", zap.String("schedule_id", scheduleID))
		}
		// Cancelling the schedule takes its subscription down with it.
		return nil
	}
	if subscriptionID != "" {
		if err := b.stripe.CancelSubscription(ctx, subscriptionID); err != nil {
			if !stripe.IsResourceMissing(err) {
				b.log.Error("failed to cancel stale subscription",
					zap.String("subscription_id", subscriptionID), zap.Error(err))
				return err
			}
			b.log.Warn("stale subscription already gone", zap.String("subscription_id", subscriptionID))
		}
	}
	return nil
}
