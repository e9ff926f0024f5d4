package service

import (
	"context"
	"strings"

	"github.com/sitewandlabs/sitewand/internal/pricing"
	"github.com/sitewandlabs/sitewand/internal/stripe"
	"go.uber.org/zap"
)

// DiscountValidator resolves a user-entered code to a normalized discount
// descriptor. Resolution is never cached across requests: coupons get
// deactivated, and a stale descriptor would break the displayed-equals-
// charged invariant.
type DiscountValidator struct {
	stripe *stripe.Client
	log    *zap.Logger
}

func NewDiscountValidator(client *stripe.Client, log *zap.Logger) *DiscountValidator {
	return &DiscountValidator{
		stripe: client,
		log:    log.Named("checkout.discount"),
	}
}

// Validate returns (nil, nil) for an unknown or inactive code; that is a
// normal outcome, not an error. Anything other than a not-found from the
// provider propagates.
func (v *DiscountValidator) Validate(ctx context.Context, code string) (*pricing.Discount, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}

	// Customer-facing promotion codes first.
	promo, err := v.stripe.FindActivePromotionCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if promo != nil {
		if promo.Coupon == nil || !couponUsable(promo.Coupon) {
			v.log.Info("promotion code resolved to unusable coupon", zap.String("code", code))
			return nil, nil
		}
		return descriptorFromCoupon(promo.Coupon, promo.ID), nil
	}

	// Backward compatibility: the input may be a raw coupon id.
	coupon, err := v.stripe.GetCoupon(ctx, code)
	if err != nil {
		if stripe.IsResourceMissing(err) {
			return nil, nil
		}
		return nil, err
	}
	if !couponUsable(coupon) {
		return nil, nil
	}
	return descriptorFromCoupon(coupon, ""), nil
}

func couponUsable(c *stripe.Coupon) bool {
	return c != nil && c.Valid && !c.Deleted
}

func descriptorFromCoupon(c *stripe.Coupon, promotionCodeID string) *pricing.Discount {
	d := &pricing.Discount{
		CouponID:       c.ID,
		PromotionCode:  promotionCodeID,
		PercentOff:     c.PercentOff,
		AmountOff:      c.AmountOff,
		DurationMonths: c.DurationInMonths,
		BaseOnly:       c.AppliesTo != nil && len(c.AppliesTo.Products) > 0,
	}
	switch c.Duration {
	case "forever":
		d.Duration = pricing.DurationForever
	case "repeating":
		d.Duration = pricing.DurationRepeating
	default:
		d.Duration = pricing.DurationOnce
	}
	return d
}
