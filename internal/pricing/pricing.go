// Package pricing computes the amounts shown to a customer before checkout.
// The invariant the whole package exists to protect: the displayed due-today
// and recurring amounts must exactly equal what Stripe will charge. The
// historic regression here was showing a discounted renewal price for a
// duration=once coupon.
package pricing

import "math"

type DiscountDuration string

const (
	DurationOnce      DiscountDuration = "once"
	DurationForever   DiscountDuration = "forever"
	DurationRepeating DiscountDuration = "repeating"
)

const (
	RecurringFullPrice          = "full_price"
	RecurringDiscounted         = "discounted"
	RecurringDiscountedThenFull = "discounted_then_full"
)

// Discount is the normalized view of a Stripe coupon, optionally reached
// through a promotion code. PercentOff and AmountOff are mutually exclusive.
// BaseOnly is set when the coupon carries a product restriction, in which
// case it applies to the base subscription line but never to add-ons.
type Discount struct {
	CouponID       string
	PromotionCode  string
	PercentOff     float64
	AmountOff      int64
	Duration       DiscountDuration
	DurationMonths int
	BaseOnly       bool
}

// Off returns the discount applied to amount, capped at amount.
func (d Discount) Off(amount int64) int64 {
	var off int64
	if d.PercentOff > 0 {
		off = int64(math.Round(float64(amount) * d.PercentOff / 100))
	} else {
		off = d.AmountOff
	}
	if off > amount {
		off = amount
	}
	if off < 0 {
		off = 0
	}
	return off
}

// Preview is the derived pricing summary for display. Amounts are integer
// minor units. It is never the source of truth for what gets charged; the
// finalized invoice is.
type Preview struct {
	Subtotal             int64
	DueToday             int64
	DiscountAmount       int64
	RecurringAmount      int64
	RecurringDiscount    int64
	RecurringDescription string
}

// Compute derives the due-today and recurring amounts for a base
// subscription price plus addonCount one-time add-ons, under an optional
// discount. Add-ons are always one-time and always part of the first
// charge, regardless of the discount's duration.
func Compute(basePrice, addonPrice int64, addonCount int, discount *Discount) Preview {
	subtotal := basePrice + addonPrice*int64(addonCount)

	p := Preview{
		Subtotal:             subtotal,
		DueToday:             subtotal,
		RecurringAmount:      basePrice,
		RecurringDescription: RecurringFullPrice,
	}
	if discount == nil {
		return p
	}

	discountable := subtotal
	if discount.BaseOnly {
		discountable = basePrice
	}
	p.DiscountAmount = discount.Off(discountable)
	p.DueToday = subtotal - p.DiscountAmount

	switch discount.Duration {
	case DurationForever:
		p.RecurringDiscount = discount.Off(basePrice)
		p.RecurringAmount = basePrice - p.RecurringDiscount
		p.RecurringDescription = RecurringDiscounted
	case DurationRepeating:
		// Discounted for DurationMonths, full price afterwards. The UI
		// discloses the transition via the description.
		p.RecurringDiscount = discount.Off(basePrice)
		p.RecurringAmount = basePrice - p.RecurringDiscount
		p.RecurringDescription = RecurringDiscountedThenFull
	default:
		// once: the discount touches the first invoice only.
		p.RecurringAmount = basePrice
		p.RecurringDescription = RecurringFullPrice
	}

	return p
}
