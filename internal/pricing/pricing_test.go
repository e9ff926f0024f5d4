package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompute_NoDiscount(t *testing.T) {
	p := Compute(3500, 7500, 0, nil)
	assert.Equal(t, int64(3500), p.Subtotal)
	assert.Equal(t, int64(3500), p.DueToday)
	assert.Equal(t, int64(3500), p.RecurringAmount)
	assert.Equal(t, RecurringFullPrice, p.RecurringDescription)
}

func TestCompute_AddonsNoDiscount(t *testing.T) {
	p := Compute(3500, 7500, 2, nil)
	assert.Equal(t, int64(18500), p.Subtotal)
	assert.Equal(t, int64(18500), p.DueToday)
	assert.Equal(t, int64(3500), p.RecurringAmount)
}

func TestCompute_OncePercentBaseOnly(t *testing.T) {
	d := &Discount{PercentOff: 10, Duration: DurationOnce, BaseOnly: true}
	p := Compute(3500, 7500, 0, d)
	assert.Equal(t, int64(350), p.DiscountAmount)
	assert.Equal(t, int64(3150), p.DueToday)
	// Full price resumes next cycle no matter how large the percent is.
	assert.Equal(t, int64(3500), p.RecurringAmount)
	assert.Equal(t, int64(0), p.RecurringDiscount)
	assert.Equal(t, RecurringFullPrice, p.RecurringDescription)
}

func TestCompute_ForeverPercentBaseOnly(t *testing.T) {
	d := &Discount{PercentOff: 20, Duration: DurationForever, BaseOnly: true}
	p := Compute(3500, 7500, 0, d)
	assert.Equal(t, int64(700), p.DiscountAmount)
	assert.Equal(t, int64(2800), p.DueToday)
	assert.Equal(t, int64(2800), p.RecurringAmount)
	assert.Equal(t, int64(700), p.RecurringDiscount)
	assert.Equal(t, RecurringDiscounted, p.RecurringDescription)
}

func TestCompute_RepeatingDisclosesTransition(t *testing.T) {
	d := &Discount{PercentOff: 50, Duration: DurationRepeating, DurationMonths: 3, BaseOnly: true}
	p := Compute(3500, 7500, 1, d)
	assert.Equal(t, int64(11000), p.Subtotal)
	assert.Equal(t, int64(1750), p.DiscountAmount)
	assert.Equal(t, int64(9250), p.DueToday)
	assert.Equal(t, int64(1750), p.RecurringAmount)
	assert.Equal(t, RecurringDiscountedThenFull, p.RecurringDescription)
}

func TestCompute_HundredPercentOnce(t *testing.T) {
	d := &Discount{PercentOff: 100, Duration: DurationOnce, BaseOnly: true}
	p := Compute(3500, 7500, 0, d)
	assert.Equal(t, int64(0), p.DueToday)
	assert.Equal(t, int64(3500), p.RecurringAmount)
}

func TestCompute_UnrestrictedDiscountCoversAddons(t *testing.T) {
	d := &Discount{PercentOff: 10, Duration: DurationOnce}
	p := Compute(3500, 7500, 2, d)
	assert.Equal(t, int64(18500), p.Subtotal)
	assert.Equal(t, int64(1850), p.DiscountAmount)
	assert.Equal(t, int64(16650), p.DueToday)
}

func TestCompute_AmountOffCappedAtDiscountable(t *testing.T) {
	d := &Discount{AmountOff: 5000, Duration: DurationOnce, BaseOnly: true}
	p := Compute(3500, 7500, 1, d)
	assert.Equal(t, int64(3500), p.DiscountAmount)
	assert.Equal(t, int64(7500), p.DueToday)
}

func TestCompute_DueTodayEqualsSubtotalMinusDiscount(t *testing.T) {
	cases := []struct {
		base, addon int64
		count       int
		discount    *Discount
	}{
		{3500, 7500, 0, nil},
		{3500, 7500, 3, &Discount{PercentOff: 15, Duration: DurationOnce}},
		{3500, 7500, 1, &Discount{AmountOff: 1000, Duration: DurationForever, BaseOnly: true}},
		{9900, 4900, 2, &Discount{PercentOff: 33, Duration: DurationRepeating, DurationMonths: 6}},
	}
	for _, tc := range cases {
		p := Compute(tc.base, tc.addon, tc.count, tc.discount)
		assert.Equal(t, tc.base+tc.addon*int64(tc.count), p.Subtotal)
		assert.Equal(t, p.Subtotal-p.DiscountAmount, p.DueToday)
	}
}
