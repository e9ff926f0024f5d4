package stripe

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentIntentID_FlatString(t *testing.T) {
	inv := &Invoice{PaymentIntent: "pi_123"}
	assert.Equal(t, "pi_123", inv.PaymentIntentID())
}

func TestPaymentIntentID_ExpandedObject(t *testing.T) {
	inv := &Invoice{PaymentIntent: map[string]any{"id": "pi_456", "status": "requires_payment_method"}}
	assert.Equal(t, "pi_456", inv.PaymentIntentID())
}

func TestPaymentIntentID_PaymentsCollection(t *testing.T) {
	var inv Invoice
	raw := `{"id":"in_1","payments":{"data":[{"payment":{"type":"payment_intent","payment_intent":"pi_789"}}]}}`
	require.NoError(t, json.Unmarshal([]byte(raw), &inv))
	assert.Equal(t, "pi_789", inv.PaymentIntentID())
}

func TestPaymentIntentID_ConfirmationSecretPrefix(t *testing.T) {
	var inv Invoice
	raw := `{"id":"in_1","confirmation_secret":{"client_secret":"pi_abc123_secret_xyz"}}`
	require.NoError(t, json.Unmarshal([]byte(raw), &inv))
	assert.Equal(t, "pi_abc123", inv.PaymentIntentID())
}

func TestPaymentIntentID_NoneAvailable(t *testing.T) {
	inv := &Invoice{}
	assert.Equal(t, "", inv.PaymentIntentID())
}

func TestFirstDiscountID_BareID(t *testing.T) {
	var inv Invoice
	raw := `{"id":"in_1","discounts":["di_111"]}`
	require.NoError(t, json.Unmarshal([]byte(raw), &inv))
	assert.Equal(t, "di_111", inv.FirstDiscountID())
}

func TestFirstDiscountID_ExpandedObject(t *testing.T) {
	var inv Invoice
	raw := `{"id":"in_1","discounts":[{"id":"di_222","coupon":{"id":"SUMMER","percent_off":10}}]}`
	require.NoError(t, json.Unmarshal([]byte(raw), &inv))
	assert.Equal(t, "di_222", inv.FirstDiscountID())

	expanded := inv.ExpandedDiscounts()
	require.Len(t, expanded, 1)
	require.NotNil(t, expanded[0].Coupon)
	assert.Equal(t, "SUMMER", expanded[0].Coupon.ID)
	assert.Equal(t, float64(10), expanded[0].Coupon.PercentOff)
}

func TestDiscountAmount_SumsAllLines(t *testing.T) {
	var inv Invoice
	raw := `{"id":"in_1","total_discount_amounts":[{"amount":350},{"amount":150}]}`
	require.NoError(t, json.Unmarshal([]byte(raw), &inv))
	assert.Equal(t, int64(500), inv.DiscountAmount())
}

func TestInvoiceLine_Recurring(t *testing.T) {
	sub := InvoiceLine{Subscription: "sub_1"}
	assert.True(t, sub.Recurring())

	var parented InvoiceLine
	raw := `{"id":"il_1","parent":{"type":"subscription_item_details"}}`
	require.NoError(t, json.Unmarshal([]byte(raw), &parented))
	assert.True(t, parented.Recurring())

	oneTime := InvoiceLine{}
	assert.False(t, oneTime.Recurring())
}

func TestDiscount_PromotionCodeID(t *testing.T) {
	flat := &Discount{PromotionCode: "promo_1"}
	assert.Equal(t, "promo_1", flat.PromotionCodeID())

	expanded := &Discount{PromotionCode: map[string]any{"id": "promo_2", "code": "WELCOME"}}
	assert.Equal(t, "promo_2", expanded.PromotionCodeID())

	var none *Discount
	assert.Equal(t, "", none.PromotionCodeID())
}
