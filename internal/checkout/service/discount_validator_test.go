package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sitewandlabs/sitewand/internal/pricing"
	"github.com/sitewandlabs/sitewand/internal/stripe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newValidator(t *testing.T, handlers map[string]any) *DiscountValidator {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if resp, ok := handlers[r.Method+" "+r.URL.Path]; ok {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resp)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":"resource_missing","type":"invalid_request_error","message":"no such coupon"}}`))
	}))
	t.Cleanup(srv.Close)
	return NewDiscountValidator(stripe.New("sk_test", srv.URL), zap.NewNop())
}

func TestValidate_PromotionCodeWins(t *testing.T) {
	v := newValidator(t, map[string]any{
		"GET /v1/promotion_codes": map[string]any{"data": []any{map[string]any{
			"id": "promo_1", "code": "SPRING", "active": true,
			"coupon": map[string]any{"id": "c_spring", "valid": true, "percent_off": 15.0, "duration": "repeating", "duration_in_months": 3},
		}}},
	})

	d, err := v.Validate(context.Background(), "SPRING")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "c_spring", d.CouponID)
	assert.Equal(t, "promo_1", d.PromotionCode)
	assert.Equal(t, pricing.DurationRepeating, d.Duration)
	assert.Equal(t, 3, d.DurationMonths)
}

func TestValidate_FallsBackToCouponID(t *testing.T) {
	v := newValidator(t, map[string]any{
		"GET /v1/promotion_codes": map[string]any{"data": []any{}},
		"GET /v1/coupons/LEGACY50": map[string]any{
			"id": "LEGACY50", "valid": true, "amount_off": int64(50), "duration": "once",
		},
	})

	d, err := v.Validate(context.Background(), "LEGACY50")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "LEGACY50", d.CouponID)
	assert.Empty(t, d.PromotionCode)
	assert.Equal(t, int64(50), d.AmountOff)
}

func TestValidate_UnknownCodeIsNilNotError(t *testing.T) {
	v := newValidator(t, map[string]any{
		"GET /v1/promotion_codes": map[string]any{"data": []any{}},
	})

	d, err := v.Validate(context.Background(), "NOPE")
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestValidate_InvalidCouponIsNil(t *testing.T) {
	v := newValidator(t, map[string]any{
		"GET /v1/promotion_codes": map[string]any{"data": []any{map[string]any{
			"id": "promo_2", "code": "EXPIRED", "active": true,
			"coupon": map[string]any{"id": "c_old", "valid": false, "percent_off": 10.0, "duration": "once"},
		}}},
	})

	d, err := v.Validate(context.Background(), "EXPIRED")
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestValidate_ProductRestrictionMarksBaseOnly(t *testing.T) {
	v := newValidator(t, map[string]any{
		"GET /v1/promotion_codes": map[string]any{"data": []any{map[string]any{
			"id": "promo_3", "code": "BASEONLY", "active": true,
			"coupon": map[string]any{
				"id": "c_base", "valid": true, "percent_off": 10.0, "duration": "once",
				"applies_to": map[string]any{"products": []string{"prod_base"}},
			},
		}}},
	})

	d, err := v.Validate(context.Background(), "BASEONLY")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.True(t, d.BaseOnly)
}
