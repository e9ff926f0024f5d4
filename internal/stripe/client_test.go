package stripe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSubscriptionSchedule_FormEncoding(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/subscription_schedules", r.URL.Path)
		require.Equal(t, "Bearer sk_test_key", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())
		got = map[string]string{}
		for k := range r.PostForm {
			got[k] = r.PostForm.Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"sub_sched_1","status":"active","subscription":"sub_1","end_behavior":"release"}`))
	}))
	defer srv.Close()

	c := New("sk_test_key", srv.URL)
	end := time.Date(2027, 8, 1, 0, 0, 0, 0, time.UTC)
	schedule, err := c.CreateSubscriptionSchedule(context.Background(), ScheduleInput{
		CustomerID: "cus_1",
		PriceID:    "price_base",
		EndDate:    end,
		CouponID:   "WELCOME10",
		Metadata:   map[string]string{"submission_id": "42"},
	})
	require.NoError(t, err)

	assert.Equal(t, "sub_sched_1", schedule.ID)
	assert.Equal(t, "sub_1", schedule.Subscription)
	assert.Equal(t, "cus_1", got["customer"])
	assert.Equal(t, "now", got["start_date"])
	assert.Equal(t, "release", got["end_behavior"])
	assert.Equal(t, "price_base", got["phases[0][items][0][price]"])
	assert.Equal(t, "1", got["phases[0][items][0][quantity]"])
	assert.Equal(t, "WELCOME10", got["phases[0][discounts][0][coupon]"])
	assert.Equal(t, "42", got["metadata[submission_id]"])
}

func TestErrorDecoding_ResourceMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":"resource_missing","type":"invalid_request_error","message":"No such coupon"}}`))
	}))
	defer srv.Close()

	c := New("sk_test_key", srv.URL)
	_, err := c.GetCoupon(context.Background(), "NOPE")
	require.Error(t, err)
	assert.True(t, IsResourceMissing(err))

	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "resource_missing", se.Code)
	assert.Equal(t, "No such coupon", se.Message)
}

func TestFindActivePromotionCode_EmptyListIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "WELCOME", r.URL.Query().Get("code"))
		assert.Equal(t, "true", r.URL.Query().Get("active"))
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	c := New("sk_test_key", srv.URL)
	code, err := c.FindActivePromotionCode(context.Background(), "WELCOME")
	require.NoError(t, err)
	assert.Nil(t, code)
}

func TestCreateInvoiceItem_CarriesIdempotencyKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("Idempotency-Key"))
		_, _ = w.Write([]byte(`{"id":"ii_1","invoice":"in_1","amount":7500,"currency":"eur"}`))
	}))
	defer srv.Close()

	c := New("sk_test_key", srv.URL)
	item, err := c.CreateInvoiceItem(context.Background(), InvoiceItemInput{
		CustomerID:  "cus_1",
		InvoiceID:   "in_1",
		AmountCents: 7500,
		Currency:    "eur",
		Description: "Additional language: fr",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7500), item.Amount)
}
