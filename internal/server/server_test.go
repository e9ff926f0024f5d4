package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	checkoutdomain "github.com/sitewandlabs/sitewand/internal/checkout/domain"
	"github.com/sitewandlabs/sitewand/internal/config"
	"github.com/sitewandlabs/sitewand/internal/stripe"
	submissiondomain "github.com/sitewandlabs/sitewand/internal/submission/domain"
	"github.com/sitewandlabs/sitewand/internal/submission/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type stubCheckout struct {
	result *checkoutdomain.Result
	err    error
}

func (s *stubCheckout) CreateCheckout(context.Context, snowflake.ID, []string, string) (*checkoutdomain.Result, error) {
	return s.result, s.err
}

type stubWebhook struct {
	err error
}

func (s *stubWebhook) HandleEvent(context.Context, []byte, string) error { return s.err }

func newTestServer(t *testing.T, checkout *stubCheckout, webhook *stubWebhook) *Server {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&submissiondomain.Submission{}, &submissiondomain.CheckoutAttempt{}, &submissiondomain.AnalyticsEvent{}))

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	cfg := config.Config{}
	cfg.Checkout.AttemptWindow = time.Hour

	return New(Params{
		Cfg:      cfg,
		DB:       db,
		Repo:     repository.New(db, node, zap.NewNop()),
		Checkout: checkout,
		Webhook:  webhook,
		Registry: prometheus.NewRegistry(),
		Log:      zap.NewNop(),
	})
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code
}

func TestCreateCheckout_Success(t *testing.T) {
	srv := newTestServer(t, &stubCheckout{result: &checkoutdomain.Result{
		PaymentRequired: true,
		HandleKind:      checkoutdomain.HandlePaymentIntent,
		ClientSecret:    "pi_1_secret_x",
	}}, &stubWebhook{})
	router := srv.Router()

	w := doJSON(t, router, http.MethodPost, "/v1/checkout", map[string]any{
		"order_id": "123456789", "add_ons": []string{"fr"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Checkout checkoutdomain.Result `json:"checkout"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Checkout.PaymentRequired)
	assert.Equal(t, "pi_1_secret_x", body.Checkout.ClientSecret)
}

func TestCreateCheckout_BadOrderID(t *testing.T) {
	srv := newTestServer(t, &stubCheckout{}, &stubWebhook{})
	w := doJSON(t, srv.Router(), http.MethodPost, "/v1/checkout", map[string]any{
		"order_id": "not-a-number",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_submission_id", errorCode(t, w))
}

func TestCreateCheckout_MissingBody(t *testing.T) {
	srv := newTestServer(t, &stubCheckout{}, &stubWebhook{})
	w := doJSON(t, srv.Router(), http.MethodPost, "/v1/checkout", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_request", errorCode(t, w))
}

func TestCreateCheckout_RateLimited(t *testing.T) {
	srv := newTestServer(t, &stubCheckout{err: checkoutdomain.ErrRateLimited}, &stubWebhook{})
	w := doJSON(t, srv.Router(), http.MethodPost, "/v1/checkout", map[string]any{
		"order_id": "123456789",
	})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "rate_limited", errorCode(t, w))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body, "remaining")
	assert.Contains(t, body, "reset")
}

func TestCreateCheckout_ProviderFailure(t *testing.T) {
	srv := newTestServer(t, &stubCheckout{err: checkoutdomain.ErrPaymentProvider}, &stubWebhook{})
	w := doJSON(t, srv.Router(), http.MethodPost, "/v1/checkout", map[string]any{
		"order_id": "123456789",
	})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "payment_provider_error", errorCode(t, w))
}

func TestReceiveStripeWebhook_BadSignature(t *testing.T) {
	srv := newTestServer(t, &stubCheckout{}, &stubWebhook{err: stripe.ErrInvalidSignature})
	w := doJSON(t, srv.Router(), http.MethodPost, "/v1/webhooks/stripe", map[string]any{"id": "evt_1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_signature", errorCode(t, w))
}

func TestReceiveStripeWebhook_Accepted(t *testing.T) {
	srv := newTestServer(t, &stubCheckout{}, &stubWebhook{})
	w := doJSON(t, srv.Router(), http.MethodPost, "/v1/webhooks/stripe", map[string]any{"id": "evt_1"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateSubmission(t *testing.T) {
	srv := newTestServer(t, &stubCheckout{}, &stubWebhook{})
	w := doJSON(t, srv.Router(), http.MethodPost, "/v1/submissions", map[string]any{
		"session_id":    "sess-1",
		"email":         "owner@example.com",
		"business_name": "Bakery",
		"languages":     []string{"fr"},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var body struct {
		Submission struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"submission"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Submission.ID)
	assert.Equal(t, "submitted", body.Submission.Status)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, &stubCheckout{}, &stubWebhook{})
	w := doJSON(t, srv.Router(), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
