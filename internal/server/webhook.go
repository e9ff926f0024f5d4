package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sitewandlabs/sitewand/internal/stripe"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

// ReceiveStripeWebhook
// POST /v1/webhooks/stripe
//
// Anything but a 2xx makes Stripe redeliver, so only signature failures
// and genuine processing errors are surfaced.
func (s *Server) ReceiveStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "invalid_payload", "message": "could not read body"}})
		return
	}

	err = s.webhook.HandleEvent(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, stripe.ErrInvalidSignature) || errors.Is(err, stripe.ErrInvalidPayload) {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "invalid_signature", "message": "signature verification failed"}})
			return
		}
		s.log.Error("webhook processing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "internal_error", "message": "event processing failed"}})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
