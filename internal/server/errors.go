package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	checkoutdomain "github.com/sitewandlabs/sitewand/internal/checkout/domain"
	submissiondomain "github.com/sitewandlabs/sitewand/internal/submission/domain"
	"go.uber.org/zap"
)

// statusByError maps domain sentinels to HTTP status classes. The error
// code in the body is always the sentinel text, so clients branch on a
// stable string no matter how the message evolves.
var statusByError = map[error]int{
	checkoutdomain.ErrInvalidSubmissionID:    http.StatusBadRequest,
	checkoutdomain.ErrMissingSessionID:       http.StatusBadRequest,
	checkoutdomain.ErrInvalidLanguageCode:    http.StatusBadRequest,
	checkoutdomain.ErrInvalidDiscountCode:    http.StatusBadRequest,
	checkoutdomain.ErrMissingCustomerEmail:   http.StatusBadRequest,
	checkoutdomain.ErrRateLimited:            http.StatusTooManyRequests,
	checkoutdomain.ErrMetadataUpdateFailed:   http.StatusBadGateway,
	checkoutdomain.ErrPaymentProvider:        http.StatusBadGateway,
	checkoutdomain.ErrSubmissionUpdateFailed: http.StatusInternalServerError,
	submissiondomain.ErrSubmissionNotFound:   http.StatusNotFound,
}

var errInvalidRequest = errors.New("invalid_request")

func (s *Server) abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "internal_error"

	for sentinel, st := range statusByError {
		if errors.Is(err, sentinel) {
			status = st
			code = sentinel.Error()
			break
		}
	}
	if errors.Is(err, errInvalidRequest) {
		status = http.StatusBadRequest
		code = errInvalidRequest.Error()
	}

	body := gin.H{"error": gin.H{"code": code, "message": err.Error()}}
	if status == http.StatusTooManyRequests {
		// The window is coarse; the reset hint tells the client when a
		// fresh attempt can possibly succeed.
		body["remaining"] = 0
		body["reset"] = time.Now().UTC().Add(s.cfg.Checkout.AttemptWindow).Unix()
	}
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
	}
	c.AbortWithStatusJSON(status, body)
}
