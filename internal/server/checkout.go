package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	checkoutdomain "github.com/sitewandlabs/sitewand/internal/checkout/domain"
)

type createCheckoutRequest struct {
	OrderID      string   `json:"order_id" binding:"required"`
	AddOns       []string `json:"add_ons"`
	DiscountCode string   `json:"discount_code"`
}

// CreateCheckout
// POST /v1/checkout
func (s *Server) CreateCheckout(c *gin.Context) {
	var req createCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, errInvalidRequest)
		return
	}

	submissionID, err := snowflake.ParseString(req.OrderID)
	if err != nil {
		s.abortWithError(c, checkoutdomain.ErrInvalidSubmissionID)
		return
	}

	result, err := s.checkout.CreateCheckout(c.Request.Context(), submissionID, req.AddOns, req.DiscountCode)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"checkout": result})
}
