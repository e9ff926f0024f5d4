package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	submissiondomain "github.com/sitewandlabs/sitewand/internal/submission/domain"
)

type createSubmissionRequest struct {
	SessionID    string         `json:"session_id" binding:"required"`
	Email        string         `json:"email" binding:"required,email"`
	BusinessName string         `json:"business_name"`
	Languages    []string       `json:"languages"`
	FormData     map[string]any `json:"form_data"`
}

// CreateSubmission
// POST /v1/submissions
//
// The onboarding wizard calls this when the form is completed; the row it
// creates is what the checkout endpoint later charges for.
func (s *Server) CreateSubmission(c *gin.Context) {
	var req createSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, errInvalidRequest)
		return
	}

	submission := &submissiondomain.Submission{
		SessionID:    req.SessionID,
		Status:       submissiondomain.StatusSubmitted,
		Email:        req.Email,
		BusinessName: req.BusinessName,
		Languages:    req.Languages,
		FormData:     req.FormData,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(c.Request.Context(), submission); err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"submission": gin.H{
		"id":         submission.ID.String(),
		"session_id": submission.SessionID,
		"status":     submission.Status,
	}})
}
