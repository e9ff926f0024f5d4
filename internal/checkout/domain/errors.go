package domain

import "errors"

// Stable machine-readable error codes. Callers branch on these values,
// never on message text.
var (
	ErrInvalidSubmissionID    = errors.New("invalid_submission_id")
	ErrMissingSessionID       = errors.New("missing_session_id")
	ErrInvalidLanguageCode    = errors.New("invalid_language_code")
	ErrRateLimited            = errors.New("rate_limited")
	ErrInvalidDiscountCode    = errors.New("invalid_discount_code")
	ErrMissingCustomerEmail   = errors.New("missing_customer_email")
	ErrMetadataUpdateFailed   = errors.New("metadata_update_failed")
	ErrSubmissionUpdateFailed = errors.New("submission_update_failed")
	ErrPaymentProvider        = errors.New("payment_provider_error")
)
