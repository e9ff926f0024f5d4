package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var ErrSubmissionNotFound = errors.New("submission_not_found")

// Repository is the persistence collaborator for submissions. Finders
// return (nil, nil) when nothing matches; GetByID retries briefly before
// reporting ErrSubmissionNotFound because a webhook can race the insert.
type Repository interface {
	GetByID(ctx context.Context, id snowflake.ID) (*Submission, error)
	Create(ctx context.Context, s *Submission) error

	// UpdateFields applies a partial column update. Callers are expected
	// to omit provider-id keys whose new value is empty so an earlier id
	// is never overwritten with nothing.
	UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error

	FindByScheduleID(ctx context.Context, scheduleID string) (*Submission, error)
	FindByCustomerID(ctx context.Context, customerID string) (*Submission, error)
	FindBySubscriptionID(ctx context.Context, subscriptionID string) (*Submission, error)
	FindByPaymentHandleID(ctx context.Context, intentID string) (*Submission, error)

	LogAttempt(ctx context.Context, sessionID string, submissionID snowflake.ID) error
	CountAttemptsSince(ctx context.Context, sessionID string, since time.Time) (int64, error)

	InsertAnalyticsEvent(ctx context.Context, event *AnalyticsEvent) error
}
