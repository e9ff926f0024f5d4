package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/sitewandlabs/sitewand/internal/stripe"
	submissiondomain "github.com/sitewandlabs/sitewand/internal/submission/domain"
	"go.uber.org/zap"
)

// lookupHints carries every submission reference an event can expose.
// Events differ in which fields they populate, so resolution walks an
// ordered cascade instead of trusting a single key.
type lookupHints struct {
	ScheduleID     string
	CustomerID     string
	SubscriptionID string
	SubmissionID   string
	PaymentID      string
}

// resolveSubmission tries each lookup strategy in order and returns the
// first match, or (nil, nil) when no strategy matched. The order goes
// from the most specific reference we control (the schedule we created)
// to the loosest (the payment handle id).
func (s *Service) resolveSubmission(ctx context.Context, hints lookupHints) (*submissiondomain.Submission, error) {
	type strategy struct {
		name string
		find func(context.Context) (*submissiondomain.Submission, error)
	}

	strategies := []strategy{
		{"schedule_id", func(ctx context.Context) (*submissiondomain.Submission, error) {
			if hints.ScheduleID == "" {
				return nil, nil
			}
			return s.repo.FindByScheduleID(ctx, hints.ScheduleID)
		}},
		{"customer_id", func(ctx context.Context) (*submissiondomain.Submission, error) {
			if hints.CustomerID == "" {
				return nil, nil
			}
			return s.repo.FindByCustomerID(ctx, hints.CustomerID)
		}},
		{"subscription_id", func(ctx context.Context) (*submissiondomain.Submission, error) {
			if hints.SubscriptionID == "" {
				return nil, nil
			}
			return s.repo.FindBySubscriptionID(ctx, hints.SubscriptionID)
		}},
		{"metadata_submission_id", func(ctx context.Context) (*submissiondomain.Submission, error) {
			return s.findByMetadataID(ctx, hints.SubmissionID)
		}},
		{"payment_handle", func(ctx context.Context) (*submissiondomain.Submission, error) {
			if hints.PaymentID == "" {
				return nil, nil
			}
			return s.repo.FindByPaymentHandleID(ctx, hints.PaymentID)
		}},
	}

	for _, st := range strategies {
		sub, err := st.find(ctx)
		if err != nil {
			return nil, err
		}
		if sub != nil {
			s.log.Debug("submission resolved",
				zap.String("strategy", st.name),
				zap.String("submission_id", sub.ID.String()))
			return sub, nil
		}
	}
	return nil, nil
}

func (s *Service) findByMetadataID(ctx context.Context, raw string) (*submissiondomain.Submission, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := snowflake.ParseString(raw)
	if err != nil {
		s.log.Debug("event carries unparseable submission_id metadata", zap.String("value", raw))
		return nil, nil
	}
	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		// A stale metadata reference is a lookup miss, not a failure.
		return nil, nil
	}
	return sub, nil
}

// hintsFromIntentMetadata is shared by the intent handlers, which carry
// the ids we stamped onto the intent at checkout time.
func hintsFromIntentMetadata(metadata map[string]string, customerID, intentID string) lookupHints {
	return lookupHints{
		SubmissionID:   metadata["submission_id"],
		SubscriptionID: metadata["subscription_id"],
		CustomerID:     customerID,
		PaymentID:      intentID,
	}
}

// dereferencePaymentIntent resolves the invoice behind a standalone
// payment-intent event so the richer invoice path can reconcile it.
func (s *Service) dereferencePaymentIntent(ctx context.Context, pi *stripe.PaymentIntent) (*stripe.Invoice, error) {
	if pi.Invoice == "" {
		return nil, nil
	}
	return s.stripe.GetInvoice(ctx, pi.Invoice, "discounts", "payments")
}
