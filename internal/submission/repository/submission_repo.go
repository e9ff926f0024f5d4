package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/sitewandlabs/sitewand/internal/submission/domain"
	"github.com/sitewandlabs/sitewand/pkg/retry"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type submissionRepo struct {
	db    *gorm.DB
	genID *snowflake.Node
	log   *zap.Logger
}

func New(db *gorm.DB, genID *snowflake.Node, log *zap.Logger) domain.Repository {
	return &submissionRepo{
		db:    db,
		genID: genID,
		log:   log.Named("submission.repository"),
	}
}

func (r *submissionRepo) GetByID(ctx context.Context, id snowflake.ID) (*domain.Submission, error) {
	var s domain.Submission
	// One short retry: a just-written row may not be visible to the
	// webhook handler that races the checkout response.
	err := retry.Do(ctx, 2, 150*time.Millisecond, retry.Always, func() error {
		return r.db.WithContext(ctx).First(&s, id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSubmissionNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *submissionRepo) Create(ctx context.Context, s *domain.Submission) error {
	if s.ID == 0 {
		s.ID = r.genID.Generate()
	}
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *submissionRepo) UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&domain.Submission{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *submissionRepo) FindByScheduleID(ctx context.Context, scheduleID string) (*domain.Submission, error) {
	return r.findOne(ctx, "stripe_schedule_id = ?", scheduleID)
}

func (r *submissionRepo) FindByCustomerID(ctx context.Context, customerID string) (*domain.Submission, error) {
	return r.findOne(ctx, "stripe_customer_id = ?", customerID)
}

func (r *submissionRepo) FindBySubscriptionID(ctx context.Context, subscriptionID string) (*domain.Submission, error) {
	return r.findOne(ctx, "stripe_subscription_id = ?", subscriptionID)
}

func (r *submissionRepo) FindByPaymentHandleID(ctx context.Context, intentID string) (*domain.Submission, error) {
	return r.findOne(ctx, "stripe_payment_intent_id = ?", intentID)
}

func (r *submissionRepo) findOne(ctx context.Context, query string, arg string) (*domain.Submission, error) {
	if strings.TrimSpace(arg) == "" {
		return nil, nil
	}
	var s domain.Submission
	if err := r.db.WithContext(ctx).
		Where(query, arg).
		Order("created_at DESC").
		First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *submissionRepo) LogAttempt(ctx context.Context, sessionID string, submissionID snowflake.ID) error {
	attempt := domain.CheckoutAttempt{
		ID:           r.genID.Generate(),
		SessionID:    sessionID,
		SubmissionID: submissionID,
		CreatedAt:    time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Create(&attempt).Error
}

func (r *submissionRepo) CountAttemptsSince(ctx context.Context, sessionID string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.CheckoutAttempt{}).
		Where("session_id = ? AND created_at >= ?", sessionID, since).
		Count(&count).Error
	return count, err
}

func (r *submissionRepo) InsertAnalyticsEvent(ctx context.Context, event *domain.AnalyticsEvent) error {
	if event.ID == 0 {
		event.ID = r.genID.Generate()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		// The session row may already be cleaned up; losing the analytics
		// event is acceptable, anything else is worth surfacing.
		if isForeignKeyViolation(err) {
			r.log.Debug("analytics event dropped, session already gone",
				zap.String("session_id", event.SessionID),
				zap.String("event", event.Name))
			return nil
		}
		return err
	}
	return nil
}

func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "foreign key") || strings.Contains(msg, "sqlstate 23503")
}
