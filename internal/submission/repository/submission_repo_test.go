package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/sitewandlabs/sitewand/internal/submission/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRepo(t *testing.T) (domain.Repository, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Submission{},
		&domain.CheckoutAttempt{},
		&domain.AnalyticsEvent{},
	))
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return New(db, node, zap.NewNop()), db
}

func seedSubmission(t *testing.T, repo domain.Repository, mutate func(*domain.Submission)) *domain.Submission {
	t.Helper()
	s := &domain.Submission{
		SessionID: "sess-1",
		Status:    domain.StatusSubmitted,
		Email:     "owner@example.com",
		Languages: []string{"fr", "it"},
	}
	if mutate != nil {
		mutate(s)
	}
	require.NoError(t, repo.Create(context.Background(), s))
	return s
}

func TestGetByID_NotFound(t *testing.T) {
	repo, _ := newTestRepo(t)
	_, err := repo.GetByID(context.Background(), 987654)
	assert.ErrorIs(t, err, domain.ErrSubmissionNotFound)
}

func TestUpdateFields_PartialWrite(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	s := seedSubmission(t, repo, func(s *domain.Submission) {
		s.StripeSubscriptionID = "sub_existing"
	})

	require.NoError(t, repo.UpdateFields(ctx, s.ID, map[string]any{
		"status":             domain.StatusPaid,
		"stripe_customer_id": "cus_1",
	}))

	got, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, got.Status)
	assert.Equal(t, "cus_1", got.StripeCustomerID)
	// Keys not present in the update are untouched.
	assert.Equal(t, "sub_existing", got.StripeSubscriptionID)
}

func TestFindCascadeKeys(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	s := seedSubmission(t, repo, func(s *domain.Submission) {
		s.StripeCustomerID = "cus_9"
		s.StripeSubscriptionID = "sub_9"
		s.StripeScheduleID = "sched_9"
		s.StripePaymentIntentID = "seti_9"
	})

	bySchedule, err := repo.FindByScheduleID(ctx, "sched_9")
	require.NoError(t, err)
	require.NotNil(t, bySchedule)
	assert.Equal(t, s.ID, bySchedule.ID)

	byCustomer, err := repo.FindByCustomerID(ctx, "cus_9")
	require.NoError(t, err)
	require.NotNil(t, byCustomer)

	bySub, err := repo.FindBySubscriptionID(ctx, "sub_9")
	require.NoError(t, err)
	require.NotNil(t, bySub)

	byHandle, err := repo.FindByPaymentHandleID(ctx, "seti_9")
	require.NoError(t, err)
	require.NotNil(t, byHandle)

	missing, err := repo.FindBySubscriptionID(ctx, "sub_nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	blank, err := repo.FindByCustomerID(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, blank)
}

func TestAttemptWindowCounting(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()
	s := seedSubmission(t, repo, nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.LogAttempt(ctx, s.SessionID, s.ID))
	}
	// An attempt outside the window must not count.
	old := domain.CheckoutAttempt{
		ID:           snowflake.ID(1),
		SessionID:    s.SessionID,
		SubmissionID: s.ID,
		CreatedAt:    time.Now().UTC().Add(-2 * time.Hour),
	}
	require.NoError(t, db.Create(&old).Error)

	count, err := repo.CountAttemptsSince(ctx, s.SessionID, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestInsertAnalyticsEvent(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.InsertAnalyticsEvent(ctx, &domain.AnalyticsEvent{
		SessionID: "sess-1",
		Name:      "payment_completed",
	}))

	var count int64
	require.NoError(t, db.Model(&domain.AnalyticsEvent{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
