// Package migration applies the schema. It must be run explicitly by the
// migrate entrypoint; serve never mutates the schema.
package migration

import (
	"context"
	"errors"
	"time"

	submissiondomain "github.com/sitewandlabs/sitewand/internal/submission/domain"
	webhookdomain "github.com/sitewandlabs/sitewand/internal/webhook/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Run migrates all domain models. On postgres a session advisory lock
// serializes concurrent migrator processes; sqlite has no advisory locks
// and single-writer semantics make them unnecessary there.
func Run(db *gorm.DB, log *zap.Logger) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if db.Dialector.Name() == "postgres" {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		unlock, err := acquireAdvisoryLock(ctx, sqlDB)
		if err != nil {
			return err
		}
		defer func() {
			if err := unlock(context.Background()); err != nil {
				log.Warn("failed to release migration lock", zap.Error(err))
			}
		}()
	}

	if err := db.WithContext(ctx).AutoMigrate(
		&submissiondomain.Submission{},
		&submissiondomain.CheckoutAttempt{},
		&submissiondomain.AnalyticsEvent{},
		&webhookdomain.EventRecord{},
	); err != nil {
		return err
	}

	log.Info("schema migrated")
	return nil
}
