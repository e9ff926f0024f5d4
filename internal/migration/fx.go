package migration

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(db *gorm.DB, log *zap.Logger) error {
		return Run(db, log)
	}),
)
