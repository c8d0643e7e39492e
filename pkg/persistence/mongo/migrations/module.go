package migrations

import (
	"github.com/Sokol111/ecommerce-product-service/pkg/persistence/mongo"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewMigrationsModule() fx.Option {
	return fx.Provide(
		newConfig,
		provideMigrator,
	)
}

func provideMigrator(log *zap.Logger, conf Config, m mongo.Admin) Migrator {
	log.Info("migrator available",
		zap.Duration("locking-timeout", conf.GetLockingTimeoutDuration()))
	return newMigrator(m.GetDatabase(), log, conf.LockingTimeout)
}
