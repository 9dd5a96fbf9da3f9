package migration

import (
	"github.com/locafrota/fleetsla/internal/config"
	"github.com/locafrota/fleetsla/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}

		if err := RunMigrations(sqlDB, cfg.DBDriver); err != nil {
			return err
		}

		return seed.EnsureBootstrapAdmin(conn, log, cfg)
	}),
)
