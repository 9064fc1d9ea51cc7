package migration

import (
	"github.com/smallbiznis/relayplan/internal/config"
	"github.com/smallbiznis/relayplan/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(Apply),
)

// Apply bootstraps the schema when DATABASE_AUTO_MIGRATE is enabled.
func Apply(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
	if !cfg.DBAutoMigrate {
		return nil
	}
	log = log.Named("migration")

	if cfg.DBType != db.TypePostgres {
		log.Info("auto-migrating schema", zap.String("dialect", cfg.DBType))
		return AutoMigrate(conn)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	log.Info("applying sql migrations")
	return RunMigrations(sqlDB)
}
