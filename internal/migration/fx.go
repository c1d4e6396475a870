package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/arusnet/arus/internal/config"
	"github.com/arusnet/arus/internal/seed"
	"github.com/arusnet/arus/pkg/db"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if db.IsPostgres(conn) {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			if err := AutoMigrate(conn); err != nil {
				return err
			}
		}

		if err := seed.EnsureDefaultTemplates(conn); err != nil {
			return err
		}
		if err := seed.EnsureDefaultSettings(conn); err != nil {
			return err
		}
		if cfg.Bootstrap.EnsureDefaultAdmin {
			return seed.EnsureDefaultAdmin(conn)
		}
		return nil
	}),
)
