package migration

import (
	"github.com/bell24h/bell24h/internal/config"
	"github.com/bell24h/bell24h/internal/seed"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, genID *snowflake.Node, log *zap.Logger) error {
		if err := Run(conn); err != nil {
			return err
		}
		if cfg.DefaultOrgID == 0 {
			log.Info("no platform organization configured; global ACL administration is disabled")
			return nil
		}
		return seed.EnsurePlatformOrg(conn, genID, snowflake.ID(cfg.DefaultOrgID), snowflake.ID(cfg.BootstrapOwnerID))
	}),
)
