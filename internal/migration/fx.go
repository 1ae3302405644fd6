package migration

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/clock"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/config"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/ratelimit"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/seed"
	"github.com/vebinua/it-staff-check-2.0-sub001/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type params struct {
	fx.In

	Lifecycle fx.Lifecycle
	DB        *gorm.DB
	DBConfig  db.Config
	Config    config.Config
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Locker    *ratelimit.Locker `optional:"true"`
}

var Module = fx.Module("migrations",
	fx.Invoke(func(p params) {
		log := p.Log.Named("migration")
		p.Lifecycle.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := Migrate(p.DB.WithContext(ctx), p.DBConfig.Type); err != nil {
					return err
				}
				log.Info("schema up to date", zap.String("type", p.DBConfig.Type))

				return seed.EnsureBootstrapAdmin(ctx, seed.Params{
					DB:        p.DB,
					Bootstrap: p.Config.Bootstrap,
					GenID:     p.GenID,
					Clock:     p.Clock,
					Locker:    p.Locker,
					Log:       log,
				})
			},
		})
	}),
)
