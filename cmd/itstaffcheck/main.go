package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/clock"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/config"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/migration"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/observability"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/scheduler"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/server"
	"github.com/vebinua/it-staff-check-2.0-sub001/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Schema and bootstrap admin run before the listener starts.
		migration.Module,
		server.Module,
		scheduler.Module,

		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
