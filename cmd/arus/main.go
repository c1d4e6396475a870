package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/arusnet/arus/internal/clock"
	"github.com/arusnet/arus/internal/cloudmetrics"
	"github.com/arusnet/arus/internal/migration"
	"github.com/arusnet/arus/internal/observability"
	"github.com/arusnet/arus/internal/scheduler"
	"github.com/arusnet/arus/internal/server"
	"github.com/arusnet/arus/pkg/db"
)

// The monolith: HTTP API, scheduler and migrations in one process. The
// split binaries under apps/ carve the same modules into separate
// deployments.
func main() {
	app := fx.New(
		// Core infrastructure
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Functional surfaces
		server.Module,
		scheduler.Module,
		migration.Module,
		cloudmetrics.Module,
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
