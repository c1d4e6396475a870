package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/arusnet/arus/internal/clock"
	"github.com/arusnet/arus/internal/migration"
	"github.com/arusnet/arus/internal/observability"
	"github.com/arusnet/arus/internal/server"
	"github.com/arusnet/arus/pkg/db"
)

// HTTP-only deployment. Migrations run here because the API instance is
// the first one up in a split rollout; the scheduler binary assumes the
// schema exists.
func main() {
	app := fx.New(
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		server.Module,
		migration.Module,
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
