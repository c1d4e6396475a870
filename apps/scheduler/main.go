package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/arusnet/arus/internal/audit"
	"github.com/arusnet/arus/internal/clock"
	"github.com/arusnet/arus/internal/config"
	"github.com/arusnet/arus/internal/customer"
	"github.com/arusnet/arus/internal/internetpackage"
	"github.com/arusnet/arus/internal/invoice"
	"github.com/arusnet/arus/internal/notification"
	"github.com/arusnet/arus/internal/observability"
	"github.com/arusnet/arus/internal/providers"
	"github.com/arusnet/arus/internal/ratelimit"
	"github.com/arusnet/arus/internal/scheduler"
	"github.com/arusnet/arus/internal/session"
	"github.com/arusnet/arus/internal/subscription"
	"github.com/arusnet/arus/internal/systemlog"
	"github.com/arusnet/arus/pkg/db"
)

// Jobs-only deployment. No HTTP server; SCHEDULER_ENABLED_JOBS splits
// the job set across replicas when one instance is not enough.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Domain services the jobs drive
		scheduler.Module,
		subscription.Module,
		invoice.Module,
		session.Module,
		notification.Module,
		systemlog.Module,

		// Transitive dependencies (subscription validates customers and packages)
		customer.Module,
		internetpackage.Module,
		audit.Module,

		// Delivery channels and the optional dispatch lock
		providers.Module,
		ratelimit.Module,
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
