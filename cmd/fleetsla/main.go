package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/locafrota/fleetsla/internal/analysis"
	"github.com/locafrota/fleetsla/internal/assistant"
	"github.com/locafrota/fleetsla/internal/audit"
	"github.com/locafrota/fleetsla/internal/auth"
	"github.com/locafrota/fleetsla/internal/authorization"
	"github.com/locafrota/fleetsla/internal/clientbase"
	"github.com/locafrota/fleetsla/internal/clock"
	"github.com/locafrota/fleetsla/internal/config"
	"github.com/locafrota/fleetsla/internal/deletereq"
	"github.com/locafrota/fleetsla/internal/identity"
	"github.com/locafrota/fleetsla/internal/migration"
	"github.com/locafrota/fleetsla/internal/observability"
	"github.com/locafrota/fleetsla/internal/providers"
	"github.com/locafrota/fleetsla/internal/ratelimit"
	"github.com/locafrota/fleetsla/internal/report"
	"github.com/locafrota/fleetsla/internal/scenario"
	"github.com/locafrota/fleetsla/internal/scheduler"
	"github.com/locafrota/fleetsla/internal/server"
	"github.com/locafrota/fleetsla/internal/ticket"
	"github.com/locafrota/fleetsla/pkg/db"
)

func main() {
	app := fx.New(
		// Core infrastructure
		fx.Provide(config.Load),
		fx.Provide(config.NewSLAConfigHolder),
		fx.Provide(newSnowflakeNode),
		observability.Module,
		db.Module,
		clock.Module,
		migration.Module,

		// Functional domains
		authorization.Module,
		audit.Module,
		identity.Module,
		auth.Module,
		clientbase.Module,
		analysis.Module,
		scenario.Module,
		deletereq.Module,
		ticket.Module,
		report.Module,
		assistant.Module,
		providers.Module,
		ratelimit.Module,

		scheduler.Module,
		server.Module,
	)
	app.Run()
}

func newSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
