package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clinicbill/internal/audit"
	"github.com/smallbiznis/clinicbill/internal/cache"
	"github.com/smallbiznis/clinicbill/internal/clock"
	"github.com/smallbiznis/clinicbill/internal/config"
	"github.com/smallbiznis/clinicbill/internal/invoice"
	"github.com/smallbiznis/clinicbill/internal/observability"
	"github.com/smallbiznis/clinicbill/internal/sequence"
	"github.com/smallbiznis/clinicbill/internal/server"
	"github.com/smallbiznis/clinicbill/internal/settings"
	"github.com/smallbiznis/clinicbill/internal/store"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		clock.Module,
		store.Module,
		cache.Module,

		// Functional Domains
		audit.Module,
		settings.Module,
		sequence.Module,
		invoice.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
