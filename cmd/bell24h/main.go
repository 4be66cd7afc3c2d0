package main

import (
	"github.com/bell24h/bell24h/internal/acl"
	"github.com/bell24h/bell24h/internal/audit"
	"github.com/bell24h/bell24h/internal/authorization"
	"github.com/bell24h/bell24h/internal/cache"
	"github.com/bell24h/bell24h/internal/clock"
	"github.com/bell24h/bell24h/internal/config"
	"github.com/bell24h/bell24h/internal/migration"
	"github.com/bell24h/bell24h/internal/observability"
	"github.com/bell24h/bell24h/internal/organization"
	"github.com/bell24h/bell24h/internal/server"
	"github.com/bell24h/bell24h/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		cache.Module,
		migration.Module,

		// Domains
		organization.Module,
		audit.Module,
		authorization.Module,
		acl.Module,

		server.Module,
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
