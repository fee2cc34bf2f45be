package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/subsidytracker/subsidytracker/internal/clock"
	"github.com/subsidytracker/subsidytracker/internal/collectionlog"
	"github.com/subsidytracker/subsidytracker/internal/collector"
	"github.com/subsidytracker/subsidytracker/internal/config"
	"github.com/subsidytracker/subsidytracker/internal/migration"
	"github.com/subsidytracker/subsidytracker/internal/scheduler"
	"github.com/subsidytracker/subsidytracker/internal/server"
	"github.com/subsidytracker/subsidytracker/internal/subsidy"
	"github.com/subsidytracker/subsidytracker/pkg/db"
	"github.com/subsidytracker/subsidytracker/pkg/log"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		log.Module,
		fx.Provide(newSnowflakeNode),
		db.Module,
		clock.Module,

		migration.Module,
		subsidy.Module,
		collectionlog.Module,
		collector.Module,
		scheduler.Module,
		server.Module,
	)
	app.Run()
}

func newSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
