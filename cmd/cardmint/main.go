package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/cardmint/cardmint/internal/billingevent"
	"github.com/cardmint/cardmint/internal/clock"
	"github.com/cardmint/cardmint/internal/config"
	"github.com/cardmint/cardmint/internal/credential"
	"github.com/cardmint/cardmint/internal/gateway"
	"github.com/cardmint/cardmint/internal/invoice"
	"github.com/cardmint/cardmint/internal/logger"
	"github.com/cardmint/cardmint/internal/metrics"
	"github.com/cardmint/cardmint/internal/migration"
	"github.com/cardmint/cardmint/internal/providers/email"
	"github.com/cardmint/cardmint/internal/providers/pdf"
	"github.com/cardmint/cardmint/internal/ratelimit"
	"github.com/cardmint/cardmint/internal/secretbox"
	"github.com/cardmint/cardmint/internal/server"
	"github.com/cardmint/cardmint/internal/subscription"
	"github.com/cardmint/cardmint/internal/tenant"
	"github.com/cardmint/cardmint/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		clock.Module,
		metrics.Module,
		fx.Provide(RegisterSnowflake),
		fx.Provide(RegisterSecretbox),
		db.Module,
		migration.Module,
		ratelimit.Module,

		// Providers
		gateway.Module,
		email.Module,
		pdf.Module,

		// Functional domains
		tenant.Module,
		credential.Module,
		subscription.Module,
		invoice.Module,
		billingevent.Module,

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

func RegisterSecretbox(cfg config.Config) (*secretbox.Codec, error) {
	return secretbox.New(cfg.MasterSecret)
}
