package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/relayplan/internal/clock"
	"github.com/smallbiznis/relayplan/internal/config"
	"github.com/smallbiznis/relayplan/internal/migration"
	"github.com/smallbiznis/relayplan/internal/observability"
	"github.com/smallbiznis/relayplan/internal/order"
	"github.com/smallbiznis/relayplan/internal/planchange"
	"github.com/smallbiznis/relayplan/internal/runlock"
	"github.com/smallbiznis/relayplan/internal/runner"
	"github.com/smallbiznis/relayplan/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		rebuild *runner.Runner
		log     *zap.Logger
	)

	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		order.Module,
		planchange.Module,
		runlock.Module,
		runner.Module,

		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		fx.Populate(&rebuild, &log),
	)
	if err := app.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "planrebuild: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startCtx, cancelStart := context.WithTimeout(ctx, app.StartTimeout())
	defer cancelStart()
	if err := app.Start(startCtx); err != nil {
		log.Error("startup failed", zap.Error(err))
		return 1
	}

	runErr := rebuild.Run(ctx)
	if runErr != nil {
		log.Error("plan rebuild failed", zap.Error(runErr))
	}

	stopCtx, cancelStop := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil {
		fmt.Fprintf(os.Stderr, "planrebuild: shutdown: %v\n", err)
	}

	if runErr != nil {
		return 1
	}
	return 0
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
