package main

import (
	"context"
	"errors"

	"github.com/angelmondragon/tradeflow-backend/internal/bootstrap"
	"github.com/angelmondragon/tradeflow-backend/pkg/outbox"
	"github.com/angelmondragon/tradeflow-backend/pkg/outbox/registry"
)

const serviceKind = "outbox-publisher"

func main() {
	proc, err := bootstrap.Start(serviceKind)
	if err != nil {
		bootstrap.Exit(serviceKind, err)
	}
	defer proc.Close()

	ctx, stop := proc.SignalContext()
	defer stop()

	dbClient, err := proc.Database(ctx)
	if err != nil {
		proc.Fail(ctx, "failed to bootstrap database", err)
	}
	pubsubClient, err := proc.PubSub(ctx)
	if err != nil {
		proc.Fail(ctx, "failed to bootstrap pubsub", err)
	}

	events, err := registry.NewEventRegistry(proc.Config.PubSub)
	if err != nil {
		proc.Fail(ctx, "failed to build event registry", err)
	}
	rows := outbox.NewRepository(dbClient.DB())
	service, err := NewService(ServiceParams{
		Config:        proc.Config,
		Logger:        proc.Logger,
		DB:            dbClient,
		PubSub:        pubsubClient,
		Repository:    rows,
		Registry:      events,
		DLQRepository: rows,
	})
	if err != nil {
		proc.Fail(ctx, "failed to create outbox publisher", err)
	}

	proc.Logger.Info(ctx, "starting outbox publisher")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		proc.Fail(ctx, "outbox publisher stopped unexpectedly", err)
	}
	proc.Logger.Info(ctx, "outbox publisher drained")
}
