package main

import (
	"context"
	"errors"

	"github.com/angelmondragon/tradeflow-backend/internal/bootstrap"
	"github.com/angelmondragon/tradeflow-backend/internal/notifications"
	"github.com/angelmondragon/tradeflow-backend/pkg/outbox/idempotency"
)

func main() {
	proc, err := bootstrap.Start("worker")
	if err != nil {
		bootstrap.Exit("worker", err)
	}
	defer proc.Close()

	cfg, logg := proc.Config, proc.Logger
	ctx, stop := proc.SignalContext()
	defer stop()

	dbClient, err := proc.Database(ctx)
	if err != nil {
		proc.Fail(ctx, "failed to bootstrap database", err)
	}
	redisClient, err := proc.Redis(ctx)
	if err != nil {
		proc.Fail(ctx, "failed to bootstrap redis", err)
	}
	pubsubClient, err := proc.PubSub(ctx)
	if err != nil {
		proc.Fail(ctx, "failed to bootstrap pubsub", err)
	}

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		proc.Fail(ctx, "failed to create idempotency manager", err)
	}
	consumer, err := notifications.NewConsumer(
		notifications.NewRepository(dbClient.DB()),
		pubsubClient.NotificationSubscription(),
		manager.ForConsumer(notifications.ConsumerName),
		logg,
	)
	if err != nil {
		proc.Fail(ctx, "failed to create notification consumer", err)
	}

	service, err := NewService(ServiceParams{
		Config:               cfg,
		Logger:               logg,
		DB:                   dbClient,
		Redis:                redisClient,
		PubSub:               pubsubClient,
		NotificationConsumer: consumer,
	})
	if err != nil {
		proc.Fail(ctx, "failed to create worker service", err)
	}

	logg.Info(ctx, "starting worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		proc.Fail(ctx, "worker stopped unexpectedly", err)
	}
	logg.Info(ctx, "worker shutting down gracefully")
}
