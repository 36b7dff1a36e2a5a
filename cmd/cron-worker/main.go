package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/tradeflow-backend/internal/bootstrap"
	"github.com/angelmondragon/tradeflow-backend/internal/cron"
	"github.com/angelmondragon/tradeflow-backend/internal/engine"
	"github.com/angelmondragon/tradeflow-backend/pkg/config"
	"github.com/angelmondragon/tradeflow-backend/pkg/db"
	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
	"github.com/angelmondragon/tradeflow-backend/pkg/metrics"
)

const lockKeyFormat = "cron-worker:%s"

func main() {
	proc, err := bootstrap.Start("cron-worker")
	if err != nil {
		bootstrap.Exit("cron-worker", err)
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

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		proc.Fail(ctx, "failed to create cron lock", err)
	}
	services, err := engine.New(engine.Params{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient,
		Redis:      redisClient,
		Registerer: prometheus.DefaultRegisterer,
	})
	if err != nil {
		proc.Fail(ctx, "failed to wire services", err)
	}
	jobs, err := buildJobs(cfg, logg, dbClient, services)
	if err != nil {
		proc.Fail(ctx, "failed to build cron jobs", err)
	}
	registry, err := cron.NewRegistry(jobs...)
	if err != nil {
		proc.Fail(ctx, "failed to register cron jobs", err)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		proc.Fail(ctx, "failed to create cron service", err)
	}

	logg.Info(logg.WithField(ctx, "jobs", registry.Names()), "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		proc.Fail(ctx, "cron worker stopped unexpectedly", err)
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildJobs(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, services *engine.Services) ([]cron.Job, error) {
	sweep, err := cron.NewPendingPaymentSweepJob(cron.PendingPaymentSweepJobParams{
		Logger:     logg,
		Reconciler: services.Reconciler,
		OlderThan:  cfg.Payments.PendingSweepAge,
		BatchSize:  cfg.Payments.PendingSweepBatch,
	})
	if err != nil {
		return nil, fmt.Errorf("pending payment sweep: %w", err)
	}
	replay, err := cron.NewWebhookReplayJob(cron.WebhookReplayJobParams{
		Logger:     logg,
		Reconciler: services.Reconciler,
		BatchSize:  cfg.Reconciler.ReplayBatchSize,
	})
	if err != nil {
		return nil, fmt.Errorf("webhook replay: %w", err)
	}
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: services.OutboxRepo,
		Retention:  cfg.Outbox.Retention,
	})
	if err != nil {
		return nil, fmt.Errorf("outbox retention: %w", err)
	}
	cleanup, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: services.NotificationRepo,
		Retention:  cfg.Cron.NotificationRetention,
	})
	if err != nil {
		return nil, fmt.Errorf("notification cleanup: %w", err)
	}
	return []cron.Job{sweep, replay, retention, cleanup}, nil
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
