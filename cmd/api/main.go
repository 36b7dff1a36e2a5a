package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/tradeflow-backend/api/routes"
	"github.com/angelmondragon/tradeflow-backend/internal/bootstrap"
	"github.com/angelmondragon/tradeflow-backend/internal/engine"
	"github.com/angelmondragon/tradeflow-backend/pkg/env"
)

const shutdownTimeout = 15 * time.Second

func main() {
	proc, err := bootstrap.Start("api")
	if err != nil {
		bootstrap.Exit("api", err)
	}
	defer proc.Close()

	cfg, logg := proc.Config, proc.Logger
	sigCtx, stop := proc.SignalContext()
	defer stop()

	if cfg.Gateway.WebhookSecret == "" {
		logg.Warn(sigCtx, "gateway webhook secret empty; unsigned webhooks accepted in dev")
	}

	dbClient, err := proc.Database(sigCtx)
	if err != nil {
		proc.Fail(sigCtx, "failed to bootstrap database", err)
	}
	redisClient, err := proc.Redis(sigCtx)
	if err != nil {
		proc.Fail(sigCtx, "failed to bootstrap redis", err)
	}

	services, err := engine.New(engine.Params{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient,
		Redis:      redisClient,
		Registerer: prometheus.DefaultRegisterer,
	})
	if err != nil {
		proc.Fail(sigCtx, "failed to wire services", err)
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	ctx := logg.WithField(sigCtx, "addr", addr)
	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			prometheus.DefaultGatherer,
			services.Payments,
			services.Fulfillment,
			services.Inventory,
			services.Reconciler,
			services.Notifications,
			services.ReturnTokens,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	logg.Info(ctx, "api server listening")

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			proc.Fail(ctx, "api server stopped unexpectedly", err)
		}
	case <-sigCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
		logg.Info(ctx, "api server stopped")
	}
}
