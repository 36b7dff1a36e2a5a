// Package engine assembles the reconciliation services shared by the api and
// cron-worker binaries.
package engine

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/tradeflow-backend/internal/fulfillment"
	"github.com/angelmondragon/tradeflow-backend/internal/inventory"
	"github.com/angelmondragon/tradeflow-backend/internal/ledger"
	"github.com/angelmondragon/tradeflow-backend/internal/notifications"
	"github.com/angelmondragon/tradeflow-backend/internal/payments"
	"github.com/angelmondragon/tradeflow-backend/internal/reconciler"
	"github.com/angelmondragon/tradeflow-backend/internal/suppliers"
	"github.com/angelmondragon/tradeflow-backend/internal/users"
	"github.com/angelmondragon/tradeflow-backend/pkg/auth"
	"github.com/angelmondragon/tradeflow-backend/pkg/config"
	"github.com/angelmondragon/tradeflow-backend/pkg/db"
	"github.com/angelmondragon/tradeflow-backend/pkg/gateway"
	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
	"github.com/angelmondragon/tradeflow-backend/pkg/metrics"
	"github.com/angelmondragon/tradeflow-backend/pkg/outbox"
	"github.com/angelmondragon/tradeflow-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/tradeflow-backend/pkg/redis"
)

type Params struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         *db.Client
	Redis      *redis.Client
	Registerer prometheus.Registerer
}

type Services struct {
	Payments         payments.Service
	Fulfillment      fulfillment.Service
	Inventory        inventory.Service
	Reconciler       reconciler.Service
	Notifications    notifications.Service
	NotificationRepo *notifications.Repository
	OutboxRepo       *outbox.Repository
	ReturnTokens     *auth.ReturnTokenSigner
	Metrics          *metrics.ReconcileMetrics
}

func New(p Params) (*Services, error) {
	switch {
	case p.Config == nil:
		return nil, errors.New("config is required")
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	case p.DB == nil:
		return nil, errors.New("database client is required")
	case p.Redis == nil:
		return nil, errors.New("redis client is required")
	}
	cfg := p.Config
	gormDB := p.DB.DB()

	registerer := p.Registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	reconcileMetrics := metrics.NewReconcileMetrics(registerer)

	gatewayClient, err := gateway.NewClient(
		cfg.Gateway.SecretKey,
		gateway.WithBaseURL(cfg.Gateway.BaseURL),
		gateway.WithTimeout(cfg.Gateway.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("gateway client: %w", err)
	}
	gw := gateway.WithObserver(gatewayClient, reconcileMetrics)

	outboxRepo := outbox.NewRepository(gormDB)
	emitter := outbox.NewService(outboxRepo, p.Logger)

	notifier, err := notifications.NewOutboxNotifier(p.DB, emitter, p.Logger)
	if err != nil {
		return nil, fmt.Errorf("notifier: %w", err)
	}
	notificationRepo := notifications.NewRepository(gormDB)
	notificationService, err := notifications.NewService(notificationRepo)
	if err != nil {
		return nil, fmt.Errorf("notifications service: %w", err)
	}

	ledgerService, err := ledger.NewService(ledger.NewRepository(gormDB))
	if err != nil {
		return nil, fmt.Errorf("ledger service: %w", err)
	}

	inventoryService, err := inventory.NewService(inventory.NewRepository(gormDB), emitter, p.Logger)
	if err != nil {
		return nil, fmt.Errorf("inventory service: %w", err)
	}

	fulfillmentService, err := fulfillment.NewService(fulfillment.ServiceParams{
		Repo:     fulfillment.NewRepository(gormDB),
		Tx:       p.DB,
		Stock:    inventoryService,
		Outbox:   emitter,
		Notifier: notifier,
		Metrics:  reconcileMetrics,
		Logger:   p.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("fulfillment service: %w", err)
	}

	references, err := payments.NewReferenceGenerator(cfg.Payments.ReferencePrefix, cfg.Gateway.MaxReferenceLen)
	if err != nil {
		return nil, fmt.Errorf("reference generator: %w", err)
	}
	returnTokens, err := auth.NewReturnTokenSigner(cfg.Payments.ReturnTokenSecret, cfg.Payments.ReturnTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("return token signer: %w", err)
	}

	paymentsRepo := payments.NewRepository(gormDB)
	paymentsService, err := payments.NewService(payments.ServiceParams{
		Repo:       paymentsRepo,
		Tx:         p.DB,
		Gateway:    gw,
		References: references,
		Ledger:     ledgerService,
		Payers:     users.NewRepository(gormDB),
		Suppliers:  suppliers.NewRepository(gormDB),
		Tokens:     returnTokens,
		Payments:   cfg.Payments,
		GatewayCfg: cfg.Gateway,
		PublicURL:  cfg.App.PublicURL,
		Logger:     p.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("payments service: %w", err)
	}

	guard, err := idempotency.NewManager(p.Redis, cfg.Reconciler.WebhookIdempotencyTTL)
	if err != nil {
		return nil, fmt.Errorf("webhook guard: %w", err)
	}

	reconcilerService, err := reconciler.NewService(reconciler.ServiceParams{
		Logs:          reconciler.NewLogRepository(gormDB),
		Payments:      paymentsRepo,
		Tx:            p.DB,
		Gateway:       gw,
		Ledger:        ledgerService,
		Fulfillment:   fulfillmentService,
		Guard:         guard,
		Notifier:      notifier,
		Metrics:       reconcileMetrics,
		GatewayCfg:    cfg.Gateway,
		Reconciler:    cfg.Reconciler,
		AllowUnsigned: cfg.App.IsDev(),
		Logger:        p.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("reconciler service: %w", err)
	}

	return &Services{
		Payments:         paymentsService,
		Fulfillment:      fulfillmentService,
		Inventory:        inventoryService,
		Reconciler:       reconcilerService,
		Notifications:    notificationService,
		NotificationRepo: notificationRepo,
		OutboxRepo:       outboxRepo,
		ReturnTokens:     returnTokens,
		Metrics:          reconcileMetrics,
	}, nil
}
