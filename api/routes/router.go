package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/tradeflow-backend/api/controllers"
	ordercontrollers "github.com/angelmondragon/tradeflow-backend/api/controllers/orders"
	webhookcontrollers "github.com/angelmondragon/tradeflow-backend/api/controllers/webhooks"
	"github.com/angelmondragon/tradeflow-backend/api/middleware"
	"github.com/angelmondragon/tradeflow-backend/internal/fulfillment"
	"github.com/angelmondragon/tradeflow-backend/internal/inventory"
	"github.com/angelmondragon/tradeflow-backend/internal/notifications"
	"github.com/angelmondragon/tradeflow-backend/internal/payments"
	"github.com/angelmondragon/tradeflow-backend/internal/reconciler"
	"github.com/angelmondragon/tradeflow-backend/pkg/auth"
	"github.com/angelmondragon/tradeflow-backend/pkg/config"
	"github.com/angelmondragon/tradeflow-backend/pkg/db"
	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
	"github.com/angelmondragon/tradeflow-backend/pkg/redis"
)

// cacheStore is the slice of the redis client the router needs: readiness,
// idempotency replay and callback rate limiting.
type cacheStore interface {
	db.Pinger
	redis.ResponseCache
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	cache cacheStore,
	gatherer prometheus.Gatherer,
	paymentsService payments.Service,
	fulfillmentService fulfillment.Service,
	inventoryService inventory.Service,
	reconcilerService reconciler.Service,
	notificationsService notifications.Service,
	returnTokens *auth.ReturnTokenSigner,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbP, cache, logg))
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	callbackPolicy := middleware.NewRateLimitPolicy(
		"gateway-callback",
		cfg.Reconciler.CallbackRateWindow,
		cfg.Reconciler.CallbackRateLimit,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Actor(logg))
		r.Use(middleware.Idempotency(cache, logg))

		// Gateway traffic carries no actor; signatures or re-verification authenticate it.
		callbacks := r.With(middleware.RateLimit(callbackPolicy, cache, logg))
		callbacks.Post("/webhooks/gateway", webhookcontrollers.GatewayWebhook(reconcilerService, cfg.Gateway, logg))
		callbacks.Get("/webhooks/gateway", webhookcontrollers.GatewayCallback(reconcilerService, logg))

		r.Route("/payments", func(r chi.Router) {
			r.With(middleware.RequireActor(logg)).Post("/", controllers.InitiatePayment(paymentsService, logg))
			r.With(middleware.RateLimit(callbackPolicy, cache, logg)).Get("/return", webhookcontrollers.PaymentReturn(reconcilerService, returnTokens, logg))
			r.Get("/{reference}", controllers.GetPayment(paymentsService, logg))
			r.Get("/{reference}/history", controllers.PaymentHistory(paymentsService, logg))
			r.Post("/{reference}/verify", controllers.VerifyPayment(reconcilerService, logg))
		})

		r.Route("/checkouts", func(r chi.Router) {
			r.With(middleware.RequireActor(logg)).Post("/", controllers.StartCheckout(paymentsService, logg))
			r.Get("/{sessionId}", controllers.GetCheckout(paymentsService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(fulfillmentService, logg))
			r.Get("/{id}", ordercontrollers.Detail(fulfillmentService, logg))
			r.Get("/{id}/history", ordercontrollers.History(fulfillmentService, logg))
			r.Post("/{id}/ship", ordercontrollers.Ship(fulfillmentService, logg))
			r.Post("/{id}/confirm-delivery", ordercontrollers.ConfirmDelivery(fulfillmentService, logg))
			r.Post("/{id}/issues", ordercontrollers.ReportIssue(fulfillmentService, logg))
			r.Post("/{id}/cancel", ordercontrollers.Cancel(fulfillmentService, logg))
		})

		r.Route("/inventory/products/{productId}", func(r chi.Router) {
			r.Get("/", controllers.GetInventoryProduct(inventoryService, logg))
			r.Get("/movements", controllers.ProductMovements(inventoryService, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Use(middleware.RequireActor(logg))
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
		})

		r.Route("/admin/webhooks", func(r chi.Router) {
			r.Get("/stats", controllers.WebhookStats(reconcilerService, logg))
			r.Post("/{logId}/replay", controllers.ReplayWebhook(reconcilerService, logg))
		})
	})

	return r
}
