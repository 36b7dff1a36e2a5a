package reconciler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradeflow-backend/internal/fulfillment"
	"github.com/angelmondragon/tradeflow-backend/internal/inventory"
	"github.com/angelmondragon/tradeflow-backend/internal/ledger"
	"github.com/angelmondragon/tradeflow-backend/internal/notifications"
	"github.com/angelmondragon/tradeflow-backend/internal/payments"
	"github.com/angelmondragon/tradeflow-backend/pkg/config"
	dbpkg "github.com/angelmondragon/tradeflow-backend/pkg/db"
	"github.com/angelmondragon/tradeflow-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradeflow-backend/pkg/errors"
	"github.com/angelmondragon/tradeflow-backend/pkg/gateway"
	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
	"github.com/angelmondragon/tradeflow-backend/pkg/metrics"
	"github.com/angelmondragon/tradeflow-backend/pkg/outbox"
	"github.com/angelmondragon/tradeflow-backend/pkg/types"
)

const testSecret = "whsec_test"

type stubGateway struct {
	mu       sync.Mutex
	verifyFn func(reference string) (*gateway.VerifyResponse, error)
	verified []string
}

func (g *stubGateway) Create(context.Context, gateway.CreateRequest) (*gateway.CreateResponse, error) {
	return nil, errors.New("not used")
}

func (g *stubGateway) Verify(_ context.Context, reference string) (*gateway.VerifyResponse, error) {
	g.mu.Lock()
	g.verified = append(g.verified, reference)
	fn := g.verifyFn
	g.mu.Unlock()
	if fn == nil {
		return nil, errors.New("verify not configured")
	}
	return fn(reference)
}

type memoryGuard struct {
	mu   sync.Mutex
	keys map[string]bool
	err  error
}

func (g *memoryGuard) CheckAndMark(_ context.Context, scope, id string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return false, g.err
	}
	if g.keys == nil {
		g.keys = map[string]bool{}
	}
	key := scope + ":" + id
	if g.keys[key] {
		return true, nil
	}
	g.keys[key] = true
	return false, nil
}

func (g *memoryGuard) Release(_ context.Context, scope, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.keys, scope+":"+id)
	return nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	notes []notifications.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, notes ...notifications.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, notes...)
}

func (r *recordingNotifier) count(kind enums.NotificationType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, note := range r.notes {
		if note.Type == kind {
			n++
		}
	}
	return n
}

type fixture struct {
	db       *gorm.DB
	svc      Service
	gw       *stubGateway
	guard    *memoryGuard
	notifier *recordingNotifier
	reg      *prometheus.Registry
	supplier *models.Supplier
	product  *models.SupplierProduct
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	tx := dbpkg.Wrap(conn)
	emitter := outbox.NewService(outbox.NewRepository(conn), nil)
	reg := prometheus.NewRegistry()
	recorder := metrics.NewReconcileMetrics(reg)
	notifier := &recordingNotifier{}

	stock, err := inventory.NewService(inventory.NewRepository(conn), emitter, logg)
	require.NoError(t, err)
	orders, err := fulfillment.NewService(fulfillment.ServiceParams{
		Repo:     fulfillment.NewRepository(conn),
		Tx:       tx,
		Stock:    stock,
		Outbox:   emitter,
		Notifier: notifier,
		Metrics:  recorder,
		Logger:   logg,
	})
	require.NoError(t, err)
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
	require.NoError(t, err)

	gw := &stubGateway{}
	guard := &memoryGuard{}
	svc, err := NewService(ServiceParams{
		Logs:        NewLogRepository(conn),
		Payments:    payments.NewRepository(conn),
		Tx:          tx,
		Gateway:     gw,
		Ledger:      ledgerSvc,
		Fulfillment: orders,
		Guard:       guard,
		Notifier:    notifier,
		Metrics:     recorder,
		GatewayCfg:  config.GatewayConfig{WebhookSecret: testSecret, Timeout: time.Second},
		Reconciler:  config.ReconcilerConfig{ReplayMaxAttempts: 3},
		Logger:      logg,
	})
	require.NoError(t, err)

	supplier := &models.Supplier{Name: "Bole Wholesale", Email: "orders@bole.example", IsActive: true, DeliveryLeadDays: 3}
	require.NoError(t, conn.Create(supplier).Error)
	product := &models.SupplierProduct{SupplierID: supplier.ID, Name: "Teff", SKU: "TEFF-25", UnitPrice: decimal.NewFromInt(250), StockQuantity: 40, IsActive: true}
	require.NoError(t, conn.Create(product).Error)

	return &fixture{db: conn, svc: svc, gw: gw, guard: guard, notifier: notifier, reg: reg, supplier: supplier, product: product}
}

func (f *fixture) attempt(t *testing.T, payerID uuid.UUID) *models.PaymentAttempt {
	t.Helper()
	attempt := &models.PaymentAttempt{
		Reference:   "EZM-" + uuid.NewString()[:12],
		PayerID:     payerID,
		SupplierID:  f.supplier.ID,
		Amount:      decimal.NewFromInt(1000),
		Currency:    enums.CurrencyETB,
		State:       enums.PaymentStatePending,
		CheckoutURL: "https://checkout.example",
		LineItems: types.LineItemSnapshots{
			{ProductID: f.product.ID, Name: "Teff", Quantity: 4, UnitPrice: decimal.NewFromInt(250)},
		},
	}
	require.NoError(t, f.db.Create(attempt).Error)
	return attempt
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) *models.PaymentAttempt {
	t.Helper()
	var attempt models.PaymentAttempt
	require.NoError(t, f.db.First(&attempt, "id = ?", id).Error)
	return &attempt
}

func (f *fixture) webhookLog(t *testing.T, id uuid.UUID) *models.WebhookLog {
	t.Helper()
	var entry models.WebhookLog
	require.NoError(t, f.db.First(&entry, "id = ?", id).Error)
	return &entry
}

func (f *fixture) count(t *testing.T, model any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Where(where, args...).Count(&n).Error)
	return n
}

func signedWebhook(t *testing.T, reference, status string, amount string) Input {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"tx_ref":   reference,
		"status":   status,
		"amount":   amount,
		"currency": "ETB",
	})
	require.NoError(t, err)
	note, err := ParseWebhook(body)
	require.NoError(t, err)
	return Input{
		Channel:       enums.ChannelWebhook,
		Reference:     note.Reference,
		ReportedState: note.Status,
		Payload:       body,
		Signature:     gateway.Sign(body, testSecret),
		Amount:        note.Amount,
		Currency:      note.Currency,
	}
}

func verifiedAs(state enums.PaymentState, amount int64) func(string) (*gateway.VerifyResponse, error) {
	return func(reference string) (*gateway.VerifyResponse, error) {
		return &gateway.VerifyResponse{
			Reference:      reference,
			ReportedStatus: state.String(),
			State:          state,
			Amount:         decimal.NewFromInt(amount),
			Currency:       enums.CurrencyETB,
			Raw:            json.RawMessage(`{"status":"` + state.String() + `"}`),
		}, nil
	}
}

func reconciliations(t *testing.T, reg *prometheus.Registry, channel, outcome string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != "tradeflow_payments_reconciliations_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			if label(m, "channel") == channel && label(m, "outcome") == outcome {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func label(m *dto.Metric, name string) string {
	for _, pair := range m.GetLabel() {
		if pair.GetName() == name {
			return pair.GetValue()
		}
	}
	return ""
}

func TestWebhookSuccessSettlesOnceAndCreatesOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	attempt := f.attempt(t, uuid.New())
	input := signedWebhook(t, attempt.Reference, "success", "1000.00")

	res, err := f.svc.Reconcile(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, enums.ReconcileApplied, res.Outcome)
	assert.Equal(t, enums.PaymentStateSuccess, res.State)
	require.NotNil(t, res.OrderID)

	stored := f.reload(t, attempt.ID)
	assert.Equal(t, enums.PaymentStateSuccess, stored.State)
	require.NotNil(t, stored.SettledVia)
	assert.Equal(t, enums.ChannelWebhook, *stored.SettledVia)
	require.NotNil(t, stored.SettledAt)

	var order models.FulfillmentOrder
	require.NoError(t, f.db.First(&order, "id = ?", *res.OrderID).Error)
	assert.Equal(t, enums.FulfillmentPaymentConfirmed, order.Status)
	assert.Equal(t, int64(1), f.count(t, &models.LedgerEvent{}, "payment_attempt_id = ? AND type = ?", attempt.ID, enums.LedgerEventSettledSuccess))
	assert.Equal(t, 2, f.notifier.count(enums.NotificationPaymentConfirmed))

	entry := f.webhookLog(t, res.LogID)
	assert.True(t, entry.Processed)
	assert.True(t, entry.SignatureValid)
	require.NotNil(t, entry.PaymentAttemptID)
	assert.Equal(t, attempt.ID, *entry.PaymentAttemptID)
	require.NotNil(t, entry.Outcome)
	assert.Equal(t, "applied", *entry.Outcome)

	again, err := f.svc.Reconcile(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, enums.ReconcileDuplicate, again.Outcome)
	assert.Equal(t, enums.PaymentStateSuccess, again.State)
	assert.Equal(t, int64(1), f.count(t, &models.FulfillmentOrder{}, "payment_attempt_id = ?", attempt.ID))
	assert.Equal(t, 2, f.notifier.count(enums.NotificationPaymentConfirmed))
	assert.Equal(t, int64(2), f.count(t, &models.WebhookLog{}, "reference = ?", attempt.Reference))
	assert.Equal(t, float64(1), reconciliations(t, f.reg, "webhook", "applied"))
	assert.Equal(t, float64(1), reconciliations(t, f.reg, "webhook", "duplicate"))
}

func TestConcurrentWebhooksSettleExactlyOnce(t *testing.T) {
	f := newFixture(t)
	f.guard.err = errors.New("redis down")
	attempt := f.attempt(t, uuid.New())
	input := signedWebhook(t, attempt.Reference, "success", "1000.00")

	const deliveries = 5
	outcomes := make(chan enums.ReconcileOutcome, deliveries)
	var wg sync.WaitGroup
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.svc.Reconcile(context.Background(), input)
			if err != nil {
				outcomes <- enums.ReconcileFailed
				return
			}
			outcomes <- res.Outcome
		}()
	}
	wg.Wait()
	close(outcomes)

	applied := 0
	for outcome := range outcomes {
		switch outcome {
		case enums.ReconcileApplied:
			applied++
		case enums.ReconcileAlreadySettled:
		default:
			t.Fatalf("unexpected outcome %s", outcome)
		}
	}
	assert.Equal(t, 1, applied)
	assert.Equal(t, int64(1), f.count(t, &models.FulfillmentOrder{}, "payment_attempt_id = ?", attempt.ID))
	assert.Equal(t, int64(1), f.count(t, &models.LedgerEvent{}, "payment_attempt_id = ? AND type = ?", attempt.ID, enums.LedgerEventSettledSuccess))
}

func TestLaterFailureDoesNotRegressSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	attempt := f.attempt(t, uuid.New())

	_, err := f.svc.Reconcile(ctx, signedWebhook(t, attempt.Reference, "success", "1000.00"))
	require.NoError(t, err)

	res, err := f.svc.Reconcile(ctx, signedWebhook(t, attempt.Reference, "failed", "1000.00"))
	require.NoError(t, err)
	assert.Equal(t, enums.ReconcileAlreadySettled, res.Outcome)
	assert.Equal(t, enums.PaymentStateSuccess, res.State)
	require.NotNil(t, res.OrderID)
	assert.Equal(t, enums.PaymentStateSuccess, f.reload(t, attempt.ID).State)
	assert.Zero(t, f.notifier.count(enums.NotificationPaymentFailed))
}

func TestWebhookWithBadSignatureIsLoggedAndRejected(t *testing.T) {
	f := newFixture(t)
	attempt := f.attempt(t, uuid.New())
	input := signedWebhook(t, attempt.Reference, "success", "1000.00")
	input.Signature = gateway.Sign(input.Payload, "someone-else")

	_, err := f.svc.Reconcile(context.Background(), input)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	assert.Equal(t, enums.PaymentStatePending, f.reload(t, attempt.ID).State)

	var entry models.WebhookLog
	require.NoError(t, f.db.First(&entry, "reference = ?", attempt.Reference).Error)
	assert.False(t, entry.SignatureValid)
	assert.True(t, entry.Processed)
	assert.Nil(t, entry.PaymentAttemptID)
	require.NotNil(t, entry.Outcome)
	assert.Equal(t, "rejected", *entry.Outcome)
	assert.Empty(t, f.guard.keys)
}

func TestWebhookForUnknownReferenceTakesNoAction(t *testing.T) {
	f := newFixture(t)
	input := signedWebhook(t, "EZM-DOESNOTEXIST", "success", "1000.00")

	_, err := f.svc.Reconcile(context.Background(), input)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assert.Zero(t, f.count(t, &models.PaymentAttempt{}, "reference = ?", "EZM-DOESNOTEXIST"))
	assert.Zero(t, f.count(t, &models.FulfillmentOrder{}, "1 = 1"))

	var entry models.WebhookLog
	require.NoError(t, f.db.First(&entry, "reference = ?", "EZM-DOESNOTEXIST").Error)
	assert.True(t, entry.Processed)
	require.NotNil(t, entry.ProcessingError)
	assert.Empty(t, f.guard.keys)
}

func TestWebhookFailureCancelsAttemptAndNotifiesPayer(t *testing.T) {
	f := newFixture(t)
	attempt := f.attempt(t, uuid.New())

	res, err := f.svc.Reconcile(context.Background(), signedWebhook(t, attempt.Reference, "failed", ""))
	require.NoError(t, err)
	assert.Equal(t, enums.ReconcileApplied, res.Outcome)
	assert.Equal(t, enums.PaymentStateFailed, res.State)
	assert.Nil(t, res.OrderID)

	stored := f.reload(t, attempt.ID)
	assert.Equal(t, enums.PaymentStateFailed, stored.State)
	require.NotNil(t, stored.FailureReason)
	assert.Equal(t, 1, f.notifier.count(enums.NotificationPaymentFailed))
	assert.Zero(t, f.count(t, &models.FulfillmentOrder{}, "payment_attempt_id = ?", attempt.ID))
}

func TestUnknownReportedStateStaysPending(t *testing.T) {
	f := newFixture(t)
	attempt := f.attempt(t, uuid.New())

	res, err := f.svc.Reconcile(context.Background(), signedWebhook(t, attempt.Reference, "processing", "1000.00"))
	require.NoError(t, err)
	assert.Equal(t, enums.ReconcilePending, res.Outcome)

	stored := f.reload(t, attempt.ID)
	assert.Equal(t, enums.PaymentStatePending, stored.State)
	assert.NotEmpty(t, stored.LastPayload)
}

func TestAmountMismatchBlocksSuccess(t *testing.T) {
	f := newFixture(t)
	attempt := f.attempt(t, uuid.New())

	res, err := f.svc.Reconcile(context.Background(), signedWebhook(t, attempt.Reference, "success", "10.00"))
	require.NoError(t, err)
	assert.Equal(t, enums.ReconcileRejected, res.Outcome)
	assert.Equal(t, enums.PaymentStatePending, f.reload(t, attempt.ID).State)
	assert.Equal(t, int64(1), f.count(t, &models.LedgerEvent{}, "payment_attempt_id = ? AND type = ?", attempt.ID, enums.LedgerEventAmountMismatch))

	entry := f.webhookLog(t, res.LogID)
	assert.True(t, entry.Processed)
	require.NotNil(t, entry.ProcessingError)
	assert.Contains(t, *entry.ProcessingError, "amount mismatch")
}

func TestCorrectWebhookAfterAmountMismatchSettles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	attempt := f.attempt(t, uuid.New())

	first, err := f.svc.Reconcile(ctx, signedWebhook(t, attempt.Reference, "success", "10.00"))
	require.NoError(t, err)
	assert.Equal(t, enums.ReconcileRejected, first.Outcome)
	assert.Empty(t, f.guard.keys)

	second, err := f.svc.Reconcile(ctx, signedWebhook(t, attempt.Reference, "success", "1000.00"))
	require.NoError(t, err)
	assert.Equal(t, enums.ReconcileApplied, second.Outcome)
	assert.Equal(t, enums.PaymentStateSuccess, f.reload(t, attempt.ID).State)
	assert.Len(t, f.guard.keys, 1)
}

func TestPendingWebhookDoesNotShadowLaterDelivery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	attempt := f.attempt(t, uuid.New())

	for i := 0; i < 2; i++ {
		res, err := f.svc.Reconcile(ctx, signedWebhook(t, attempt.Reference, "processing", "1000.00"))
		require.NoError(t, err)
		assert.Equal(t, enums.ReconcilePending, res.Outcome, "delivery %d", i)
	}
	assert.Empty(t, f.guard.keys)
}

func TestReturnChannelReverifiesWithGateway(t *testing.T) {
	f := newFixture(t)
	attempt := f.attempt(t, uuid.New())
	f.gw.verifyFn = verifiedAs(enums.PaymentStateSuccess, 1000)

	// The redirect claims failure but the gateway is authoritative.
	res, err := f.svc.Reconcile(context.Background(), Input{
		Channel:       enums.ChannelReturn,
		Reference:     attempt.Reference,
		ReportedState: "failed",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.ReconcileApplied, res.Outcome)
	assert.Equal(t, enums.PaymentStateSuccess, res.State)
	assert.Equal(t, []string{attempt.Reference}, f.gw.verified)

	stored := f.reload(t, attempt.ID)
	require.NotNil(t, stored.SettledVia)
	assert.Equal(t, enums.ChannelReturn, *stored.SettledVia)
}

func TestReturnWithoutReferenceFallsBackToLatestPending(t *testing.T) {
	f := newFixture(t)
	payer := uuid.New()
	older := f.attempt(t, payer)
	require.NoError(t, f.db.Model(older).UpdateColumn("created_at", time.Now().Add(-time.Hour)).Error)
	latest := f.attempt(t, payer)
	f.gw.verifyFn = verifiedAs(enums.PaymentStateSuccess, 1000)

	res, err := f.svc.Reconcile(context.Background(), Input{Channel: enums.ChannelReturn, PayerID: &payer})
	require.NoError(t, err)
	assert.Equal(t, latest.Reference, res.Reference)
	assert.Equal(t, enums.ReconcileApplied, res.Outcome)
	assert.Equal(t, enums.PaymentStatePending, f.reload(t, older.ID).State)

	entry := f.webhookLog(t, res.LogID)
	assert.Equal(t, latest.Reference, entry.Reference)
}

func TestReturnWithoutReferenceOrPayerIsRejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Reconcile(context.Background(), Input{Channel: enums.ChannelReturn})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestPollWithoutReferenceIsValidationError(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Reconcile(context.Background(), Input{Channel: enums.ChannelPoll})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestVerifyFailureKeepsPendingAndReplaySettles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	attempt := f.attempt(t, uuid.New())
	f.gw.verifyFn = func(string) (*gateway.VerifyResponse, error) {
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "verify timed out")
	}

	res, err := f.svc.Reconcile(ctx, Input{Channel: enums.ChannelPoll, Reference: attempt.Reference})
	require.NoError(t, err)
	assert.Equal(t, enums.ReconcilePending, res.Outcome)
	assert.Equal(t, enums.PaymentStatePending, f.reload(t, attempt.ID).State)
	assert.Equal(t, int64(1), f.count(t, &models.LedgerEvent{}, "payment_attempt_id = ? AND type = ?", attempt.ID, enums.LedgerEventVerifyFailed))
	assert.False(t, f.webhookLog(t, res.LogID).Processed)

	f.gw.verifyFn = verifiedAs(enums.PaymentStateSuccess, 1000)
	replayed, err := f.svc.ReplayFailed(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, replayed)

	entry := f.webhookLog(t, res.LogID)
	assert.True(t, entry.Processed)
	assert.Equal(t, 1, entry.Attempts)
	assert.Nil(t, entry.ProcessingError)
	assert.Equal(t, enums.PaymentStateSuccess, f.reload(t, attempt.ID).State)

	_, err = f.svc.Replay(ctx, res.LogID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestReplayRejectsUnsignedLog(t *testing.T) {
	f := newFixture(t)
	attempt := f.attempt(t, uuid.New())
	input := signedWebhook(t, attempt.Reference, "success", "1000.00")
	input.Signature = "bogus"
	_, err := f.svc.Reconcile(context.Background(), input)
	require.Error(t, err)

	var entry models.WebhookLog
	require.NoError(t, f.db.First(&entry, "reference = ?", attempt.Reference).Error)
	_, err = f.svc.Replay(context.Background(), entry.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	_, err = f.svc.Replay(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestSweepPendingSettlesStaleAttempts(t *testing.T) {
	f := newFixture(t)
	stale := f.attempt(t, uuid.New())
	require.NoError(t, f.db.Model(stale).UpdateColumn("created_at", time.Now().Add(-time.Hour)).Error)
	fresh := f.attempt(t, uuid.New())
	f.gw.verifyFn = verifiedAs(enums.PaymentStateCancelled, 1000)

	settled, err := f.svc.SweepPending(context.Background(), 15*time.Minute, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, settled)
	assert.Equal(t, enums.PaymentStateCancelled, f.reload(t, stale.ID).State)
	assert.Equal(t, enums.PaymentStatePending, f.reload(t, fresh.ID).State)
	assert.Equal(t, []string{stale.Reference}, f.gw.verified)
}

func TestStatsGroupsByChannel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	attempt := f.attempt(t, uuid.New())
	_, err := f.svc.Reconcile(ctx, signedWebhook(t, attempt.Reference, "success", "1000.00"))
	require.NoError(t, err)
	f.gw.verifyFn = verifiedAs(enums.PaymentStateSuccess, 1000)
	_, err = f.svc.Reconcile(ctx, Input{Channel: enums.ChannelPoll, Reference: attempt.Reference})
	require.NoError(t, err)

	stats, err := f.svc.Stats(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(2), stats.Processed)
	assert.Zero(t, stats.Failed)
	assert.Equal(t, int64(1), stats.ByChannel[enums.ChannelWebhook].Total)
	assert.Equal(t, int64(1), stats.ByChannel[enums.ChannelPoll].Processed)
}

func TestNewServiceRequiresSecretOutsideDev(t *testing.T) {
	conn := dbtest.Open(t)
	_, err := NewService(ServiceParams{
		Logs:        NewLogRepository(conn),
		Payments:    payments.NewRepository(conn),
		Tx:          dbpkg.Wrap(conn),
		Gateway:     &stubGateway{},
		Ledger:      &ledgerStub{},
		Fulfillment: &fulfillmentStub{},
		Guard:       &memoryGuard{},
		Notifier:    notifications.NopNotifier{},
		Metrics:     metrics.NewReconcileMetrics(nil),
		Logger:      logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	require.Error(t, err)
}

type ledgerStub struct{ ledger.Service }

type fulfillmentStub struct{ fulfillment.Service }
