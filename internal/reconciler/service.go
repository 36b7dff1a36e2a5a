package reconciler

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradeflow-backend/internal/fulfillment"
	"github.com/angelmondragon/tradeflow-backend/internal/ledger"
	"github.com/angelmondragon/tradeflow-backend/internal/notifications"
	"github.com/angelmondragon/tradeflow-backend/internal/payments"
	"github.com/angelmondragon/tradeflow-backend/internal/repo"
	"github.com/angelmondragon/tradeflow-backend/pkg/config"
	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradeflow-backend/pkg/errors"
	"github.com/angelmondragon/tradeflow-backend/pkg/gateway"
	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
)

// guardScope namespaces webhook delivery keys in the idempotency store.
const guardScope = "webhook"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type idempotencyGuard interface {
	CheckAndMark(ctx context.Context, scope, id string) (bool, error)
	Release(ctx context.Context, scope, id string) error
}

type outcomeRecorder interface {
	IncReconciliation(channel, outcome string)
}

// Input is one inbound payment signal, whichever channel it arrived on.
type Input struct {
	Channel       enums.ReconcileChannel
	Reference     string
	ReportedState string
	Payload       json.RawMessage
	Signature     string
	PayerID       *uuid.UUID
	Amount        *decimal.Decimal
	Currency      enums.Currency
}

// Result describes what a reconciliation did.
type Result struct {
	Reference string                 `json:"reference"`
	Channel   enums.ReconcileChannel `json:"channel"`
	Outcome   enums.ReconcileOutcome `json:"outcome"`
	State     enums.PaymentState     `json:"state"`
	OrderID   *uuid.UUID             `json:"order_id,omitempty"`
	LogID     uuid.UUID              `json:"log_id"`

	// open leaves the webhook log unprocessed so a replay can retry it.
	open bool
	note string
}

type ChannelStats struct {
	Total     int64 `json:"total"`
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
}

type Stats struct {
	Since     time.Time                               `json:"since"`
	Total     int64                                   `json:"total"`
	Processed int64                                   `json:"processed"`
	Failed    int64                                   `json:"failed"`
	ByChannel map[enums.ReconcileChannel]ChannelStats `json:"by_channel"`
}

// Service settles payment attempts from webhook, return and poll signals.
type Service interface {
	Reconcile(ctx context.Context, input Input) (*Result, error)
	Replay(ctx context.Context, logID uuid.UUID) (*Result, error)
	ReplayFailed(ctx context.Context, limit int) (int, error)
	SweepPending(ctx context.Context, olderThan time.Duration, limit int) (int, error)
	Stats(ctx context.Context, since time.Time) (*Stats, error)
}

type ServiceParams struct {
	Logs        *LogRepository
	Payments    payments.Repository
	Tx          txRunner
	Gateway     gateway.Gateway
	Ledger      ledger.Service
	Fulfillment fulfillment.Service
	Guard       idempotencyGuard
	Notifier    notifications.Notifier
	Metrics     outcomeRecorder
	GatewayCfg  config.GatewayConfig
	Reconciler  config.ReconcilerConfig
	// AllowUnsigned accepts webhooks when no secret is configured. Dev only.
	AllowUnsigned bool
	Logger        *logger.Logger
}

type service struct {
	logs          *LogRepository
	payments      payments.Repository
	tx            txRunner
	gw            gateway.Gateway
	ledger        ledger.Service
	fulfillment   fulfillment.Service
	guard         idempotencyGuard
	notifier      notifications.Notifier
	metrics       outcomeRecorder
	secret        string
	allowUnsigned bool
	timeout       time.Duration
	maxAttempts   int
	logg          *logger.Logger
	now           func() time.Time
}

func NewService(p ServiceParams) (Service, error) {
	switch {
	case p.Logs == nil:
		return nil, fmt.Errorf("webhook log repository required")
	case p.Payments == nil:
		return nil, fmt.Errorf("payments repository required")
	case p.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case p.Gateway == nil:
		return nil, fmt.Errorf("payment gateway required")
	case p.Ledger == nil:
		return nil, fmt.Errorf("ledger service required")
	case p.Fulfillment == nil:
		return nil, fmt.Errorf("fulfillment service required")
	case p.Guard == nil:
		return nil, fmt.Errorf("idempotency guard required")
	case p.Notifier == nil:
		return nil, fmt.Errorf("notifier required")
	case p.Metrics == nil:
		return nil, fmt.Errorf("metrics recorder required")
	case p.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	secret := strings.TrimSpace(p.GatewayCfg.WebhookSecret)
	if secret == "" && !p.AllowUnsigned {
		return nil, fmt.Errorf("webhook secret required")
	}
	timeout := p.GatewayCfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxAttempts := p.Reconciler.ReplayMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &service{
		logs:          p.Logs,
		payments:      p.Payments,
		tx:            p.Tx,
		gw:            p.Gateway,
		ledger:        p.Ledger,
		fulfillment:   p.Fulfillment,
		guard:         p.Guard,
		notifier:      p.Notifier,
		metrics:       p.Metrics,
		secret:        secret,
		allowUnsigned: p.AllowUnsigned,
		timeout:       timeout,
		maxAttempts:   maxAttempts,
		logg:          p.Logger,
		now:           time.Now,
	}, nil
}

func (s *service) Reconcile(ctx context.Context, input Input) (*Result, error) {
	if !input.Channel.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown reconcile channel").
			WithDetails(map[string]any{"channel": input.Channel})
	}
	input.Reference = strings.TrimSpace(input.Reference)
	ctx = s.logg.WithFields(ctx, map[string]any{
		"channel":        input.Channel.String(),
		"reference":      input.Reference,
		"reported_state": input.ReportedState,
	})

	signed := s.authenticate(input)
	entry := &models.WebhookLog{
		ID:             uuid.New(),
		Channel:        input.Channel,
		Reference:      input.Reference,
		ReportedState:  input.ReportedState,
		Payload:        input.Payload,
		SignatureValid: signed,
	}
	if input.Signature != "" {
		sig := input.Signature
		entry.Signature = &sig
	}
	if err := s.logs.Create(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "write webhook log")
	}

	if !signed {
		err := pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature")
		s.reject(ctx, entry, err)
		return nil, err
	}
	if input.Reference == "" && input.Channel != enums.ChannelReturn {
		err := pkgerrors.New(pkgerrors.CodeValidation, "reference is required")
		s.reject(ctx, entry, err)
		return nil, err
	}
	return s.run(ctx, input, entry)
}

// authenticate checks the signature header of webhook deliveries. Other channels
// are verified with the gateway instead.
func (s *service) authenticate(input Input) bool {
	if input.Channel != enums.ChannelWebhook {
		return true
	}
	if s.secret == "" {
		return s.allowUnsigned
	}
	return gateway.VerifySignature(input.Payload, s.secret, input.Signature)
}

func (s *service) run(ctx context.Context, input Input, entry *models.WebhookLog) (*Result, error) {
	guardKey := ""
	if input.Channel == enums.ChannelWebhook {
		key := input.Reference + ":" + string(enums.PaymentStateFromReported(input.ReportedState))
		already, err := s.guard.CheckAndMark(ctx, guardScope, key)
		switch {
		case err != nil:
			// The settle CAS still prevents double application.
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "webhook idempotency guard unavailable")
		case already:
			res := &Result{
				Reference: input.Reference,
				Channel:   input.Channel,
				Outcome:   enums.ReconcileDuplicate,
				State:     enums.PaymentStatePending,
				LogID:     entry.ID,
			}
			if attempt, err := s.payments.FindByReference(ctx, input.Reference); err == nil {
				res.State = attempt.State
				s.link(ctx, entry, attempt)
			}
			s.finish(ctx, entry, res)
			return res, nil
		default:
			guardKey = key
		}
	}

	res, err := s.apply(ctx, input, entry)
	if err != nil {
		s.release(ctx, guardKey)
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) || pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			s.reject(ctx, entry, err)
		} else {
			s.fail(ctx, entry, err)
		}
		return nil, err
	}
	res.LogID = entry.ID
	// Only a settled attempt keeps the key; a rejected or pending signal must
	// not shadow a later correct delivery for the same state.
	if !res.State.IsTerminal() {
		s.release(ctx, guardKey)
	}
	s.finish(ctx, entry, res)
	return res, nil
}

func (s *service) release(ctx context.Context, guardKey string) {
	if guardKey == "" {
		return
	}
	if err := s.guard.Release(ctx, guardScope, guardKey); err != nil {
		s.logg.Error(ctx, "release webhook idempotency key", err)
	}
}

func (s *service) apply(ctx context.Context, input Input, entry *models.WebhookLog) (*Result, error) {
	attempt, err := s.lookup(ctx, input)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithReference(ctx, attempt.Reference)
	s.link(ctx, entry, attempt)

	res := &Result{Reference: attempt.Reference, Channel: input.Channel, State: attempt.State}
	if attempt.State.IsTerminal() {
		res.Outcome = enums.ReconcileAlreadySettled
		res.OrderID = s.orderFor(ctx, attempt.Reference)
		return res, nil
	}

	reported := enums.PaymentStateFromReported(input.ReportedState)
	amount, currency, payload := input.Amount, input.Currency, input.Payload
	if input.Channel.RequiresVerification() {
		verified, err := s.verify(ctx, attempt.Reference)
		if err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "gateway verification failed; attempt stays pending")
			s.recordLedger(ctx, attempt, enums.LedgerEventVerifyFailed, input.Channel, map[string]any{
				"error":          err.Error(),
				"webhook_log_id": entry.ID,
			})
			res.Outcome = enums.ReconcilePending
			res.open = true
			res.note = "verification failed: " + err.Error()
			return res, nil
		}
		reported = verified.State
		verifiedAmount := verified.Amount
		amount, currency = &verifiedAmount, verified.Currency
		if len(verified.Raw) > 0 {
			payload = verified.Raw
		}
	}

	if reported == enums.PaymentStatePending {
		if err := s.payments.RecordPayload(ctx, attempt.ID, payload); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "record pending payload")
		}
		res.Outcome = enums.ReconcilePending
		return res, nil
	}

	if reported == enums.PaymentStateSuccess {
		if mismatch := amountMismatch(attempt, amount, currency); mismatch != nil {
			s.logg.Warn(s.logg.WithFields(ctx, mismatch), "reported amount does not match attempt")
			mismatch["webhook_log_id"] = entry.ID
			s.recordLedger(ctx, attempt, enums.LedgerEventAmountMismatch, input.Channel, mismatch)
			res.Outcome = enums.ReconcileRejected
			res.note = "amount mismatch"
			return res, nil
		}
	}

	return s.settle(ctx, input, entry, attempt, reported, payload)
}

func (s *service) settle(
	ctx context.Context,
	input Input,
	entry *models.WebhookLog,
	attempt *models.PaymentAttempt,
	to enums.PaymentState,
	payload json.RawMessage,
) (*Result, error) {
	now := s.now().UTC()
	from := attempt.State
	update := payments.SettleUpdate{
		State:     to,
		Channel:   input.Channel,
		Payload:   payload,
		SettledAt: now,
	}
	if to != enums.PaymentStateSuccess {
		reason := "gateway reported " + strings.ToLower(strings.TrimSpace(input.ReportedState))
		if input.Channel.RequiresVerification() {
			reason = "gateway verification reported " + to.String()
		}
		update.FailureReason = &reason
	}

	var (
		settled bool
		effect  *fulfillment.SettlementEffect
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.payments.WithTx(tx).Settle(ctx, attempt.ID, update)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "settle payment attempt")
		}
		if !ok {
			return nil
		}
		attempt.State = to
		attempt.SettledAt = &now
		attempt.SettledVia = &input.Channel
		attempt.FailureReason = update.FailureReason
		if len(payload) > 0 {
			attempt.LastPayload = payload
		}
		if _, err := s.ledger.Record(ctx, tx, ledger.RecordInput{
			Attempt:   attempt,
			Type:      enums.LedgerEventForSettlement(to),
			FromState: &from,
			ToState:   &to,
			Channel:   &input.Channel,
			Metadata:  map[string]any{"webhook_log_id": entry.ID, "reported_state": input.ReportedState},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "record settlement ledger entry")
		}
		effect, err = s.fulfillment.OnPaymentSettled(ctx, tx, attempt)
		if err != nil {
			return err
		}
		settled = true
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodePersistence, err, "settle payment")
		}
		return nil, err
	}

	if !settled {
		// Another delivery won the compare-and-swap.
		current, err := s.payments.FindByID(ctx, attempt.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "reload payment attempt")
		}
		return &Result{
			Reference: current.Reference,
			Channel:   input.Channel,
			Outcome:   enums.ReconcileAlreadySettled,
			State:     current.State,
			OrderID:   s.orderFor(ctx, current.Reference),
		}, nil
	}

	s.fulfillment.AfterSettlement(ctx, effect)
	res := &Result{
		Reference: attempt.Reference,
		Channel:   input.Channel,
		Outcome:   enums.ReconcileApplied,
		State:     to,
	}
	if effect != nil && effect.Order != nil {
		id := effect.Order.ID
		res.OrderID = &id
	}
	s.notifier.Notify(ctx, settlementNotes(attempt, res.OrderID)...)
	s.logg.Info(s.logg.WithField(ctx, "state", to.String()), "payment attempt settled")
	return res, nil
}

// lookup resolves the attempt a signal refers to. Only the return channel may fall back
// to the payer's most recent pending attempt, and that result is still re-verified.
func (s *service) lookup(ctx context.Context, input Input) (*models.PaymentAttempt, error) {
	if input.Reference != "" {
		attempt, err := s.payments.FindByReference(ctx, input.Reference)
		if err == nil {
			return attempt, nil
		}
		if !repo.IsNotFound(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load payment attempt")
		}
		if input.Channel != enums.ChannelReturn {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment attempt not found").
				WithDetails(map[string]any{"reference": input.Reference})
		}
	}
	if input.Channel != enums.ChannelReturn || input.PayerID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment attempt not found")
	}
	attempt, err := s.payments.LatestPendingForPayer(ctx, *input.PayerID)
	if repo.IsNotFound(err) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no pending payment for payer")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load latest pending attempt")
	}
	s.logg.Warn(s.logg.WithField(ctx, "fallback_reference", attempt.Reference), "return redirect resolved by payer fallback")
	return attempt, nil
}

func (s *service) verify(ctx context.Context, reference string) (*gateway.VerifyResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.gw.Verify(callCtx, reference)
}

func (s *service) orderFor(ctx context.Context, reference string) *uuid.UUID {
	order, err := s.fulfillment.GetByReference(ctx, reference)
	if err != nil || order == nil {
		return nil
	}
	id := order.ID
	return &id
}

func (s *service) recordLedger(ctx context.Context, attempt *models.PaymentAttempt, kind enums.LedgerEventType, channel enums.ReconcileChannel, meta map[string]any) {
	if _, err := s.ledger.Record(ctx, nil, ledger.RecordInput{
		Attempt:  attempt,
		Type:     kind,
		Channel:  &channel,
		Metadata: meta,
	}); err != nil {
		s.logg.Error(ctx, "record ledger entry", err)
	}
}

func (s *service) link(ctx context.Context, entry *models.WebhookLog, attempt *models.PaymentAttempt) {
	if entry.PaymentAttemptID != nil && *entry.PaymentAttemptID == attempt.ID {
		return
	}
	fields := map[string]any{"payment_attempt_id": attempt.ID}
	if entry.Reference == "" {
		fields["reference"] = attempt.Reference
		entry.Reference = attempt.Reference
	}
	if err := s.logs.Update(ctx, entry.ID, fields); err != nil {
		s.logg.Error(ctx, "link webhook log to attempt", err)
		return
	}
	id := attempt.ID
	entry.PaymentAttemptID = &id
}

// finish stamps the log with the outcome. Open results stay replayable.
func (s *service) finish(ctx context.Context, entry *models.WebhookLog, res *Result) {
	outcome := res.Outcome.String()
	fields := map[string]any{"outcome": outcome}
	if res.note != "" {
		fields["processing_error"] = res.note
	} else {
		fields["processing_error"] = nil
	}
	if !res.open {
		now := s.now().UTC()
		fields["processed"] = true
		fields["processed_at"] = now
		entry.Processed = true
		entry.ProcessedAt = &now
	}
	if err := s.logs.Update(ctx, entry.ID, fields); err != nil {
		s.logg.Error(ctx, "update webhook log", err)
	}
	entry.Outcome = &outcome
	s.metrics.IncReconciliation(res.Channel.String(), outcome)
	s.logg.Info(s.logg.WithField(ctx, "outcome", outcome), "reconciliation finished")
}

// reject closes a log that can never succeed on replay.
func (s *service) reject(ctx context.Context, entry *models.WebhookLog, cause error) {
	now := s.now().UTC()
	msg := cause.Error()
	outcome := enums.ReconcileRejected.String()
	if err := s.logs.Update(ctx, entry.ID, map[string]any{
		"processed":        true,
		"processed_at":     now,
		"processing_error": msg,
		"outcome":          outcome,
	}); err != nil {
		s.logg.Error(ctx, "update webhook log", err)
	}
	entry.Processed = true
	entry.ProcessingError = &msg
	entry.Outcome = &outcome
	s.metrics.IncReconciliation(entry.Channel.String(), outcome)
	s.logg.Warn(s.logg.WithField(ctx, "error", msg), "reconciliation rejected")
}

// fail leaves the log unprocessed with the error so it can be replayed.
func (s *service) fail(ctx context.Context, entry *models.WebhookLog, cause error) {
	msg := cause.Error()
	outcome := enums.ReconcileFailed.String()
	if err := s.logs.Update(ctx, entry.ID, map[string]any{
		"processing_error": msg,
		"outcome":          outcome,
	}); err != nil {
		s.logg.Error(ctx, "update webhook log", err)
	}
	entry.ProcessingError = &msg
	entry.Outcome = &outcome
	s.metrics.IncReconciliation(entry.Channel.String(), outcome)
	s.logg.Error(ctx, "reconciliation failed", cause)
}

// Replay re-runs a stored notification that did not finish processing.
func (s *service) Replay(ctx context.Context, logID uuid.UUID) (*Result, error) {
	entry, err := s.logs.FindByID(ctx, logID)
	if repo.IsNotFound(err) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "webhook log not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load webhook log")
	}
	if entry.Processed {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "webhook log already processed").
			WithDetails(map[string]any{"outcome": entry.Outcome})
	}
	if !entry.SignatureValid {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "webhook log failed signature verification")
	}
	if err := s.logs.Update(ctx, entry.ID, map[string]any{"attempts": gorm.Expr("attempts + 1")}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "bump webhook log attempts")
	}
	entry.Attempts++

	input := Input{
		Channel:       entry.Channel,
		Reference:     entry.Reference,
		ReportedState: entry.ReportedState,
		Payload:       entry.Payload,
	}
	if entry.Channel == enums.ChannelWebhook && len(entry.Payload) > 0 {
		if note, err := ParseWebhook(entry.Payload); err == nil {
			input.Amount = note.Amount
			input.Currency = note.Currency
		}
	}
	if input.Reference == "" {
		// Return redirects resolved by fallback have their reference stamped on link.
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook log has no reference to replay")
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"channel":        input.Channel.String(),
		"reference":      input.Reference,
		"webhook_log_id": entry.ID.String(),
		"replay_attempt": entry.Attempts,
	})
	return s.run(ctx, input, entry)
}

func (s *service) ReplayFailed(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 25
	}
	rows, err := s.logs.ListUnprocessed(ctx, s.maxAttempts, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "list unprocessed webhook logs")
	}
	var (
		replayed int
		errs     error
	)
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return replayed, multierr.Append(errs, err)
		}
		if _, err := s.Replay(ctx, row.ID); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("replay %s: %w", row.ID, err))
			continue
		}
		replayed++
	}
	return replayed, errs
}

// SweepPending verifies attempts that have stayed pending longer than olderThan.
func (s *service) SweepPending(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	if limit <= 0 {
		limit = 50
	}
	cutoff := s.now().UTC().Add(-olderThan)
	rows, err := s.payments.ListPendingBefore(ctx, cutoff, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "list stale pending attempts")
	}
	var (
		settled int
		errs    error
	)
	for _, attempt := range rows {
		if err := ctx.Err(); err != nil {
			return settled, multierr.Append(errs, err)
		}
		res, err := s.Reconcile(ctx, Input{Channel: enums.ChannelPoll, Reference: attempt.Reference})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("sweep %s: %w", attempt.Reference, err))
			continue
		}
		if res.Outcome == enums.ReconcileApplied {
			settled++
		}
	}
	return settled, errs
}

func (s *service) Stats(ctx context.Context, since time.Time) (*Stats, error) {
	rows, err := s.logs.CountByChannel(ctx, since)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "count webhook logs")
	}
	stats := &Stats{Since: since, ByChannel: make(map[enums.ReconcileChannel]ChannelStats, len(rows))}
	for _, row := range rows {
		stats.Total += row.Total
		stats.Processed += row.Processed
		stats.Failed += row.Failed
		stats.ByChannel[row.Channel] = ChannelStats{Total: row.Total, Processed: row.Processed, Failed: row.Failed}
	}
	return stats, nil
}

// amountMismatch compares a reported amount and currency with the attempt. Missing
// values are not treated as a mismatch.
func amountMismatch(attempt *models.PaymentAttempt, amount *decimal.Decimal, currency enums.Currency) map[string]any {
	details := map[string]any{}
	if amount != nil && !amount.Equal(attempt.Amount) {
		details["expected_amount"] = attempt.Amount.StringFixed(2)
		details["reported_amount"] = amount.StringFixed(2)
	}
	if currency != "" && currency != attempt.Currency {
		details["expected_currency"] = attempt.Currency.String()
		details["reported_currency"] = currency.String()
	}
	if len(details) == 0 {
		return nil
	}
	return details
}

func settlementNotes(attempt *models.PaymentAttempt, orderID *uuid.UUID) []notifications.Notification {
	amount := attempt.Amount.StringFixed(2) + " " + attempt.Currency.String()
	if attempt.State == enums.PaymentStateSuccess {
		base := notifications.Notification{
			Type:             enums.NotificationPaymentConfirmed,
			Title:            "Payment confirmed",
			Message:          fmt.Sprintf("Payment %s of %s was confirmed.", attempt.Reference, amount),
			PaymentAttemptID: attempt.ID,
			PaymentReference: attempt.Reference,
			OrderID:          orderID,
		}
		if orderID != nil {
			link := "/orders/" + orderID.String()
			base.Link = &link
		}
		supplier, payer := base, base
		supplier.RecipientKind, supplier.RecipientID = enums.RecipientSupplier, attempt.SupplierID
		supplier.Message = fmt.Sprintf("A new order was paid (%s, %s). Please prepare it for shipment.", attempt.Reference, amount)
		payer.RecipientKind, payer.RecipientID = enums.RecipientPayer, attempt.PayerID
		return []notifications.Notification{supplier, payer}
	}
	reason := attempt.State.String()
	if attempt.FailureReason != nil {
		reason = *attempt.FailureReason
	}
	return []notifications.Notification{{
		RecipientKind:    enums.RecipientPayer,
		RecipientID:      attempt.PayerID,
		Type:             enums.NotificationPaymentFailed,
		Title:            "Payment not completed",
		Message:          fmt.Sprintf("Payment %s of %s did not complete: %s.", attempt.Reference, amount, reason),
		PaymentAttemptID: attempt.ID,
		PaymentReference: attempt.Reference,
		OrderID:          orderID,
	}}
}
