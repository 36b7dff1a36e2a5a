package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradeflow-backend/internal/inventory"
	"github.com/angelmondragon/tradeflow-backend/internal/notifications"
	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradeflow-backend/pkg/errors"
	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
	"github.com/angelmondragon/tradeflow-backend/pkg/outbox"
	"github.com/angelmondragon/tradeflow-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/tradeflow-backend/pkg/pagination"
	"github.com/angelmondragon/tradeflow-backend/pkg/types"
)

const defaultLeadDays = 7

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockReconciler interface {
	ApplyDelivery(ctx context.Context, tx *gorm.DB, order *models.FulfillmentOrder) (*inventory.ApplyResult, error)
	DeductSupplierStock(ctx context.Context, tx *gorm.DB, supplierID uuid.UUID, items types.LineItemSnapshots) []inventory.Shortfall
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type transitionRecorder interface {
	IncTransition(from, to string)
	AddStockUnits(reason string, units int)
}

// Service drives purchase orders through their lifecycle.
type Service interface {
	OnPaymentSettled(ctx context.Context, tx *gorm.DB, attempt *models.PaymentAttempt) (*SettlementEffect, error)
	AfterSettlement(ctx context.Context, effect *SettlementEffect)
	Ship(ctx context.Context, input ShipInput) (*models.FulfillmentOrder, error)
	ConfirmDelivery(ctx context.Context, input ConfirmDeliveryInput) (*DeliveryResult, error)
	ReportIssue(ctx context.Context, input ReportIssueInput) (*IssueResult, error)
	Cancel(ctx context.Context, input CancelInput) (*models.FulfillmentOrder, error)
	Get(ctx context.Context, id uuid.UUID) (*models.FulfillmentOrder, error)
	GetByReference(ctx context.Context, reference string) (*models.FulfillmentOrder, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	History(ctx context.Context, id uuid.UUID) ([]models.OrderStatusHistory, error)
}

type ServiceParams struct {
	Repo     *Repository
	Tx       txRunner
	Stock    stockReconciler
	Outbox   outboxEmitter
	Notifier notifications.Notifier
	Metrics  transitionRecorder
	Logger   *logger.Logger
}

type service struct {
	repo     *Repository
	tx       txRunner
	stock    stockReconciler
	outbox   outboxEmitter
	notifier notifications.Notifier
	metrics  transitionRecorder
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(p ServiceParams) (Service, error) {
	switch {
	case p.Repo == nil:
		return nil, fmt.Errorf("fulfillment repository required")
	case p.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case p.Stock == nil:
		return nil, fmt.Errorf("stock reconciler required")
	case p.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case p.Notifier == nil:
		return nil, fmt.Errorf("notifier required")
	case p.Metrics == nil:
		return nil, fmt.Errorf("metrics recorder required")
	case p.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     p.Repo,
		tx:       p.Tx,
		stock:    p.Stock,
		outbox:   p.Outbox,
		notifier: p.Notifier,
		metrics:  p.Metrics,
		logg:     p.Logger,
		now:      time.Now,
	}, nil
}

// change describes one status move applied inside a transaction.
type change struct {
	to     enums.FulfillmentStatus
	actor  *uuid.UUID
	reason string
	notes  *string
	fields map[string]any
}

// transition moves order to c.to with a compare-and-swap on the current status and
// appends the history row plus an order_status_changed event in the same tx.
func (s *service) transition(ctx context.Context, tx *gorm.DB, order *models.FulfillmentOrder, c change) (Transition, error) {
	from := order.Status
	if !CanTransition(from, c.to) {
		return Transition{}, invalidTransition(from, c.to)
	}
	repo := s.repo.WithTx(tx)
	ok, err := repo.UpdateStatus(ctx, order.ID, from, c.to, c.fields)
	if err != nil {
		return Transition{}, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "update order status")
	}
	if !ok {
		return Transition{}, pkgerrors.New(pkgerrors.CodeReconciliationConflict, "order was changed concurrently").
			WithDetails(map[string]any{"order_id": order.ID, "expected_status": from})
	}
	order.Status = c.to
	if err := s.record(ctx, tx, order, &from, c); err != nil {
		return Transition{}, err
	}
	return Transition{From: &from, To: c.to}, nil
}

func (s *service) record(ctx context.Context, tx *gorm.DB, order *models.FulfillmentOrder, from *enums.FulfillmentStatus, c change) error {
	now := s.now().UTC()
	entry := &models.OrderStatusHistory{
		OrderID:    order.ID,
		FromStatus: from,
		ToStatus:   c.to,
		ActorID:    c.actor,
		Reason:     c.reason,
		Notes:      c.notes,
		CreatedAt:  now,
	}
	if err := s.repo.WithTx(tx).AppendHistory(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "append status history")
	}
	var actor *outbox.ActorRef
	if c.actor != nil {
		actor = &outbox.ActorRef{ActorID: *c.actor, Role: "operator"}
	}
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateFulfillmentOrder,
		AggregateID:   order.ID,
		Actor:         actor,
		Version:       1,
		OccurredAt:    now,
		Data: payloads.OrderStatusChangedEvent{
			OrderID:          order.ID,
			OrderNumber:      order.OrderNumber,
			PaymentReference: order.PaymentReference,
			PayerID:          order.PayerID,
			SupplierID:       order.SupplierID,
			FromStatus:       from,
			ToStatus:         c.to,
			ActorID:          c.actor,
			Reason:           c.reason,
			ChangedAt:        now,
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "emit order status event")
	}
	return nil
}

// OnPaymentSettled runs inside the reconciler's transaction once an attempt leaves pending.
func (s *service) OnPaymentSettled(ctx context.Context, tx *gorm.DB, attempt *models.PaymentAttempt) (*SettlementEffect, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if attempt == nil {
		return nil, fmt.Errorf("payment attempt required")
	}
	repo := s.repo.WithTx(tx)
	existing, err := repo.FindByPaymentAttempt(ctx, attempt.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load order for payment")
	}

	switch attempt.State {
	case enums.PaymentStateSuccess:
		if existing != nil {
			return &SettlementEffect{Order: existing}, nil
		}
		return s.createFromPayment(ctx, tx, attempt)
	case enums.PaymentStateFailed, enums.PaymentStateCancelled:
		if existing == nil || existing.Status.IsTerminal() {
			return &SettlementEffect{Order: existing}, nil
		}
		reason := "payment failed"
		now := s.now().UTC()
		t, err := s.transition(ctx, tx, existing, change{
			to:     enums.FulfillmentCancelled,
			reason: reason,
			fields: map[string]any{"cancelled_at": now, "cancellation_reason": reason},
		})
		if err != nil {
			return nil, err
		}
		existing.CancelledAt = &now
		existing.CancellationReason = &reason
		return &SettlementEffect{Order: existing, Cancelled: true, Transitions: []Transition{t}}, nil
	default:
		return &SettlementEffect{Order: existing}, nil
	}
}

func (s *service) createFromPayment(ctx context.Context, tx *gorm.DB, attempt *models.PaymentAttempt) (*SettlementEffect, error) {
	repo := s.repo.WithTx(tx)
	leadDays, err := repo.SupplierLeadDays(ctx, attempt.SupplierID)
	if err != nil || leadDays <= 0 {
		leadDays = defaultLeadDays
	}
	now := s.now().UTC()
	expected := now.AddDate(0, 0, leadDays)

	orderID := uuid.New()
	order := &models.FulfillmentOrder{
		ID:                   orderID,
		OrderNumber:          orderNumber(orderID),
		PaymentAttemptID:     attempt.ID,
		PaymentReference:     attempt.Reference,
		PayerID:              attempt.PayerID,
		SupplierID:           attempt.SupplierID,
		Status:               enums.FulfillmentAwaitingPayment,
		TotalAmount:          attempt.Amount,
		Currency:             attempt.Currency,
		ExpectedDeliveryDate: &expected,
	}
	for i, item := range attempt.LineItems {
		order.LineItems = append(order.LineItems, models.FulfillmentLineItem{
			Position:          i,
			SupplierProductID: item.ProductID,
			Name:              item.Name,
			QuantityOrdered:   item.Quantity,
			UnitPrice:         item.UnitPrice,
		})
	}
	if err := repo.CreateOrder(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "create fulfillment order")
	}

	created := change{to: enums.FulfillmentAwaitingPayment, reason: "order created from payment " + attempt.Reference}
	if err := s.record(ctx, tx, order, nil, created); err != nil {
		return nil, err
	}
	confirmed, err := s.transition(ctx, tx, order, change{
		to:     enums.FulfillmentPaymentConfirmed,
		reason: "payment confirmed",
	})
	if err != nil {
		return nil, err
	}

	s.stock.DeductSupplierStock(ctx, tx, order.SupplierID, attempt.LineItems)

	return &SettlementEffect{
		Order:   order,
		Created: true,
		Transitions: []Transition{
			{To: enums.FulfillmentAwaitingPayment},
			confirmed,
		},
	}, nil
}

func orderNumber(id uuid.UUID) string {
	return "PO-" + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
}

// AfterSettlement records metrics and notifications once the settlement committed.
func (s *service) AfterSettlement(ctx context.Context, effect *SettlementEffect) {
	if effect == nil || effect.Order == nil {
		return
	}
	s.observe(effect.Transitions)
	if effect.Cancelled {
		s.notifier.Notify(ctx, s.cancelledNotes(effect.Order)...)
	}
}

func (s *service) observe(ts []Transition) {
	for _, t := range ts {
		from := ""
		if t.From != nil {
			from = string(*t.From)
		}
		s.metrics.IncTransition(from, string(t.To))
	}
}

func (s *service) Ship(ctx context.Context, input ShipInput) (*models.FulfillmentOrder, error) {
	tracking := strings.TrimSpace(input.TrackingNumber)
	if tracking == "" && !input.NoTrackingAvailable {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracking number required unless none is available")
	}

	var (
		order   *models.FulfillmentOrder
		applied []Transition
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		order, err = s.load(ctx, tx, input.OrderID)
		if err != nil {
			return err
		}
		if order.Status == enums.FulfillmentInTransit {
			return nil
		}
		if order.Status != enums.FulfillmentPaymentConfirmed {
			return invalidTransition(order.Status, enums.FulfillmentInTransit)
		}
		now := s.now().UTC()
		fields := map[string]any{"shipped_at": now}
		if tracking != "" {
			fields["tracking_number"] = tracking
			order.TrackingNumber = &tracking
		}
		t, err := s.transition(ctx, tx, order, change{
			to:     enums.FulfillmentInTransit,
			actor:  input.Actor,
			reason: "shipped",
			fields: fields,
		})
		if err != nil {
			return err
		}
		order.ShippedAt = &now
		applied = append(applied, t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(applied) == 0 {
		s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "order already in transit")
		return order, nil
	}

	s.observe(applied)
	message := fmt.Sprintf("Order %s has shipped.", order.OrderNumber)
	if order.TrackingNumber != nil {
		message = fmt.Sprintf("Order %s has shipped with tracking number %s.", order.OrderNumber, *order.TrackingNumber)
	}
	s.notifier.Notify(ctx, notifications.Notification{
		RecipientKind:    enums.RecipientPayer,
		RecipientID:      order.PayerID,
		Type:             enums.NotificationOrderShipped,
		Title:            "Order shipped",
		Message:          message,
		Link:             orderLink(order.ID),
		PaymentAttemptID: order.PaymentAttemptID,
		PaymentReference: order.PaymentReference,
		OrderID:          &order.ID,
	})
	s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "order shipped")
	return order, nil
}

func (s *service) ConfirmDelivery(ctx context.Context, input ConfirmDeliveryInput) (*DeliveryResult, error) {
	if input.Condition != "" && !input.Condition.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery condition")
	}
	if !input.AllItemsReceived && len(input.ReceivedLineItemIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one received line item is required")
	}

	var (
		result  *DeliveryResult
		applied []Transition
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.load(ctx, tx, input.OrderID)
		if err != nil {
			return err
		}
		if order.Status != enums.FulfillmentInTransit && order.Status != enums.FulfillmentPaymentConfirmed {
			return invalidTransition(order.Status, enums.FulfillmentDelivered)
		}

		received, err := lineItemSet(order, input.ReceivedLineItemIDs)
		if err != nil {
			return err
		}
		repo := s.repo.WithTx(tx)
		allReceived := true
		for i := range order.LineItems {
			item := &order.LineItems[i]
			if input.AllItemsReceived || received[item.ID] {
				item.QuantityReceived = item.QuantityOrdered
				item.Received = true
				item.HasIssue = false
				item.IssueNotes = nil
			} else if !item.Received {
				note := issueNoteNotReceived
				item.HasIssue = true
				item.IssueNotes = &note
				allReceived = false
			}
			if err := repo.SaveLineItemReceipt(ctx, item); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "save line item receipt")
			}
		}

		fields := map[string]any{}
		if input.Condition != "" {
			condition := input.Condition
			fields["delivery_condition"] = condition
			order.DeliveryCondition = &condition
		}
		if notes := strings.TrimSpace(input.Notes); notes != "" {
			fields["delivery_notes"] = notes
			order.DeliveryNotes = &notes
		}

		result = &DeliveryResult{Order: order, Outcome: enums.DeliveryOutcomePartial}
		if !allReceived {
			if err := repo.UpdateFields(ctx, order.ID, fields); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "save delivery details")
			}
			return nil
		}

		now := s.now().UTC()
		fields["delivered_at"] = now
		t, err := s.transition(ctx, tx, order, change{
			to:     enums.FulfillmentDelivered,
			actor:  input.Actor,
			reason: "delivery confirmed",
			notes:  order.DeliveryNotes,
			fields: fields,
		})
		if err != nil {
			return err
		}
		order.DeliveredAt = &now
		applied = append(applied, t)

		stock, err := s.stock.ApplyDelivery(ctx, tx, order)
		if err != nil {
			return err
		}
		if stock.Applied {
			order.StockAppliedAt = &now
		}
		result.Outcome = enums.DeliveryOutcomeDelivered
		result.StockApplied = stock.Applied
		result.Movements = stock.Movements
		return nil
	})
	if err != nil {
		return nil, err
	}

	order := result.Order
	s.observe(applied)
	if units := (&inventory.ApplyResult{Movements: result.Movements}).Units(); units > 0 {
		s.metrics.AddStockUnits(string(enums.MovementPurchaseDelivery), units)
	}

	note := notifications.Notification{
		RecipientKind:    enums.RecipientSupplier,
		RecipientID:      order.SupplierID,
		Type:             enums.NotificationDeliveryConfirmed,
		Title:            "Delivery confirmed",
		Message:          fmt.Sprintf("Order %s was received in full.", order.OrderNumber),
		Link:             orderLink(order.ID),
		PaymentAttemptID: order.PaymentAttemptID,
		PaymentReference: order.PaymentReference,
		OrderID:          &order.ID,
	}
	if result.Outcome == enums.DeliveryOutcomePartial {
		note.Type = enums.NotificationDeliveryPartial
		note.Title = "Partial delivery"
		note.Message = fmt.Sprintf("Order %s was received with %d item(s) missing.", order.OrderNumber, countMissing(order))
	}
	s.notifier.Notify(ctx, note)

	s.logg.Info(s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID.String()), map[string]any{
		"outcome":   result.Outcome,
		"movements": len(result.Movements),
	}), "delivery confirmation recorded")
	return result, nil
}

func countMissing(order *models.FulfillmentOrder) int {
	missing := 0
	for _, item := range order.LineItems {
		if !item.Received {
			missing++
		}
	}
	return missing
}

func (s *service) ReportIssue(ctx context.Context, input ReportIssueInput) (*IssueResult, error) {
	if !input.IssueType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid issue type")
	}
	if !input.Severity.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid issue severity")
	}
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "issue title and description are required")
	}

	var (
		result  *IssueResult
		applied []Transition
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.load(ctx, tx, input.OrderID)
		if err != nil {
			return err
		}
		if !CanTransition(order.Status, enums.FulfillmentIssueReported) {
			return invalidTransition(order.Status, enums.FulfillmentIssueReported)
		}
		affected, err := lineItemSet(order, input.AffectedLineItemIDs)
		if err != nil {
			return err
		}
		repo := s.repo.WithTx(tx)
		for i := range order.LineItems {
			item := &order.LineItems[i]
			if !affected[item.ID] {
				continue
			}
			item.HasIssue = true
			item.IssueNotes = &title
			if err := repo.SaveLineItemReceipt(ctx, item); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "flag affected line item")
			}
		}

		var affectedJSON json.RawMessage
		if len(input.AffectedLineItemIDs) > 0 {
			affectedJSON, err = json.Marshal(input.AffectedLineItemIDs)
			if err != nil {
				return err
			}
		}
		issue := &models.IssueReport{
			OrderID:       order.ID,
			IssueType:     input.IssueType,
			Severity:      input.Severity,
			Title:         title,
			Description:   description,
			AffectedItems: affectedJSON,
			ReportedBy:    input.Actor,
		}
		if err := repo.CreateIssue(ctx, issue); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "create issue report")
		}

		t, err := s.transition(ctx, tx, order, change{
			to:     enums.FulfillmentIssueReported,
			actor:  input.Actor,
			reason: "issue reported: " + string(input.IssueType),
			notes:  &description,
		})
		if err != nil {
			return err
		}
		applied = append(applied, t)
		result = &IssueResult{Order: order, Issue: issue}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.observe(applied)
	order := result.Order
	s.notifier.Notify(ctx, notifications.Notification{
		RecipientKind:    enums.RecipientSupplier,
		RecipientID:      order.SupplierID,
		Type:             enums.NotificationIssueReported,
		Title:            "Issue reported: " + title,
		Message:          fmt.Sprintf("A %s severity issue was reported on order %s.", input.Severity, order.OrderNumber),
		Link:             orderLink(order.ID),
		PaymentAttemptID: order.PaymentAttemptID,
		PaymentReference: order.PaymentReference,
		OrderID:          &order.ID,
	})
	return result, nil
}

func (s *service) Cancel(ctx context.Context, input CancelInput) (*models.FulfillmentOrder, error) {
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancellation reason required")
	}
	var (
		order   *models.FulfillmentOrder
		applied []Transition
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		order, err = s.load(ctx, tx, input.OrderID)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		t, err := s.transition(ctx, tx, order, change{
			to:     enums.FulfillmentCancelled,
			actor:  input.Actor,
			reason: reason,
			fields: map[string]any{"cancelled_at": now, "cancellation_reason": reason},
		})
		if err != nil {
			return err
		}
		order.CancelledAt = &now
		order.CancellationReason = &reason
		applied = append(applied, t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.observe(applied)
	s.notifier.Notify(ctx, s.cancelledNotes(order)...)
	return order, nil
}

func (s *service) cancelledNotes(order *models.FulfillmentOrder) []notifications.Notification {
	reason := ""
	if order.CancellationReason != nil {
		reason = *order.CancellationReason
	}
	message := fmt.Sprintf("Order %s was cancelled: %s.", order.OrderNumber, reason)
	base := notifications.Notification{
		Type:             enums.NotificationOrderCancelled,
		Title:            "Order cancelled",
		Message:          message,
		Link:             orderLink(order.ID),
		PaymentAttemptID: order.PaymentAttemptID,
		PaymentReference: order.PaymentReference,
		OrderID:          &order.ID,
	}
	payer, supplier := base, base
	payer.RecipientKind, payer.RecipientID = enums.RecipientPayer, order.PayerID
	supplier.RecipientKind, supplier.RecipientID = enums.RecipientSupplier, order.SupplierID
	return []notifications.Notification{payer, supplier}
}

func (s *service) load(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.FulfillmentOrder, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.WithTx(tx).FindByID(ctx, id)
	return order, mapLookupError(err)
}

func lineItemSet(order *models.FulfillmentOrder, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	known := make(map[uuid.UUID]bool, len(order.LineItems))
	for _, item := range order.LineItems {
		known[item.ID] = true
	}
	set := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if !known[id] {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line item does not belong to order").
				WithDetails(map[string]any{"line_item_id": id})
		}
		set[id] = true
	}
	return set, nil
}

func orderLink(id uuid.UUID) *string {
	link := "/orders/" + id.String()
	return &link
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.FulfillmentOrder, error) {
	order, err := s.repo.FindByID(ctx, id)
	return order, mapLookupError(err)
}

func (s *service) GetByReference(ctx context.Context, reference string) (*models.FulfillmentOrder, error) {
	order, err := s.repo.FindByReference(ctx, strings.TrimSpace(reference))
	return order, mapLookupError(err)
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	cursor, err := pagination.ParseCursor(params.Page.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	rows, err := s.repo.List(ctx, listQuery{
		Status:     params.Status,
		SupplierID: params.SupplierID,
		PayerID:    params.PayerID,
		Cursor:     cursor,
		Limit:      params.Page.Limit,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "list orders")
	}
	orders, next := pagination.Trim(rows, params.Page.Limit, func(o models.FulfillmentOrder) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	result := &ListResult{Orders: orders}
	if next != nil {
		result.NextCursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

func (s *service) History(ctx context.Context, id uuid.UUID) ([]models.OrderStatusHistory, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListHistory(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load order history")
	}
	return rows, nil
}

func mapLookupError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load order")
}
