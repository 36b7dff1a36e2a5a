package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
	"github.com/angelmondragon/tradeflow-backend/pkg/outbox"
	"github.com/angelmondragon/tradeflow-backend/pkg/outbox/payloads"
)

// Notification is a message for one payer or supplier.
type Notification struct {
	RecipientKind    enums.RecipientKind
	RecipientID      uuid.UUID
	Type             enums.NotificationType
	Title            string
	Message          string
	Link             *string
	PaymentAttemptID uuid.UUID
	PaymentReference string
	OrderID          *uuid.UUID
}

// Notifier delivers notifications after the state change that caused them has committed.
// Delivery failures are logged and never returned.
type Notifier interface {
	Notify(ctx context.Context, notes ...Notification)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// OutboxNotifier queues notification_requested events for the notifications worker.
type OutboxNotifier struct {
	tx     txRunner
	outbox outboxEmitter
	logg   *logger.Logger
}

func NewOutboxNotifier(tx txRunner, emitter outboxEmitter, logg *logger.Logger) (*OutboxNotifier, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &OutboxNotifier{tx: tx, outbox: emitter, logg: logg}, nil
}

func (n *OutboxNotifier) Notify(ctx context.Context, notes ...Notification) {
	if len(notes) == 0 {
		return
	}
	err := n.tx.WithTx(ctx, func(tx *gorm.DB) error {
		for _, note := range notes {
			if err := n.outbox.Emit(ctx, tx, toDomainEvent(note)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logCtx := n.logg.WithFields(ctx, map[string]any{
			"notification_type": notes[0].Type,
			"notifications":     len(notes),
			"reference":         notes[0].PaymentReference,
		})
		n.logg.Error(logCtx, "queue notifications failed", err)
	}
}

func toDomainEvent(note Notification) outbox.DomainEvent {
	aggregateType := enums.AggregatePaymentAttempt
	aggregateID := note.PaymentAttemptID
	if note.OrderID != nil {
		aggregateType = enums.AggregateFulfillmentOrder
		aggregateID = *note.OrderID
	}
	return outbox.DomainEvent{
		EventType:     enums.EventNotificationRequested,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Version:       1,
		Data: payloads.NotificationRequestedEvent{
			RecipientKind:    note.RecipientKind,
			RecipientID:      note.RecipientID,
			Type:             note.Type,
			Title:            note.Title,
			Message:          note.Message,
			Link:             note.Link,
			PaymentReference: note.PaymentReference,
			OrderID:          note.OrderID,
		},
	}
}

// NopNotifier drops every notification.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, ...Notification) {}
