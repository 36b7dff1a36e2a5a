package notifications

import (
	"context"
	"errors"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
	"github.com/angelmondragon/tradeflow-backend/pkg/outbox"
	"github.com/angelmondragon/tradeflow-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/tradeflow-backend/pkg/outbox/registry"
)

// ConsumerName scopes the inbox consumer's idempotency marks.
const ConsumerName = "notifications-worker"

type inboxWriter interface {
	Insert(ctx context.Context, n *models.Notification) (bool, error)
}

type eventGuard interface {
	Seen(ctx context.Context, eventID uuid.UUID) (bool, error)
	Forget(ctx context.Context, eventID uuid.UUID) error
}

// verdict tells the subscription what to do with a delivery. Poison
// messages are acked; only transient failures ask for redelivery.
type verdict bool

const (
	ack  verdict = true
	nack verdict = false
)

// Consumer turns notification_requested events into inbox rows.
type Consumer struct {
	inbox    inboxWriter
	sub      *pubsub.Subscriber
	guard    eventGuard
	decoders *registry.Decoders
	logg     *logger.Logger
}

func NewConsumer(inbox inboxWriter, sub *pubsub.Subscriber, guard eventGuard, logg *logger.Logger) (*Consumer, error) {
	switch {
	case inbox == nil:
		return nil, errors.New("notifications repository required")
	case sub == nil:
		return nil, errors.New("notification subscription required")
	case guard == nil:
		return nil, errors.New("idempotency guard required")
	case logg == nil:
		return nil, errors.New("logger required")
	}
	return &Consumer{inbox: inbox, sub: sub, guard: guard, decoders: registry.NotificationDecoders(), logg: logg}, nil
}

// Run receives until ctx is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.handle(ctx, msg) == ack {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

func (c *Consumer) handle(ctx context.Context, msg *pubsub.Message) verdict {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	ctx = c.logg.WithFields(ctx, map[string]any{"message_id": msg.ID, "event_type": eventType})
	if eventType != enums.EventNotificationRequested {
		c.logg.Debug(ctx, "ignoring event")
		return ack
	}

	env, eventID, err := outbox.ParseEnvelope(msg.Data)
	if err != nil {
		c.logg.Error(ctx, "unusable envelope", err)
		return ack
	}
	ctx = c.logg.WithField(ctx, "event_id", eventID.String())

	payload, err := registry.DecodeAs[payloads.NotificationRequestedEvent](c.decoders, eventType, env.Version, env.Data)
	if err != nil {
		c.logg.Error(ctx, "undecodable notification payload", err)
		return ack
	}
	if payload.RecipientID == uuid.Nil || !payload.Type.IsValid() {
		c.logg.Warn(ctx, "notification dropped: missing recipient or unknown type")
		return ack
	}

	seen, err := c.guard.Seen(ctx, eventID)
	if err != nil {
		c.logg.Error(ctx, "idempotency check failed", err)
		return nack
	}
	if seen {
		c.logg.Debug(ctx, "duplicate delivery")
		return ack
	}

	created, err := c.inbox.Insert(ctx, toInboxRow(eventID, payload))
	if err != nil {
		c.logg.Error(ctx, "store inbox notification", err)
		if ferr := c.guard.Forget(ctx, eventID); ferr != nil {
			c.logg.Error(ctx, "release idempotency mark", ferr)
		}
		return nack
	}
	if created {
		c.logg.Info(c.logg.WithFields(ctx, map[string]any{
			"recipient_id":      payload.RecipientID.String(),
			"notification_type": payload.Type,
		}), "inbox notification stored")
	}
	return ack
}

func toInboxRow(eventID uuid.UUID, p *payloads.NotificationRequestedEvent) *models.Notification {
	return &models.Notification{
		EventID:       eventID,
		RecipientKind: p.RecipientKind,
		RecipientID:   p.RecipientID,
		Type:          p.Type,
		Title:         strings.TrimSpace(p.Title),
		Message:       strings.TrimSpace(p.Message),
		Link:          p.Link,
	}
}
