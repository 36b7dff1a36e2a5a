package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradeflow-backend/pkg/config"
	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
	"github.com/angelmondragon/tradeflow-backend/pkg/outbox"
	"github.com/angelmondragon/tradeflow-backend/pkg/outbox/payloads"
)

func testRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{
		NotificationTopic: "notification-topic",
		FulfillmentTopic:  "fulfillment-topic",
	})
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return reg
}

func envelopeFor(t *testing.T, version int, data any) json.RawMessage {
	t.Helper()
	raw, ok := data.([]byte)
	if !ok {
		var err error
		if raw, err = json.Marshal(data); err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
	}
	out, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    version,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return out
}

func TestResolveRoutesAndDecodes(t *testing.T) {
	reg := testRegistry(t)
	orderID := uuid.New()

	resolved, err := reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateFulfillmentOrder,
		AggregateID:   orderID,
		Payload: envelopeFor(t, 1, payloads.OrderStatusChangedEvent{
			OrderID:     orderID,
			OrderNumber: "PO-AB12CD34",
			ToStatus:    enums.FulfillmentInTransit,
			Reason:      "shipped",
		}),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Descriptor.Topic != "fulfillment-topic" || resolved.Envelope.EventID == "" {
		t.Fatalf("unexpected resolution %+v", resolved)
	}
	payload, ok := resolved.Payload.(*payloads.OrderStatusChangedEvent)
	if !ok || payload.OrderID != orderID || payload.ToStatus != enums.FulfillmentInTransit {
		t.Fatalf("payload mismatch %T %+v", resolved.Payload, resolved.Payload)
	}

	// payment failures are notifications without an order
	resolved, err = reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventNotificationRequested,
		AggregateType: enums.AggregatePaymentAttempt,
		AggregateID:   uuid.New(),
		Payload: envelopeFor(t, 0, payloads.NotificationRequestedEvent{
			RecipientKind: enums.RecipientPayer,
			RecipientID:   uuid.New(),
			Type:          enums.NotificationPaymentFailed,
			Title:         "Payment failed",
		}),
	})
	if err != nil || resolved.Descriptor.Topic != "notification-topic" {
		t.Fatalf("expected notification route, got %+v err=%v", resolved, err)
	}
}

func TestResolveRejectsUnpublishableRows(t *testing.T) {
	reg := testRegistry(t)
	cases := map[string]models.OutboxEvent{
		"unknown type": {
			EventType:     enums.OutboxEventType("reservation_released"),
			AggregateType: enums.AggregateFulfillmentOrder,
			AggregateID:   uuid.New(),
			Payload:       envelopeFor(t, 1, []byte(`{"reason":"none"}`)),
		},
		"aggregate mismatch": {
			EventType:     enums.EventStockReceived,
			AggregateType: enums.AggregatePaymentAttempt,
			AggregateID:   uuid.New(),
			Payload:       envelopeFor(t, 1, []byte(`{"movements":[]}`)),
		},
		"missing aggregate": {
			EventType:     enums.EventStockReceived,
			AggregateType: enums.AggregateFulfillmentOrder,
			Payload:       envelopeFor(t, 1, []byte(`{}`)),
		},
		"null payload": {
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateFulfillmentOrder,
			AggregateID:   uuid.New(),
			Payload:       envelopeFor(t, 1, []byte("null")),
		},
		"future schema": {
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateFulfillmentOrder,
			AggregateID:   uuid.New(),
			Payload:       envelopeFor(t, 9, []byte(`{"reason":"x"}`)),
		},
		"event id not a uuid": {
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateFulfillmentOrder,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{"version":1,"eventId":"evt-1","data":{}}`),
		},
		"broken envelope": {
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateFulfillmentOrder,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{"data":`),
		},
	}
	for name, event := range cases {
		_, err := reg.Resolve(event)
		var permanent NonRetryableError
		if !errors.As(err, &permanent) {
			t.Fatalf("%s: expected non-retryable error, got %v", name, err)
		}
	}
}

func TestNewEventRegistryRequiresTopics(t *testing.T) {
	if _, err := NewEventRegistry(config.PubSubConfig{NotificationTopic: "n"}); err == nil {
		t.Fatal("expected error without fulfillment topic")
	}
}
