package registry

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
	"github.com/angelmondragon/tradeflow-backend/pkg/outbox/payloads"
)

func TestNotificationDecodersReadsVersionOneAndLegacy(t *testing.T) {
	recipient := uuid.New()
	data := json.RawMessage(`{"recipient_kind":"supplier","recipient_id":"` + recipient.String() + `","type":"order_shipped","title":"Shipped"}`)
	d := NotificationDecoders()

	for _, version := range []int{0, 1} {
		event, err := DecodeAs[payloads.NotificationRequestedEvent](d, enums.EventNotificationRequested, version, data)
		if err != nil {
			t.Fatalf("version %d: unexpected error: %v", version, err)
		}
		if event.RecipientID != recipient || event.Title != "Shipped" {
			t.Fatalf("version %d: unexpected payload %+v", version, event)
		}
	}
}

func TestDecodersRejectUnknownSchemaAsNonRetryable(t *testing.T) {
	d := NotificationDecoders()
	_, err := d.Decode(enums.EventNotificationRequested, 7, json.RawMessage(`{}`))
	var permanent NonRetryableError
	if !errors.As(err, &permanent) {
		t.Fatalf("expected non-retryable error, got %v", err)
	}

	_, err = d.Decode(enums.EventStockReceived, 1, json.RawMessage(`{}`))
	if !errors.As(err, &permanent) {
		t.Fatalf("expected non-retryable error for unregistered type, got %v", err)
	}
}

func TestDecodersRejectEmptyAndMalformedBodies(t *testing.T) {
	d := NewDecoders()
	RegisterJSON[payloads.StockReceivedEvent](d, enums.EventStockReceived, 1, 2)

	for _, body := range []string{"", "null", "{not json"} {
		if _, err := d.Decode(enums.EventStockReceived, 2, json.RawMessage(body)); err == nil {
			t.Fatalf("expected error for body %q", body)
		}
	}
	if _, err := DecodeAs[payloads.StockReceivedEvent](d, enums.EventStockReceived, 2, json.RawMessage(`{"order_number":"PO-1"}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
