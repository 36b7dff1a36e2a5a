package registry

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradeflow-backend/pkg/config"
	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
	"github.com/angelmondragon/tradeflow-backend/pkg/outbox"
	"github.com/angelmondragon/tradeflow-backend/pkg/outbox/payloads"
)

// EventDescriptor routes one event type: which aggregates may emit it and
// which topic carries it.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateTypes []enums.OutboxAggregateType
	Topic          string
}

// ResolvedEvent is an outbox row that passed validation, with its payload
// decoded under the envelope's schema version.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// EventRegistry validates outbox rows before the relay publishes them.
type EventRegistry struct {
	routes   map[enums.OutboxEventType]EventDescriptor
	decoders *Decoders
}

// DomainDecoders knows every payload the relay may publish.
func DomainDecoders() *Decoders {
	d := NotificationDecoders()
	RegisterJSON[payloads.OrderStatusChangedEvent](d, enums.EventOrderStatusChanged, 1)
	RegisterJSON[payloads.StockReceivedEvent](d, enums.EventStockReceived, 1)
	return d
}

func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	switch {
	case cfg.NotificationTopic == "":
		return nil, errors.New("notification topic is required")
	case cfg.FulfillmentTopic == "":
		return nil, errors.New("fulfillment topic is required")
	}
	reg := &EventRegistry{
		routes:   make(map[enums.OutboxEventType]EventDescriptor),
		decoders: DomainDecoders(),
	}
	// payment failures have no order yet, so they hang off the attempt
	reg.route(enums.EventNotificationRequested, cfg.NotificationTopic, enums.AggregateFulfillmentOrder, enums.AggregatePaymentAttempt)
	reg.route(enums.EventOrderStatusChanged, cfg.FulfillmentTopic, enums.AggregateFulfillmentOrder)
	reg.route(enums.EventStockReceived, cfg.FulfillmentTopic, enums.AggregateFulfillmentOrder)
	return reg, nil
}

func (r *EventRegistry) route(eventType enums.OutboxEventType, topic string, aggregates ...enums.OutboxAggregateType) {
	r.routes[eventType] = EventDescriptor{EventType: eventType, AggregateTypes: aggregates, Topic: topic}
}

// Resolve rejects rows that can never be published with a NonRetryableError.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.routes[event.EventType]
	switch {
	case !ok:
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	case !slices.Contains(desc.AggregateTypes, event.AggregateType):
		return nil, NewNonRetryableError(fmt.Errorf("aggregate %s cannot emit %s", event.AggregateType, event.EventType))
	case event.AggregateID == uuid.Nil:
		return nil, NewNonRetryableError(errors.New("missing aggregate_id"))
	}

	envelope, _, err := outbox.ParseEnvelope(event.Payload)
	if err != nil {
		return nil, NewNonRetryableError(err)
	}
	payload, err := r.decoders.Decode(event.EventType, envelope.Version, envelope.Data)
	if err != nil {
		return nil, err
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}
