package enums

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregatePaymentAttempt   OutboxAggregateType = "payment_attempt"
	AggregateFulfillmentOrder OutboxAggregateType = "fulfillment_order"
)

var validAggregateTypes = set[OutboxAggregateType]{
	AggregatePaymentAttempt,
	AggregateFulfillmentOrder,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	return validAggregateTypes.has(a)
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return validAggregateTypes.parse(value, "aggregate type")
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventNotificationRequested OutboxEventType = "notification_requested"
	EventOrderStatusChanged    OutboxEventType = "order_status_changed"
	EventStockReceived         OutboxEventType = "stock_received"
)

var validOutboxEventTypes = set[OutboxEventType]{
	EventNotificationRequested,
	EventOrderStatusChanged,
	EventStockReceived,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	return validOutboxEventTypes.has(e)
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return validOutboxEventTypes.parse(value, "event type")
}
