package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
)

// NotificationRequestedEvent asks the notification consumer to write an inbox entry.
type NotificationRequestedEvent struct {
	RecipientKind    enums.RecipientKind    `json:"recipient_kind"`
	RecipientID      uuid.UUID              `json:"recipient_id"`
	Type             enums.NotificationType `json:"type"`
	Title            string                 `json:"title"`
	Message          string                 `json:"message"`
	Link             *string                `json:"link,omitempty"`
	PaymentReference string                 `json:"payment_reference,omitempty"`
	OrderID          *uuid.UUID             `json:"order_id,omitempty"`
}

// OrderStatusChangedEvent mirrors a row appended to order_status_history.
type OrderStatusChangedEvent struct {
	OrderID          uuid.UUID                `json:"order_id"`
	OrderNumber      string                   `json:"order_number"`
	PaymentReference string                   `json:"payment_reference"`
	PayerID          uuid.UUID                `json:"payer_id"`
	SupplierID       uuid.UUID                `json:"supplier_id"`
	FromStatus       *enums.FulfillmentStatus `json:"from_status,omitempty"`
	ToStatus         enums.FulfillmentStatus  `json:"to_status"`
	ActorID          *uuid.UUID               `json:"actor_id,omitempty"`
	Reason           string                   `json:"reason"`
	ChangedAt        time.Time                `json:"changed_at"`
}

// StockMovement is one applied inventory change.
type StockMovement struct {
	WarehouseProductID uuid.UUID `json:"warehouse_product_id"`
	SupplierProductID  uuid.UUID `json:"supplier_product_id"`
	LineItemID         uuid.UUID `json:"line_item_id"`
	Delta              int       `json:"delta"`
	QuantityBefore     int       `json:"quantity_before"`
	QuantityAfter      int       `json:"quantity_after"`
}

// StockReceivedEvent is emitted once a delivered order has been applied to stock.
type StockReceivedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	Movements   []StockMovement `json:"movements"`
}
