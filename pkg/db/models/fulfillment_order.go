package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
)

// FulfillmentOrder is the supplier purchase order created once payment succeeds.
type FulfillmentOrder struct {
	ID                   uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber          string                   `gorm:"column:order_number;not null;uniqueIndex"`
	PaymentAttemptID     uuid.UUID                `gorm:"column:payment_attempt_id;type:uuid;not null;uniqueIndex"`
	PaymentReference     string                   `gorm:"column:payment_reference;not null;uniqueIndex"`
	PayerID              uuid.UUID                `gorm:"column:payer_id;type:uuid;not null;index"`
	SupplierID           uuid.UUID                `gorm:"column:supplier_id;type:uuid;not null;index"`
	Status               enums.FulfillmentStatus  `gorm:"column:status;type:text;not null;index"`
	TotalAmount          decimal.Decimal          `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Currency             enums.Currency           `gorm:"column:currency;type:text;not null"`
	TrackingNumber       *string                  `gorm:"column:tracking_number"`
	ShippedAt            *time.Time               `gorm:"column:shipped_at"`
	ExpectedDeliveryDate *time.Time               `gorm:"column:expected_delivery_date"`
	DeliveredAt          *time.Time               `gorm:"column:delivered_at"`
	DeliveryCondition    *enums.DeliveryCondition `gorm:"column:delivery_condition;type:text"`
	DeliveryNotes        *string                  `gorm:"column:delivery_notes"`
	StockAppliedAt       *time.Time               `gorm:"column:stock_applied_at"`
	CancelledAt          *time.Time               `gorm:"column:cancelled_at"`
	CancellationReason   *string                  `gorm:"column:cancellation_reason"`
	CreatedAt            time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time                `gorm:"column:updated_at;autoUpdateTime"`

	LineItems []FulfillmentLineItem `gorm:"foreignKey:OrderID"`
}

// FulfillmentLineItem is one ordered product with its receipt state.
type FulfillmentLineItem struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID           uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	Position          int             `gorm:"column:position;not null"`
	SupplierProductID uuid.UUID       `gorm:"column:supplier_product_id;type:uuid;not null"`
	Name              string          `gorm:"column:name;not null"`
	QuantityOrdered   int             `gorm:"column:quantity_ordered;not null"`
	QuantityReceived  int             `gorm:"column:quantity_received;not null;default:0"`
	UnitPrice         decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Received          bool            `gorm:"column:received;not null;default:false"`
	HasIssue          bool            `gorm:"column:has_issue;not null;default:false"`
	IssueNotes        *string         `gorm:"column:issue_notes"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderStatusHistory is the append-only audit trail of status changes.
type OrderStatusHistory struct {
	ID         uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	OrderID    uuid.UUID                `gorm:"column:order_id;type:uuid;not null;uniqueIndex:idx_order_status_history_order_seq,priority:1"`
	Seq        int                      `gorm:"column:seq;not null;uniqueIndex:idx_order_status_history_order_seq,priority:2"`
	FromStatus *enums.FulfillmentStatus `gorm:"column:from_status;type:text"`
	ToStatus   enums.FulfillmentStatus  `gorm:"column:to_status;type:text;not null"`
	ActorID    *uuid.UUID               `gorm:"column:actor_id;type:uuid"`
	Reason     string                   `gorm:"column:reason;not null"`
	Notes      *string                  `gorm:"column:notes"`
	CreatedAt  time.Time                `gorm:"column:created_at;autoCreateTime"`
}

func (OrderStatusHistory) TableName() string {
	return "order_status_history"
}

// IssueReport captures a delivery problem raised against an order.
type IssueReport struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID       uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	IssueType     enums.IssueType     `gorm:"column:issue_type;type:text;not null"`
	Severity      enums.IssueSeverity `gorm:"column:severity;type:text;not null"`
	Title         string              `gorm:"column:title;not null"`
	Description   string              `gorm:"column:description;not null"`
	AffectedItems json.RawMessage     `gorm:"column:affected_items;type:jsonb"`
	ReportedBy    *uuid.UUID          `gorm:"column:reported_by;type:uuid"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
}
