package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
	"github.com/angelmondragon/tradeflow-backend/pkg/types"
)

// PaymentAttempt is a single hosted-checkout transaction identified by its reference.
type PaymentAttempt struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	Reference         string                  `gorm:"column:reference;not null;uniqueIndex"`
	CheckoutSessionID *uuid.UUID              `gorm:"column:checkout_session_id;type:uuid;index"`
	PayerID           uuid.UUID               `gorm:"column:payer_id;type:uuid;not null;index"`
	SupplierID        uuid.UUID               `gorm:"column:supplier_id;type:uuid;not null"`
	Amount            decimal.Decimal         `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency          enums.Currency          `gorm:"column:currency;type:text;not null"`
	State             enums.PaymentState      `gorm:"column:state;type:text;not null;index"`
	LineItems         types.LineItemSnapshots `gorm:"column:line_items;type:jsonb;not null"`
	CheckoutURL       string                  `gorm:"column:checkout_url;not null"`
	GatewayResponse   json.RawMessage         `gorm:"column:gateway_response;type:jsonb"`
	LastPayload       json.RawMessage         `gorm:"column:last_payload;type:jsonb"`
	FailureReason     *string                 `gorm:"column:failure_reason"`
	SettledVia        *enums.ReconcileChannel `gorm:"column:settled_via;type:text"`
	SettledAt         *time.Time              `gorm:"column:settled_at"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

// CheckoutSession groups the per-supplier attempts created by one checkout.
type CheckoutSession struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	PayerID   uuid.UUID        `gorm:"column:payer_id;type:uuid;not null;index"`
	Currency  enums.Currency   `gorm:"column:currency;type:text;not null"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	Attempts  []PaymentAttempt `gorm:"foreignKey:CheckoutSessionID"`
}
