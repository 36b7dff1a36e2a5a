package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
)

// LedgerEvent records an immutable step in a payment attempt's history.
type LedgerEvent struct {
	ID               uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	PaymentAttemptID uuid.UUID               `gorm:"column:payment_attempt_id;type:uuid;not null;index"`
	Reference        string                  `gorm:"column:reference;not null;index"`
	Type             enums.LedgerEventType   `gorm:"column:type;type:text;not null"`
	FromState        *enums.PaymentState     `gorm:"column:from_state;type:text"`
	ToState          *enums.PaymentState     `gorm:"column:to_state;type:text"`
	Channel          *enums.ReconcileChannel `gorm:"column:channel;type:text"`
	Amount           decimal.Decimal         `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency         enums.Currency          `gorm:"column:currency;type:text;not null"`
	Metadata         json.RawMessage         `gorm:"column:metadata;type:jsonb"`
	CreatedAt        time.Time               `gorm:"column:created_at;autoCreateTime"`
}

func (LedgerEvent) TableName() string {
	return "payment_ledger_events"
}
