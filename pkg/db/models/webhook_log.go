package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
)

// WebhookLog is the durable record of every inbound payment notification.
type WebhookLog struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	Channel          enums.ReconcileChannel `gorm:"column:channel;type:text;not null;index"`
	Reference        string                 `gorm:"column:reference;not null;index"`
	ReportedState    string                 `gorm:"column:reported_state;not null"`
	Payload          json.RawMessage        `gorm:"column:payload;type:jsonb"`
	Signature        *string                `gorm:"column:signature"`
	SignatureValid   bool                   `gorm:"column:signature_valid;not null;default:false"`
	PaymentAttemptID *uuid.UUID             `gorm:"column:payment_attempt_id;type:uuid"`
	Processed        bool                   `gorm:"column:processed;not null;default:false;index"`
	ProcessingError  *string                `gorm:"column:processing_error"`
	Outcome          *string                `gorm:"column:outcome"`
	Attempts         int                    `gorm:"column:attempts;not null;default:0"`
	ProcessedAt      *time.Time             `gorm:"column:processed_at"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
