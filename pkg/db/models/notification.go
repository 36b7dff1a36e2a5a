package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
)

// Notification is an inbox entry for a payer or supplier.
type Notification struct {
	ID            uuid.UUID              `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	EventID       uuid.UUID              `gorm:"column:event_id;type:uuid;not null;uniqueIndex" json:"-"`
	RecipientKind enums.RecipientKind    `gorm:"column:recipient_kind;type:text;not null" json:"recipient_kind"`
	RecipientID   uuid.UUID              `gorm:"column:recipient_id;type:uuid;not null;index" json:"recipient_id"`
	Type          enums.NotificationType `gorm:"column:type;type:text;not null" json:"type"`
	Title         string                 `gorm:"column:title;not null" json:"title"`
	Message       string                 `gorm:"column:message;not null" json:"message"`
	Link          *string                `gorm:"column:link" json:"link,omitempty"`
	ReadAt        *time.Time             `gorm:"column:read_at" json:"read_at,omitempty"`
	CreatedAt     time.Time              `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
