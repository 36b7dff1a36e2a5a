package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
)

// WarehouseProduct is the buyer-side stock record for a supplier product.
type WarehouseProduct struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	SupplierProductID uuid.UUID `gorm:"column:supplier_product_id;type:uuid;not null;uniqueIndex"`
	SupplierID        uuid.UUID `gorm:"column:supplier_id;type:uuid;not null;index"`
	Name              string    `gorm:"column:name;not null"`
	OnHand            int       `gorm:"column:on_hand;not null;default:0"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// InventoryMovement records one stock change with its before/after quantities.
// (line_item_id, reason) is unique so a delivered line is applied at most once.
type InventoryMovement struct {
	ID                 uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	WarehouseProductID uuid.UUID            `gorm:"column:warehouse_product_id;type:uuid;not null;index"`
	OrderID            uuid.UUID            `gorm:"column:order_id;type:uuid;not null;index"`
	LineItemID         uuid.UUID            `gorm:"column:line_item_id;type:uuid;not null;uniqueIndex:idx_inventory_movements_line_reason"`
	Reason             enums.MovementReason `gorm:"column:reason;type:text;not null;uniqueIndex:idx_inventory_movements_line_reason"`
	Delta              int                  `gorm:"column:delta;not null"`
	QuantityBefore     int                  `gorm:"column:quantity_before;not null"`
	QuantityAfter      int                  `gorm:"column:quantity_after;not null"`
	CreatedAt          time.Time            `gorm:"column:created_at;autoCreateTime"`
}
