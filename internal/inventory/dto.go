package inventory

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
)

type ProductDTO struct {
	ID                uuid.UUID `json:"id"`
	SupplierProductID uuid.UUID `json:"supplier_product_id"`
	SupplierID        uuid.UUID `json:"supplier_id"`
	Name              string    `json:"name"`
	OnHand            int       `json:"on_hand"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type MovementDTO struct {
	ID                 uuid.UUID            `json:"id"`
	WarehouseProductID uuid.UUID            `json:"warehouse_product_id"`
	OrderID            uuid.UUID            `json:"order_id"`
	LineItemID         uuid.UUID            `json:"line_item_id"`
	Reason             enums.MovementReason `json:"reason"`
	Delta              int                  `json:"delta"`
	QuantityBefore     int                  `json:"quantity_before"`
	QuantityAfter      int                  `json:"quantity_after"`
	CreatedAt          time.Time            `json:"created_at"`
}

func ProductFromModel(p *models.WarehouseProduct) ProductDTO {
	return ProductDTO{
		ID:                p.ID,
		SupplierProductID: p.SupplierProductID,
		SupplierID:        p.SupplierID,
		Name:              p.Name,
		OnHand:            p.OnHand,
		UpdatedAt:         p.UpdatedAt,
	}
}

func MovementsFromModels(rows []models.InventoryMovement) []MovementDTO {
	out := make([]MovementDTO, 0, len(rows))
	for _, m := range rows {
		out = append(out, MovementDTO{
			ID:                 m.ID,
			WarehouseProductID: m.WarehouseProductID,
			OrderID:            m.OrderID,
			LineItemID:         m.LineItemID,
			Reason:             m.Reason,
			Delta:              m.Delta,
			QuantityBefore:     m.QuantityBefore,
			QuantityAfter:      m.QuantityAfter,
			CreatedAt:          m.CreatedAt,
		})
	}
	return out
}
