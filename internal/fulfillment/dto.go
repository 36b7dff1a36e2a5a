package fulfillment

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
	"github.com/angelmondragon/tradeflow-backend/pkg/pagination"
)

// issueNoteNotReceived marks items left out of a partial delivery confirmation.
const issueNoteNotReceived = "Item not received during delivery confirmation"

type ShipInput struct {
	OrderID             uuid.UUID
	TrackingNumber      string
	NoTrackingAvailable bool
	Actor               *uuid.UUID
}

// ConfirmDeliveryInput marks line items received. AllItemsReceived ignores ReceivedLineItemIDs.
type ConfirmDeliveryInput struct {
	OrderID             uuid.UUID
	ReceivedLineItemIDs []uuid.UUID
	AllItemsReceived    bool
	Condition           enums.DeliveryCondition
	Notes               string
	Actor               *uuid.UUID
}

type ReportIssueInput struct {
	OrderID             uuid.UUID
	IssueType           enums.IssueType
	Severity            enums.IssueSeverity
	Title               string
	Description         string
	AffectedLineItemIDs []uuid.UUID
	Actor               *uuid.UUID
}

type CancelInput struct {
	OrderID uuid.UUID
	Reason  string
	Actor   *uuid.UUID
}

// DeliveryResult reports whether the confirmation completed the order.
type DeliveryResult struct {
	Order        *models.FulfillmentOrder
	Outcome      enums.DeliveryOutcome
	StockApplied bool
	Movements    []models.InventoryMovement
}

type IssueResult struct {
	Order *models.FulfillmentOrder
	Issue *models.IssueReport
}

// Transition is one applied status change.
type Transition struct {
	From *enums.FulfillmentStatus
	To   enums.FulfillmentStatus
}

// SettlementEffect is what a settled payment did to its order.
type SettlementEffect struct {
	Order       *models.FulfillmentOrder
	Created     bool
	Cancelled   bool
	Transitions []Transition
}

type ListParams struct {
	Status     *enums.FulfillmentStatus
	SupplierID *uuid.UUID
	PayerID    *uuid.UUID
	Page       pagination.Params
}

type ListResult struct {
	Orders     []models.FulfillmentOrder
	NextCursor string
}

// OrderDTO is the API shape of a fulfillment order.
type OrderDTO struct {
	ID                   uuid.UUID                `json:"id"`
	OrderNumber          string                   `json:"order_number"`
	PaymentReference     string                   `json:"payment_reference"`
	PayerID              uuid.UUID                `json:"payer_id"`
	SupplierID           uuid.UUID                `json:"supplier_id"`
	Status               enums.FulfillmentStatus  `json:"status"`
	TotalAmount          string                   `json:"total_amount"`
	Currency             enums.Currency           `json:"currency"`
	TrackingNumber       *string                  `json:"tracking_number,omitempty"`
	ShippedAt            *time.Time               `json:"shipped_at,omitempty"`
	ExpectedDeliveryDate *time.Time               `json:"expected_delivery_date,omitempty"`
	DeliveredAt          *time.Time               `json:"delivered_at,omitempty"`
	DeliveryCondition    *enums.DeliveryCondition `json:"delivery_condition,omitempty"`
	DeliveryNotes        *string                  `json:"delivery_notes,omitempty"`
	StockApplied         bool                     `json:"stock_applied"`
	CancellationReason   *string                  `json:"cancellation_reason,omitempty"`
	LineItems            []LineItemDTO            `json:"line_items"`
	CreatedAt            time.Time                `json:"created_at"`
	UpdatedAt            time.Time                `json:"updated_at"`
}

type LineItemDTO struct {
	ID                uuid.UUID `json:"id"`
	SupplierProductID uuid.UUID `json:"supplier_product_id"`
	Name              string    `json:"name"`
	QuantityOrdered   int       `json:"quantity_ordered"`
	QuantityReceived  int       `json:"quantity_received"`
	UnitPrice         string    `json:"unit_price"`
	Received          bool      `json:"received"`
	HasIssue          bool      `json:"has_issue"`
	IssueNotes        *string   `json:"issue_notes,omitempty"`
}

type HistoryDTO struct {
	FromStatus *enums.FulfillmentStatus `json:"from_status,omitempty"`
	ToStatus   enums.FulfillmentStatus  `json:"to_status"`
	ActorID    *uuid.UUID               `json:"actor_id,omitempty"`
	Reason     string                   `json:"reason"`
	Notes      *string                  `json:"notes,omitempty"`
	CreatedAt  time.Time                `json:"created_at"`
}

func FromModel(o *models.FulfillmentOrder) OrderDTO {
	dto := OrderDTO{
		ID:                   o.ID,
		OrderNumber:          o.OrderNumber,
		PaymentReference:     o.PaymentReference,
		PayerID:              o.PayerID,
		SupplierID:           o.SupplierID,
		Status:               o.Status,
		TotalAmount:          o.TotalAmount.StringFixed(2),
		Currency:             o.Currency,
		TrackingNumber:       o.TrackingNumber,
		ShippedAt:            o.ShippedAt,
		ExpectedDeliveryDate: o.ExpectedDeliveryDate,
		DeliveredAt:          o.DeliveredAt,
		DeliveryCondition:    o.DeliveryCondition,
		DeliveryNotes:        o.DeliveryNotes,
		StockApplied:         o.StockAppliedAt != nil,
		CancellationReason:   o.CancellationReason,
		LineItems:            make([]LineItemDTO, 0, len(o.LineItems)),
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
	}
	for _, item := range o.LineItems {
		dto.LineItems = append(dto.LineItems, LineItemDTO{
			ID:                item.ID,
			SupplierProductID: item.SupplierProductID,
			Name:              item.Name,
			QuantityOrdered:   item.QuantityOrdered,
			QuantityReceived:  item.QuantityReceived,
			UnitPrice:         item.UnitPrice.StringFixed(2),
			Received:          item.Received,
			HasIssue:          item.HasIssue,
			IssueNotes:        item.IssueNotes,
		})
	}
	return dto
}

func HistoryFromModels(rows []models.OrderStatusHistory) []HistoryDTO {
	out := make([]HistoryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, HistoryDTO{
			FromStatus: row.FromStatus,
			ToStatus:   row.ToStatus,
			ActorID:    row.ActorID,
			Reason:     row.Reason,
			Notes:      row.Notes,
			CreatedAt:  row.CreatedAt,
		})
	}
	return out
}
