package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradeflow-backend/pkg/errors"
	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
	"github.com/angelmondragon/tradeflow-backend/pkg/outbox"
	"github.com/angelmondragon/tradeflow-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/tradeflow-backend/pkg/pagination"
	"github.com/angelmondragon/tradeflow-backend/pkg/types"
)

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ApplyResult describes what ApplyDelivery did for one order.
type ApplyResult struct {
	Applied   bool
	Movements []models.InventoryMovement
}

// Units sums the positive deltas written by the run.
func (r *ApplyResult) Units() int {
	if r == nil {
		return 0
	}
	total := 0
	for _, m := range r.Movements {
		total += m.Delta
	}
	return total
}

// Shortfall is a supplier product that did not hold enough stock for an order.
type Shortfall struct {
	ProductID uuid.UUID
	Requested int
	Deducted  int
}

// MovementPage is a cursor page of movements for one product.
type MovementPage struct {
	Product    *models.WarehouseProduct
	Movements  []models.InventoryMovement
	NextCursor string
}

// Service applies deliveries to warehouse stock and answers stock queries.
type Service interface {
	ApplyDelivery(ctx context.Context, tx *gorm.DB, order *models.FulfillmentOrder) (*ApplyResult, error)
	DeductSupplierStock(ctx context.Context, tx *gorm.DB, supplierID uuid.UUID, items types.LineItemSnapshots) []Shortfall
	StockLevel(ctx context.Context, productID uuid.UUID) (*models.WarehouseProduct, error)
	Movements(ctx context.Context, productID uuid.UUID, params pagination.Params) (*MovementPage, error)
	MovementsForOrder(ctx context.Context, orderID uuid.UUID) ([]models.InventoryMovement, error)
}

type service struct {
	repo   *Repository
	outbox outboxEmitter
	logg   *logger.Logger
	now    func() time.Time
}

func NewService(repo *Repository, emitter outboxEmitter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, outbox: emitter, logg: logg, now: time.Now}, nil
}

// ApplyDelivery increments warehouse stock for every received line item of order.
// It must run inside the transaction that moves the order to delivered; the first
// statement claims the order so a second run is a no-op, and any failure rolls
// back every increment together with the claim.
func (s *service) ApplyDelivery(ctx context.Context, tx *gorm.DB, order *models.FulfillmentOrder) (*ApplyResult, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if order == nil || order.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	repo := s.repo.WithTx(tx)
	now := s.now().UTC()

	claimed, err := repo.ClaimOrder(ctx, order.ID, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "claim order for stock application")
	}
	if !claimed {
		s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "stock already applied for order")
		return &ApplyResult{Applied: false}, nil
	}

	result := &ApplyResult{Applied: true}
	for _, item := range order.LineItems {
		if !item.Received || item.QuantityOrdered <= 0 {
			continue
		}
		product, err := repo.EnsureWarehouseProduct(ctx, item.SupplierProductID, order.SupplierID, item.Name)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "provision warehouse product").
				WithDetails(map[string]any{"line_item_id": item.ID, "product_id": item.SupplierProductID})
		}
		delta := item.QuantityOrdered
		after, err := repo.Increment(ctx, product.ID, delta, now)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "increment warehouse stock").
				WithDetails(map[string]any{"line_item_id": item.ID})
		}
		movement := models.InventoryMovement{
			WarehouseProductID: product.ID,
			OrderID:            order.ID,
			LineItemID:         item.ID,
			Reason:             enums.MovementPurchaseDelivery,
			Delta:              delta,
			QuantityBefore:     after - delta,
			QuantityAfter:      after,
		}
		if err := repo.CreateMovement(ctx, &movement); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "record inventory movement").
				WithDetails(map[string]any{"line_item_id": item.ID})
		}
		result.Movements = append(result.Movements, movement)
	}

	if len(result.Movements) > 0 {
		event := payloads.StockReceivedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			Movements:   make([]payloads.StockMovement, 0, len(result.Movements)),
		}
		for _, m := range result.Movements {
			event.Movements = append(event.Movements, payloads.StockMovement{
				WarehouseProductID: m.WarehouseProductID,
				SupplierProductID:  supplierProductFor(order, m.LineItemID),
				LineItemID:         m.LineItemID,
				Delta:              m.Delta,
				QuantityBefore:     m.QuantityBefore,
				QuantityAfter:      m.QuantityAfter,
			})
		}
		err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventStockReceived,
			AggregateType: enums.AggregateFulfillmentOrder,
			AggregateID:   order.ID,
			Data:          event,
			Version:       1,
			OccurredAt:    now,
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "emit stock received event")
		}
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id":  order.ID.String(),
		"movements": len(result.Movements),
		"units":     result.Units(),
	}), "delivery applied to stock")
	return result, nil
}

func supplierProductFor(order *models.FulfillmentOrder, lineItemID uuid.UUID) uuid.UUID {
	for _, item := range order.LineItems {
		if item.ID == lineItemID {
			return item.SupplierProductID
		}
	}
	return uuid.Nil
}

// DeductSupplierStock lowers the supplier catalogue counts for a paid order. Each
// item runs in its own savepoint so a missing product never aborts the payment.
func (s *service) DeductSupplierStock(ctx context.Context, tx *gorm.DB, supplierID uuid.UUID, items types.LineItemSnapshots) []Shortfall {
	var shortfalls []Shortfall
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		var deducted int
		err := tx.Transaction(func(sp *gorm.DB) error {
			var err error
			deducted, err = s.repo.WithTx(sp).DeductSupplierStock(ctx, item.ProductID, item.Quantity)
			return err
		})
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"supplier_id": supplierID.String(),
			"product_id":  item.ProductID.String(),
			"requested":   item.Quantity,
		})
		if err != nil {
			s.logg.Error(logCtx, "supplier stock deduction failed", err)
			shortfalls = append(shortfalls, Shortfall{ProductID: item.ProductID, Requested: item.Quantity})
			continue
		}
		if deducted < item.Quantity {
			s.logg.Warn(s.logg.WithField(logCtx, "deducted", deducted), "supplier stock insufficient, clamped at zero")
			shortfalls = append(shortfalls, Shortfall{ProductID: item.ProductID, Requested: item.Quantity, Deducted: deducted})
		}
	}
	return shortfalls
}

func (s *service) StockLevel(ctx context.Context, productID uuid.UUID) (*models.WarehouseProduct, error) {
	product, err := s.repo.FindProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product has no warehouse stock")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load warehouse product")
	}
	return product, nil
}

func (s *service) Movements(ctx context.Context, productID uuid.UUID, params pagination.Params) (*MovementPage, error) {
	product, err := s.StockLevel(ctx, productID)
	if err != nil {
		return nil, err
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListMovements(ctx, product.ID, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "list inventory movements")
	}
	movements, next := pagination.Trim(rows, params.Limit, func(m models.InventoryMovement) pagination.Cursor {
		return pagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
	})
	page := &MovementPage{Product: product, Movements: movements}
	if next != nil {
		page.NextCursor = pagination.EncodeCursor(*next)
	}
	return page, nil
}

func (s *service) MovementsForOrder(ctx context.Context, orderID uuid.UUID) ([]models.InventoryMovement, error) {
	rows, err := s.repo.ListMovementsForOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "list order movements")
	}
	return rows, nil
}
