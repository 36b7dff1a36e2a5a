package inventory

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradeflow-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradeflow-backend/pkg/errors"
	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
	"github.com/angelmondragon/tradeflow-backend/pkg/outbox"
	"github.com/angelmondragon/tradeflow-backend/pkg/pagination"
	"github.com/angelmondragon/tradeflow-backend/pkg/types"
)

type failingEmitter struct{}

func (failingEmitter) Emit(context.Context, *gorm.DB, outbox.DomainEvent) error {
	return errors.New("outbox down")
}

func newService(t *testing.T, conn *gorm.DB, emitter outboxEmitter) Service {
	t.Helper()
	if emitter == nil {
		emitter = outbox.NewService(outbox.NewRepository(conn), nil)
	}
	svc, err := NewService(NewRepository(conn), emitter, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	require.NoError(t, err)
	return svc
}

func seedOrder(t *testing.T, conn *gorm.DB, received ...bool) *models.FulfillmentOrder {
	t.Helper()
	supplierID := uuid.New()
	order := &models.FulfillmentOrder{
		OrderNumber:      "PO-" + uuid.NewString()[:8],
		PaymentAttemptID: uuid.New(),
		PaymentReference: "EZM-" + uuid.NewString(),
		PayerID:          uuid.New(),
		SupplierID:       supplierID,
		Status:           enums.FulfillmentDelivered,
		TotalAmount:      decimal.NewFromInt(100),
		Currency:         enums.CurrencyETB,
	}
	for i, r := range received {
		order.LineItems = append(order.LineItems, models.FulfillmentLineItem{
			Position:          i,
			SupplierProductID: uuid.New(),
			Name:              "item",
			QuantityOrdered:   (i + 1) * 5,
			UnitPrice:         decimal.NewFromInt(10),
			Received:          r,
		})
	}
	require.NoError(t, conn.Create(order).Error)
	return order
}

func apply(t *testing.T, conn *gorm.DB, svc Service, order *models.FulfillmentOrder) (*ApplyResult, error) {
	t.Helper()
	var result *ApplyResult
	err := conn.Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = svc.ApplyDelivery(context.Background(), tx, order)
		return err
	})
	return result, err
}

func TestApplyDeliveryRunsOnce(t *testing.T) {
	conn := dbtest.Open(t)
	svc := newService(t, conn, nil)
	order := seedOrder(t, conn, true, true)

	first, err := apply(t, conn, svc, order)
	require.NoError(t, err)
	assert.True(t, first.Applied)
	require.Len(t, first.Movements, 2)
	assert.Equal(t, 15, first.Units())

	second, err := apply(t, conn, svc, order)
	require.NoError(t, err)
	assert.False(t, second.Applied)
	assert.Empty(t, second.Movements)

	movements, err := svc.MovementsForOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Len(t, movements, 2)

	level, err := svc.StockLevel(context.Background(), order.LineItems[1].SupplierProductID)
	require.NoError(t, err)
	assert.Equal(t, 10, level.OnHand)

	var events int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventStockReceived).Count(&events).Error)
	assert.EqualValues(t, 1, events)
}

func TestApplyDeliveryRecordsBeforeAndAfter(t *testing.T) {
	conn := dbtest.Open(t)
	svc := newService(t, conn, nil)
	first := seedOrder(t, conn, true)
	_, err := apply(t, conn, svc, first)
	require.NoError(t, err)

	second := seedOrder(t, conn, true)
	second.LineItems[0].SupplierProductID = first.LineItems[0].SupplierProductID
	require.NoError(t, conn.Save(&second.LineItems[0]).Error)

	result, err := apply(t, conn, svc, second)
	require.NoError(t, err)
	require.Len(t, result.Movements, 1)
	m := result.Movements[0]
	assert.Equal(t, 5, m.QuantityBefore)
	assert.Equal(t, 10, m.QuantityAfter)
	assert.Equal(t, enums.MovementPurchaseDelivery, m.Reason)
}

func TestApplyDeliverySkipsUnreceivedItems(t *testing.T) {
	conn := dbtest.Open(t)
	svc := newService(t, conn, nil)
	order := seedOrder(t, conn, true, false)

	result, err := apply(t, conn, svc, order)
	require.NoError(t, err)
	require.Len(t, result.Movements, 1)

	_, err = svc.StockLevel(context.Background(), order.LineItems[1].SupplierProductID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestApplyDeliveryRollsBackOnFailure(t *testing.T) {
	conn := dbtest.Open(t)
	svc := newService(t, conn, failingEmitter{})
	order := seedOrder(t, conn, true, true)

	_, err := apply(t, conn, svc, order)
	require.Error(t, err)

	var movements, products int64
	require.NoError(t, conn.Model(&models.InventoryMovement{}).Count(&movements).Error)
	require.NoError(t, conn.Model(&models.WarehouseProduct{}).Count(&products).Error)
	assert.Zero(t, movements)
	assert.Zero(t, products)

	var stored models.FulfillmentOrder
	require.NoError(t, conn.First(&stored, "id = ?", order.ID).Error)
	assert.Nil(t, stored.StockAppliedAt)
}

func TestDeductSupplierStockClampsAtZero(t *testing.T) {
	conn := dbtest.Open(t)
	svc := newService(t, conn, nil)
	supplierID := uuid.New()
	plenty := &models.SupplierProduct{SupplierID: supplierID, Name: "Coffee", SKU: "C", UnitPrice: decimal.NewFromInt(5), StockQuantity: 10, IsActive: true}
	scarce := &models.SupplierProduct{SupplierID: supplierID, Name: "Honey", SKU: "H", UnitPrice: decimal.NewFromInt(5), StockQuantity: 2, IsActive: true}
	require.NoError(t, conn.Create(plenty).Error)
	require.NoError(t, conn.Create(scarce).Error)

	missing := uuid.New()
	var shortfalls []Shortfall
	err := conn.Transaction(func(tx *gorm.DB) error {
		shortfalls = svc.DeductSupplierStock(context.Background(), tx, supplierID, types.LineItemSnapshots{
			{ProductID: plenty.ID, Quantity: 4},
			{ProductID: scarce.ID, Quantity: 5},
			{ProductID: missing, Quantity: 1},
		})
		return nil
	})
	require.NoError(t, err)
	require.Len(t, shortfalls, 2)
	assert.Equal(t, Shortfall{ProductID: scarce.ID, Requested: 5, Deducted: 2}, shortfalls[0])
	assert.Equal(t, missing, shortfalls[1].ProductID)

	var reloaded models.SupplierProduct
	require.NoError(t, conn.First(&reloaded, "id = ?", plenty.ID).Error)
	assert.Equal(t, 6, reloaded.StockQuantity)
	require.NoError(t, conn.First(&reloaded, "id = ?", scarce.ID).Error)
	assert.Equal(t, 0, reloaded.StockQuantity)
}

// stealStock sets the product's stock to the next value of left just before
// each update of supplier_products reaches the database.
func stealStock(t *testing.T, conn *gorm.DB, productID uuid.UUID, left ...int) {
	t.Helper()
	require.NoError(t, conn.Callback().Update().Before("gorm:update").Register("test:steal_stock", func(db *gorm.DB) {
		if db.Statement.Table != "supplier_products" || len(left) == 0 {
			return
		}
		next := left[0]
		left = left[1:]
		require.NoError(t, db.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE supplier_products SET stock_quantity = ? WHERE id = ?", next, productID).Error)
	}))
}

func TestDeductSupplierStockRereadsAfterConcurrentDeduction(t *testing.T) {
	cases := map[string]struct {
		stolen []int
		want   int
		left   int
	}{
		"partial stock left":       {stolen: []int{1}, want: 1, left: 0},
		"nothing left":             {stolen: []int{0}, want: 0, left: 0},
		"keeps losing the race":    {stolen: []int{9, 8, 7}, want: 0, left: 7},
		"enough left after a loss": {stolen: []int{6}, want: 4, left: 2},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			conn := dbtest.Open(t)
			product := &models.SupplierProduct{SupplierID: uuid.New(), Name: "Coffee", SKU: "C", UnitPrice: decimal.NewFromInt(5), StockQuantity: 10, IsActive: true}
			require.NoError(t, conn.Create(product).Error)
			stealStock(t, conn, product.ID, tc.stolen...)

			got, err := NewRepository(conn).DeductSupplierStock(context.Background(), product.ID, 4)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)

			var reloaded models.SupplierProduct
			require.NoError(t, conn.First(&reloaded, "id = ?", product.ID).Error)
			assert.Equal(t, tc.left, reloaded.StockQuantity)
		})
	}
}

func TestMovementsPaginates(t *testing.T) {
	conn := dbtest.Open(t)
	svc := newService(t, conn, nil)
	first := seedOrder(t, conn, true)
	_, err := apply(t, conn, svc, first)
	require.NoError(t, err)
	productID := first.LineItems[0].SupplierProductID

	for i := 0; i < 2; i++ {
		order := seedOrder(t, conn, true)
		order.LineItems[0].SupplierProductID = productID
		require.NoError(t, conn.Save(&order.LineItems[0]).Error)
		_, err := apply(t, conn, svc, order)
		require.NoError(t, err)
	}

	page, err := svc.Movements(context.Background(), productID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Movements, 2)
	require.NotEmpty(t, page.NextCursor)
	assert.Equal(t, 15, page.Product.OnHand)

	next, err := svc.Movements(context.Background(), productID, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, next.Movements, 1)
	assert.Empty(t, next.NextCursor)
	assert.Equal(t, 0, next.Movements[0].QuantityBefore)
}
