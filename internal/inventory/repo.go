package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/tradeflow-backend/internal/repo"
	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
	"github.com/angelmondragon/tradeflow-backend/pkg/pagination"
)

// Repository owns warehouse stock rows and the movement ledger.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{Base: repo.NewBase(tx)}
}

// ClaimOrder stamps stock_applied_at if it is still empty. Only one caller can win.
func (r *Repository) ClaimOrder(ctx context.Context, orderID uuid.UUID, at time.Time) (bool, error) {
	return repo.Claimed(r.DB(ctx).Model(&models.FulfillmentOrder{}).
		Where("id = ? AND stock_applied_at IS NULL", orderID).
		UpdateColumn("stock_applied_at", at))
}

// EnsureWarehouseProduct returns the stock row for a supplier product, creating it at zero.
func (r *Repository) EnsureWarehouseProduct(ctx context.Context, supplierProductID, supplierID uuid.UUID, name string) (*models.WarehouseProduct, error) {
	candidate := &models.WarehouseProduct{
		SupplierProductID: supplierProductID,
		SupplierID:        supplierID,
		Name:              name,
	}
	err := r.DB(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "supplier_product_id"}}, DoNothing: true}).
		Create(candidate).Error
	if err != nil {
		return nil, err
	}
	var product models.WarehouseProduct
	if err := r.DB(ctx).Where("supplier_product_id = ?", supplierProductID).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// Increment adds delta to on_hand and returns the new quantity. The UPDATE takes
// the row lock so concurrent deliveries of one product apply in sequence.
func (r *Repository) Increment(ctx context.Context, warehouseProductID uuid.UUID, delta int, at time.Time) (int, error) {
	res := r.DB(ctx).Model(&models.WarehouseProduct{}).
		Where("id = ?", warehouseProductID).
		Updates(map[string]any{
			"on_hand":    gorm.Expr("on_hand + ?", delta),
			"updated_at": at,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	var after int
	err := r.DB(ctx).Model(&models.WarehouseProduct{}).
		Where("id = ?", warehouseProductID).
		Select("on_hand").
		Scan(&after).Error
	return after, err
}

func (r *Repository) CreateMovement(ctx context.Context, movement *models.InventoryMovement) error {
	return r.DB(ctx).Create(movement).Error
}

// deductAttempts bounds how often a deduction re-reads stock after losing
// to a concurrent writer.
const deductAttempts = 3

// DeductSupplierStock lowers a supplier's catalogue count, clamping at zero.
// It returns the quantity actually deducted; the update only lands while the
// count still holds the value it was computed from.
func (r *Repository) DeductSupplierStock(ctx context.Context, productID uuid.UUID, quantity int) (int, error) {
	for range deductAttempts {
		var product models.SupplierProduct
		if err := r.DB(ctx).Select("id", "stock_quantity").First(&product, "id = ?", productID).Error; err != nil {
			return 0, err
		}
		deducted := min(quantity, product.StockQuantity)
		if deducted <= 0 {
			return 0, nil
		}
		ok, err := repo.Claimed(r.DB(ctx).Model(&models.SupplierProduct{}).
			Where("id = ? AND stock_quantity = ?", productID, product.StockQuantity).
			UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", deducted)))
		if err != nil {
			return 0, err
		}
		if ok {
			return deducted, nil
		}
	}
	return 0, nil
}

// FindProduct resolves either a warehouse product id or the supplier product it tracks.
func (r *Repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.WarehouseProduct, error) {
	var product models.WarehouseProduct
	err := r.DB(ctx).
		Where("id = ? OR supplier_product_id = ?", id, id).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *Repository) ListMovements(ctx context.Context, warehouseProductID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.InventoryMovement, error) {
	var rows []models.InventoryMovement
	err := r.DB(ctx).
		Where("warehouse_product_id = ?", warehouseProductID).
		Scopes(pagination.Window(cursor, limit)).
		Find(&rows).Error
	return rows, err
}

func (r *Repository) ListMovementsForOrder(ctx context.Context, orderID uuid.UUID) ([]models.InventoryMovement, error) {
	var rows []models.InventoryMovement
	err := r.DB(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}
