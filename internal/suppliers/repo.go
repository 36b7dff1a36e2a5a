package suppliers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tradeflow-backend/pkg/errors"
)

// Repository reads suppliers and their catalogue.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a suppliers repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, supplier *models.Supplier) error {
	return r.db.WithContext(ctx).Create(supplier).Error
}

func (r *Repository) CreateProduct(ctx context.Context, product *models.SupplierProduct) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	var supplier models.Supplier
	if err := r.db.WithContext(ctx).First(&supplier, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

// FindActive loads a supplier and rejects unknown or deactivated ones.
func (r *Repository) FindActive(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	supplier, err := r.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load supplier")
	}
	if !supplier.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier is not active")
	}
	return supplier, nil
}

// FindProducts returns the supplier's products keyed by id.
func (r *Repository) FindProducts(ctx context.Context, supplierID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]models.SupplierProduct, error) {
	out := make(map[uuid.UUID]models.SupplierProduct, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.SupplierProduct
	if err := r.db.WithContext(ctx).
		Where("supplier_id = ? AND id IN ?", supplierID, ids).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// FindProduct loads a single catalogue entry.
func (r *Repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.SupplierProduct, error) {
	var product models.SupplierProduct
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}
