package fulfillment

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradeflow-backend/internal/repo"
	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
	"github.com/angelmondragon/tradeflow-backend/pkg/pagination"
)

// Repository persists orders, their line items and the status history.
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

// CreateOrder inserts the order together with its line items.
func (r *Repository) CreateOrder(ctx context.Context, order *models.FulfillmentOrder) error {
	return r.DB(ctx).Create(order).Error
}

func (r *Repository) preloaded(ctx context.Context) *gorm.DB {
	return r.DB(ctx).Preload("LineItems", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.FulfillmentOrder, error) {
	var order models.FulfillmentOrder
	if err := r.preloaded(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *Repository) FindByPaymentAttempt(ctx context.Context, attemptID uuid.UUID) (*models.FulfillmentOrder, error) {
	var order models.FulfillmentOrder
	if err := r.preloaded(ctx).Where("payment_attempt_id = ?", attemptID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *Repository) FindByReference(ctx context.Context, reference string) (*models.FulfillmentOrder, error) {
	var order models.FulfillmentOrder
	if err := r.preloaded(ctx).Where("payment_reference = ?", reference).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateStatus applies the change only while the order is still in from.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.FulfillmentStatus, fields map[string]any) (bool, error) {
	updates := map[string]any{"status": to}
	for k, v := range fields {
		updates[k] = v
	}
	return repo.Claimed(r.DB(ctx).Model(&models.FulfillmentOrder{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates))
}

// UpdateFields writes order columns that do not change status.
func (r *Repository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.DB(ctx).Model(&models.FulfillmentOrder{}).Where("id = ?", id).Updates(fields).Error
}

// SaveLineItemReceipt persists the receipt and issue flags of one line item.
func (r *Repository) SaveLineItemReceipt(ctx context.Context, item *models.FulfillmentLineItem) error {
	return r.DB(ctx).Model(item).
		Select("quantity_received", "received", "has_issue", "issue_notes", "updated_at").
		Updates(item).Error
}

// AppendHistory numbers entry after the order's latest row. Callers hold the
// order row in the same transaction, so numbering per order is serial; the
// unique (order_id, seq) index rejects anything that slips through.
func (r *Repository) AppendHistory(ctx context.Context, entry *models.OrderStatusHistory) error {
	db := r.DB(ctx)
	var last int
	err := db.Model(&models.OrderStatusHistory{}).
		Where("order_id = ?", entry.OrderID).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&last).Error
	if err != nil {
		return err
	}
	entry.Seq = last + 1
	return db.Create(entry).Error
}

func (r *Repository) ListHistory(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error) {
	var rows []models.OrderStatusHistory
	err := r.DB(ctx).
		Where("order_id = ?", orderID).
		Order("seq ASC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) CreateIssue(ctx context.Context, issue *models.IssueReport) error {
	return r.DB(ctx).Create(issue).Error
}

func (r *Repository) SupplierLeadDays(ctx context.Context, supplierID uuid.UUID) (int, error) {
	var supplier models.Supplier
	if err := r.DB(ctx).Select("id", "delivery_lead_days").First(&supplier, "id = ?", supplierID).Error; err != nil {
		return 0, err
	}
	return supplier.DeliveryLeadDays, nil
}

type listQuery struct {
	Status     *enums.FulfillmentStatus
	SupplierID *uuid.UUID
	PayerID    *uuid.UUID
	Cursor     *pagination.Cursor
	Limit      int
}

func (r *Repository) List(ctx context.Context, q listQuery) ([]models.FulfillmentOrder, error) {
	query := r.preloaded(ctx).Model(&models.FulfillmentOrder{})
	if q.Status != nil {
		query = query.Where("status = ?", *q.Status)
	}
	if q.SupplierID != nil {
		query = query.Where("supplier_id = ?", *q.SupplierID)
	}
	if q.PayerID != nil {
		query = query.Where("payer_id = ?", *q.PayerID)
	}
	var rows []models.FulfillmentOrder
	err := query.Scopes(pagination.Window(q.Cursor, q.Limit)).Find(&rows).Error
	return rows, err
}
