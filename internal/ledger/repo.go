package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradeflow-backend/internal/repo"
	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
)

// trail selects the entries of one attempt, by id or by reference.
type trail struct {
	column string
	value  any
}

func byAttempt(id uuid.UUID) trail  { return trail{column: "payment_attempt_id", value: id} }
func byReference(ref string) trail { return trail{column: "reference", value: ref} }

// Repository is the payment_ledger_events table. Rows are only inserted.
type Repository struct {
	repo.Base
}

func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(conn)}
}

// Append inserts through tx when one is open so the entry commits with the
// state change it describes.
func (r *Repository) Append(ctx context.Context, tx *gorm.DB, entry *models.LedgerEvent) error {
	conn := r.DB(ctx)
	if tx != nil {
		conn = tx.WithContext(ctx)
	}
	return conn.Create(entry).Error
}

// Trail returns entries oldest first. Entries written in one transaction
// share created_at, so id breaks the tie.
func (r *Repository) Trail(ctx context.Context, t trail) ([]models.LedgerEvent, error) {
	var entries []models.LedgerEvent
	err := r.DB(ctx).
		Where(t.column+" = ?", t.value).
		Order("created_at, id").
		Find(&entries).Error
	return entries, err
}

func (r *Repository) Exists(ctx context.Context, attemptID uuid.UUID, typ enums.LedgerEventType) (bool, error) {
	var n int64
	err := r.DB(ctx).Model(&models.LedgerEvent{}).
		Where("payment_attempt_id = ? AND type = ?", attemptID, typ).
		Limit(1).
		Count(&n).Error
	return n > 0, err
}
