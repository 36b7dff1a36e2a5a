package notifications

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

// readOutcome is what MarkRead found for one inbox row.
type readOutcome int

const (
	readMissing readOutcome = iota
	readStamped
	readAlready
)

// Repository stores inbox rows keyed by the event that produced them.
type Repository struct {
	repo.Base
}

func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(conn)}
}

// Insert reports false when a row for the same event already exists.
func (r *Repository) Insert(ctx context.Context, n *models.Notification) (bool, error) {
	res := r.DB(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_id"}}, DoNothing: true}).
		Create(n)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *Repository) Page(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, cursor *pagination.Cursor, limit int) ([]models.Notification, *pagination.Cursor, error) {
	q := r.DB(ctx).Where("recipient_id = ?", recipientID)
	if unreadOnly {
		q = q.Where("read_at IS NULL")
	}
	var rows []models.Notification
	if err := q.Scopes(pagination.Window(cursor, limit)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, limit, func(n models.Notification) pagination.Cursor {
		return pagination.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
	})
	return page, next, nil
}

// MarkRead stamps read_at once. A second call leaves the first stamp alone.
func (r *Repository) MarkRead(ctx context.Context, recipientID, id uuid.UUID, at time.Time) (readOutcome, error) {
	owned := r.DB(ctx).Model(&models.Notification{}).Where("id = ? AND recipient_id = ?", id, recipientID)
	stamped, err := repo.Claimed(owned.Session(&gorm.Session{}).Where("read_at IS NULL").Update("read_at", at))
	if err != nil {
		return readMissing, err
	}
	if stamped {
		return readStamped, nil
	}
	var n int64
	if err := owned.Session(&gorm.Session{}).Count(&n).Error; err != nil {
		return readMissing, err
	}
	if n == 0 {
		return readMissing, nil
	}
	return readAlready, nil
}

func (r *Repository) MarkAllRead(ctx context.Context, recipientID uuid.UUID, at time.Time) (int64, error) {
	res := r.DB(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND read_at IS NULL", recipientID).
		Update("read_at", at)
	return res.RowsAffected, res.Error
}

// DeleteReadBefore runs on tx when given. Unread rows are never pruned.
func (r *Repository) DeleteReadBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	conn := r.DB(ctx)
	if tx != nil {
		conn = tx.WithContext(ctx)
	}
	res := conn.Where("read_at IS NOT NULL AND read_at < ?", cutoff).Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
