package payments

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradeflow-backend/internal/repo"
	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
)

// SettleUpdate is applied to a pending attempt when it reaches a terminal state.
type SettleUpdate struct {
	State         enums.PaymentState
	Channel       enums.ReconcileChannel
	Payload       json.RawMessage
	FailureReason *string
	SettledAt     time.Time
}

// Repository persists payment attempts and checkout sessions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateAttempt(ctx context.Context, attempt *models.PaymentAttempt) error
	CreateSession(ctx context.Context, session *models.CheckoutSession) error
	FindSession(ctx context.Context, id uuid.UUID) (*models.CheckoutSession, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentAttempt, error)
	FindByReference(ctx context.Context, reference string) (*models.PaymentAttempt, error)
	LatestPendingForPayer(ctx context.Context, payerID uuid.UUID) (*models.PaymentAttempt, error)
	Settle(ctx context.Context, id uuid.UUID, update SettleUpdate) (bool, error)
	RecordPayload(ctx context.Context, id uuid.UUID, payload json.RawMessage) error
	ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.PaymentAttempt, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds a payments repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) CreateAttempt(ctx context.Context, attempt *models.PaymentAttempt) error {
	return r.DB(ctx).Create(attempt).Error
}

func (r *repository) CreateSession(ctx context.Context, session *models.CheckoutSession) error {
	return r.DB(ctx).Omit("Attempts").Create(session).Error
}

// DeleteSession removes a session that never got an attempt.
func (r *repository) DeleteSession(ctx context.Context, id uuid.UUID) error {
	return r.DB(ctx).Delete(&models.CheckoutSession{}, "id = ?", id).Error
}

func (r *repository) FindSession(ctx context.Context, id uuid.UUID) (*models.CheckoutSession, error) {
	var session models.CheckoutSession
	err := r.DB(ctx).
		Preload("Attempts", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&session, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentAttempt, error) {
	var attempt models.PaymentAttempt
	if err := r.DB(ctx).First(&attempt, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *repository) FindByReference(ctx context.Context, reference string) (*models.PaymentAttempt, error) {
	var attempt models.PaymentAttempt
	if err := r.DB(ctx).Where("reference = ?", reference).First(&attempt).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *repository) LatestPendingForPayer(ctx context.Context, payerID uuid.UUID) (*models.PaymentAttempt, error) {
	var attempt models.PaymentAttempt
	err := r.DB(ctx).
		Where("payer_id = ? AND state = ?", payerID, enums.PaymentStatePending).
		Order("created_at DESC").
		First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// Settle moves a pending attempt to a terminal state. It reports false when the
// attempt was no longer pending, meaning a concurrent caller settled it first.
func (r *repository) Settle(ctx context.Context, id uuid.UUID, update SettleUpdate) (bool, error) {
	updates := map[string]any{
		"state":       update.State,
		"settled_via": update.Channel,
		"settled_at":  update.SettledAt,
		"updated_at":  update.SettledAt,
	}
	if len(update.Payload) > 0 {
		updates["last_payload"] = update.Payload
	}
	if update.FailureReason != nil {
		updates["failure_reason"] = *update.FailureReason
	}
	return repo.Claimed(r.DB(ctx).Model(&models.PaymentAttempt{}).
		Where("id = ? AND state = ?", id, enums.PaymentStatePending).
		Updates(updates))
}

// RecordPayload keeps the latest raw notification without touching state.
func (r *repository) RecordPayload(ctx context.Context, id uuid.UUID, payload json.RawMessage) error {
	if len(payload) == 0 {
		return nil
	}
	return r.DB(ctx).Model(&models.PaymentAttempt{}).
		Where("id = ?", id).
		UpdateColumn("last_payload", payload).Error
}

func (r *repository) ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.PaymentAttempt, error) {
	var rows []models.PaymentAttempt
	err := r.DB(ctx).
		Where("state = ? AND created_at < ?", enums.PaymentStatePending, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
