package reconciler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradeflow-backend/internal/repo"
	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
)

// LogRepository stores every inbound payment notification.
type LogRepository struct {
	repo.Base
}

func NewLogRepository(db *gorm.DB) *LogRepository {
	return &LogRepository{Base: repo.NewBase(db)}
}

func (r *LogRepository) Create(ctx context.Context, log *models.WebhookLog) error {
	return r.DB(ctx).Create(log).Error
}

func (r *LogRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.WebhookLog, error) {
	var log models.WebhookLog
	if err := r.DB(ctx).First(&log, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &log, nil
}

func (r *LogRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.DB(ctx).Model(&models.WebhookLog{}).Where("id = ?", id).Updates(fields).Error
}

// ListUnprocessed returns logs that failed processing and still have attempts left.
func (r *LogRepository) ListUnprocessed(ctx context.Context, maxAttempts, limit int) ([]models.WebhookLog, error) {
	var rows []models.WebhookLog
	err := r.DB(ctx).
		Where("processed = ? AND signature_valid = ? AND attempts < ?", false, true, maxAttempts).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

type channelCount struct {
	Channel   enums.ReconcileChannel
	Total     int64
	Processed int64
	Failed    int64
}

func (r *LogRepository) CountByChannel(ctx context.Context, since time.Time) ([]channelCount, error) {
	var rows []channelCount
	err := r.DB(ctx).Model(&models.WebhookLog{}).
		Select(`channel,
			COUNT(*) AS total,
			SUM(CASE WHEN processed THEN 1 ELSE 0 END) AS processed,
			SUM(CASE WHEN outcome = 'failed' THEN 1 ELSE 0 END) AS failed`).
		Where("created_at >= ?", since).
		Group("channel").
		Order("channel").
		Scan(&rows).Error
	return rows, err
}
