package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
)

const (
	outboxRetention       = 30 * 24 * time.Hour
	notificationRetention = 30 * 24 * time.Hour
)

type deleteBefore func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)

// pruneJob deletes rows older than a retention window in one transaction.
type pruneJob struct {
	name      string
	logg      *logger.Logger
	db        txRunner
	prune     deleteBefore
	retention time.Duration
	now       func() time.Time
}

func newPruneJob(name string, logg *logger.Logger, db txRunner, prune deleteBefore, retention, fallback time.Duration) (Job, error) {
	switch {
	case logg == nil:
		return nil, errors.New("logger required")
	case db == nil:
		return nil, errors.New("db runner required")
	case prune == nil:
		return nil, fmt.Errorf("%s: repository required", name)
	}
	if retention <= 0 {
		retention = fallback
	}
	return &pruneJob{name: name, logg: logg, db: db, prune: prune, retention: retention, now: time.Now}, nil
}

func (j *pruneJob) Name() string { return j.name }

func (j *pruneJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) (err error) {
		deleted, err = j.prune(ctx, tx, cutoff)
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"job":          j.name,
		"cutoff":       cutoff,
		"retention":    j.retention.String(),
		"rows_deleted": deleted,
	}), "prune complete")
	return nil
}

// outboxRetentionRepo is satisfied by outbox.Repository.
type outboxRetentionRepo interface {
	DeletePublishedBefore(tx *gorm.DB, cutoff time.Time) (int64, error)
}

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository outboxRetentionRepo
	Retention  time.Duration
}

// NewOutboxRetentionJob drops published outbox rows. Unpublished and
// dead-lettered rows are never touched.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	var prune deleteBefore
	if params.Repository != nil {
		prune = func(_ context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
			return params.Repository.DeletePublishedBefore(tx, cutoff)
		}
	}
	return newPruneJob("outbox-retention", params.Logger, params.DB, prune, params.Retention, outboxRetention)
}

// notificationsCleanupRepo is satisfied by notifications.Repository.
type notificationsCleanupRepo interface {
	DeleteReadBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type NotificationCleanupJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository notificationsCleanupRepo
	Retention  time.Duration
}

// NewNotificationCleanupJob prunes inbox rows read before the window.
// Unread rows stay regardless of age.
func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	var prune deleteBefore
	if params.Repository != nil {
		prune = params.Repository.DeleteReadBefore
	}
	return newPruneJob("notification-cleanup", params.Logger, params.DB, prune, params.Retention, notificationRetention)
}
