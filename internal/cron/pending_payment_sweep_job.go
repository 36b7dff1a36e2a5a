package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
)

const (
	defaultSweepAge   = 15 * time.Minute
	defaultSweepBatch = 50
)

type pendingSweeper interface {
	SweepPending(ctx context.Context, olderThan time.Duration, limit int) (int, error)
}

type PendingPaymentSweepJobParams struct {
	Logger     *logger.Logger
	Reconciler pendingSweeper
	OlderThan  time.Duration
	BatchSize  int
}

// NewPendingPaymentSweepJob verifies attempts whose webhook never arrived.
func NewPendingPaymentSweepJob(params PendingPaymentSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reconciler == nil {
		return nil, fmt.Errorf("reconciler required")
	}
	olderThan := params.OlderThan
	if olderThan <= 0 {
		olderThan = defaultSweepAge
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultSweepBatch
	}
	return &pendingPaymentSweepJob{
		logg:      params.Logger,
		sweeper:   params.Reconciler,
		olderThan: olderThan,
		batch:     batch,
	}, nil
}

type pendingPaymentSweepJob struct {
	logg      *logger.Logger
	sweeper   pendingSweeper
	olderThan time.Duration
	batch     int
}

func (j *pendingPaymentSweepJob) Name() string { return "pending-payment-sweep" }

func (j *pendingPaymentSweepJob) Run(ctx context.Context) error {
	settled, err := j.sweeper.SweepPending(ctx, j.olderThan, j.batch)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"older_than": j.olderThan.String(),
		"batch_size": j.batch,
		"settled":    settled,
	})
	if err != nil {
		return fmt.Errorf("pending payment sweep: %w", err)
	}
	j.logg.Info(logCtx, "pending payment sweep complete")
	return nil
}
