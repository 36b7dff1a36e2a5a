package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
)

const defaultReplayBatch = 25

type failedReplayer interface {
	ReplayFailed(ctx context.Context, limit int) (int, error)
}

type WebhookReplayJobParams struct {
	Logger     *logger.Logger
	Reconciler failedReplayer
	BatchSize  int
}

// NewWebhookReplayJob re-runs webhook log entries whose processing errored.
func NewWebhookReplayJob(params WebhookReplayJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reconciler == nil {
		return nil, fmt.Errorf("reconciler required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultReplayBatch
	}
	return &webhookReplayJob{logg: params.Logger, replayer: params.Reconciler, batch: batch}, nil
}

type webhookReplayJob struct {
	logg     *logger.Logger
	replayer failedReplayer
	batch    int
}

func (j *webhookReplayJob) Name() string { return "webhook-replay" }

func (j *webhookReplayJob) Run(ctx context.Context) error {
	replayed, err := j.replayer.ReplayFailed(ctx, j.batch)
	if err != nil {
		return fmt.Errorf("webhook replay (%d replayed): %w", replayed, err)
	}
	j.logg.Info(j.logg.WithField(ctx, "replayed", replayed), "webhook replay complete")
	return nil
}
