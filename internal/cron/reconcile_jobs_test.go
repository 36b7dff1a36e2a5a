package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
)

type fakeReconciler struct {
	olderThan   time.Duration
	sweepLimit  int
	replayLimit int
	settled     int
	replayed    int
	err         error
}

func (f *fakeReconciler) SweepPending(_ context.Context, olderThan time.Duration, limit int) (int, error) {
	f.olderThan, f.sweepLimit = olderThan, limit
	return f.settled, f.err
}

func (f *fakeReconciler) ReplayFailed(_ context.Context, limit int) (int, error) {
	f.replayLimit = limit
	return f.replayed, f.err
}

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

func TestPendingPaymentSweepJobUsesDefaults(t *testing.T) {
	rec := &fakeReconciler{settled: 3}
	job, err := NewPendingPaymentSweepJob(PendingPaymentSweepJobParams{Logger: quietLogger(), Reconciler: rec})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if job.Name() != "pending-payment-sweep" {
		t.Fatalf("unexpected name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if rec.olderThan != defaultSweepAge || rec.sweepLimit != defaultSweepBatch {
		t.Fatalf("unexpected sweep args %s/%d", rec.olderThan, rec.sweepLimit)
	}
}

func TestPendingPaymentSweepJobPropagatesError(t *testing.T) {
	rec := &fakeReconciler{err: errors.New("verify failed")}
	job, _ := NewPendingPaymentSweepJob(PendingPaymentSweepJobParams{
		Logger:     quietLogger(),
		Reconciler: rec,
		OlderThan:  time.Hour,
		BatchSize:  5,
	})
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if rec.olderThan != time.Hour || rec.sweepLimit != 5 {
		t.Fatalf("configured values not used: %s/%d", rec.olderThan, rec.sweepLimit)
	}
}

func TestWebhookReplayJob(t *testing.T) {
	rec := &fakeReconciler{replayed: 2}
	job, err := NewWebhookReplayJob(WebhookReplayJobParams{Logger: quietLogger(), Reconciler: rec, BatchSize: 10})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if rec.replayLimit != 10 {
		t.Fatalf("expected limit 10, got %d", rec.replayLimit)
	}

	rec.err = errors.New("replay failed")
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if _, err := NewWebhookReplayJob(WebhookReplayJobParams{Logger: quietLogger()}); err == nil {
		t.Fatal("expected missing reconciler error")
	}
}
