package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradeflow-backend/internal/reconciler"
	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
)

func TestStatsSinceDefaultsToDay(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/webhooks/stats", nil)
	since, err := statsSince(req, now)
	if err != nil {
		t.Fatalf("statsSince: %v", err)
	}
	if !since.Equal(now.Add(-24 * time.Hour)) {
		t.Fatalf("unexpected since %s", since)
	}
}

func TestStatsSinceParsesInputs(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/webhooks/stats?window=90m", nil)
	since, err := statsSince(req, now)
	if err != nil || !since.Equal(now.Add(-90*time.Minute)) {
		t.Fatalf("window: got %s err %v", since, err)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/admin/webhooks/stats?since=2026-02-28T00:00:00Z", nil)
	since, err = statsSince(req, now)
	if err != nil || !since.Equal(time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("since: got %s err %v", since, err)
	}

	for _, raw := range []string{"since=yesterday", "window=-1h", "window=abc"} {
		req = httptest.NewRequest(http.MethodGet, "/api/v1/admin/webhooks/stats?"+raw, nil)
		if _, err := statsSince(req, now); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestWebhookStatsHandler(t *testing.T) {
	svc := &stubReconciler{
		statsFn: func(ctx context.Context, since time.Time) (*reconciler.Stats, error) {
			return &reconciler.Stats{Since: since, Total: 3, Processed: 2, Failed: 1}, nil
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/webhooks/stats?window=1h", nil)
	resp := httptest.NewRecorder()

	WebhookStats(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestReplayWebhookPassesLogID(t *testing.T) {
	logID := uuid.New()
	svc := &stubReconciler{
		replayFn: func(ctx context.Context, id uuid.UUID) (*reconciler.Result, error) {
			if id != logID {
				t.Fatalf("unexpected log id %s", id)
			}
			return &reconciler.Result{LogID: id, Outcome: enums.ReconcileDuplicate}, nil
		},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/webhooks/"+logID.String()+"/replay", nil)
	req = addRouteParam(req, "logId", logID.String())
	resp := httptest.NewRecorder()

	ReplayWebhook(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}
