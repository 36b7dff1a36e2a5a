package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/tradeflow-backend/api/responses"
	"github.com/angelmondragon/tradeflow-backend/api/validators"
	"github.com/angelmondragon/tradeflow-backend/internal/reconciler"
	pkgerrors "github.com/angelmondragon/tradeflow-backend/pkg/errors"
	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
)

const defaultStatsWindow = 24 * time.Hour

// WebhookStats summarizes reconciliation traffic. `since` takes an RFC3339
// timestamp, `window` a duration back from now.
func WebhookStats(svc reconciler.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconciler unavailable"))
			return
		}

		since, err := statsSince(r, time.Now().UTC())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stats, err := svc.Stats(r.Context(), since)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

func statsSince(r *http.Request, now time.Time) (time.Time, error) {
	query := r.URL.Query()
	if raw := strings.TrimSpace(query.Get("since")); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "since must be RFC3339")
		}
		return since.UTC(), nil
	}

	window := defaultStatsWindow
	if raw := strings.TrimSpace(query.Get("window")); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "window must be a positive duration")
		}
		window = parsed
	}
	return now.Add(-window), nil
}

// ReplayWebhook re-runs a stored webhook log through reconciliation.
func ReplayWebhook(svc reconciler.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconciler unavailable"))
			return
		}

		logID, err := validators.ParseUUIDParam(r, "logId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Replay(r.Context(), logID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
