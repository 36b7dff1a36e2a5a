package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradeflow-backend/api/responses"
	"github.com/angelmondragon/tradeflow-backend/api/validators"
	"github.com/angelmondragon/tradeflow-backend/internal/notifications"
	pkgerrors "github.com/angelmondragon/tradeflow-backend/pkg/errors"
	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
	"github.com/angelmondragon/tradeflow-backend/pkg/pagination"
)

// inboxHandler resolves the calling actor before handing over; every inbox
// route is scoped to the caller's own rows.
func inboxHandler(svc notifications.Service, logg *logger.Logger, fn func(w http.ResponseWriter, r *http.Request, me uuid.UUID) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error = pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable")
		if svc != nil {
			var me uuid.UUID
			if me, err = actorID(r); err == nil {
				err = fn(w, r, me)
			}
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
		}
	}
}

// ListNotifications returns the caller's inbox, newest first.
// Query: limit, cursor, unreadOnly.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return inboxHandler(svc, logg, func(w http.ResponseWriter, r *http.Request, me uuid.UUID) error {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			return err
		}
		unreadOnly, err := validators.ParseQueryBool(r, "unreadOnly", false)
		if err != nil {
			return err
		}
		page, err := svc.Inbox(r.Context(), me, unreadOnly, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			return err
		}
		responses.WriteSuccess(w, page)
		return nil
	})
}

func MarkNotificationRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return inboxHandler(svc, logg, func(w http.ResponseWriter, r *http.Request, me uuid.UUID) error {
		id, err := validators.ParseUUIDParam(r, "notificationId")
		if err != nil {
			return err
		}
		if err := svc.MarkRead(r.Context(), me, id); err != nil {
			return err
		}
		responses.WriteSuccess(w, map[string]any{"id": id, "read": true})
		return nil
	})
}

func MarkAllNotificationsRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return inboxHandler(svc, logg, func(w http.ResponseWriter, r *http.Request, me uuid.UUID) error {
		n, err := svc.MarkAllRead(r.Context(), me)
		if err != nil {
			return err
		}
		responses.WriteSuccess(w, map[string]int64{"updated": n})
		return nil
	})
}
