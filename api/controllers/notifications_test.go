package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tradeflow-backend/api/middleware"
	"github.com/angelmondragon/tradeflow-backend/internal/notifications"
	pkgerrors "github.com/angelmondragon/tradeflow-backend/pkg/errors"
	"github.com/angelmondragon/tradeflow-backend/pkg/pagination"
)

// recordingInbox remembers the last call and returns err when set.
type recordingInbox struct {
	recipient  uuid.UUID
	target     uuid.UUID
	unreadOnly bool
	page       pagination.Params
	err        error
}

func (s *recordingInbox) Inbox(_ context.Context, me uuid.UUID, unreadOnly bool, page pagination.Params) (*notifications.InboxPage, error) {
	s.recipient, s.unreadOnly, s.page = me, unreadOnly, page
	if s.err != nil {
		return nil, s.err
	}
	return &notifications.InboxPage{NextCursor: "c2"}, nil
}

func (s *recordingInbox) MarkRead(_ context.Context, me, id uuid.UUID) error {
	s.recipient, s.target = me, id
	return s.err
}

func (s *recordingInbox) MarkAllRead(_ context.Context, me uuid.UUID) (int64, error) {
	s.recipient = me
	return 5, s.err
}

func asActor(req *http.Request, id uuid.UUID) *http.Request {
	return req.WithContext(middleware.WithActorID(req.Context(), id.String()))
}

func TestListNotificationsPassesQuery(t *testing.T) {
	me := uuid.New()
	svc := &recordingInbox{}
	req := asActor(httptest.NewRequest(http.MethodGet, "/api/v1/notifications?limit=10&unreadOnly=true&cursor=+c1+", nil), me)
	resp := httptest.NewRecorder()

	ListNotifications(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, me, svc.recipient)
	assert.True(t, svc.unreadOnly)
	assert.Equal(t, pagination.Params{Limit: 10, Cursor: "c1"}, svc.page)

	var body struct {
		Data notifications.InboxPage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "c2", body.Data.NextCursor)
}

func TestMarkNotificationRead(t *testing.T) {
	me, id := uuid.New(), uuid.New()
	svc := &recordingInbox{}
	req := asActor(httptest.NewRequest(http.MethodPost, "/api/v1/notifications/"+id.String()+"/read", nil), me)
	req = addRouteParam(req, "notificationId", id.String())
	resp := httptest.NewRecorder()

	MarkNotificationRead(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, me, svc.recipient)
	assert.Equal(t, id, svc.target)
	assert.JSONEq(t, `{"id":"`+id.String()+`","read":true}`, string(dataOf(t, resp)))
}

func TestMarkAllNotificationsRead(t *testing.T) {
	me := uuid.New()
	svc := &recordingInbox{}
	resp := httptest.NewRecorder()
	MarkAllNotificationsRead(svc, testLogger())(resp, asActor(httptest.NewRequest(http.MethodPost, "/api/v1/notifications/read-all", nil), me))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, me, svc.recipient)
	assert.JSONEq(t, `{"updated":5}`, string(dataOf(t, resp)))
}

func TestNotificationRoutesRejectBadRequests(t *testing.T) {
	me := uuid.New()
	cases := []struct {
		name    string
		handler func(*recordingInbox) http.HandlerFunc
		req     func() *http.Request
		svcErr  error
		status  int
	}{
		{
			name:    "no actor",
			handler: func(s *recordingInbox) http.HandlerFunc { return MarkAllNotificationsRead(s, testLogger()) },
			req:     func() *http.Request { return httptest.NewRequest(http.MethodPost, "/api/v1/notifications/read-all", nil) },
			status:  http.StatusUnauthorized,
		},
		{
			name:    "bad notification id",
			handler: func(s *recordingInbox) http.HandlerFunc { return MarkNotificationRead(s, testLogger()) },
			req: func() *http.Request {
				req := asActor(httptest.NewRequest(http.MethodPost, "/api/v1/notifications/nope/read", nil), me)
				return addRouteParam(req, "notificationId", "nope")
			},
			status: http.StatusBadRequest,
		},
		{
			name:    "unreadOnly not a bool",
			handler: func(s *recordingInbox) http.HandlerFunc { return ListNotifications(s, testLogger()) },
			req: func() *http.Request {
				return asActor(httptest.NewRequest(http.MethodGet, "/api/v1/notifications?unreadOnly=maybe", nil), me)
			},
			status: http.StatusBadRequest,
		},
		{
			name:    "limit out of range",
			handler: func(s *recordingInbox) http.HandlerFunc { return ListNotifications(s, testLogger()) },
			req: func() *http.Request {
				return asActor(httptest.NewRequest(http.MethodGet, "/api/v1/notifications?limit=1000", nil), me)
			},
			status: http.StatusBadRequest,
		},
		{
			name:    "someone else's row",
			handler: func(s *recordingInbox) http.HandlerFunc { return MarkNotificationRead(s, testLogger()) },
			req: func() *http.Request {
				id := uuid.NewString()
				return addRouteParam(asActor(httptest.NewRequest(http.MethodPost, "/api/v1/notifications/"+id+"/read", nil), me), "notificationId", id)
			},
			svcErr: pkgerrors.New(pkgerrors.CodeNotFound, "notification not found"),
			status: http.StatusNotFound,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := httptest.NewRecorder()
			tc.handler(&recordingInbox{err: tc.svcErr})(resp, tc.req())
			assert.Equal(t, tc.status, resp.Code)
		})
	}
}

func TestNotificationRoutesWithoutService(t *testing.T) {
	resp := httptest.NewRecorder()
	ListNotifications(nil, testLogger())(resp, asActor(httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil), uuid.New()))
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}

func dataOf(t *testing.T, resp *httptest.ResponseRecorder) json.RawMessage {
	t.Helper()
	var body struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	return body.Data
}
