package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tradeflow-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
	"github.com/angelmondragon/tradeflow-backend/pkg/outbox"
	"github.com/angelmondragon/tradeflow-backend/pkg/outbox/registry"
)

type mapGuard struct {
	marks     map[uuid.UUID]bool
	forgotten []uuid.UUID
	err       error
}

func (g *mapGuard) Seen(_ context.Context, id uuid.UUID) (bool, error) {
	if g.err != nil {
		return false, g.err
	}
	if g.marks == nil {
		g.marks = map[uuid.UUID]bool{}
	}
	seen := g.marks[id]
	g.marks[id] = true
	return seen, nil
}

func (g *mapGuard) Forget(_ context.Context, id uuid.UUID) error {
	delete(g.marks, id)
	g.forgotten = append(g.forgotten, id)
	return nil
}

type failingInbox struct{}

func (failingInbox) Insert(context.Context, *models.Notification) (bool, error) {
	return false, errors.New("disk full")
}

func testConsumer(inbox inboxWriter, guard eventGuard) *Consumer {
	return &Consumer{
		inbox:    inbox,
		guard:    guard,
		decoders: registry.NotificationDecoders(),
		logg:     logger.New(logger.Options{Output: &bytes.Buffer{}}),
	}
}

func delivery(t *testing.T, eventID uuid.UUID, eventType enums.OutboxEventType, data map[string]any) *pubsub.Message {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	body, err := json.Marshal(outbox.PayloadEnvelope{Version: 1, EventID: eventID.String(), Data: raw})
	require.NoError(t, err)
	return &pubsub.Message{
		ID:         "msg-" + eventID.String()[:8],
		Data:       body,
		Attributes: map[string]string{"event_type": string(eventType)},
	}
}

func issueReported(recipient uuid.UUID) map[string]any {
	return map[string]any{
		"recipient_kind": "supplier",
		"recipient_id":   recipient.String(),
		"type":           "issue_reported",
		"title":          " Issue reported ",
		"message":        "Order PO-1 has a damaged item",
	}
}

func TestConsumerStoresInboxRowOnce(t *testing.T) {
	conn := dbtest.Open(t)
	guard := &mapGuard{}
	c := testConsumer(NewRepository(conn), guard)

	recipient := uuid.New()
	eventID := uuid.New()
	msg := delivery(t, eventID, enums.EventNotificationRequested, issueReported(recipient))

	assert.Equal(t, ack, c.handle(context.Background(), msg))
	assert.Equal(t, ack, c.handle(context.Background(), msg))

	// mark expired in redis; the unique event_id still holds
	delete(guard.marks, eventID)
	assert.Equal(t, ack, c.handle(context.Background(), msg))

	var rows []models.Notification
	require.NoError(t, conn.Where("recipient_id = ?", recipient).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "Issue reported", rows[0].Title)
	assert.Equal(t, enums.NotificationIssueReported, rows[0].Type)
	assert.Equal(t, eventID, rows[0].EventID)
}

func TestConsumerVerdicts(t *testing.T) {
	recipient := uuid.New()
	cases := []struct {
		name   string
		msg    func(t *testing.T) *pubsub.Message
		inbox  inboxWriter
		guard  *mapGuard
		want   verdict
		marked bool
	}{
		{
			name:  "other event type",
			msg:   func(t *testing.T) *pubsub.Message { return delivery(t, uuid.New(), enums.EventStockReceived, nil) },
			guard: &mapGuard{},
			want:  ack,
		},
		{
			name: "garbage body",
			msg: func(*testing.T) *pubsub.Message {
				return &pubsub.Message{Data: []byte("{"), Attributes: map[string]string{"event_type": string(enums.EventNotificationRequested)}}
			},
			guard: &mapGuard{},
			want:  ack,
		},
		{
			name: "unknown notification type",
			msg: func(t *testing.T) *pubsub.Message {
				return delivery(t, uuid.New(), enums.EventNotificationRequested, map[string]any{"recipient_id": recipient.String(), "type": "bogus"})
			},
			guard: &mapGuard{},
			want:  ack,
		},
		{
			name: "redis unavailable",
			msg: func(t *testing.T) *pubsub.Message {
				return delivery(t, uuid.New(), enums.EventNotificationRequested, issueReported(recipient))
			},
			guard: &mapGuard{err: errors.New("dial tcp: refused")},
			want:  nack,
		},
		{
			name: "insert fails releases mark",
			msg: func(t *testing.T) *pubsub.Message {
				return delivery(t, uuid.New(), enums.EventNotificationRequested, issueReported(recipient))
			},
			inbox:  failingInbox{},
			guard:  &mapGuard{},
			want:   nack,
			marked: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			inbox := tc.inbox
			if inbox == nil {
				inbox = NewRepository(dbtest.Open(t))
			}
			c := testConsumer(inbox, tc.guard)
			assert.Equal(t, tc.want, c.handle(context.Background(), tc.msg(t)))
			assert.Empty(t, tc.guard.marks)
			if tc.marked {
				assert.Len(t, tc.guard.forgotten, 1)
			}
		})
	}
}

func TestNewConsumerRequiresDependencies(t *testing.T) {
	_, err := NewConsumer(nil, nil, nil, nil)
	require.Error(t, err)
}
