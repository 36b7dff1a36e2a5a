package notifications

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/tradeflow-backend/pkg/db"
	"github.com/angelmondragon/tradeflow-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
	"github.com/angelmondragon/tradeflow-backend/pkg/outbox"
)

type brokenEmitter struct{}

func (brokenEmitter) Emit(context.Context, *gorm.DB, outbox.DomainEvent) error {
	return errors.New("insert failed")
}

func TestOutboxNotifierQueuesEvents(t *testing.T) {
	conn := dbtest.Open(t)
	notifier, err := NewOutboxNotifier(dbpkg.Wrap(conn), outbox.NewService(outbox.NewRepository(conn), nil), logger.New(logger.Options{Output: &bytes.Buffer{}}))
	require.NoError(t, err)

	orderID := uuid.New()
	attemptID := uuid.New()
	notifier.Notify(context.Background(),
		Notification{RecipientKind: enums.RecipientSupplier, RecipientID: uuid.New(), Type: enums.NotificationPaymentConfirmed, Title: "Payment received", PaymentAttemptID: attemptID, OrderID: &orderID},
		Notification{RecipientKind: enums.RecipientPayer, RecipientID: uuid.New(), Type: enums.NotificationPaymentFailed, Title: "Payment failed", PaymentAttemptID: attemptID},
	)

	var rows []models.OutboxEvent
	require.NoError(t, conn.Order("created_at ASC").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.Equal(t, enums.AggregateFulfillmentOrder, rows[0].AggregateType)
	assert.Equal(t, orderID, rows[0].AggregateID)
	assert.Equal(t, enums.AggregatePaymentAttempt, rows[1].AggregateType)
	assert.Equal(t, attemptID, rows[1].AggregateID)
	assert.Equal(t, enums.EventNotificationRequested, rows[1].EventType)
}

func TestOutboxNotifierSwallowsErrors(t *testing.T) {
	conn := dbtest.Open(t)
	var buf bytes.Buffer
	notifier, err := NewOutboxNotifier(dbpkg.Wrap(conn), brokenEmitter{}, logger.New(logger.Options{Output: &buf}))
	require.NoError(t, err)

	notifier.Notify(context.Background(), Notification{RecipientID: uuid.New(), Type: enums.NotificationOrderShipped})
	assert.Contains(t, buf.String(), "queue notifications failed")
}
