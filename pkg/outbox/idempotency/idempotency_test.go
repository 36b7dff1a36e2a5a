package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// flakyStore records the TTL it was handed and can fail SetNX.
type flakyStore struct {
	memoryStore
	ttl    time.Duration
	setErr error
}

func (f *flakyStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	f.ttl = ttl
	if f.setErr != nil {
		return false, f.setErr
	}
	return f.memoryStore.SetNX(ctx, key, value, ttl)
}

func TestNewManagerValidates(t *testing.T) {
	_, err := NewManager(nil, time.Minute)
	require.Error(t, err)
	_, err = NewManager(memoryStore{}, -time.Second)
	require.Error(t, err)
}

func TestCheckAndMarkReportsSecondCall(t *testing.T) {
	store := &flakyStore{memoryStore: memoryStore{}}
	m, err := NewManager(store, 36*time.Hour)
	require.NoError(t, err)
	ctx := context.Background()

	seen, err := m.CheckAndMark(ctx, "webhook", "EZM-01J:success")
	require.NoError(t, err)
	require.False(t, seen)
	require.Equal(t, 36*time.Hour, store.ttl)
	require.Contains(t, store.memoryStore, "webhook:EZM-01J:success")

	seen, err = m.CheckAndMark(ctx, "webhook", "EZM-01J:success")
	require.NoError(t, err)
	require.True(t, seen)

	require.NoError(t, m.Release(ctx, "webhook", "EZM-01J:success"))
	seen, err = m.CheckAndMark(ctx, "webhook", "EZM-01J:success")
	require.NoError(t, err)
	require.False(t, seen)
}

func TestCheckAndMarkRequiresScopeAndID(t *testing.T) {
	m, _ := NewManager(memoryStore{}, time.Minute)
	_, err := m.CheckAndMark(context.Background(), "", "x")
	require.ErrorIs(t, err, errScopeRequired)
	require.ErrorIs(t, m.Release(context.Background(), "webhook", ""), errScopeRequired)
}

func TestCheckAndMarkWrapsStoreFailure(t *testing.T) {
	m, _ := NewManager(&flakyStore{memoryStore: memoryStore{}, setErr: errors.New("redis down")}, time.Minute)
	_, err := m.CheckAndMark(context.Background(), "webhook", "x")
	require.ErrorContains(t, err, "redis down")
}

func TestConsumerGuardsAreIndependent(t *testing.T) {
	store := memoryStore{}
	m, _ := NewManager(store, time.Hour)
	ctx := context.Background()
	eventID := uuid.New()

	inbox := m.ForConsumer("notifications-worker")
	audit := m.ForConsumer("audit")

	seen, err := inbox.Seen(ctx, eventID)
	require.NoError(t, err)
	require.False(t, seen)
	require.Contains(t, store, "evt:processed:notifications-worker:"+eventID.String())

	seen, err = audit.Seen(ctx, eventID)
	require.NoError(t, err)
	require.False(t, seen)

	seen, err = inbox.Seen(ctx, eventID)
	require.NoError(t, err)
	require.True(t, seen)

	require.NoError(t, inbox.Forget(ctx, eventID))
	seen, err = inbox.Seen(ctx, eventID)
	require.NoError(t, err)
	require.False(t, seen)

	_, err = inbox.Seen(ctx, uuid.Nil)
	require.Error(t, err)
}
