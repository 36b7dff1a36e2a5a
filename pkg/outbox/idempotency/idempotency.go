// Package idempotency records "already handled" marks in Redis so redelivered
// messages and replayed callbacks run their side effects once.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradeflow-backend/pkg/redis"
)

var errScopeRequired = errors.New("scope and id are required")

// Manager owns the mark TTL. Keys are `tf:idempotency:<scope>:<id>`.
type Manager struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

func NewManager(store redis.IdempotencyStore, ttl time.Duration) (*Manager, error) {
	switch {
	case store == nil:
		return nil, errors.New("idempotency store is required")
	case ttl < 0:
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{store: store, ttl: ttl}, nil
}

// CheckAndMark sets the mark and reports whether it was already there.
func (m *Manager) CheckAndMark(ctx context.Context, scope, id string) (bool, error) {
	if scope == "" || id == "" {
		return false, errScopeRequired
	}
	fresh, err := m.store.SetNX(ctx, m.store.IdempotencyKey(scope, id), "1", m.ttl)
	if err != nil {
		return false, fmt.Errorf("mark %s: %w", scope, err)
	}
	return !fresh, nil
}

// Release drops the mark so the work can run again.
func (m *Manager) Release(ctx context.Context, scope, id string) error {
	if scope == "" || id == "" {
		return errScopeRequired
	}
	return m.store.Del(ctx, m.store.IdempotencyKey(scope, id))
}

// ForConsumer scopes marks to one named subscriber of the event stream.
func (m *Manager) ForConsumer(name string) *ConsumerGuard {
	return &ConsumerGuard{m: m, scope: "evt:processed:" + name}
}

// ConsumerGuard tracks which event ids one consumer has handled.
type ConsumerGuard struct {
	m     *Manager
	scope string
}

// Seen marks eventID and reports whether an earlier delivery already did.
func (g *ConsumerGuard) Seen(ctx context.Context, eventID uuid.UUID) (bool, error) {
	if eventID == uuid.Nil {
		return false, errors.New("event id is required")
	}
	return g.m.CheckAndMark(ctx, g.scope, eventID.String())
}

// Forget is called when handling failed after Seen.
func (g *ConsumerGuard) Forget(ctx context.Context, eventID uuid.UUID) error {
	if eventID == uuid.Nil {
		return errors.New("event id is required")
	}
	return g.m.Release(ctx, g.scope, eventID.String())
}
