package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/tradeflow-backend/pkg/config"
)

func TestFixedWindowAllow(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	for i, want := range []bool{true, true, false} {
		allowed, count, err := client.FixedWindowAllow(ctx, "webhook:10.0.0.1", 2, 1500*time.Millisecond)
		if err != nil {
			t.Fatalf("call %d: unexpected error: %v", i, err)
		}
		if allowed != want || count != int64(i+1) {
			t.Fatalf("call %d: allowed=%v count=%d", i, allowed, count)
		}
	}
	if got := mock.ttlMillis["tf:rate_limit:webhook:10.0.0.1"]; got != 1500 {
		t.Fatalf("expected window passed in milliseconds, got %d", got)
	}
}

func TestSetNXAndDel(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newMockCmdable()}

	key := client.IdempotencyKey("webhook", "EZM-1:success")
	ok, err := client.SetNX(ctx, key, "1", time.Hour)
	if err != nil || !ok {
		t.Fatalf("expected first setnx to win, ok=%v err=%v", ok, err)
	}
	ok, err = client.SetNX(ctx, key, "1", time.Hour)
	if err != nil || ok {
		t.Fatalf("expected second setnx to lose, ok=%v err=%v", ok, err)
	}
	if err := client.Del(ctx, key); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, err := client.Get(ctx, key); err != redis.Nil {
		t.Fatalf("expected redis.Nil after delete, got %v", err)
	}
}

func TestDelIfValueOnlyRemovesOwnedKey(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newMockCmdable()}
	key := client.LockKey("cron-worker:dev")

	if _, err := client.SetNX(ctx, key, "owner-a", time.Minute); err != nil {
		t.Fatalf("setnx: %v", err)
	}
	removed, err := client.DelIfValue(ctx, key, "owner-b")
	if err != nil || removed {
		t.Fatalf("foreign owner must not release, removed=%v err=%v", removed, err)
	}
	removed, err = client.DelIfValue(ctx, key, "owner-a")
	if err != nil || !removed {
		t.Fatalf("owner should release, removed=%v err=%v", removed, err)
	}
}

func TestReplaceIfValueSwapsOnlyOwnedValue(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}
	key := client.IdempotencyKey("POST|/api/v1/payments", "k-1")

	if _, err := client.SetNX(ctx, key, "marker", time.Minute); err != nil {
		t.Fatalf("setnx: %v", err)
	}
	swapped, err := client.ReplaceIfValue(ctx, key, "someone-else", "record", time.Hour)
	if err != nil || swapped {
		t.Fatalf("foreign value must not be replaced, swapped=%v err=%v", swapped, err)
	}
	swapped, err = client.ReplaceIfValue(ctx, key, "marker", "record", time.Hour)
	if err != nil || !swapped {
		t.Fatalf("expected swap, swapped=%v err=%v", swapped, err)
	}
	if got := mock.data[key]; got != "record" {
		t.Fatalf("expected record stored, got %q", got)
	}
	if got := mock.ttlMillis[key]; got != time.Hour.Milliseconds() {
		t.Fatalf("expected ttl reset to an hour, got %d", got)
	}
	if _, err := client.ReplaceIfValue(ctx, key, "record", "x", 0); err == nil {
		t.Fatal("expected zero ttl to be rejected")
	}
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected error for uninitialized client")
	}
	if _, err := client.DelIfValue(context.Background(), "k", "v"); err == nil {
		t.Fatal("expected error for uninitialized client")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close on nil raw client should be a no-op, got %v", err)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	cases := map[string]string{
		client.IdempotencyKey("scope", "id"):  "tf:idempotency:scope:id",
		client.IdempotencyKey("webhook", " "): "tf:idempotency:webhook",
		client.RateLimitKey("scope"):          "tf:rate_limit:scope",
		client.LockKey("cron-worker"):         "tf:lock:cron-worker",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("expected %s, got %s", want, got)
		}
	}
}

func TestOptionsFromConfigFillsPoolSettings(t *testing.T) {
	opts, err := optionsFromConfig(configFor("redis://localhost:6379/2", ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.DB != 2 || opts.PoolSize != 7 || opts.DialTimeout != 3*time.Second {
		t.Fatalf("unexpected options %+v", opts)
	}
	if _, err := optionsFromConfig(configFor("", "")); err == nil {
		t.Fatal("expected error without url or address")
	}
	opts, err = optionsFromConfig(configFor("", "cache:6379"))
	if err != nil || opts.Addr != "cache:6379" {
		t.Fatalf("unexpected address options %+v err=%v", opts, err)
	}
}

// mockCmdable understands the two scripts the client sends.
type mockCmdable struct {
	data      map[string]string
	counters  map[string]int64
	ttlMillis map[string]int64
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data:      make(map[string]string),
		counters:  make(map[string]int64),
		ttlMillis: make(map[string]int64),
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(_ context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (m *mockCmdable) Eval(_ context.Context, script string, keys []string, args ...any) *redis.Cmd {
	key := keys[0]
	switch script {
	case incrWindow:
		m.counters[key]++
		if m.counters[key] == 1 {
			m.ttlMillis[key] = args[0].(int64)
		}
		return redis.NewCmdResult(m.counters[key], nil)
	case delIfEquals:
		if m.data[key] == args[0] {
			delete(m.data, key)
			return redis.NewCmdResult(int64(1), nil)
		}
		return redis.NewCmdResult(int64(0), nil)
	case swapIfEquals:
		if m.data[key] == args[0] {
			m.data[key] = args[1].(string)
			m.ttlMillis[key] = args[2].(int64)
			return redis.NewCmdResult(int64(1), nil)
		}
		return redis.NewCmdResult(int64(0), nil)
	}
	return redis.NewCmdResult(nil, fmt.Errorf("unexpected script"))
}

func configFor(url, addr string) config.RedisConfig {
	return config.RedisConfig{URL: url, Address: addr, PoolSize: 7, DialTimeout: 3 * time.Second}
}
