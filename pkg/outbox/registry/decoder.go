package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
	"github.com/angelmondragon/tradeflow-backend/pkg/outbox/payloads"
)

type decodeFunc func(data json.RawMessage) (any, error)

type schemaKey struct {
	eventType enums.OutboxEventType
	version   int
}

// Decoders maps (event type, schema version) to a payload decoder. Consumers
// use it so a body written under an older envelope version keeps decoding.
type Decoders struct {
	mu    sync.RWMutex
	funcs map[schemaKey]decodeFunc
}

func NewDecoders() *Decoders {
	return &Decoders{funcs: make(map[schemaKey]decodeFunc)}
}

// NotificationDecoders is the set the inbox consumer understands.
func NotificationDecoders() *Decoders {
	d := NewDecoders()
	RegisterJSON[payloads.NotificationRequestedEvent](d, enums.EventNotificationRequested, 1)
	return d
}

// RegisterJSON registers a plain JSON decoder into T for each version.
func RegisterJSON[T any](d *Decoders, eventType enums.OutboxEventType, versions ...int) {
	fn := func(data json.RawMessage) (any, error) {
		out := new(T)
		if err := json.Unmarshal(data, out); err != nil {
			return nil, err
		}
		return out, nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, v := range versions {
		d.funcs[schemaKey{eventType: eventType, version: v}] = fn
	}
}

// Decode returns a NonRetryableError for unknown schemas and bad bodies.
// Version 0 means the producer predates envelope versioning and reads as 1.
func (d *Decoders) Decode(eventType enums.OutboxEventType, version int, data json.RawMessage) (any, error) {
	if version == 0 {
		version = 1
	}
	d.mu.RLock()
	fn, ok := d.funcs[schemaKey{eventType: eventType, version: version}]
	d.mu.RUnlock()
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("no decoder for %s v%d", eventType, version))
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, NewNonRetryableError(fmt.Errorf("empty %s payload", eventType))
	}
	out, err := fn(trimmed)
	if err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s v%d: %w", eventType, version, err))
	}
	return out, nil
}

// DecodeAs is Decode with the result asserted to *T.
func DecodeAs[T any](d *Decoders, eventType enums.OutboxEventType, version int, data json.RawMessage) (*T, error) {
	out, err := d.Decode(eventType, version, data)
	if err != nil {
		return nil, err
	}
	typed, ok := out.(*T)
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("decoder for %s v%d returned %T", eventType, version, out))
	}
	return typed, nil
}
