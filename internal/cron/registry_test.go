package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type namedJob string

func (n namedJob) Name() string              { return string(n) }
func (n namedJob) Run(context.Context) error { return nil }

func TestRegistryKeepsRegistrationOrder(t *testing.T) {
	r, err := NewRegistry(namedJob("pending-payment-sweep"), nil, namedJob("webhook-replay"))
	require.NoError(t, err)
	require.NoError(t, r.Register(namedJob("outbox-retention")))

	require.Equal(t, []string{"pending-payment-sweep", "webhook-replay", "outbox-retention"}, r.Names())

	jobs := r.Jobs()
	jobs[0] = nil
	require.NotNil(t, r.Jobs()[0])
}

func TestRegistryRejectsBadNames(t *testing.T) {
	_, err := NewRegistry(namedJob("sweep"), namedJob("sweep"))
	require.ErrorContains(t, err, `"sweep" already registered at position 0`)

	_, err = NewRegistry(namedJob("  "))
	require.ErrorContains(t, err, "has no name")

	var zero Registry
	require.NoError(t, zero.Register(namedJob("late")))
	require.Equal(t, []string{"late"}, zero.Names())
}
