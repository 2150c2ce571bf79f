package backends

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp-forge/recipebox/pkg/notifications"
	"github.com/hashicorp-forge/recipebox/pkg/resource"
)

func TestNewRegistry(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		r, err := NewRegistry(nil, nil)
		require.NoError(t, err)
		assert.Empty(t, r.GetAll())
	})

	t.Run("audit enabled", func(t *testing.T) {
		r, err := NewRegistry(&Config{Audit: &AuditConfig{Enabled: true}}, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"audit"}, r.GetBackendNames())

		b, ok := r.GetBackend("audit")
		require.True(t, ok)
		assert.Equal(t, "audit", b.Name())
	})

	t.Run("disabled blocks are ignored", func(t *testing.T) {
		r, err := NewRegistry(&Config{
			Audit:    &AuditConfig{Enabled: false},
			Redpanda: &RedpandaConfig{Enabled: false},
		}, nil)
		require.NoError(t, err)
		assert.Empty(t, r.GetBackendNames())
	})

	t.Run("redpanda requires brokers", func(t *testing.T) {
		_, err := NewRegistry(&Config{
			Redpanda: &RedpandaConfig{Enabled: true},
		}, nil)
		assert.ErrorContains(t, err, "at least one broker is required")
	})
}

func TestRegistry_SinksFeedHub(t *testing.T) {
	r, err := NewRegistry(&Config{Audit: &AuditConfig{Enabled: true}}, nil)
	require.NoError(t, err)

	tb := NewTestBackend(TestBackendConfig{})
	r.Register(tb)
	assert.Equal(t, []string{"audit", "test"}, r.GetBackendNames())

	hub := notifications.NewHub(nil, r.Sinks()...)
	hub.Notify(context.Background(), notifications.OperationInsert,
		resource.ItemAddress(resource.Recipes, 1), 1)

	assert.Equal(t, 1, tb.GetEventCount())
	require.NoError(t, r.Close())
}

func TestHub_FailingSinkDoesNotBlockDelivery(t *testing.T) {
	ctx := context.Background()
	failing := NewTestBackend(TestBackendConfig{FailureMode: FailureModeAlways, FailureMessage: "broker down"})
	permanent := NewTestBackend(TestBackendConfig{FailureMode: FailureModePermanent})
	healthy := NewTestBackend(TestBackendConfig{})

	hub := notifications.NewHub(nil, failing, permanent, healthy)
	sub := hub.Subscribe(resource.CollectionAddress(resource.Recipes), true)
	defer sub.Close()

	item := resource.ItemAddress(resource.Recipes, 3)
	hub.Notify(ctx, notifications.OperationUpdate, item, 1)
	hub.Notify(ctx, notifications.OperationDelete, item, 1)

	for _, want := range []notifications.Operation{notifications.OperationUpdate, notifications.OperationDelete} {
		select {
		case e := <-sub.Events():
			assert.Equal(t, want, e.Operation)
			assert.Equal(t, item, e.Address)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for change notification")
		}
	}

	assert.Equal(t, 2, failing.GetEventCount())
	assert.Zero(t, failing.GetSuccessCount())
	assert.Equal(t, 2, permanent.GetEventCount())
	assert.Equal(t, 2, healthy.GetSuccessCount())

	// A sink that recovers handles later events.
	failing.SetFailureMode(FailureModeNone)
	hub.Notify(ctx, notifications.OperationInsert, item, 1)
	assert.Equal(t, 1, failing.GetSuccessCount())
}

func TestTestBackend_FailureModes(t *testing.T) {
	ctx := context.Background()
	event := notifications.NewChangeEvent(notifications.OperationUpdate,
		resource.CollectionAddress(resource.Ingredients), 2)

	t.Run("first n fail", func(t *testing.T) {
		b := NewTestBackend(TestBackendConfig{FailureMode: FailureModeFirstNFail, FailFirstN: 2})
		assert.Error(t, b.Handle(ctx, event))
		assert.Error(t, b.Handle(ctx, event))
		assert.NoError(t, b.Handle(ctx, event))
		assert.Equal(t, 1, b.GetSuccessCount())
		assert.Equal(t, 3, b.GetEventCount())
	})

	t.Run("permanent", func(t *testing.T) {
		b := NewTestBackend(TestBackendConfig{FailureMode: FailureModePermanent})
		err := b.Handle(ctx, event)

		var be *BackendError
		require.True(t, errors.As(err, &be))
		assert.False(t, be.IsRetryable())
		assert.Equal(t, "test", be.Backend)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		b := NewTestBackend(TestBackendConfig{})
		err := b.Handle(cctx, event)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
