package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aescanero/dagocrew/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryEventBus_PublishOrder(t *testing.T) {
	bus := NewInMemoryEventBus()
	ctx := context.Background()

	var received []domain.EventType
	require.NoError(t, bus.Subscribe(ctx, domain.TopicTaskEvents, func(_ context.Context, e domain.Event) error {
		received = append(received, e.Type)
		return nil
	}))

	require.NoError(t, bus.Publish(ctx, domain.TopicTaskEvents, domain.Event{Type: domain.EventTypeTaskStarted}))
	require.NoError(t, bus.Publish(ctx, domain.TopicTaskEvents, domain.Event{Type: domain.EventTypeTaskCompleted}))
	require.NoError(t, bus.Publish(ctx, domain.TopicCrewEvents, domain.Event{Type: domain.EventTypeCrewCompleted}))

	assert.Equal(t, []domain.EventType{domain.EventTypeTaskStarted, domain.EventTypeTaskCompleted}, received)
}

func TestInMemoryEventBus_HandlerErrorsJoined(t *testing.T) {
	bus := NewInMemoryEventBus()
	ctx := context.Background()
	calls := 0

	require.NoError(t, bus.Subscribe(ctx, "t", func(context.Context, domain.Event) error {
		calls++
		return errors.New("first failed")
	}))
	require.NoError(t, bus.Subscribe(ctx, "t", func(context.Context, domain.Event) error {
		calls++
		return nil
	}))

	err := bus.Publish(ctx, "t", domain.Event{})
	assert.ErrorContains(t, err, "first failed")
	assert.Equal(t, 2, calls)
}

func TestInMemoryEventBus_ContextCancelUnsubscribes(t *testing.T) {
	bus := NewInMemoryEventBus()
	ctx, cancel := context.WithCancel(context.Background())

	noop := func(context.Context, domain.Event) error { return nil }
	require.NoError(t, bus.Subscribe(ctx, "t", noop))
	require.NoError(t, bus.Subscribe(context.Background(), "t", noop))
	assert.Equal(t, 2, bus.SubscriberCount("t"))

	cancel()
	require.Eventually(t, func() bool { return bus.SubscriberCount("t") == 1 }, time.Second, 5*time.Millisecond)
}

func TestInMemoryEventBus_UnsubscribeAndClose(t *testing.T) {
	bus := NewInMemoryEventBus()
	ctx := context.Background()

	require.NoError(t, bus.Subscribe(ctx, "t", func(context.Context, domain.Event) error { return nil }))
	require.NoError(t, bus.Unsubscribe(ctx, "t"))
	assert.Zero(t, bus.SubscriberCount("t"))

	require.NoError(t, bus.Close())
	assert.Error(t, bus.Publish(ctx, "t", domain.Event{}))
	assert.Error(t, bus.Subscribe(ctx, "t", func(context.Context, domain.Event) error { return nil }))
}
