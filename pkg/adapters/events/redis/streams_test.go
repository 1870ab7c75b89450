package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aescanero/dagocrew/pkg/domain"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func setupTestRedis(t *testing.T, cfg StreamsConfig) (*miniredis.Miniredis, *StreamsEventBus) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	if cfg.ConsumerGroup == "" {
		cfg.ConsumerGroup = "dagocrew-test"
	}
	if cfg.Block == 0 {
		cfg.Block = 50 * time.Millisecond
	}
	bus, err := NewStreamsEventBus(client, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close() })

	return mr, bus
}

func TestNewStreamsEventBus_Validation(t *testing.T) {
	_, err := NewStreamsEventBus(nil, StreamsConfig{ConsumerGroup: "g"}, nil)
	assert.Error(t, err)

	_, err = NewStreamsEventBus(redis.NewClient(&redis.Options{}), StreamsConfig{}, nil)
	assert.ErrorContains(t, err, "consumer group")
}

func TestStreamsEventBus_Publish(t *testing.T) {
	mr, bus := setupTestRedis(t, StreamsConfig{})

	event := domain.Event{ID: "evt-1", Type: domain.EventTypeCrewStarted, RunID: "run-1"}
	require.NoError(t, bus.Publish(context.Background(), domain.TopicCrewEvents, event))

	entries, err := mr.Stream("dagocrew:events:crew.events")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "data", entries[0].Values[0])
	assert.Contains(t, entries[0].Values[1], `"run_id":"run-1"`)
}

func TestStreamsEventBus_SubscribeDelivers(t *testing.T) {
	_, bus := setupTestRedis(t, StreamsConfig{})
	ctx := context.Background()

	var mu sync.Mutex
	var received []domain.Event
	require.NoError(t, bus.Subscribe(ctx, domain.TopicTaskEvents, func(_ context.Context, e domain.Event) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, e)
		return nil
	}))

	for _, typ := range []domain.EventType{domain.EventTypeTaskStarted, domain.EventTypeTaskCompleted} {
		require.NoError(t, bus.Publish(ctx, domain.TopicTaskEvents, domain.Event{Type: typ, RunID: "run-1", TaskID: "a"}))
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 2
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, domain.EventTypeTaskStarted, received[0].Type)
	assert.Equal(t, domain.EventTypeTaskCompleted, received[1].Type)
	assert.Equal(t, "a", received[1].TaskID)
}

func TestStreamsEventBus_SubscribeTwiceSameGroup(t *testing.T) {
	_, bus := setupTestRedis(t, StreamsConfig{})
	noop := func(context.Context, domain.Event) error { return nil }

	require.NoError(t, bus.Subscribe(context.Background(), "t", noop))
	require.NoError(t, bus.Subscribe(context.Background(), "t", noop))
	require.NoError(t, bus.Unsubscribe(context.Background(), "t"))
}

func TestStreamsEventBus_MaxLen(t *testing.T) {
	mr, bus := setupTestRedis(t, StreamsConfig{MaxLen: 3})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, bus.Publish(ctx, "t", domain.Event{RunID: "run"}))
	}

	entries, err := mr.Stream("dagocrew:events:t")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(entries), 10)
	assert.NotEmpty(t, entries)
}
