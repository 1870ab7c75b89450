// Package ports defines the interfaces between the crew engine and its adapters.
//
// Adapters live under pkg/adapters:
//   - LLMClient: anthropic, openai (plus the limiter wrapper)
//   - EventBus: redis streams, memory
//   - StateStorage: redis, memory
//   - MetricsCollector: prometheus
package ports

import (
	"context"
	"time"

	"github.com/aescanero/dagocrew/pkg/domain"
)

// LLMClient is the completion provider port
type LLMClient interface {
	GenerateCompletion(ctx context.Context, req *domain.LLMRequest) (*domain.LLMResponse, error)
	Name() string
}

// EventHandler handles an event delivered by an EventBus
type EventHandler func(ctx context.Context, event domain.Event) error

// EventBus publishes run lifecycle events
type EventBus interface {
	Publish(ctx context.Context, topic string, event domain.Event) error
	Subscribe(ctx context.Context, topic string, handler EventHandler) error
	Unsubscribe(ctx context.Context, topic string) error
	Close() error
}

// StateStorage persists run state snapshots
type StateStorage interface {
	SaveState(ctx context.Context, state *domain.RunState) error
	GetState(ctx context.Context, runID string) (*domain.RunState, error)
	DeleteState(ctx context.Context, runID string) error
	List(ctx context.Context) ([]string, error)
}

// MetricsCollector records engine metrics
type MetricsCollector interface {
	RecordCrewKickoff(status string, duration time.Duration)
	RecordTaskExecuted(agent, status string, duration time.Duration)
	RecordPlanning(outcome string)
	RecordLLMCall(provider, model, status string, latency time.Duration, usage domain.TokenUsage)
	AddActiveRuns(delta int)
	RecordWorkerPoolStatus(idle, busy int)
}
