package mocks

import (
	"sync"
	"time"

	"github.com/aescanero/dagocrew/pkg/domain"
)

// RecordingMetrics implements ports.MetricsCollector and keeps every call
type RecordingMetrics struct {
	mu sync.Mutex

	Kickoffs    []string
	Tasks       []string
	Planning    []string
	LLMCalls    []string
	Tokens      domain.TokenUsage
	ActiveRuns  int
	PoolIdle    int
	PoolBusy    int
	MaxPoolBusy int
}

func NewRecordingMetrics() *RecordingMetrics {
	return &RecordingMetrics{}
}

func (m *RecordingMetrics) RecordCrewKickoff(status string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Kickoffs = append(m.Kickoffs, status)
}

func (m *RecordingMetrics) RecordTaskExecuted(agent, status string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Tasks = append(m.Tasks, agent+":"+status)
}

func (m *RecordingMetrics) RecordPlanning(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Planning = append(m.Planning, outcome)
}

func (m *RecordingMetrics) RecordLLMCall(provider, model, status string, _ time.Duration, usage domain.TokenUsage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LLMCalls = append(m.LLMCalls, provider+"/"+model+":"+status)
	m.Tokens = m.Tokens.Add(usage)
}

func (m *RecordingMetrics) AddActiveRuns(delta int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ActiveRuns += delta
}

func (m *RecordingMetrics) RecordWorkerPoolStatus(idle, busy int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PoolIdle = idle
	m.PoolBusy = busy
	if busy > m.MaxPoolBusy {
		m.MaxPoolBusy = busy
	}
}

// Snapshot returns a copy safe to inspect while recording continues
func (m *RecordingMetrics) Snapshot() RecordingMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return RecordingMetrics{
		Kickoffs:    append([]string(nil), m.Kickoffs...),
		Tasks:       append([]string(nil), m.Tasks...),
		Planning:    append([]string(nil), m.Planning...),
		LLMCalls:    append([]string(nil), m.LLMCalls...),
		Tokens:      m.Tokens,
		ActiveRuns:  m.ActiveRuns,
		PoolIdle:    m.PoolIdle,
		PoolBusy:    m.PoolBusy,
		MaxPoolBusy: m.MaxPoolBusy,
	}
}
