// Package mocks provides test doubles for the engine's ports.
package mocks

import (
	"context"
	"sync"

	"github.com/aescanero/dagocrew/pkg/domain"
)

// LLMCall records a single completion request
type LLMCall struct {
	Request  domain.LLMRequest
	Response *domain.LLMResponse
	Error    error
}

// MockLLM is a scripted completion provider. Responses are consumed in
// order; when the script runs out the default response is returned.
// CompletionFunc, when set, takes precedence over the script.
type MockLLM struct {
	mu sync.Mutex

	name            string
	defaultResponse string
	script          []scripted
	calls           []LLMCall

	CompletionFunc func(ctx context.Context, req *domain.LLMRequest) (*domain.LLMResponse, error)
}

type scripted struct {
	content string
	err     error
}

// NewMockLLM creates a mock provider that answers "Mock response"
func NewMockLLM() *MockLLM {
	return &MockLLM{name: "mock", defaultResponse: "Mock response"}
}

// WithName sets the provider name
func (m *MockLLM) WithName(name string) *MockLLM {
	m.name = name
	return m
}

// WithDefaultResponse sets the answer used once the script is exhausted
func (m *MockLLM) WithDefaultResponse(content string) *MockLLM {
	m.defaultResponse = content
	return m
}

// ThenRespond appends a successful response to the script
func (m *MockLLM) ThenRespond(content string) *MockLLM {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, scripted{content: content})
	return m
}

// ThenFail appends a failure to the script
func (m *MockLLM) ThenFail(err error) *MockLLM {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, scripted{err: err})
	return m
}

// Name returns the provider name
func (m *MockLLM) Name() string { return m.name }

// GenerateCompletion implements ports.LLMClient
func (m *MockLLM) GenerateCompletion(ctx context.Context, req *domain.LLMRequest) (*domain.LLMResponse, error) {
	if m.CompletionFunc != nil {
		resp, err := m.CompletionFunc(ctx, req)
		m.record(req, resp, err)
		return resp, err
	}

	m.mu.Lock()
	next := scripted{content: m.defaultResponse}
	if len(m.script) > 0 {
		next = m.script[0]
		m.script = m.script[1:]
	}
	m.mu.Unlock()

	if next.err != nil {
		m.record(req, nil, next.err)
		return nil, next.err
	}

	resp := &domain.LLMResponse{
		Content:  next.content,
		Model:    req.Model,
		Provider: m.name,
		Usage:    domain.TokenUsage{InputTokens: 10, OutputTokens: 5},
	}
	m.record(req, resp, nil)
	return resp, nil
}

func (m *MockLLM) record(req *domain.LLMRequest, resp *domain.LLMResponse, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, LLMCall{Request: *req, Response: resp, Error: err})
}

// Calls returns a copy of the recorded calls
func (m *MockLLM) Calls() []LLMCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]LLMCall(nil), m.calls...)
}

// CallCount returns the number of recorded calls
func (m *MockLLM) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
