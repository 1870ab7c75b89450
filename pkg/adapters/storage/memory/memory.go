package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aescanero/dagocrew/pkg/domain"
)

// InMemoryStateStorage implements StateStorage using an in-memory map
type InMemoryStateStorage struct {
	states map[string]*domain.RunState
	mu     sync.RWMutex
}

// NewInMemoryStateStorage creates a new in-memory state storage
func NewInMemoryStateStorage() *InMemoryStateStorage {
	return &InMemoryStateStorage{
		states: make(map[string]*domain.RunState),
	}
}

// SaveState stores a copy of the run state
func (s *InMemoryStateStorage) SaveState(ctx context.Context, state *domain.RunState) error {
	if state == nil || state.RunID == "" {
		return fmt.Errorf("run state requires a run ID")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[state.RunID] = state.Clone()
	return nil
}

// GetState returns a copy of the stored run state
func (s *InMemoryStateStorage) GetState(ctx context.Context, runID string) (*domain.RunState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrStateNotFound, runID)
	}
	return state.Clone(), nil
}

// DeleteState removes the run state
func (s *InMemoryStateStorage) DeleteState(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.states, runID)
	return nil
}

// List returns all stored run IDs, sorted
func (s *InMemoryStateStorage) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runIDs := make([]string, 0, len(s.states))
	for id := range s.states {
		runIDs = append(runIDs, id)
	}
	sort.Strings(runIDs)

	return runIDs, nil
}
