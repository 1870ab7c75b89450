package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aescanero/dagocrew/pkg/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "dagocrew:state:"

// StateStorage implements StateStorage using Redis
type StateStorage struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewStateStorage creates a new Redis state storage. A zero ttl keeps
// states until they are deleted.
func NewStateStorage(client *redis.Client, ttl time.Duration, logger *zap.Logger) *StateStorage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StateStorage{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

// SaveState saves run state to Redis
func (s *StateStorage) SaveState(ctx context.Context, state *domain.RunState) error {
	if state == nil || state.RunID == "" {
		return fmt.Errorf("run state requires a run ID")
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := s.client.Set(ctx, getStateKey(state.RunID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}

	s.logger.Debug("state saved",
		zap.String("run_id", state.RunID),
		zap.String("status", string(state.Status)))

	return nil
}

// GetState retrieves run state from Redis
func (s *StateStorage) GetState(ctx context.Context, runID string) (*domain.RunState, error) {
	data, err := s.client.Get(ctx, getStateKey(runID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", domain.ErrStateNotFound, runID)
		}
		return nil, fmt.Errorf("failed to get state: %w", err)
	}

	var state domain.RunState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}

	return &state, nil
}

// DeleteState deletes run state from Redis
func (s *StateStorage) DeleteState(ctx context.Context, runID string) error {
	if err := s.client.Del(ctx, getStateKey(runID)).Err(); err != nil {
		return fmt.Errorf("failed to delete state: %w", err)
	}

	s.logger.Debug("state deleted", zap.String("run_id", runID))
	return nil
}

// List returns all run IDs that have stored state
func (s *StateStorage) List(ctx context.Context) ([]string, error) {
	keys, err := s.scanKeys(ctx)
	if err != nil {
		return nil, err
	}

	runIDs := make([]string, 0, len(keys))
	for _, key := range keys {
		if id := strings.TrimPrefix(key, keyPrefix); id != "" && id != key {
			runIDs = append(runIDs, id)
		}
	}
	return runIDs, nil
}

// ListStates loads every stored run state. Entries that expire between the
// scan and the read are skipped, as are entries that fail to decode. Any
// other read error aborts the listing.
func (s *StateStorage) ListStates(ctx context.Context) ([]*domain.RunState, error) {
	keys, err := s.scanKeys(ctx)
	if err != nil {
		return nil, err
	}

	states := make([]*domain.RunState, 0, len(keys))
	for _, key := range keys {
		data, err := s.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get state %s: %w", strings.TrimPrefix(key, keyPrefix), err)
		}

		var state domain.RunState
		if err := json.Unmarshal(data, &state); err != nil {
			s.logger.Warn("skipping undecodable state", zap.String("key", key), zap.Error(err))
			continue
		}
		states = append(states, &state)
	}

	return states, nil
}

func (s *StateStorage) scanKeys(ctx context.Context) ([]string, error) {
	var cursor uint64
	var keys []string

	for {
		var batch []string
		var err error

		batch, cursor, err = s.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan keys: %w", err)
		}

		keys = append(keys, batch...)

		if cursor == 0 {
			break
		}
	}
	return keys, nil
}

// getStateKey returns the Redis key for a run state
func getStateKey(runID string) string {
	return keyPrefix + runID
}
