package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/questline/dungeonmaster/pkg/state"
)

// MockStorage is an in-memory Storage for tests. It round-trips
// gamestates through JSON so tests exercise the same serialization
// path as the real backends.
type MockStorage struct {
	mu     sync.RWMutex
	states map[int64][]byte

	// SaveErr, when set, is returned by SaveGameState.
	SaveErr error
}

var _ Storage = (*MockStorage)(nil)

func NewMockStorage() *MockStorage {
	return &MockStorage{
		states: make(map[int64][]byte),
	}
}

func (m *MockStorage) Ping(ctx context.Context) error {
	return nil
}

func (m *MockStorage) Close() error {
	return nil
}

func (m *MockStorage) SaveGameState(ctx context.Context, chatID int64, gs *state.GameState) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	data, err := json.Marshal(gs)
	if err != nil {
		return fmt.Errorf("failed to marshal gamestate: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[chatID] = data
	return nil
}

func (m *MockStorage) LoadGameState(ctx context.Context, chatID int64) (*state.GameState, error) {
	m.mu.RLock()
	data, ok := m.states[chatID]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	var gs state.GameState
	if err := json.Unmarshal(data, &gs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal gamestate: %w", err)
	}
	return &gs, nil
}

func (m *MockStorage) DeleteGameState(ctx context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, chatID)
	return nil
}
