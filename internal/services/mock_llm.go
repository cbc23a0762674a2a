package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/questline/dungeonmaster/pkg/chat"
)

// MockLLM is a configurable LLMService for tests and for running the
// console without an API key. When no ChatFunc is set, it returns
// canned scene JSON so the game loop keeps moving.
type MockLLM struct {
	mu sync.Mutex

	// ChatFunc, when set, handles every request.
	ChatFunc func(ctx context.Context, modelName string, messages []chat.ChatMessage) (*chat.ChatResponse, error)

	// Calls records each request's model name, in order.
	Calls []string
}

var _ LLMService = (*MockLLM)(nil)

const mockSceneJSON = `{
  "narrative": "The torchlight gutters as you weigh your options. Somewhere ahead, stone grinds against stone.",
  "choices": [
    {"text": "Listen at the door", "dc": 10, "ability": "Perception"},
    {"text": "Force the door open", "dc": 14, "ability": "Strength"}
  ]
}`

func (m *MockLLM) InitModel(ctx context.Context, modelName string) error {
	return nil
}

func (m *MockLLM) FallbackModel() string {
	return "mock-fallback"
}

func (m *MockLLM) Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
	return m.ChatWithModel(ctx, "mock", messages)
}

func (m *MockLLM) ChatWithModel(ctx context.Context, modelName string, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, modelName)
	fn := m.ChatFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, modelName, messages)
	}
	if len(messages) == 0 {
		return nil, fmt.Errorf("no messages provided")
	}
	return &chat.ChatResponse{Message: mockSceneJSON, Model: modelName}, nil
}

// CallCount returns how many requests the mock has served.
func (m *MockLLM) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
