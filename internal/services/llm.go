package services

import (
	"context"

	"github.com/questline/dungeonmaster/pkg/chat"
)

// LLMService defines the interface for interacting with the LLM API
type LLMService interface {
	// InitModel initializes the LLM model on startup
	InitModel(ctx context.Context, modelName string) error

	// Chat generates a response using the primary model
	Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error)

	// ChatWithModel generates a response using a specific model,
	// typically the fallback after the primary repeatedly misbehaves
	ChatWithModel(ctx context.Context, modelName string, messages []chat.ChatMessage) (*chat.ChatResponse, error)

	// FallbackModel returns the configured fallback model name, or ""
	FallbackModel() string
}
