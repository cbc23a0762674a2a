package storage

import (
	"context"

	"github.com/questline/dungeonmaster/pkg/state"
)

// Storage defines the interface for gamestate persistence, keyed by
// Telegram chat id.
type Storage interface {
	// Ping tests the backing store connection
	Ping(ctx context.Context) error

	// Close closes the backing store connection
	Close() error

	// SaveGameState saves a gamestate for the given chat
	SaveGameState(ctx context.Context, chatID int64, gs *state.GameState) error

	// LoadGameState retrieves a gamestate by chat id.
	// Returns nil if the gamestate doesn't exist.
	LoadGameState(ctx context.Context, chatID int64) (*state.GameState, error)

	// DeleteGameState removes a gamestate by chat id
	DeleteGameState(ctx context.Context, chatID int64) error
}
