package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/questline/dungeonmaster/pkg/state"
)

// RedisStorage implements Storage using Redis as a per-player keyed
// store. Keys are "gamestate:<chat_id>" with no expiration; an
// adventure lives until the player resets it.
type RedisStorage struct {
	client *redis.Client
	logger *slog.Logger
}

var _ Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance.
func NewRedisStorage(addr string, logger *slog.Logger) *RedisStorage {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	return &RedisStorage{
		client: rdb,
		logger: logger,
	}
}

func gamestateKey(chatID int64) string {
	return fmt.Sprintf("gamestate:%d", chatID)
}

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	return nil
}

// WaitForConnection waits for Redis to become available during startup.
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)
			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}
		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

func (r *RedisStorage) SaveGameState(ctx context.Context, chatID int64, gs *state.GameState) error {
	gs.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(gs)
	if err != nil {
		r.logger.Error("Failed to marshal gamestate", "chat_id", chatID, "error", err)
		return fmt.Errorf("failed to marshal gamestate: %w", err)
	}

	if err := r.client.Set(ctx, gamestateKey(chatID), string(data), 0).Err(); err != nil {
		r.logger.Error("Failed to save gamestate", "chat_id", chatID, "error", err)
		return fmt.Errorf("failed to save gamestate: %w", err)
	}
	return nil
}

func (r *RedisStorage) LoadGameState(ctx context.Context, chatID int64) (*state.GameState, error) {
	data, err := r.client.Get(ctx, gamestateKey(chatID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // not found
		}
		r.logger.Error("Failed to load gamestate", "chat_id", chatID, "error", err)
		return nil, fmt.Errorf("failed to load gamestate: %w", err)
	}

	var gs state.GameState
	if err := json.Unmarshal([]byte(data), &gs); err != nil {
		r.logger.Error("Failed to unmarshal gamestate", "chat_id", chatID, "error", err)
		return nil, fmt.Errorf("failed to unmarshal gamestate: %w", err)
	}
	return &gs, nil
}

func (r *RedisStorage) DeleteGameState(ctx context.Context, chatID int64) error {
	if err := r.client.Del(ctx, gamestateKey(chatID)).Err(); err != nil {
		r.logger.Error("Failed to delete gamestate", "chat_id", chatID, "error", err)
		return fmt.Errorf("failed to delete gamestate: %w", err)
	}
	return nil
}
