package storage

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStorage(t *testing.T) *RedisStorage {
	t.Helper()
	mr := miniredis.RunT(t)
	rs := NewRedisStorage(mr.Addr(), testLogger())
	t.Cleanup(func() { _ = rs.Close() })
	return rs
}

func TestRedisStorage_RoundTrip(t *testing.T) {
	rs := newTestRedisStorage(t)
	ctx := context.Background()

	require.NoError(t, rs.SaveGameState(ctx, 42, testGameState(t, 42)))

	loaded, err := rs.LoadGameState(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, int64(42), loaded.ChatID)
	assert.Equal(t, 150, loaded.XP)
	require.NotNil(t, loaded.Character, "load should rebuild the character")
	assert.NotNil(t, loaded.Character.Actor, "load should rebuild the actor")
}

func TestRedisStorage_KeysArePerChat(t *testing.T) {
	rs := newTestRedisStorage(t)
	ctx := context.Background()

	require.NoError(t, rs.SaveGameState(ctx, 1, testGameState(t, 1)))
	require.NoError(t, rs.SaveGameState(ctx, 2, testGameState(t, 2)))

	first, err := rs.LoadGameState(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, int64(1), first.ChatID)

	second, err := rs.LoadGameState(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, int64(2), second.ChatID)
}

func TestRedisStorage_LoadMissing(t *testing.T) {
	rs := newTestRedisStorage(t)

	gs, err := rs.LoadGameState(context.Background(), 99)
	require.NoError(t, err, "missing key should not error")
	assert.Nil(t, gs, "missing key should load as nil")
}

func TestRedisStorage_Delete(t *testing.T) {
	rs := newTestRedisStorage(t)
	ctx := context.Background()

	require.NoError(t, rs.SaveGameState(ctx, 42, testGameState(t, 42)))
	require.NoError(t, rs.DeleteGameState(ctx, 42))

	gs, err := rs.LoadGameState(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, gs, "delete should remove the gamestate")
}

func TestRedisStorage_Ping(t *testing.T) {
	rs := newTestRedisStorage(t)
	assert.NoError(t, rs.Ping(context.Background()))
}
