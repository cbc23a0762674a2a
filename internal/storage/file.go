package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/questline/dungeonmaster/pkg/state"
)

// maxBackups is how many rotating backups are kept per player.
const maxBackups = 5

// FileStorage implements Storage with one JSON file per player under
// a saves directory. Writes go to a temp file first and are renamed
// into place, so a crash mid-write never corrupts the primary save.
// Each save also rotates a timestamped backup; loads fall back to the
// newest backup when the primary file is unreadable.
type FileStorage struct {
	dir    string
	logger *slog.Logger
}

var _ Storage = (*FileStorage)(nil)

// NewFileStorage creates a file storage rooted at dir, creating the
// directory if needed.
func NewFileStorage(dir string, logger *slog.Logger) (*FileStorage, error) {
	if dir == "" {
		dir = "saves"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create saves directory: %w", err)
	}
	return &FileStorage{dir: dir, logger: logger}, nil
}

func (f *FileStorage) savePath(chatID int64) string {
	return filepath.Join(f.dir, fmt.Sprintf("%d.json", chatID))
}

func (f *FileStorage) backupGlob(chatID int64) string {
	return filepath.Join(f.dir, fmt.Sprintf("%d.*.bak.json", chatID))
}

func (f *FileStorage) Ping(ctx context.Context) error {
	info, err := os.Stat(f.dir)
	if err != nil {
		return fmt.Errorf("saves directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("saves path %s is not a directory", f.dir)
	}
	return nil
}

func (f *FileStorage) Close() error {
	return nil
}

func (f *FileStorage) SaveGameState(ctx context.Context, chatID int64, gs *state.GameState) error {
	gs.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(gs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal gamestate: %w", err)
	}

	path := f.savePath(chatID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write gamestate: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace gamestate file: %w", err)
	}

	f.rotateBackups(chatID, data)
	return nil
}

// rotateBackups writes a timestamped backup copy and prunes the
// oldest beyond maxBackups. Backup failures are logged, never fatal:
// the primary save already succeeded.
func (f *FileStorage) rotateBackups(chatID int64, data []byte) {
	backup := filepath.Join(f.dir, fmt.Sprintf("%d.%d.bak.json", chatID, time.Now().UnixNano()))
	if err := os.WriteFile(backup, data, 0o644); err != nil {
		f.logger.Warn("Failed to write backup", "chat_id", chatID, "error", err)
		return
	}

	backups, err := filepath.Glob(f.backupGlob(chatID))
	if err != nil {
		return
	}
	sort.Strings(backups) // nanosecond timestamps of equal width sort chronologically
	for len(backups) > maxBackups {
		if err := os.Remove(backups[0]); err != nil {
			f.logger.Warn("Failed to prune backup", "path", backups[0], "error", err)
		}
		backups = backups[1:]
	}
}

func (f *FileStorage) LoadGameState(ctx context.Context, chatID int64) (*state.GameState, error) {
	data, err := os.ReadFile(f.savePath(chatID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // not found
		}
		f.logger.Warn("Failed to read gamestate, trying newest backup", "chat_id", chatID, "error", err)
		return f.loadFromBackup(chatID)
	}

	var gs state.GameState
	if err := json.Unmarshal(data, &gs); err != nil {
		f.logger.Warn("Corrupt gamestate file, trying newest backup", "chat_id", chatID, "error", err)
		return f.loadFromBackup(chatID)
	}
	return &gs, nil
}

// loadFromBackup tries backups newest-first.
func (f *FileStorage) loadFromBackup(chatID int64) (*state.GameState, error) {
	backups, err := filepath.Glob(f.backupGlob(chatID))
	if err != nil || len(backups) == 0 {
		return nil, fmt.Errorf("gamestate unreadable and no backups for chat %d", chatID)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(backups)))

	for _, path := range backups {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var gs state.GameState
		if err := json.Unmarshal(data, &gs); err != nil {
			f.logger.Warn("Corrupt backup skipped", "path", path, "error", err)
			continue
		}
		f.logger.Info("Gamestate restored from backup", "chat_id", chatID, "path", path)
		return &gs, nil
	}
	return nil, fmt.Errorf("gamestate unreadable and all backups corrupt for chat %d", chatID)
}

func (f *FileStorage) DeleteGameState(ctx context.Context, chatID int64) error {
	if err := os.Remove(f.savePath(chatID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete gamestate: %w", err)
	}
	backups, err := filepath.Glob(f.backupGlob(chatID))
	if err != nil {
		return nil
	}
	for _, path := range backups {
		if err := os.Remove(path); err != nil {
			f.logger.Warn("Failed to delete backup", "path", path, "error", err)
		}
	}
	return nil
}
