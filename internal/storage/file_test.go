package storage

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/questline/dungeonmaster/pkg/character"
	"github.com/questline/dungeonmaster/pkg/state"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testGameState(t *testing.T, chatID int64) *state.GameState {
	t.Helper()
	ch, err := character.NewFromSheet(&character.Sheet{
		Name:          "Mira",
		Race:          "elf",
		Class:         "rogue",
		Stats:         character.Stats5e{Strength: 8, Dexterity: 16, Constitution: 12, Intelligence: 14, Wisdom: 10, Charisma: 13},
		Proficiencies: []string{"Stealth"},
		HP:            7,
		MaxHP:         10,
	})
	if err != nil {
		t.Fatalf("failed to create character: %v", err)
	}
	gs := state.NewGameState(chatID, ch, "fantasy")
	gs.Inventory = []string{"rope"}
	gs.XP = 150
	return gs
}

func newTestFileStorage(t *testing.T) *FileStorage {
	t.Helper()
	fs, err := NewFileStorage(t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("failed to create file storage: %v", err)
	}
	return fs
}

func TestFileStorage_RoundTrip(t *testing.T) {
	fs := newTestFileStorage(t)
	ctx := context.Background()

	if err := fs.SaveGameState(ctx, 42, testGameState(t, 42)); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := fs.LoadGameState(ctx, 42)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected a gamestate")
	}
	if loaded.ChatID != 42 || loaded.XP != 150 || loaded.Genre != "fantasy" {
		t.Errorf("gamestate did not survive round trip: %+v", loaded)
	}
	if loaded.Character == nil || loaded.Character.Sheet.Name != "Mira" {
		t.Errorf("character did not survive round trip")
	}
	if loaded.Character.Sheet.HP != 7 {
		t.Errorf("HP = %d, want 7", loaded.Character.Sheet.HP)
	}
	if loaded.Character.Actor == nil {
		t.Error("load should rebuild the actor")
	}
}

func TestFileStorage_LoadMissing(t *testing.T) {
	fs := newTestFileStorage(t)

	gs, err := fs.LoadGameState(context.Background(), 99)
	if err != nil {
		t.Fatalf("missing save should not error: %v", err)
	}
	if gs != nil {
		t.Error("missing save should load as nil")
	}
}

func TestFileStorage_RestoresFromBackup(t *testing.T) {
	fs := newTestFileStorage(t)
	ctx := context.Background()

	if err := fs.SaveGameState(ctx, 42, testGameState(t, 42)); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	// Corrupt the primary save; the backup from the save should cover it.
	if err := os.WriteFile(fs.savePath(42), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("failed to corrupt save: %v", err)
	}

	loaded, err := fs.LoadGameState(ctx, 42)
	if err != nil {
		t.Fatalf("load should recover from backup: %v", err)
	}
	if loaded == nil || loaded.ChatID != 42 {
		t.Errorf("restored gamestate is wrong: %+v", loaded)
	}
}

func TestFileStorage_PrunesBackups(t *testing.T) {
	fs := newTestFileStorage(t)
	ctx := context.Background()
	gs := testGameState(t, 42)

	for i := 0; i < maxBackups+3; i++ {
		if err := fs.SaveGameState(ctx, 42, gs); err != nil {
			t.Fatalf("save %d failed: %v", i, err)
		}
	}

	backups, err := filepath.Glob(fs.backupGlob(42))
	if err != nil {
		t.Fatalf("glob failed: %v", err)
	}
	if len(backups) != maxBackups {
		t.Errorf("expected %d backups, got %d", maxBackups, len(backups))
	}
}

func TestFileStorage_Delete(t *testing.T) {
	fs := newTestFileStorage(t)
	ctx := context.Background()

	if err := fs.SaveGameState(ctx, 42, testGameState(t, 42)); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := fs.DeleteGameState(ctx, 42); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	gs, err := fs.LoadGameState(ctx, 42)
	if err != nil {
		t.Fatalf("load after delete errored: %v", err)
	}
	if gs != nil {
		t.Error("delete should remove the save")
	}

	backups, _ := filepath.Glob(fs.backupGlob(42))
	if len(backups) != 0 {
		t.Errorf("delete should remove backups, %d left", len(backups))
	}

	// Deleting a missing save is fine.
	if err := fs.DeleteGameState(ctx, 42); err != nil {
		t.Errorf("double delete should not error: %v", err)
	}
}

func TestFileStorage_Ping(t *testing.T) {
	fs := newTestFileStorage(t)
	if err := fs.Ping(context.Background()); err != nil {
		t.Errorf("ping failed: %v", err)
	}
}
