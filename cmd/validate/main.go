package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/questline/dungeonmaster/pkg/rules"
	"github.com/questline/dungeonmaster/pkg/state"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <save.json|saves-dir>\n", os.Args[0])
		os.Exit(1)
	}

	files, err := collectFiles(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "No save files found under %s\n", os.Args[1])
		os.Exit(1)
	}

	failed := 0
	for _, filename := range files {
		validator := &SaveValidator{}
		if err := validator.validateFile(filename); err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			failed++
		}
	}

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d save file(s) invalid\n", failed, len(files))
		os.Exit(1)
	}
	fmt.Printf("%d save file(s) valid!\n", len(files))
}

// collectFiles expands a directory argument into its primary save
// files, skipping rotated backups. A file argument is returned as-is.
func collectFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", path, err)
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".bak.json") {
			continue
		}
		files = append(files, filepath.Join(path, name))
	}
	return files, nil
}

type SaveValidator struct {
	errors []string
}

func (v *SaveValidator) validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	v.errors = nil

	if !json.Valid(data) {
		return fmt.Errorf("file %s contains invalid JSON", filename)
	}

	var gs state.GameState
	if err := json.Unmarshal(data, &gs); err != nil {
		return fmt.Errorf("file %s failed gamestate unmarshaling: %w", filename, err)
	}

	v.validateGameState(&gs)

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}
	return nil
}

func (v *SaveValidator) validateGameState(gs *state.GameState) {
	if gs.ChatID == 0 {
		v.addError("chat_id is missing or zero")
	}

	v.validateCharacter(gs)
	v.validateProgression(gs)
	v.validateChoices(gs)

	if !gs.UpdatedAt.IsZero() && !gs.CreatedAt.IsZero() && gs.UpdatedAt.Before(gs.CreatedAt) {
		v.addError("updated_at precedes created_at")
	}
}

func (v *SaveValidator) validateCharacter(gs *state.GameState) {
	if gs.Character == nil {
		v.addError("character is missing")
		return
	}
	sheet := gs.Character.Sheet
	if sheet == nil {
		v.addError("character sheet is missing")
		return
	}

	if strings.TrimSpace(sheet.Name) == "" {
		v.addError("character name is empty")
	}
	if sheet.MaxHP <= 0 {
		v.addError(fmt.Sprintf("max_hp %d must be positive", sheet.MaxHP))
	}
	if sheet.HP < 0 || sheet.HP > sheet.MaxHP {
		v.addError(fmt.Sprintf("hp %d is outside [0, %d]", sheet.HP, sheet.MaxHP))
	}

	for ability, score := range sheet.Stats.ToAttributes() {
		if score < 1 || score > 30 {
			v.addError(fmt.Sprintf("%s score %d is outside [1, 30]", ability, score))
		}
	}
}

func (v *SaveValidator) validateProgression(gs *state.GameState) {
	if gs.Level < 1 {
		v.addError(fmt.Sprintf("level %d must be at least 1", gs.Level))
	}
	if gs.XP < 0 {
		v.addError(fmt.Sprintf("xp %d must not be negative", gs.XP))
	}
	if gs.RollMode != "" {
		if _, err := rules.ParseRollMode(string(gs.RollMode)); err != nil {
			v.addError(fmt.Sprintf("roll_mode %q is not a valid mode", gs.RollMode))
		}
	}

	// The level on disk must agree with the XP table; a mismatch means
	// a level-up was half-applied or the file was hand-edited.
	if expected := state.LevelForXP(gs.XP); gs.Level >= 1 && gs.XP >= 0 && gs.Level != expected {
		v.addError(fmt.Sprintf("level %d does not match xp %d (expected level %d)", gs.Level, gs.XP, expected))
	}
}

func (v *SaveValidator) validateChoices(gs *state.GameState) {
	buf := gs.ChoiceBuffer
	if buf.SceneID == "" && len(buf.Choices) > 0 {
		v.addError("choice buffer has choices but no scene_id")
	}
	for i, c := range buf.Choices {
		if strings.TrimSpace(c.Text) == "" {
			v.addError(fmt.Sprintf("choice %d has empty text", i))
		}
		if c.DC < 1 {
			v.addError(fmt.Sprintf("choice %d has non-positive DC %d", i, c.DC))
		}
	}

	if gs.PendingChoice != nil {
		i := *gs.PendingChoice
		if i < 0 || i >= len(buf.Choices) {
			v.addError(fmt.Sprintf("pending_choice_index %d is outside the choice buffer (len %d)", i, len(buf.Choices)))
		}
	}
}

func (v *SaveValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}
