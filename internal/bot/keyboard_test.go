package bot

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/questline/dungeonmaster/pkg/character"
	"github.com/questline/dungeonmaster/pkg/rules"
	"github.com/questline/dungeonmaster/pkg/state"
)

func TestParseCallbackData(t *testing.T) {
	tests := []struct {
		name        string
		data        string
		expected    callbackPayload
		expectError bool
	}{
		{
			name:     "choice",
			data:     "choice|scene-abc|2",
			expected: callbackPayload{Kind: callbackChoice, SceneID: "scene-abc", Index: 2},
		},
		{
			name:     "roll",
			data:     "roll|scene-abc",
			expected: callbackPayload{Kind: callbackRoll, SceneID: "scene-abc"},
		},
		{name: "bad index", data: "choice|scene-abc|two", expectError: true},
		{name: "missing parts", data: "choice|scene-abc", expectError: true},
		{name: "unknown kind", data: "attack|scene-abc|1", expectError: true},
		{name: "empty", data: "", expectError: true},
		{name: "legacy shape", data: "choice:1", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCallbackData(tt.data)
			if tt.expectError {
				if err == nil {
					t.Errorf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("got %+v, want %+v", got, tt.expected)
			}
		})
	}
}

func TestCallbackDataRoundTrip(t *testing.T) {
	payload, err := parseCallbackData(choiceCallbackData("scene-1", 3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.SceneID != "scene-1" || payload.Index != 3 {
		t.Errorf("round trip lost data: %+v", payload)
	}

	payload, err = parseCallbackData(rollCallbackData("scene-2"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.Kind != callbackRoll || payload.SceneID != "scene-2" {
		t.Errorf("round trip lost data: %+v", payload)
	}
}

func TestChoiceKeyboard(t *testing.T) {
	choices := []state.Choice{
		{Text: "Sneak past", DC: 12, Ability: "Stealth"},
		{Text: strings.Repeat("a", 100), DC: 14, Ability: "Strength"},
	}

	kb := choiceKeyboard("scene-1", choices)
	if len(kb.InlineKeyboard) != 2 {
		t.Fatalf("expected one row per choice, got %d", len(kb.InlineKeyboard))
	}

	first := kb.InlineKeyboard[0][0]
	if !strings.Contains(first.Text, "Sneak past") || !strings.Contains(first.Text, "DC 12") {
		t.Errorf("button label = %q", first.Text)
	}
	if first.CallbackData == nil || *first.CallbackData != "choice|scene-1|0" {
		t.Errorf("callback data = %v", first.CallbackData)
	}

	second := kb.InlineKeyboard[1][0]
	if len(second.Text) > buttonTextLimit+20 {
		t.Errorf("long label should be truncated, got %d chars", len(second.Text))
	}
}

func TestChoiceKeyboard_TruncatesOnRuneBoundary(t *testing.T) {
	// Two-byte runes guarantee the byte limit lands mid-rune.
	choices := []state.Choice{
		{Text: strings.Repeat("б", buttonTextLimit), DC: 10, Ability: "Strength"},
	}

	kb := choiceKeyboard("scene-1", choices)
	text := kb.InlineKeyboard[0][0].Text
	if !utf8.ValidString(text) {
		t.Errorf("button label must stay valid UTF-8: %q", text)
	}
	if !strings.Contains(text, "…") {
		t.Errorf("truncated label should end with an ellipsis: %q", text)
	}
}

func TestRollKeyboard(t *testing.T) {
	kb := rollKeyboard("scene-1")
	if len(kb.InlineKeyboard) != 1 || len(kb.InlineKeyboard[0]) != 1 {
		t.Fatal("expected a single roll button")
	}
	btn := kb.InlineKeyboard[0][0]
	if btn.CallbackData == nil || *btn.CallbackData != "roll|scene-1" {
		t.Errorf("callback data = %v", btn.CallbackData)
	}
}

func TestFormatCheck(t *testing.T) {
	check := rules.CheckResult{
		Ability:     "Stealth",
		Mode:        rules.ModeNormal,
		Raw:         []int{14},
		Die:         14,
		Score:       16,
		Modifier:    3,
		Proficiency: 2,
		Total:       19,
		DC:          12,
		Success:     true,
	}

	out := formatCheck(check)
	for _, want := range []string{"*14*", "Stealth 16", "+3", "+2 proficiency", "Total = 19 vs DC 12", "Success"} {
		if !strings.Contains(out, want) {
			t.Errorf("formatCheck missing %q:\n%s", want, out)
		}
	}
}

func TestFormatCheck_Advantage(t *testing.T) {
	check := rules.CheckResult{
		Ability:  "Strength",
		Mode:     rules.ModeAdvantage,
		Raw:      []int{4, 17},
		Die:      17,
		Score:    8,
		Modifier: -1,
		Total:    16,
		DC:       20,
	}

	out := formatCheck(check)
	if !strings.Contains(out, "advantage") || !strings.Contains(out, "keeping *17*") {
		t.Errorf("advantage breakdown missing:\n%s", out)
	}
	if !strings.Contains(out, "Failure") {
		t.Errorf("expected failure verdict:\n%s", out)
	}
}

func TestFormatSheet(t *testing.T) {
	ch, err := character.NewFromSheet(&character.Sheet{
		Name:          "Mira",
		Race:          "elf",
		Class:         "rogue",
		Motivation:    "clear her brother's name",
		Stats:         character.Stats5e{Strength: 8, Dexterity: 16, Constitution: 12, Intelligence: 14, Wisdom: 10, Charisma: 13},
		Proficiencies: []string{"Stealth", "Deception"},
		HP:            7,
		MaxHP:         10,
	})
	if err != nil {
		t.Fatalf("failed to create character: %v", err)
	}
	gs := state.NewGameState(42, ch, "fantasy")
	gs.Inventory = []string{"rope", "lockpick"}
	gs.XP = 150

	out := formatSheet(gs)
	for _, want := range []string{"Mira", "Level 1", "elf rogue", "HP: 7/10", "XP: 150", "DEX 16", "Stealth, Deception", "rope, lockpick"} {
		if !strings.Contains(out, want) {
			t.Errorf("formatSheet missing %q:\n%s", want, out)
		}
	}
}

func TestChatLocks(t *testing.T) {
	locks := newChatLocks()

	if !locks.TryAcquire(1) {
		t.Fatal("first acquire should succeed")
	}
	if locks.TryAcquire(1) {
		t.Fatal("second acquire on the same chat should fail")
	}
	if !locks.TryAcquire(2) {
		t.Fatal("a different chat should be independent")
	}

	locks.Release(1)
	if !locks.TryAcquire(1) {
		t.Fatal("acquire after release should succeed")
	}
}
