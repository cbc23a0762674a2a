package prompts

import (
	"strings"
	"testing"

	"github.com/questline/dungeonmaster/pkg/character"
	"github.com/questline/dungeonmaster/pkg/chat"
	"github.com/questline/dungeonmaster/pkg/rules"
	"github.com/questline/dungeonmaster/pkg/state"
)

func testGameState(t *testing.T) *state.GameState {
	t.Helper()
	ch, err := character.NewFromSheet(&character.Sheet{
		Name:       "Mira",
		Race:       "elf",
		Class:      "rogue",
		Motivation: "clear her brother's name",
		Stats:      character.Stats5e{Strength: 8, Dexterity: 16, Constitution: 12, Intelligence: 14, Wisdom: 10, Charisma: 13},
		HP:         10,
		MaxHP:      10,
	})
	if err != nil {
		t.Fatalf("failed to create character: %v", err)
	}
	return state.NewGameState(42, ch, "fantasy noir")
}

func TestBuilder_Build(t *testing.T) {
	gs := testGameState(t)
	gs.AppendSummary("Mira slipped into the counting house.")

	messages, err := New().
		WithGameState(gs).
		WithUserMessage("Player says: I check the ledger").
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	system := messages[0]
	if system.Role != chat.ChatRoleSystem {
		t.Errorf("first message should be system, got %q", system.Role)
	}
	if !strings.Contains(system.Content, "Dungeon Master") {
		t.Error("system prompt should carry the DM persona")
	}
	if !strings.Contains(system.Content, "### Current game state") {
		t.Error("system prompt should include the state context block")
	}
	if !strings.Contains(system.Content, `"Mira"`) {
		t.Error("state context should include the character")
	}
	if !strings.Contains(system.Content, "### Story so far") {
		t.Error("system prompt should include the summary")
	}
	if messages[1].Role != chat.ChatRoleUser {
		t.Errorf("second message should be user, got %q", messages[1].Role)
	}
}

func TestBuilder_History(t *testing.T) {
	gs := testGameState(t)
	gs.History = []chat.ChatMessage{
		{Role: chat.ChatRoleUser, Content: "I check the ledger."},
		{Role: chat.ChatRoleAgent, Content: "The ink is still wet."},
	}

	messages, err := New().
		WithGameState(gs).
		WithHistory(gs.History).
		WithUserMessage("Player says: I pocket the page").
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(messages) != 4 {
		t.Fatalf("expected system + 2 history + user, got %d", len(messages))
	}
	if messages[1].Content != "I check the ledger." || messages[1].Role != chat.ChatRoleUser {
		t.Errorf("history should follow the system prompt: %+v", messages[1])
	}
	if messages[2].Role != chat.ChatRoleAgent {
		t.Errorf("second history message should be the agent turn, got %q", messages[2].Role)
	}
	if messages[3].Role != chat.ChatRoleUser || !strings.Contains(messages[3].Content, "pocket") {
		t.Errorf("user message should come last: %+v", messages[3])
	}
}

func TestBuilder_Strict(t *testing.T) {
	messages, err := New().
		WithGameState(testGameState(t)).
		WithUserMessage("hello").
		WithStrict().
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	last := messages[len(messages)-1]
	if last.Role != chat.ChatRoleSystem || last.Content != StrictJSONPrompt {
		t.Errorf("strict build should end with the strict reminder, got %+v", last)
	}
}

func TestBuilder_RequiresGameState(t *testing.T) {
	if _, err := New().WithUserMessage("hello").Build(); err == nil {
		t.Fatal("expected error without gamestate")
	}

	messages, err := New().WithoutState().WithUserMessage("hello").Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(messages[0].Content, "### Current game state") {
		t.Error("WithoutState should omit the state block")
	}
}

func TestOpeningMessage(t *testing.T) {
	gs := testGameState(t)
	msg := OpeningMessage(gs)

	for _, want := range []string{"fantasy noir", "Mira", "elf", "rogue", "clear her brother's name"} {
		if !strings.Contains(msg, want) {
			t.Errorf("opening message missing %q", want)
		}
	}

	gs.Genre = ""
	if !strings.Contains(OpeningMessage(gs), "Fantasy") {
		t.Error("empty genre should default to Fantasy")
	}
}

func TestOutcomeMessage(t *testing.T) {
	choice := state.Choice{Text: "Sneak past the guard", DC: 12, Ability: "Stealth"}
	check := rules.CheckResult{
		Ability:     "Stealth",
		Mode:        rules.ModeNormal,
		Die:         14,
		Modifier:    3,
		Proficiency: 2,
		Total:       19,
		DC:          12,
		Success:     true,
	}

	msg := OutcomeMessage(choice, check)
	for _, want := range []string{"Sneak past the guard", "Stealth", "19", "Target DC: 12", "Result: Success"} {
		if !strings.Contains(msg, want) {
			t.Errorf("outcome message missing %q:\n%s", want, msg)
		}
	}
}

func TestParseSceneResponse(t *testing.T) {
	raw := `{"narrative": "The door creaks open.", "choices": [{"text": "Enter", "dc": 10, "ability": "Perception"}]}`

	resp, err := ParseSceneResponse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Narrative != "The door creaks open." {
		t.Errorf("narrative = %q", resp.Narrative)
	}
	if len(resp.Choices) != 1 || resp.Choices[0].DC != 10 {
		t.Errorf("choices = %+v", resp.Choices)
	}
}

func TestParseSceneResponse_SalvagesFencedJSON(t *testing.T) {
	raw := "Here is the scene:\n```json\n{\"narrative\": \"A cold wind.\", \"choices\": []}\n```\nEnjoy!"

	resp, err := ParseSceneResponse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Narrative != "A cold wind." {
		t.Errorf("narrative = %q", resp.Narrative)
	}
}

func TestParseSceneResponse_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no json", "The door creaks open."},
		{"empty narrative", `{"narrative": "", "choices": []}`},
		{"malformed", `{"narrative": `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseSceneResponse(tt.raw); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseOutcomeResponse(t *testing.T) {
	raw := `{
		"narrative": "You slip past unseen.",
		"consequences": {"xp_delta": 25, "items_gained": ["guard's key"]},
		"followup_choices": [{"text": "Open the vault", "dc": 15, "ability": "Dexterity"}]
	}`

	resp, err := ParseOutcomeResponse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Consequences == nil || resp.Consequences.XPDelta != 25 {
		t.Errorf("consequences = %+v", resp.Consequences)
	}
	if len(resp.FollowupChoices) != 1 {
		t.Errorf("followup choices = %+v", resp.FollowupChoices)
	}
}

func TestParseOutcomeResponse_EmptyNarrative(t *testing.T) {
	if _, err := ParseOutcomeResponse(`{"consequences": {"xp_delta": 5}}`); err == nil {
		t.Error("expected error for empty narrative")
	}
}
