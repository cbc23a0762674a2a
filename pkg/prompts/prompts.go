package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/questline/dungeonmaster/pkg/rules"
	"github.com/questline/dungeonmaster/pkg/state"
)

// BaseSystemPrompt is the dungeon-master persona plus the JSON
// response contract for scene generation.
const BaseSystemPrompt = `You are the Dungeon Master of a text adventure. You narrate the story to the player as it unfolds. You never discuss things outside of the game. Your tone is immersive, dramatic, and consistent with the stated genre.

### CRITICAL DIRECTIVES:
- The player controls ONLY their character. You control all NPCs and world events.
- DO NOT describe the outcome of an ability check — wait until the player rolls.
- Move the story forward gradually, allowing the player to explore and discover things on their own.
- Do not break the fourth wall. Do not acknowledge that you are an AI.

### Response format
Respond with ONLY a JSON object, no prose before or after it:
{
  "narrative": "1-3 short paragraphs describing what happens next",
  "choices": [
    {"text": "Persuade the guard", "dc": 15, "ability": "Charisma", "tags": []},
    {"text": "Sneak past", "dc": 12, "ability": "Stealth", "tags": ["proficient"]}
  ]
}
- Offer 2-4 choices, each with a dc integer and an ability or skill name.
- Omit "choices" (or use an empty array) only when no meaningful decision is available.`

// OutcomeSystemPrompt is the response contract for roll resolution.
const OutcomeSystemPrompt = `You are the Dungeon Master of a text adventure. The player has rolled an ability check; narrate the outcome.

### Response format
Respond with ONLY a JSON object, no prose before or after it:
{
  "narrative": "the outcome: impact on the player and world, consequences, new tension",
  "consequences": {
    "hp_delta": 0,
    "xp_delta": 25,
    "items_gained": [],
    "items_lost": [],
    "milestone": false
  },
  "followup_choices": [
    {"text": "Press on", "dc": 10, "ability": "Constitution", "tags": []}
  ]
}
- Honor the roll result exactly: a failure must cost something, a success must advance the story.
- Keep deltas small; set "milestone" true only for a major story accomplishment.`

// StrictJSONPrompt is appended on retry after a malformed response.
const StrictJSONPrompt = `Your previous reply was not valid JSON. Respond again with ONLY the JSON object described above. No markdown fences, no commentary, nothing outside the braces.`

// ClarificationSystemPrompt answers out-of-game questions in free text.
const ClarificationSystemPrompt = `You are the Dungeon Master. The player is asking an out-of-game question about rules, lore, or the world. Answer concisely and consistently with prior events. Respond in plain text, not JSON. Do not advance the story.`

// PlaceholderNarrative is substituted when the LLM fails outright so
// the conversation never stalls.
const PlaceholderNarrative = `A strange fog rolls in, and for a moment the world is muffled and still. When it clears, you are exactly where you were, ready to act.`

// PlaceholderChoices accompany the placeholder narrative.
var PlaceholderChoices = []state.Choice{
	{Text: "Look around carefully", DC: 10, Ability: "Perception"},
	{Text: "Push onward", DC: 10, Ability: "Strength"},
}

// OpeningMessage builds the user prompt for the opening scene.
func OpeningMessage(gs *state.GameState) string {
	genre := gs.Genre
	if genre == "" {
		genre = "Fantasy"
	}
	sheet := gs.Character.Sheet
	return fmt.Sprintf(
		"Imagine a %s world with a vivid tone and rich setting.\n"+
			"The main character is %s, a %s %s, driven by the goal: %s.\n\n"+
			"Create an opening scene with:\n"+
			"1. A compelling environment that fits the genre\n"+
			"2. A personal and immediate challenge that ties directly to their motivation and class\n"+
			"3. Two to four choices, each with a dc and ability",
		genre, sheet.Name, sheet.Race, sheet.Class, sheet.Motivation)
}

// SceneMessage builds the user prompt for a freeform player action.
func SceneMessage(input string) string {
	return "Player says: " + input
}

// OutcomeMessage builds the user prompt for resolving a rolled check.
func OutcomeMessage(choice state.Choice, check rules.CheckResult) string {
	var sb strings.Builder
	sb.WriteString("Resolve this action: " + choice.Text + "\n")
	sb.WriteString(fmt.Sprintf("Ability Check: %s (%s)\n", choice.Ability, check.Mode))
	sb.WriteString(fmt.Sprintf("Roll: %d + Modifier %d + Proficiency %d = %d\n",
		check.Die, check.Modifier, check.Proficiency, check.Total))
	sb.WriteString(fmt.Sprintf("Target DC: %d\n", check.DC))
	if check.Success {
		sb.WriteString("Result: Success\n")
	} else {
		sb.WriteString("Result: Failure\n")
	}
	return sb.String()
}

// ClarificationMessage builds the user prompt for /ask questions.
func ClarificationMessage(question string) string {
	return fmt.Sprintf("Clarify this question about the game world: %q", question)
}

// StateContext renders the game state as a JSON context block for the
// system prompt. The serialized form is the persisted GameState, which
// keeps the LLM's view identical to what is on disk.
func StateContext(gs *state.GameState) (string, error) {
	data, err := json.Marshal(gs)
	if err != nil {
		return "", fmt.Errorf("failed to marshal game state for prompt: %w", err)
	}
	return "### Current game state\n" + string(data), nil
}
