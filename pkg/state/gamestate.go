package state

import (
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/questline/dungeonmaster/pkg/character"
	"github.com/questline/dungeonmaster/pkg/chat"
	"github.com/questline/dungeonmaster/pkg/rules"
)

var (
	// ErrStaleScene is returned when a choice selection carries a scene
	// id that does not match the current choice buffer. The selection
	// came from an outdated keyboard and must not mutate state.
	ErrStaleScene = errors.New("choice is from an outdated scene")

	// ErrChoiceOutOfRange is returned for a choice index outside the
	// current buffer.
	ErrChoiceOutOfRange = errors.New("choice index out of range")

	// ErrNoPendingChoice is returned when a roll is requested with no
	// choice selected.
	ErrNoPendingChoice = errors.New("no pending choice to roll for")
)

// Choice is a single option offered to the player, carrying the
// difficulty class and ability the eventual roll resolves against.
type Choice struct {
	Text    string   `json:"text"`
	DC      int      `json:"dc"`
	Ability string   `json:"ability"`
	Tags    []string `json:"tags,omitempty"`
}

// ChoiceBuffer holds the last set of choices presented to the player.
// SceneID is an opaque identifier minted when the choices are
// rendered; selections referencing any other id are stale.
type ChoiceBuffer struct {
	SceneID string   `json:"scene_id"`
	Choices []Choice `json:"choices"`
}

// SummaryLimit caps the rolling narrative summary, keeping the tail.
const SummaryLimit = 2000

// GameState is the complete per-player state of an adventure.
type GameState struct {
	ChatID        int64                `json:"chat_id"`
	Character     *character.Character `json:"character"`
	Inventory     []string             `json:"inventory"` // ordered, duplicates allowed
	Quests        []string             `json:"quests,omitempty"`
	Genre         string               `json:"genre,omitempty"`
	Level         int                  `json:"level"`
	XP            int                  `json:"xp"`
	Summary       string               `json:"summary,omitempty"`
	History       []chat.ChatMessage   `json:"history,omitempty"` // recent exchange fed back into prompts, newest last
	LastScene     string               `json:"last_scene,omitempty"`
	ChoiceBuffer  ChoiceBuffer         `json:"choice_buffer"`
	PendingChoice *int                 `json:"pending_choice_index,omitempty"`
	RollMode      rules.RollMode       `json:"roll_mode"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// NewGameState creates a fresh level-1 state for a chat.
func NewGameState(chatID int64, ch *character.Character, genre string) *GameState {
	now := time.Now().UTC()
	return &GameState{
		ChatID:    chatID,
		Character: ch,
		Inventory: make([]string, 0),
		Genre:     genre,
		Level:     1,
		XP:        0,
		RollMode:  rules.ModeNormal,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetChoices installs a new choice buffer under a fresh scene id and
// clears any pending selection. Returns the new scene id.
func (gs *GameState) SetChoices(choices []Choice) string {
	gs.ChoiceBuffer = ChoiceBuffer{
		SceneID: uuid.NewString(),
		Choices: choices,
	}
	gs.PendingChoice = nil
	return gs.ChoiceBuffer.SceneID
}

// SelectChoice marks a choice as pending for the next roll. The scene
// id must match the current buffer and the index must be in range;
// otherwise the selection is rejected and no state changes.
func (gs *GameState) SelectChoice(sceneID string, index int) (Choice, error) {
	if sceneID != gs.ChoiceBuffer.SceneID || gs.ChoiceBuffer.SceneID == "" {
		return Choice{}, ErrStaleScene
	}
	if index < 0 || index >= len(gs.ChoiceBuffer.Choices) {
		return Choice{}, ErrChoiceOutOfRange
	}
	idx := index
	gs.PendingChoice = &idx
	return gs.ChoiceBuffer.Choices[index], nil
}

// Pending returns the currently selected choice, if any.
func (gs *GameState) Pending() (Choice, error) {
	if gs.PendingChoice == nil {
		return Choice{}, ErrNoPendingChoice
	}
	i := *gs.PendingChoice
	if i < 0 || i >= len(gs.ChoiceBuffer.Choices) {
		return Choice{}, ErrNoPendingChoice
	}
	return gs.ChoiceBuffer.Choices[i], nil
}

// ClearPending drops the pending selection after a roll resolves.
func (gs *GameState) ClearPending() {
	gs.PendingChoice = nil
}

// AppendHistory records a conversation turn and trims the history to
// the most recent limit messages.
func (gs *GameState) AppendHistory(role, content string, limit int) {
	if content == "" {
		return
	}
	gs.History = append(gs.History, chat.ChatMessage{Role: role, Content: content})
	gs.History = chat.TrimHistory(gs.History, limit)
}

// AppendSummary adds a paragraph to the rolling narrative summary and
// truncates it to SummaryLimit, keeping the most recent text.
func (gs *GameState) AppendSummary(text string) {
	if text == "" {
		return
	}
	if gs.Summary == "" {
		gs.Summary = text
	} else {
		gs.Summary += "\n" + text
	}
	if len(gs.Summary) > SummaryLimit {
		cut := len(gs.Summary) - SummaryLimit
		// Advance to a rune boundary so the tail stays valid UTF-8.
		for cut < len(gs.Summary) && !utf8.RuneStart(gs.Summary[cut]) {
			cut++
		}
		gs.Summary = gs.Summary[cut:]
	}
}
