// Package game orchestrates the adventure loop: it loads state,
// prompts the LLM, applies rules and consequences, and saves state.
// Both the Telegram bot and the local console drive this engine.
package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/questline/dungeonmaster/internal/services"
	"github.com/questline/dungeonmaster/internal/storage"
	"github.com/questline/dungeonmaster/pkg/character"
	"github.com/questline/dungeonmaster/pkg/chat"
	"github.com/questline/dungeonmaster/pkg/dice"
	"github.com/questline/dungeonmaster/pkg/prompts"
	"github.com/questline/dungeonmaster/pkg/rules"
	"github.com/questline/dungeonmaster/pkg/state"
	"github.com/questline/dungeonmaster/pkg/textfilter"
)

// ErrNoGame is returned when a chat has no adventure yet.
var ErrNoGame = errors.New("no adventure in progress")

// Scene is a rendered narrative beat plus the choices offered.
type Scene struct {
	Narrative string
	SceneID   string
	Choices   []state.Choice
}

// RollOutcome is the result of resolving a pending choice.
type RollOutcome struct {
	Choice       state.Choice
	Check        rules.CheckResult
	Narrative    string
	Scene        *Scene // followup choices, may have zero choices
	LevelsGained int
	NewLevel     int
	HP           int
	MaxHP        int
}

// Engine runs the adventure loop for all players.
type Engine struct {
	llm          services.LLMService
	storage      storage.Storage
	roller       dice.Roller
	logger       *slog.Logger
	filter       *textfilter.ProfanityFilter
	historyLimit int
}

// New creates an engine.
func New(llm services.LLMService, store storage.Storage, roller dice.Roller, logger *slog.Logger) *Engine {
	if roller == nil {
		roller = dice.NewRoller()
	}
	return &Engine{
		llm:          llm,
		storage:      store,
		roller:       roller,
		logger:       logger,
		historyLimit: chat.DefaultHistoryLimit,
	}
}

// SetHistoryLimit caps the conversation turns retained per player and
// replayed into prompts.
func (e *Engine) SetHistoryLimit(n int) {
	e.historyLimit = n
}

// Roller exposes the engine's dice roller for character generation.
func (e *Engine) Roller() dice.Roller {
	return e.roller
}

// SetFamilyFriendly toggles profanity softening on all narrative.
func (e *Engine) SetFamilyFriendly(on bool) {
	if on {
		e.filter = textfilter.NewProfanityFilter()
	} else {
		e.filter = nil
	}
}

// sanitize cleans markdown artifacts out of LLM narrative and, in
// family-friendly mode, softens profanity.
func (e *Engine) sanitize(s string) string {
	s = textfilter.CleanNarrative(s)
	if e.filter != nil {
		s = e.filter.Filter(s)
	}
	return s
}

// StartAdventure creates a fresh game for the chat and generates the
// opening scene. Any existing game for the chat is replaced.
func (e *Engine) StartAdventure(ctx context.Context, chatID int64, sheet *character.Sheet, genre string) (*Scene, error) {
	ch, err := character.NewFromSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create character: %w", err)
	}
	gs := state.NewGameState(chatID, ch, genre)

	scene, err := e.generateScene(ctx, gs, prompts.OpeningMessage(gs))
	if err != nil {
		return nil, err
	}
	if err := e.storage.SaveGameState(ctx, chatID, gs); err != nil {
		return nil, err
	}
	return scene, nil
}

// Action advances the story from freeform player input.
func (e *Engine) Action(ctx context.Context, chatID int64, text string) (*Scene, error) {
	gs, err := e.load(ctx, chatID)
	if err != nil {
		return nil, err
	}

	scene, err := e.generateScene(ctx, gs, prompts.SceneMessage(text))
	if err != nil {
		return nil, err
	}
	if err := e.storage.SaveGameState(ctx, chatID, gs); err != nil {
		return nil, err
	}
	return scene, nil
}

// SelectChoice validates a choice selection against the stored choice
// buffer. Stale or out-of-range selections return an error and leave
// state untouched.
func (e *Engine) SelectChoice(ctx context.Context, chatID int64, sceneID string, index int) (state.Choice, error) {
	gs, err := e.load(ctx, chatID)
	if err != nil {
		return state.Choice{}, err
	}

	choice, err := gs.SelectChoice(sceneID, index)
	if err != nil {
		return state.Choice{}, err
	}
	if err := e.storage.SaveGameState(ctx, chatID, gs); err != nil {
		return state.Choice{}, err
	}
	return choice, nil
}

// Roll resolves the pending choice: rolls the check, asks the LLM for
// the outcome, applies consequences, and installs followup choices.
func (e *Engine) Roll(ctx context.Context, chatID int64) (*RollOutcome, error) {
	gs, err := e.load(ctx, chatID)
	if err != nil {
		return nil, err
	}

	choice, err := gs.Pending()
	if err != nil {
		return nil, err
	}

	check := rules.ResolveCheck(gs.Character.Sheet, gs.Level, choice.Ability, choice.DC, gs.RollMode, e.roller)
	e.logger.Info("Check resolved",
		"chat_id", chatID,
		"ability", choice.Ability,
		"mode", check.Mode,
		"total", check.Total,
		"dc", check.DC,
		"success", check.Success)

	userMessage := prompts.OutcomeMessage(choice, check)
	outcome := e.generateOutcome(ctx, gs, userMessage)
	outcome.Narrative = e.sanitize(outcome.Narrative)

	report := state.NewConsequenceWorker(gs, outcome.Consequences, e.logger).Apply()

	gs.LastScene = outcome.Narrative
	gs.AppendSummary(outcome.Narrative)
	gs.AppendHistory(chat.ChatRoleUser, userMessage, e.historyLimit)
	gs.AppendHistory(chat.ChatRoleAgent, outcome.Narrative, e.historyLimit)
	sceneID := gs.SetChoices(outcome.FollowupChoices)

	if err := e.storage.SaveGameState(ctx, chatID, gs); err != nil {
		return nil, err
	}

	return &RollOutcome{
		Choice:       choice,
		Check:        check,
		Narrative:    outcome.Narrative,
		Scene:        &Scene{Narrative: outcome.Narrative, SceneID: sceneID, Choices: outcome.FollowupChoices},
		LevelsGained: report.LevelsGained,
		NewLevel:     report.NewLevel,
		HP:           gs.Character.HP(),
		MaxHP:        gs.Character.Sheet.MaxHP,
	}, nil
}

// Ask answers an out-of-game question without advancing the story.
func (e *Engine) Ask(ctx context.Context, chatID int64, question string) (string, error) {
	gs, err := e.load(ctx, chatID)
	if err != nil {
		return "", err
	}

	messages, err := prompts.New().
		WithGameState(gs).
		WithHistory(gs.History).
		WithSystemPrompt(prompts.ClarificationSystemPrompt).
		WithUserMessage(prompts.ClarificationMessage(question)).
		Build()
	if err != nil {
		return "", err
	}

	resp, err := e.llm.Chat(ctx, messages)
	if err != nil {
		e.logger.Error("Clarification failed", "chat_id", chatID, "error", err)
		return "The Dungeon Master ponders your question but the answer escapes into the mist. Try again.", nil
	}
	return e.sanitize(resp.Message), nil
}

// Boost manually adjusts an ability score.
func (e *Engine) Boost(ctx context.Context, chatID int64, ability string, delta int) (*state.GameState, error) {
	gs, err := e.load(ctx, chatID)
	if err != nil {
		return nil, err
	}

	abbr, err := rules.ParseAbility(ability)
	if err != nil {
		return nil, err
	}
	if err := gs.Character.Sheet.Boost(abbr, delta); err != nil {
		return nil, err
	}
	if err := e.storage.SaveGameState(ctx, chatID, gs); err != nil {
		return nil, err
	}
	return gs, nil
}

// SetRollMode changes the per-player roll mode.
func (e *Engine) SetRollMode(ctx context.Context, chatID int64, mode rules.RollMode) error {
	gs, err := e.load(ctx, chatID)
	if err != nil {
		return err
	}
	gs.RollMode = mode
	return e.storage.SaveGameState(ctx, chatID, gs)
}

// State returns the chat's game state for display.
func (e *Engine) State(ctx context.Context, chatID int64) (*state.GameState, error) {
	return e.load(ctx, chatID)
}

// Reset deletes the chat's adventure.
func (e *Engine) Reset(ctx context.Context, chatID int64) error {
	return e.storage.DeleteGameState(ctx, chatID)
}

func (e *Engine) load(ctx context.Context, chatID int64) (*state.GameState, error) {
	gs, err := e.storage.LoadGameState(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if gs == nil {
		return nil, ErrNoGame
	}
	return gs, nil
}

// generateScene asks the LLM for a scene, retrying once with the
// strict prompt, then once against the fallback model, before
// substituting the placeholder scene. The gamestate's scene fields are
// updated in place; the caller saves.
func (e *Engine) generateScene(ctx context.Context, gs *state.GameState, userMessage string) (*Scene, error) {
	resp := e.sceneResponse(ctx, gs, userMessage)
	resp.Narrative = e.sanitize(resp.Narrative)

	gs.LastScene = resp.Narrative
	gs.AppendSummary(resp.Narrative)
	gs.AppendHistory(chat.ChatRoleUser, userMessage, e.historyLimit)
	gs.AppendHistory(chat.ChatRoleAgent, resp.Narrative, e.historyLimit)
	sceneID := gs.SetChoices(resp.Choices)

	return &Scene{
		Narrative: resp.Narrative,
		SceneID:   sceneID,
		Choices:   resp.Choices,
	}, nil
}

func (e *Engine) sceneResponse(ctx context.Context, gs *state.GameState, userMessage string) *prompts.SceneResponse {
	raw, err := e.chatWithRecovery(ctx, gs, prompts.BaseSystemPrompt, userMessage, func(raw string) error {
		_, perr := prompts.ParseSceneResponse(raw)
		return perr
	})
	if err == nil {
		scene, perr := prompts.ParseSceneResponse(raw)
		if perr == nil {
			return scene
		}
	}
	e.logger.Error("Scene generation failed, using placeholder", "chat_id", gs.ChatID, "error", err)
	return &prompts.SceneResponse{
		Narrative: prompts.PlaceholderNarrative,
		Choices:   prompts.PlaceholderChoices,
	}
}

func (e *Engine) generateOutcome(ctx context.Context, gs *state.GameState, userMessage string) *prompts.OutcomeResponse {
	raw, err := e.chatWithRecovery(ctx, gs, prompts.OutcomeSystemPrompt, userMessage, func(raw string) error {
		_, perr := prompts.ParseOutcomeResponse(raw)
		return perr
	})
	if err == nil {
		outcome, perr := prompts.ParseOutcomeResponse(raw)
		if perr == nil {
			return outcome
		}
	}
	e.logger.Error("Outcome generation failed, using placeholder", "chat_id", gs.ChatID, "error", err)
	return &prompts.OutcomeResponse{
		Narrative:       prompts.PlaceholderNarrative,
		FollowupChoices: prompts.PlaceholderChoices,
	}
}

// chatWithRecovery runs the three-step recovery ladder: primary model,
// strict-prompt retry, then the fallback model with the strict prompt.
// valid reports whether a raw response parses.
func (e *Engine) chatWithRecovery(ctx context.Context, gs *state.GameState, systemPrompt, userMessage string, valid func(string) error) (string, error) {
	messages, err := prompts.New().
		WithGameState(gs).
		WithHistory(gs.History).
		WithSystemPrompt(systemPrompt).
		WithUserMessage(userMessage).
		Build()
	if err != nil {
		return "", err
	}

	var lastErr error
	if raw, err := e.tryChat(ctx, messages, valid, ""); err == nil {
		return raw, nil
	} else {
		lastErr = err
	}

	strictMessages, err := prompts.New().
		WithGameState(gs).
		WithHistory(gs.History).
		WithSystemPrompt(systemPrompt).
		WithUserMessage(userMessage).
		WithStrict().
		Build()
	if err != nil {
		return "", err
	}

	e.logger.Warn("Retrying with strict prompt", "chat_id", gs.ChatID, "error", lastErr)
	if raw, err := e.tryChat(ctx, strictMessages, valid, ""); err == nil {
		return raw, nil
	} else {
		lastErr = err
	}

	fallback := e.llm.FallbackModel()
	if fallback == "" {
		return "", lastErr
	}
	e.logger.Warn("Retrying with fallback model", "chat_id", gs.ChatID, "model", fallback, "error", lastErr)
	return e.tryChat(ctx, strictMessages, valid, fallback)
}

func (e *Engine) tryChat(ctx context.Context, messages []chat.ChatMessage, valid func(string) error, model string) (string, error) {
	var resp *chat.ChatResponse
	var err error
	if model == "" {
		resp, err = e.llm.Chat(ctx, messages)
	} else {
		resp, err = e.llm.ChatWithModel(ctx, model, messages)
	}
	if err != nil {
		return "", err
	}
	if err := valid(resp.Message); err != nil {
		return "", err
	}
	return resp.Message, nil
}
