package prompts

import (
	"fmt"

	"github.com/questline/dungeonmaster/pkg/chat"
	"github.com/questline/dungeonmaster/pkg/state"
)

// Builder constructs chat messages for LLM interaction using a fluent
// interface. It separates prompt building from game state management.
type Builder struct {
	gs           *state.GameState
	systemPrompt string
	userMessage  string
	history      []chat.ChatMessage
	strict       bool
	includeState bool
}

// New creates a prompt builder for the scene-generation contract.
func New() *Builder {
	return &Builder{
		systemPrompt: BaseSystemPrompt,
		includeState: true,
	}
}

// WithGameState sets the gamestate serialized into the system prompt.
func (b *Builder) WithGameState(gs *state.GameState) *Builder {
	b.gs = gs
	return b
}

// WithSystemPrompt overrides the system prompt (outcome or
// clarification contract).
func (b *Builder) WithSystemPrompt(prompt string) *Builder {
	b.systemPrompt = prompt
	return b
}

// WithUserMessage sets the user's message.
func (b *Builder) WithUserMessage(message string) *Builder {
	b.userMessage = message
	return b
}

// WithHistory splices recent conversation turns between the system
// prompt and the user message. Callers trim; the builder sends what it
// is given.
func (b *Builder) WithHistory(history []chat.ChatMessage) *Builder {
	b.history = history
	return b
}

// WithStrict appends the strict-JSON reminder, used on the retry after
// a malformed response.
func (b *Builder) WithStrict() *Builder {
	b.strict = true
	return b
}

// WithoutState omits the game-state context block (clarifications keep
// it; some tests don't need it).
func (b *Builder) WithoutState() *Builder {
	b.includeState = false
	return b
}

// Build constructs the final message array for LLM consumption.
func (b *Builder) Build() ([]chat.ChatMessage, error) {
	if b.includeState && b.gs == nil {
		return nil, fmt.Errorf("gamestate is required")
	}

	system := b.systemPrompt
	if b.includeState {
		stateCtx, err := StateContext(b.gs)
		if err != nil {
			return nil, err
		}
		system += "\n\n" + stateCtx
		if b.gs.Summary != "" {
			system += "\n\n### Story so far\n" + b.gs.Summary
		}
	}

	messages := []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: system},
	}
	messages = append(messages, b.history...)
	if b.userMessage != "" {
		messages = append(messages, chat.ChatMessage{
			Role:    chat.ChatRoleUser,
			Content: b.userMessage,
		})
	}
	if b.strict {
		messages = append(messages, chat.ChatMessage{
			Role:    chat.ChatRoleSystem,
			Content: StrictJSONPrompt,
		})
	}
	return messages, nil
}
