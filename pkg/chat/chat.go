package chat

const (
	ChatRoleUser   = "user"
	ChatRoleAgent  = "assistant" // the dungeon master
	ChatRoleSystem = "system"
)

// ChatMessage is a single message in an LLM conversation.
// The role/content shape matches the OpenAI chat completions API.
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// DefaultHistoryLimit caps retained conversation turns when no
// explicit limit is configured.
const DefaultHistoryLimit = 20

// TrimHistory keeps the most recent limit messages, newest last.
// A non-positive limit leaves the history unbounded.
func TrimHistory(history []ChatMessage, limit int) []ChatMessage {
	if limit <= 0 || len(history) <= limit {
		return history
	}
	return history[len(history)-limit:]
}

// ChatResponse is the raw text returned by an LLM provider,
// before any scene JSON parsing.
type ChatResponse struct {
	Message string `json:"message,omitempty"`
	Model   string `json:"model,omitempty"` // model that produced the response
}
