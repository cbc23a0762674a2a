package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/questline/dungeonmaster/pkg/chat"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"

	DefaultTemperature = 0.8
	DefaultMaxTokens   = 900
)

// modelCapabilities describes which request parameters a model build
// accepts. An explicit table replaces trial-and-error parameter
// negotiation: requests are shaped correctly the first time.
type modelCapabilities struct {
	Temperature         bool // accepts a non-default "temperature"
	MaxCompletionTokens bool // wants "max_completion_tokens" instead of "max_tokens"
	ResponseFormat      bool // accepts "response_format": {"type": "json_object"}
}

// modelCapabilityTable maps model-name prefixes to capabilities.
// Longest matching prefix wins.
var modelCapabilityTable = map[string]modelCapabilities{
	"gpt-3.5":  {Temperature: true, MaxCompletionTokens: false, ResponseFormat: false},
	"gpt-4":    {Temperature: true, MaxCompletionTokens: false, ResponseFormat: true},
	"gpt-4o":   {Temperature: true, MaxCompletionTokens: false, ResponseFormat: true},
	"gpt-4.1":  {Temperature: true, MaxCompletionTokens: false, ResponseFormat: true},
	"gpt-5":    {Temperature: false, MaxCompletionTokens: true, ResponseFormat: true},
	"o1":       {Temperature: false, MaxCompletionTokens: true, ResponseFormat: false},
	"o3":       {Temperature: false, MaxCompletionTokens: true, ResponseFormat: true},
	"o4":       {Temperature: false, MaxCompletionTokens: true, ResponseFormat: true},
	"chatgpt-": {Temperature: true, MaxCompletionTokens: false, ResponseFormat: false},
}

// capabilitiesFor resolves capabilities by longest prefix match.
// Unknown models get the most conservative shape: no temperature, the
// newer max_completion_tokens field, no response_format.
func capabilitiesFor(model string) modelCapabilities {
	best := ""
	caps := modelCapabilities{MaxCompletionTokens: true}
	for prefix, c := range modelCapabilityTable {
		if strings.HasPrefix(model, prefix) && len(prefix) > len(best) {
			best = prefix
			caps = c
		}
	}
	return caps
}

// OpenAIService implements LLMService against an OpenAI-compatible
// chat completions API.
type OpenAIService struct {
	apiKey        string
	baseURL       string
	modelName     string
	fallbackModel string
	httpClient    *http.Client
	logger        *slog.Logger
}

// openAIChatRequest is the chat completions request body. The two
// token-limit fields are mutually exclusive; capabilitiesFor decides
// which one is populated.
type openAIChatRequest struct {
	Model               string              `json:"model"`
	Messages            []chat.ChatMessage  `json:"messages"`
	Temperature         *float64            `json:"temperature,omitempty"`
	MaxTokens           int                 `json:"max_tokens,omitempty"`
	MaxCompletionTokens int                 `json:"max_completion_tokens,omitempty"`
	ResponseFormat      *respFormat         `json:"response_format,omitempty"`
	Stream              bool                `json:"stream"`
}

type respFormat struct {
	Type string `json:"type"` // "json_object"
}

// openAIChatChoice is a single choice in the completions response.
type openAIChatChoice struct {
	Index   int `json:"index"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
		Refusal string `json:"refusal,omitempty"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

// openAIChatResponse is the completions response body.
type openAIChatResponse struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []openAIChatChoice `json:"choices"`
	Usage   struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
		Param   string `json:"param,omitempty"`
	} `json:"error,omitempty"`
}

// NewOpenAIService creates an OpenAI-compatible chat service. baseURL
// may be empty to use the public OpenAI endpoint.
func NewOpenAIService(apiKey, baseURL, modelName, fallbackModel string, logger *slog.Logger) *OpenAIService {
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &OpenAIService{
		apiKey:        apiKey,
		baseURL:       strings.TrimRight(baseURL, "/"),
		modelName:     modelName,
		fallbackModel: fallbackModel,
		httpClient: &http.Client{
			Timeout: 90 * time.Second, // narrative generations can be slow
		},
		logger: logger,
	}
}

// InitModel initializes the model (no explicit initialization needed
// for hosted OpenAI-compatible APIs).
func (s *OpenAIService) InitModel(ctx context.Context, modelName string) error {
	return nil
}

// FallbackModel returns the configured fallback model name.
func (s *OpenAIService) FallbackModel() string {
	return s.fallbackModel
}

// Chat generates a response using the primary model.
func (s *OpenAIService) Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
	return s.ChatWithModel(ctx, s.modelName, messages)
}

// ChatWithModel generates a response using the named model, shaping
// the request per the capability table.
func (s *OpenAIService) ChatWithModel(ctx context.Context, modelName string, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("no messages provided")
	}

	caps := capabilitiesFor(modelName)
	request := openAIChatRequest{
		Model:    modelName,
		Messages: messages,
	}
	if caps.Temperature {
		temp := DefaultTemperature
		request.Temperature = &temp
	}
	if caps.MaxCompletionTokens {
		request.MaxCompletionTokens = DefaultMaxTokens
	} else {
		request.MaxTokens = DefaultMaxTokens
	}
	if caps.ResponseFormat {
		request.ResponseFormat = &respFormat{Type: "json_object"}
	}

	reqBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/chat/completions", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var apiResp openAIChatResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if apiResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", apiResp.Error.Message)
	}
	if len(apiResp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned from API")
	}

	choice := apiResp.Choices[0]
	if choice.Message.Refusal != "" {
		return nil, fmt.Errorf("model refused to respond: %s", choice.Message.Refusal)
	}
	if choice.Message.Content == "" {
		return nil, fmt.Errorf("empty content in response")
	}

	if s.logger != nil {
		s.logger.Debug("LLM response",
			"model", apiResp.Model,
			"prompt_tokens", apiResp.Usage.PromptTokens,
			"completion_tokens", apiResp.Usage.CompletionTokens,
			"finish_reason", choice.FinishReason)
	}

	return &chat.ChatResponse{
		Message: choice.Message.Content,
		Model:   apiResp.Model,
	}, nil
}
