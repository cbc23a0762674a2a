package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/questline/dungeonmaster/pkg/state"
)

// SceneResponse is the LLM's answer to an opening or scene prompt.
type SceneResponse struct {
	Narrative string         `json:"narrative"`
	Choices   []state.Choice `json:"choices,omitempty"`
}

// OutcomeResponse is the LLM's answer to a roll-resolution prompt.
type OutcomeResponse struct {
	Narrative       string              `json:"narrative"`
	Consequences    *state.Consequences `json:"consequences,omitempty"`
	FollowupChoices []state.Choice      `json:"followup_choices,omitempty"`
}

// salvageJSON locates the outermost brace pair in free text. Models
// occasionally wrap the JSON object in markdown fences or commentary;
// the object itself is usually intact.
func salvageJSON(raw string) ([]byte, error) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	return []byte(raw[start : end+1]), nil
}

// ParseSceneResponse extracts a SceneResponse from raw LLM output.
func ParseSceneResponse(raw string) (*SceneResponse, error) {
	data, err := salvageJSON(raw)
	if err != nil {
		return nil, err
	}
	var resp SceneResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scene response: %w", err)
	}
	if resp.Narrative == "" {
		return nil, fmt.Errorf("scene response has empty narrative")
	}
	return &resp, nil
}

// ParseOutcomeResponse extracts an OutcomeResponse from raw LLM output.
func ParseOutcomeResponse(raw string) (*OutcomeResponse, error) {
	data, err := salvageJSON(raw)
	if err != nil {
		return nil, err
	}
	var resp OutcomeResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal outcome response: %w", err)
	}
	if resp.Narrative == "" {
		return nil, fmt.Errorf("outcome response has empty narrative")
	}
	return &resp, nil
}
