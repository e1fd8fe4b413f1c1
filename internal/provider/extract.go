package provider

import (
	"encoding/json"
	"fmt"
)

// wireResponse is the JSON shape both the GenAI and OpenAI-compatible
// adapters expect a model to emit (spec.md §6: "Providers are expected to
// return JSON inside their free-form text").
type wireResponse struct {
	Action           string       `json:"action"`
	Patch            *wirePatch   `json:"patch,omitempty"`
	GeneratedCode    string       `json:"generated_code,omitempty"`
	Suggestions      []wireSuggestion `json:"suggestions,omitempty"`
	Explanation      string       `json:"explanation,omitempty"`
	Confidence       float64      `json:"confidence,omitempty"`
	Questions        []string     `json:"questions,omitempty"`
	EscalationReason string       `json:"escalation_reason,omitempty"`
}

type wirePatch struct {
	OldCode     string `json:"old_code"`
	NewCode     string `json:"new_code"`
	Description string `json:"description,omitempty"`
}

type wireSuggestion struct {
	Code       string  `json:"code"`
	Rationale  string  `json:"rationale"`
	Confidence float64 `json:"confidence"`
}

// ExtractJSON finds the first balanced `{…}` object in free-form text and
// returns its raw bytes. Models routinely wrap JSON in prose ("Here's the
// fix:\n{...}\nLet me know if..."); spec.md §6 requires tolerating that.
func ExtractJSON(text string) (string, error) {
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i, r := range text {
		if start == -1 {
			if r == '{' {
				start = i
				depth = 1
			}
			continue
		}
		if inString {
			if escaped {
				escaped = false
			} else if r == '\\' {
				escaped = true
			} else if r == '"' {
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("provider: no balanced JSON object found in response text")
}

// ParseAgentResponse extracts and decodes a wireResponse from free-form
// model text into an AgentResponse.
func ParseAgentResponse(text string) (*AgentResponse, *AgentError) {
	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, &AgentError{Kind: ErrInvalidResponse, Message: err.Error()}
	}
	var wr wireResponse
	if err := json.Unmarshal([]byte(raw), &wr); err != nil {
		return nil, &AgentError{Kind: ErrSerialization, Message: err.Error()}
	}

	resp := &AgentResponse{
		Action:           Action(wr.Action),
		GeneratedCode:    wr.GeneratedCode,
		Explanation:      wr.Explanation,
		Confidence:       wr.Confidence,
		Questions:        wr.Questions,
		EscalationReason: wr.EscalationReason,
	}
	if wr.Patch != nil {
		resp.Patch = &Patch{OldCode: wr.Patch.OldCode, NewCode: wr.Patch.NewCode, Description: wr.Patch.Description}
	}
	for _, s := range wr.Suggestions {
		resp.Suggestions = append(resp.Suggestions, Suggestion{Code: s.Code, Rationale: s.Rationale, Confidence: s.Confidence})
	}
	return resp, nil
}
