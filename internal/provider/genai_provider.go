package provider

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"
)

// GenAIProvider is the default real AgentProvider, wrapping Google's Gemini
// API — the pack's only committed first-party model SDK (grounded on
// internal/embedding/genai.go's client construction: genai.NewClient with
// a ClientConfig carrying the API key, genai.NewContentFromText to build a
// Content list).
type GenAIProvider struct {
	client *genai.Client
	model  string
}

// NewGenAIProvider creates a GenAIProvider. model defaults to
// "gemini-2.0-flash" when empty.
func NewGenAIProvider(ctx context.Context, apiKey, model string) (*GenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("provider: GenAI API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("provider: failed to create GenAI client: %w", err)
	}
	return &GenAIProvider{client: client, model: model}, nil
}

func (p *GenAIProvider) Name() string      { return "genai:" + p.model }
func (p *GenAIProvider) IsAvailable() bool { return p.client != nil }

// SendRequest builds the deliberation prompt's message into a single
// user-role Content, sends it, and parses the first balanced JSON object
// out of the model's free-form reply (spec.md §6).
func (p *GenAIProvider) SendRequest(ctx context.Context, req AgentRequest) (*AgentResponse, *AgentError) {
	timeoutMs := 30000
	if req.Constraints != nil && req.Constraints.TimeoutMs > 0 {
		timeoutMs = req.Constraints.TimeoutMs
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
		defer cancel()
	}

	contents := []*genai.Content{genai.NewContentFromText(req.Message, genai.RoleUser)}

	start := time.Now()
	result, err := p.client.Models.GenerateContent(ctx, p.model, contents, nil)
	elapsed := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			return nil, &AgentError{Kind: ErrTimeout, Message: err.Error(), TimeoutMs: timeoutMs}
		}
		return nil, &AgentError{Kind: ErrConnection, Message: err.Error()}
	}

	text := result.Text()
	resp, agentErr := ParseAgentResponse(text)
	if agentErr != nil {
		return nil, agentErr
	}
	resp.Metadata = &ResponseMetadata{ModelID: p.model, ProcessingTimeMs: elapsed.Milliseconds(), SessionID: req.SessionID}
	return resp, nil
}

var _ AgentProvider = (*GenAIProvider)(nil)
