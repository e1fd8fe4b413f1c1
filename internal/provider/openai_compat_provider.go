package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OpenAICompatProvider talks to any OpenAI-Chat-Completions-compatible
// endpoint over plain net/http — grounded directly on the teacher's
// OpenAIClient (internal/perception/client_openai.go), which hand-rolls the
// same request/response shape rather than pulling in an SDK; no OpenAI SDK
// is used anywhere in the pack, so stdlib net/http is the idiomatic choice
// here too.
type OpenAICompatProvider struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOpenAICompatProvider creates a provider pointed at baseURL (e.g.
// "https://api.openai.com/v1"). model selects the chat model.
func NewOpenAICompatProvider(apiKey, baseURL, model string) *OpenAICompatProvider {
	return &OpenAICompatProvider{
		apiKey:     apiKey,
		baseURL:    baseURL,
		model:      model,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *OpenAICompatProvider) Name() string      { return "openai-compat:" + p.model }
func (p *OpenAICompatProvider) IsAvailable() bool { return p.apiKey != "" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// SendRequest posts req.Message as a single user turn and parses the
// reply's first balanced JSON object (spec.md §6).
func (p *OpenAICompatProvider) SendRequest(ctx context.Context, req AgentRequest) (*AgentResponse, *AgentError) {
	if p.apiKey == "" {
		return nil, &AgentError{Kind: ErrAuthentication, Message: "no API key configured"}
	}

	timeoutMs := 30000
	temperature := 0.1
	maxTokens := 4096
	if req.Constraints != nil {
		if req.Constraints.TimeoutMs > 0 {
			timeoutMs = req.Constraints.TimeoutMs
		}
		if req.Constraints.Temperature > 0 {
			temperature = req.Constraints.Temperature
		}
		if req.Constraints.MaxTokens > 0 {
			maxTokens = req.Constraints.MaxTokens
		}
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
		defer cancel()
	}

	body := chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "user", Content: req.Message},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &AgentError{Kind: ErrSerialization, Message: err.Error()}
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, &AgentError{Kind: ErrInternal, Message: err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	start := time.Now()
	httpResp, err := p.httpClient.Do(httpReq)
	elapsed := time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &AgentError{Kind: ErrTimeout, Message: err.Error(), TimeoutMs: timeoutMs}
		}
		return nil, &AgentError{Kind: ErrConnection, Message: err.Error()}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &AgentError{Kind: ErrConnection, Message: err.Error()}
	}

	if httpResp.StatusCode == http.StatusTooManyRequests {
		return nil, &AgentError{Kind: ErrRateLimited, Message: "rate limit exceeded"}
	}
	if httpResp.StatusCode == http.StatusUnauthorized || httpResp.StatusCode == http.StatusForbidden {
		return nil, &AgentError{Kind: ErrAuthentication, Message: string(respBody)}
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, &AgentError{Kind: ErrInternal, Message: fmt.Sprintf("status %d: %s", httpResp.StatusCode, string(respBody))}
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &AgentError{Kind: ErrSerialization, Message: err.Error()}
	}
	if parsed.Error != nil {
		return nil, &AgentError{Kind: ErrInternal, Message: parsed.Error.Message}
	}
	if len(parsed.Choices) == 0 {
		return nil, &AgentError{Kind: ErrInvalidResponse, Message: "no completion returned"}
	}

	resp, agentErr := ParseAgentResponse(parsed.Choices[0].Message.Content)
	if agentErr != nil {
		return nil, agentErr
	}
	resp.Metadata = &ResponseMetadata{ModelID: p.model, ProcessingTimeMs: elapsed.Milliseconds(), SessionID: req.SessionID}
	return resp, nil
}

var _ AgentProvider = (*OpenAICompatProvider)(nil)
