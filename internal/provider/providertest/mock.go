// Package providertest supplies a scriptable AgentProvider for tests of
// the cognitive runtime and healing engine, grounded the same way the
// teacher's own test suites stub LLMClient — a canned-response fake rather
// than hitting a live API (see internal/perception's test doubles for the
// LLMClient interface).
package providertest

import (
	"context"

	"codenerd/internal/provider"
)

// MockProvider returns a scripted sequence of responses/errors, one per
// call to SendRequest, and records every request it received.
type MockProvider struct {
	Responses []*provider.AgentResponse
	Errors    []*provider.AgentError
	Requests  []provider.AgentRequest

	calls int
}

// NewMockProvider creates a MockProvider with no scripted responses —
// every call returns InternalError until responses are configured.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// WithResponse appends a response to return on the next call.
func (m *MockProvider) WithResponse(r *provider.AgentResponse) *MockProvider {
	m.Responses = append(m.Responses, r)
	m.Errors = append(m.Errors, nil)
	return m
}

// WithError appends an error to return on the next call.
func (m *MockProvider) WithError(e *provider.AgentError) *MockProvider {
	m.Responses = append(m.Responses, nil)
	m.Errors = append(m.Errors, e)
	return m
}

func (m *MockProvider) Name() string      { return "mock" }
func (m *MockProvider) IsAvailable() bool { return true }

// SendRequest returns the next scripted response/error pair, repeating the
// last one once the script is exhausted.
func (m *MockProvider) SendRequest(_ context.Context, req provider.AgentRequest) (*provider.AgentResponse, *provider.AgentError) {
	m.Requests = append(m.Requests, req)

	if len(m.Responses) == 0 {
		return nil, &provider.AgentError{Kind: provider.ErrInternal, Message: "mock provider has no scripted responses"}
	}
	idx := m.calls
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	m.calls++
	return m.Responses[idx], m.Errors[idx]
}

// CallCount returns how many times SendRequest was invoked.
func (m *MockProvider) CallCount() int { return len(m.Requests) }

var _ provider.AgentProvider = (*MockProvider)(nil)
