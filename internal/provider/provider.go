// Package provider defines the AgentProvider abstraction (spec.md §6): the
// wire vocabulary AURA's cognitive runtime uses to consult an external
// collaborator, and the interface real adapters implement. It is grounded
// on the teacher's own multi-backend LLM abstraction
// (internal/perception/client.go's LLMClient interface, swapped between
// client_openai.go/client_gemini.go/client_antigravity.go by a factory) —
// AURA needs exactly the same shape, narrowed to the request/response
// pairs spec.md §6 names.
package provider

import "context"

// EventType is the kind of situation the runtime is asking the provider
// about (spec.md §6).
type EventType string

const (
	EventError      EventType = "Error"
	EventMissing    EventType = "Missing"
	EventPerformance EventType = "Performance"
	EventExpansion  EventType = "Expansion"
)

// Context carries the program-level information surrounding a request.
type Context struct {
	Source           string
	Types            []string
	RuntimeState     map[string]string
	AvailableImports []string
	SurroundingCode  string
}

// SourceLocation pinpoints where in the source a request concerns.
type SourceLocation struct {
	File    string
	Line    int
	Col     int
	EndLine int
	EndCol  int
}

// Constraints bounds how a provider should answer.
type Constraints struct {
	MaxTokens         int
	TimeoutMs         int
	Temperature       float64
	PreserveSemantics bool
	StyleGuide        string
}

// AgentRequest is the full request envelope (spec.md §6).
type AgentRequest struct {
	EventType     EventType
	Context       Context
	Location      SourceLocation
	Constraints   *Constraints
	Message       string
	PriorAttempts []string
	SessionID     string
}

// Action discriminates what kind of AgentResponse was returned.
type Action string

const (
	ActionPatch    Action = "patch"
	ActionGenerate Action = "generate"
	ActionSuggest  Action = "suggest"
	ActionClarify  Action = "clarify"
	ActionEscalate Action = "escalate"
)

// Patch is a proposed source replacement.
type Patch struct {
	OldCode     string
	NewCode     string
	Location    *SourceLocation
	Description string
}

// Suggestion is one candidate fix among several, not auto-applied.
type Suggestion struct {
	Code      string
	Rationale string
	Confidence float64
}

// ResponseMetadata carries provider bookkeeping, not semantically used by
// the cognitive runtime itself.
type ResponseMetadata struct {
	ModelID          string
	TokensUsed       int
	ProcessingTimeMs int64
	SessionID        string
}

// AgentResponse is the full response envelope (spec.md §6).
type AgentResponse struct {
	Action           Action
	Patch            *Patch
	GeneratedCode    string
	Suggestions      []Suggestion
	Explanation      string
	Confidence       float64
	Questions        []string
	EscalationReason string
	Metadata         *ResponseMetadata
}

// ErrorKind discriminates an AgentError (spec.md §6's taxonomy).
type ErrorKind string

const (
	ErrConnection      ErrorKind = "ConnectionError"
	ErrTimeout         ErrorKind = "Timeout"
	ErrSerialization   ErrorKind = "SerializationError"
	ErrInvalidResponse ErrorKind = "InvalidResponse"
	ErrRejected        ErrorKind = "Rejected"
	ErrRateLimited     ErrorKind = "RateLimited"
	ErrAuthentication  ErrorKind = "AuthenticationError"
	ErrInternal        ErrorKind = "InternalError"
)

// AgentError is the structured error an AgentProvider returns instead of a
// response. The cognitive runtime's fail-open rule (spec.md §4.5 item 5)
// treats every kind identically: replace with Continue.
type AgentError struct {
	Kind         ErrorKind
	Message      string
	TimeoutMs    int
	RetryAfterMs *int
}

func (e *AgentError) Error() string {
	if e.Message != "" {
		return string(e.Kind) + ": " + e.Message
	}
	return string(e.Kind)
}

// AgentProvider abstracts the model backend a deliberation call consults
// (spec.md §6: "send_request(AgentRequest) → AgentResponse | AgentError
// (may suspend)"). Implementations may block on network I/O; ctx governs
// cancellation and deadlines the way the teacher's CompleteWithSystem does.
type AgentProvider interface {
	SendRequest(ctx context.Context, req AgentRequest) (*AgentResponse, *AgentError)
	Name() string
	IsAvailable() bool
}
