// Package cognitive implements the abstraction the evaluator talks to
// during execution (spec.md §4.4) and its agent-backed implementation
// (spec.md §4.5), grounded on the shard-consultation protocol in the
// teacher's internal/shards/consultation.go and the retry/rollback/escalate
// strategy selection in internal/core/self_healing.go.
package cognitive

import (
	"time"

	"codenerd/internal/value"
)

// TriggerKind identifies what caused a deliberation (spec.md §4.4).
type TriggerKind string

const (
	TriggerExpectFailed     TriggerKind = "ExpectFailed"
	TriggerExplicitReason   TriggerKind = "ExplicitReason"
	TriggerTechnicalError   TriggerKind = "TechnicalError"
	TriggerGoalMisalignment TriggerKind = "GoalMisalignment"
)

// Trigger carries the data a deliberation is about.
type Trigger struct {
	Kind        TriggerKind
	Description string
	// Detail carries trigger-specific context: the failed condition's
	// source text for ExpectFailed, the reasoned-about prompt text for
	// ExplicitReason, the runtime error for TechnicalError, the goal
	// description for GoalMisalignment.
	Detail string
}

// ObservationKind identifies the shape of an Observation.
type ObservationKind string

const (
	ObsValueChanged     ObservationKind = "ValueChanged"
	ObsExpectEvaluated  ObservationKind = "ExpectEvaluated"
	ObsFunctionReturned ObservationKind = "FunctionReturned"
	ObsCheckpointCreated ObservationKind = "CheckpointCreated"
)

// Observation is a single structured event pushed via Observe (spec.md §4.4).
type Observation struct {
	Kind      ObservationKind
	Name      string
	Value     value.Value
	Timestamp time.Time
}

// DecisionKind discriminates a CognitiveDecision.
type DecisionKind string

const (
	DecisionContinue  DecisionKind = "Continue"
	DecisionOverride  DecisionKind = "Override"
	DecisionFix       DecisionKind = "Fix"
	DecisionBacktrack DecisionKind = "Backtrack"
	DecisionHalt      DecisionKind = "Halt"
)

// Decision is the result of a deliberation (spec.md §4.4).
type Decision struct {
	Kind DecisionKind

	// Override
	OverrideValue value.Value

	// Fix
	NewCode     string
	Explanation string

	// Backtrack
	Checkpoint  string
	Adjustments map[string]value.Value

	// Halt
	HaltError string
}

// Continue is the canonical no-op decision.
var Continue = Decision{Kind: DecisionContinue}

// Runtime is the interface the evaluator talks to (spec.md §4.4, C5).
// A cognitive-aware evaluator must not allocate observation payloads when
// IsActive() is false — callers are expected to guard Observe calls with
// an IsActive() check rather than rely on the implementation to no-op
// cheaply, since building the Observation value itself may already have a
// cost the null case should avoid.
type Runtime interface {
	Observe(obs Observation)
	Deliberate(trigger Trigger) Decision
	CheckGoals() []Decision
	IsActive() bool
	SetAvailableCheckpoints(names []string)
}

// Null is the zero-overhead default implementation (spec.md §4.4).
type Null struct{}

func (Null) Observe(Observation)                 {}
func (Null) Deliberate(Trigger) Decision          { return Continue }
func (Null) CheckGoals() []Decision               { return nil }
func (Null) IsActive() bool                       { return false }
func (Null) SetAvailableCheckpoints([]string)     {}

var _ Runtime = Null{}
