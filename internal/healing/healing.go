// Package healing implements the single-call and safe healing paths
// (spec.md §4.8), grounded directly on the teacher's SelfHealer
// (internal/core/self_healing.go): a provider/agent is consulted for a
// recovery action, which is then classified into a small result enum
// (HealingRetry/Rollback/Escalate/Alternative there; Fixed/Suggested/
// NeedsHuman/CannotFix here) rather than applied blindly.
package healing

import (
	"context"
	"fmt"
	"time"

	"codenerd/internal/provider"
	"codenerd/internal/snapshot"
)

// ResultKind discriminates a HealingResult.
type ResultKind string

const (
	ResultFixed      ResultKind = "Fixed"
	ResultSuggested  ResultKind = "Suggested"
	ResultNeedsHuman ResultKind = "NeedsHuman"
	ResultCannotFix  ResultKind = "CannotFix"
)

// HealingResult is the outcome of a single heal_error call.
type HealingResult struct {
	Kind ResultKind

	// Fixed
	Patch       *provider.Patch
	Explanation string
	Confidence  float64

	// Suggested
	Suggestions []provider.Suggestion

	// NeedsHuman
	Reason string
}

// SafeHealingResult tags a HealingResult with the snapshot taken before
// consulting the provider (spec.md §4.8's heal_error_safe).
type SafeHealingResult struct {
	HealingResult
	SnapshotID string
}

// VerificationFailure is heal_and_verify's failure case: the candidate
// patch failed caller-supplied verification and must be reverted by the
// caller via the undo path.
type VerificationFailure struct {
	SnapshotID string
	Patch      *provider.Patch
	Error      string
}

// Engine drives the healing paths. It never touches the filesystem itself
// (spec.md §4.8) — snapshot creation and undo recording go through
// internal/snapshot; file writes and reverts are the caller's job.
type Engine struct {
	Provider            provider.AgentProvider
	Snapshots           *snapshot.Manager
	Undo                *snapshot.UndoManager
	ConfidenceThreshold float64
	AutoApply           bool

	appliedPatches []string // prior new_code bodies, deseeds repeat suggestions
}

// NewEngine creates an Engine. A zero ConfidenceThreshold defaults to 0.6.
func NewEngine(p provider.AgentProvider, snapshots *snapshot.Manager, undo *snapshot.UndoManager, confidenceThreshold float64, autoApply bool) *Engine {
	if confidenceThreshold == 0 {
		confidenceThreshold = 0.6
	}
	return &Engine{Provider: p, Snapshots: snapshots, Undo: undo, ConfidenceThreshold: confidenceThreshold, AutoApply: autoApply}
}

// HealError implements spec.md §4.8's single-call path.
func (e *Engine) HealError(ctx context.Context, errText string, errCtx provider.Context, loc provider.SourceLocation) (*HealingResult, *provider.AgentError) {
	req := provider.AgentRequest{
		EventType:     provider.EventError,
		Context:       errCtx,
		Location:      loc,
		Message:       errText,
		PriorAttempts: append([]string(nil), e.appliedPatches...),
	}

	resp, agentErr := e.Provider.SendRequest(ctx, req)
	if agentErr != nil {
		return nil, agentErr
	}

	result := e.classify(resp)
	if result.Kind == ResultFixed {
		e.appliedPatches = append(e.appliedPatches, result.Patch.NewCode)
	}
	return result, nil
}

func (e *Engine) classify(resp *provider.AgentResponse) *HealingResult {
	switch resp.Action {
	case provider.ActionPatch:
		if resp.Patch != nil && resp.Confidence >= e.ConfidenceThreshold && e.AutoApply {
			return &HealingResult{Kind: ResultFixed, Patch: resp.Patch, Explanation: resp.Explanation, Confidence: resp.Confidence}
		}
		if resp.Patch != nil {
			return &HealingResult{Kind: ResultSuggested, Suggestions: []provider.Suggestion{{Code: resp.Patch.NewCode, Rationale: resp.Explanation, Confidence: resp.Confidence}}}
		}
		return &HealingResult{Kind: ResultCannotFix}
	case provider.ActionGenerate:
		if resp.GeneratedCode != "" && resp.Confidence >= e.ConfidenceThreshold && e.AutoApply {
			return &HealingResult{Kind: ResultFixed, Patch: &provider.Patch{NewCode: resp.GeneratedCode}, Explanation: resp.Explanation, Confidence: resp.Confidence}
		}
		if resp.GeneratedCode != "" {
			return &HealingResult{Kind: ResultSuggested, Suggestions: []provider.Suggestion{{Code: resp.GeneratedCode, Rationale: resp.Explanation, Confidence: resp.Confidence}}}
		}
		return &HealingResult{Kind: ResultCannotFix}
	case provider.ActionSuggest:
		if len(resp.Suggestions) == 0 {
			return &HealingResult{Kind: ResultCannotFix}
		}
		return &HealingResult{Kind: ResultSuggested, Suggestions: resp.Suggestions}
	case provider.ActionClarify:
		return &HealingResult{Kind: ResultNeedsHuman, Reason: "clarification requested"}
	case provider.ActionEscalate:
		return &HealingResult{Kind: ResultNeedsHuman, Reason: resp.EscalationReason}
	default:
		return &HealingResult{Kind: ResultCannotFix}
	}
}

// HealErrorSafe implements spec.md §4.8's safe path: a file snapshot is
// taken before the provider is consulted, and a Fixed result is recorded
// into the undo history.
func (e *Engine) HealErrorSafe(ctx context.Context, errID, errText string, errCtx provider.Context, loc provider.SourceLocation, files []snapshot.FileSnapshot) (*SafeHealingResult, *provider.AgentError) {
	snap, err := e.Snapshots.CreateSnapshotWithFiles(snapshot.Reason(fmt.Sprintf("before_heal:%s", errID)), files)
	if err != nil {
		return nil, &provider.AgentError{Kind: provider.ErrInternal, Message: err.Error()}
	}

	result, agentErr := e.HealError(ctx, errText, errCtx, loc)
	if agentErr != nil {
		return nil, agentErr
	}

	if result.Kind == ResultFixed {
		if err := e.Undo.Record(snapshot.HealingAction{
			Description: result.Explanation,
			SnapshotID:  snap.ID,
			Patch:       result.Patch,
			Timestamp:   time.Now(),
			Confidence:  result.Confidence,
			Verified:    snapshot.Verified{Kind: snapshot.VerifyUnset},
			FilePath:    loc.File,
		}); err != nil {
			return nil, &provider.AgentError{Kind: provider.ErrInternal, Message: err.Error()}
		}
	}
	return &SafeHealingResult{HealingResult: *result, SnapshotID: snap.ID}, nil
}

// HealAndVerify implements spec.md §4.8's verify-and-revert path: after
// HealErrorSafe, a caller-supplied verifier runs against the candidate
// patch text. On failure, the caller is responsible for invoking the undo
// path using the returned snapshot id — the engine never touches the
// filesystem itself.
func (e *Engine) HealAndVerify(
	ctx context.Context,
	errID, errText string,
	errCtx provider.Context,
	loc provider.SourceLocation,
	files []snapshot.FileSnapshot,
	verify func(patchText string) error,
) (*SafeHealingResult, *VerificationFailure, *provider.AgentError) {
	result, agentErr := e.HealErrorSafe(ctx, errID, errText, errCtx, loc, files)
	if agentErr != nil {
		return nil, nil, agentErr
	}
	if result.Kind != ResultFixed {
		return result, nil, nil
	}

	if err := verify(result.Patch.NewCode); err != nil {
		if perr := e.Undo.SetLastVerified(snapshot.Verified{Kind: snapshot.VerifyFailure, Error: err.Error()}); perr != nil {
			return nil, nil, &provider.AgentError{Kind: provider.ErrInternal, Message: perr.Error()}
		}
		return nil, &VerificationFailure{SnapshotID: result.SnapshotID, Patch: result.Patch, Error: err.Error()}, nil
	}
	if err := e.Undo.SetLastVerified(snapshot.Verified{Kind: snapshot.VerifySuccess}); err != nil {
		return nil, nil, &provider.AgentError{Kind: provider.ErrInternal, Message: err.Error()}
	}
	return result, nil, nil
}
