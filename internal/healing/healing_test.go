package healing_test

import (
	"context"
	"errors"
	"testing"

	"codenerd/internal/healing"
	"codenerd/internal/provider"
	"codenerd/internal/provider/providertest"
	"codenerd/internal/snapshot"
)

func newEngine(t *testing.T, mock *providertest.MockProvider, autoApply bool) *healing.Engine {
	t.Helper()
	snaps := snapshot.NewManager(snapshot.DefaultCapacity, "")
	undo := snapshot.NewUndoManager(snaps, snapshot.DefaultMaxHistory)
	return healing.NewEngine(mock, snaps, undo, 0.5, autoApply)
}

func TestHealErrorFixedWhenAutoApplyAndConfident(t *testing.T) {
	mock := providertest.NewMockProvider().WithResponse(&provider.AgentResponse{
		Action:     provider.ActionPatch,
		Patch:      &provider.Patch{OldCode: "1/0", NewCode: "1/1"},
		Confidence: 0.9,
	})
	eng := newEngine(t, mock, true)

	result, agentErr := eng.HealError(context.Background(), "division by zero", provider.Context{}, provider.SourceLocation{})
	if agentErr != nil {
		t.Fatalf("unexpected error: %v", agentErr)
	}
	if result.Kind != healing.ResultFixed {
		t.Fatalf("got %v, want Fixed", result.Kind)
	}
	if result.Patch.NewCode != "1/1" {
		t.Fatalf("got patch %+v", result.Patch)
	}
}

func TestHealErrorSuggestedWhenConfidenceTooLow(t *testing.T) {
	mock := providertest.NewMockProvider().WithResponse(&provider.AgentResponse{
		Action:     provider.ActionPatch,
		Patch:      &provider.Patch{OldCode: "1/0", NewCode: "1/1"},
		Confidence: 0.1,
	})
	eng := newEngine(t, mock, true)

	result, agentErr := eng.HealError(context.Background(), "division by zero", provider.Context{}, provider.SourceLocation{})
	if agentErr != nil {
		t.Fatalf("unexpected error: %v", agentErr)
	}
	if result.Kind != healing.ResultSuggested {
		t.Fatalf("got %v, want Suggested for low-confidence patch", result.Kind)
	}
}

func TestHealErrorSuggestedWhenAutoApplyDisabled(t *testing.T) {
	mock := providertest.NewMockProvider().WithResponse(&provider.AgentResponse{
		Action:     provider.ActionPatch,
		Patch:      &provider.Patch{OldCode: "1/0", NewCode: "1/1"},
		Confidence: 0.99,
	})
	eng := newEngine(t, mock, false)

	result, _ := eng.HealError(context.Background(), "division by zero", provider.Context{}, provider.SourceLocation{})
	if result.Kind != healing.ResultSuggested {
		t.Fatalf("got %v, want Suggested when auto-apply is disabled", result.Kind)
	}
}

func TestHealErrorNeedsHumanOnEscalate(t *testing.T) {
	mock := providertest.NewMockProvider().WithResponse(&provider.AgentResponse{
		Action:           provider.ActionEscalate,
		EscalationReason: "ambiguous intent",
	})
	eng := newEngine(t, mock, true)

	result, _ := eng.HealError(context.Background(), "what now", provider.Context{}, provider.SourceLocation{})
	if result.Kind != healing.ResultNeedsHuman {
		t.Fatalf("got %v, want NeedsHuman", result.Kind)
	}
	if result.Reason != "ambiguous intent" {
		t.Fatalf("got reason %q", result.Reason)
	}
}

func TestHealErrorCannotFixOnEmptySuggest(t *testing.T) {
	mock := providertest.NewMockProvider().WithResponse(&provider.AgentResponse{Action: provider.ActionSuggest})
	eng := newEngine(t, mock, true)

	result, _ := eng.HealError(context.Background(), "mystery", provider.Context{}, provider.SourceLocation{})
	if result.Kind != healing.ResultCannotFix {
		t.Fatalf("got %v, want CannotFix", result.Kind)
	}
}

func TestHealErrorPassesThroughAgentErrorWithoutCounters(t *testing.T) {
	mock := providertest.NewMockProvider().WithError(&provider.AgentError{Kind: provider.ErrRateLimited, Message: "slow down"})
	eng := newEngine(t, mock, true)

	result, agentErr := eng.HealError(context.Background(), "boom", provider.Context{}, provider.SourceLocation{})
	if result != nil {
		t.Fatalf("expected nil result on agent error, got %+v", result)
	}
	if agentErr == nil || agentErr.Kind != provider.ErrRateLimited {
		t.Fatalf("got %v, want RateLimited passthrough", agentErr)
	}
}

func TestHealErrorSafeRecordsUndoEntryOnFix(t *testing.T) {
	mock := providertest.NewMockProvider().WithResponse(&provider.AgentResponse{
		Action:      provider.ActionPatch,
		Patch:       &provider.Patch{OldCode: "1/0", NewCode: "1/1"},
		Confidence:  0.9,
		Explanation: "avoid division by zero",
	})
	snaps := snapshot.NewManager(snapshot.DefaultCapacity, "")
	undo := snapshot.NewUndoManager(snaps, snapshot.DefaultMaxHistory)
	eng := healing.NewEngine(mock, snaps, undo, 0.5, true)

	files := []snapshot.FileSnapshot{{Path: "main.aura", Content: "main = 1/0"}}
	result, agentErr := eng.HealErrorSafe(context.Background(), "err-1", "division by zero", provider.Context{}, provider.SourceLocation{}, files)
	if agentErr != nil {
		t.Fatalf("unexpected error: %v", agentErr)
	}
	if result.Kind != healing.ResultFixed {
		t.Fatalf("got %v, want Fixed", result.Kind)
	}
	if result.SnapshotID == "" {
		t.Fatal("expected a snapshot id to be recorded")
	}
	if !undo.CanUndo() {
		t.Fatal("expected a recorded undo entry after a Fixed heal")
	}
	if snaps.Count() != 1 {
		t.Fatalf("got %d snapshots, want 1", snaps.Count())
	}
}

func TestHealErrorSafeDoesNotRecordUndoWhenNotFixed(t *testing.T) {
	mock := providertest.NewMockProvider().WithResponse(&provider.AgentResponse{Action: provider.ActionSuggest})
	snaps := snapshot.NewManager(snapshot.DefaultCapacity, "")
	undo := snapshot.NewUndoManager(snaps, snapshot.DefaultMaxHistory)
	eng := healing.NewEngine(mock, snaps, undo, 0.5, true)

	_, agentErr := eng.HealErrorSafe(context.Background(), "err-2", "mystery", provider.Context{}, provider.SourceLocation{}, nil)
	if agentErr != nil {
		t.Fatalf("unexpected error: %v", agentErr)
	}
	if undo.CanUndo() {
		t.Fatal("expected no undo entry when heal did not produce a Fixed result")
	}
	if snaps.Count() != 1 {
		t.Fatalf("got %d snapshots, want 1 (snapshot still taken before consulting the provider)", snaps.Count())
	}
}

func TestHealAndVerifyReturnsVerificationFailureOnBadPatch(t *testing.T) {
	mock := providertest.NewMockProvider().WithResponse(&provider.AgentResponse{
		Action:     provider.ActionPatch,
		Patch:      &provider.Patch{OldCode: "1/0", NewCode: "still broken"},
		Confidence: 0.9,
	})
	eng := newEngine(t, mock, true)

	verify := func(patchText string) error {
		return errors.New("does not parse")
	}

	result, failure, agentErr := eng.HealAndVerify(context.Background(), "err-3", "division by zero", provider.Context{}, provider.SourceLocation{}, nil, verify)
	if agentErr != nil {
		t.Fatalf("unexpected error: %v", agentErr)
	}
	if result != nil {
		t.Fatalf("expected nil result on verification failure, got %+v", result)
	}
	if failure == nil || failure.SnapshotID == "" {
		t.Fatalf("expected a verification failure carrying the snapshot id, got %+v", failure)
	}
}

func TestHealAndVerifySucceedsWhenVerifierPasses(t *testing.T) {
	mock := providertest.NewMockProvider().WithResponse(&provider.AgentResponse{
		Action:     provider.ActionPatch,
		Patch:      &provider.Patch{OldCode: "1/0", NewCode: "1/1"},
		Confidence: 0.9,
	})
	eng := newEngine(t, mock, true)

	verify := func(patchText string) error { return nil }

	result, failure, agentErr := eng.HealAndVerify(context.Background(), "err-4", "division by zero", provider.Context{}, provider.SourceLocation{}, nil, verify)
	if agentErr != nil {
		t.Fatalf("unexpected error: %v", agentErr)
	}
	if failure != nil {
		t.Fatalf("unexpected verification failure: %+v", failure)
	}
	if result == nil || result.Kind != healing.ResultFixed {
		t.Fatalf("got %+v, want Fixed", result)
	}
}
