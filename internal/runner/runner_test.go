package runner_test

import (
	"testing"

	"codenerd/internal/checkpoint"
	"codenerd/internal/cognitive"
	"codenerd/internal/provider"
	"codenerd/internal/provider/providertest"
	"codenerd/internal/runner"
)

func TestRunWithNullRuntimeReturnsResultOnFirstAttempt(t *testing.T) {
	result := runner.Run("main = 1 + 1", runner.DefaultConfig(), nil, checkpoint.NewManager(10), nil)
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if result.Retries != 0 {
		t.Fatalf("got retries %d, want 0", result.Retries)
	}
	if len(result.AppliedFixes) != 0 {
		t.Fatalf("expected no applied fixes, got %+v", result.AppliedFixes)
	}
}

func TestRunAppliesValidatedFixAndRetries(t *testing.T) {
	const original = `main = expect 1 > 2, "should be positive"`
	mock := providertest.NewMockProvider().WithResponse(&provider.AgentResponse{
		Action: provider.ActionPatch,
		Patch:  &provider.Patch{OldCode: original, NewCode: "main = 1 + 1"},
	})
	newRuntime := func() cognitive.Runtime {
		return cognitive.New(mock, cognitive.DefaultConfig(), nil, nil, "s1")
	}

	result := runner.Run(original, runner.DefaultConfig(), newRuntime, checkpoint.NewManager(10), nil)
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if result.Retries != 1 {
		t.Fatalf("got retries %d, want 1 (one retry after the fix was applied)", result.Retries)
	}
	if len(result.AppliedFixes) != 1 {
		t.Fatalf("got %d applied fixes, want 1", len(result.AppliedFixes))
	}
	if result.FinalSource != "main = 1 + 1" {
		t.Fatalf("got final source %q", result.FinalSource)
	}
}

func TestRunHealsUndefinedVariableViaTechnicalErrorTrigger(t *testing.T) {
	const original = "main = x + 1"
	mock := providertest.NewMockProvider().WithResponse(&provider.AgentResponse{
		Action:     provider.ActionPatch,
		Confidence: 0.9,
		Patch:      &provider.Patch{OldCode: original, NewCode: "x = 0\nmain = x + 1"},
	})
	newRuntime := func() cognitive.Runtime {
		return cognitive.New(mock, cognitive.DefaultConfig(), nil, nil, "s1")
	}

	result := runner.Run(original, runner.DefaultConfig(), newRuntime, checkpoint.NewManager(10), nil)
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if result.Retries != 1 {
		t.Fatalf("got retries %d, want 1", result.Retries)
	}
	if len(result.AppliedFixes) != 1 {
		t.Fatalf("got %d applied fixes, want 1", len(result.AppliedFixes))
	}
	i, ok := result.Value.Int()
	if !ok || i != 1 {
		t.Fatalf("got %v, want Int(1)", result.Value)
	}
}

func TestRunRejectsUnparseablePatchViaValidator(t *testing.T) {
	const original = `main = expect 1 > 2, "should be positive"`
	mock := providertest.NewMockProvider().WithResponse(&provider.AgentResponse{
		Action: provider.ActionPatch,
		Patch:  &provider.Patch{OldCode: original, NewCode: "main = ((("},
	})
	newRuntime := func() cognitive.Runtime {
		return cognitive.New(mock, cognitive.DefaultConfig(), nil, nil, "s1")
	}

	result := runner.Run(original, runner.DefaultConfig(), newRuntime, checkpoint.NewManager(10), nil)
	if len(result.AppliedFixes) != 0 {
		t.Fatalf("expected the syntactically invalid patch to be rejected by the safety validator, got %+v", result.AppliedFixes)
	}
}
