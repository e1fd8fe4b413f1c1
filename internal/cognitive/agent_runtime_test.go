package cognitive_test

import (
	"testing"

	"codenerd/internal/cognitive"
	"codenerd/internal/provider"
	"codenerd/internal/provider/providertest"
)

func TestFailOpenOnProviderError(t *testing.T) {
	mock := providertest.NewMockProvider().WithError(&provider.AgentError{Kind: provider.ErrConnection, Message: "boom"})
	rt := cognitive.New(mock, cognitive.DefaultConfig(), nil, nil, "s1")

	d := rt.Deliberate(cognitive.Trigger{Kind: cognitive.TriggerTechnicalError, Description: "div by zero"})
	if d.Kind != cognitive.DecisionContinue {
		t.Fatalf("got %v, want Continue (fail-open)", d.Kind)
	}
}

func TestSafetyRejectsGoalRemovingFix(t *testing.T) {
	mock := providertest.NewMockProvider().WithResponse(&provider.AgentResponse{
		Action: provider.ActionPatch,
		Patch:  &provider.Patch{OldCode: "main = 1/0", NewCode: "main = 1/1"},
	})
	rt := cognitive.New(mock, cognitive.DefaultConfig(), []string{"positive x"}, nil, "s1")

	d := rt.Deliberate(cognitive.Trigger{Kind: cognitive.TriggerTechnicalError, Description: "div by zero"})
	if d.Kind != cognitive.DecisionContinue {
		t.Fatalf("got %v, want Continue (goal dropped by patch should be rejected)", d.Kind)
	}
}

func TestAcceptsFixPreservingGoals(t *testing.T) {
	mock := providertest.NewMockProvider().WithResponse(&provider.AgentResponse{
		Action: provider.ActionPatch,
		Patch:  &provider.Patch{OldCode: "main = 1/0", NewCode: "goal \"positive x\"\nmain = 1/1"},
	})
	rt := cognitive.New(mock, cognitive.DefaultConfig(), []string{"positive x"}, nil, "s1")

	d := rt.Deliberate(cognitive.Trigger{Kind: cognitive.TriggerTechnicalError, Description: "div by zero"})
	if d.Kind != cognitive.DecisionFix {
		t.Fatalf("got %v, want Fix", d.Kind)
	}
}

func TestSuggestMapsToContinue(t *testing.T) {
	mock := providertest.NewMockProvider().WithResponse(&provider.AgentResponse{Action: provider.ActionSuggest})
	rt := cognitive.New(mock, cognitive.DefaultConfig(), nil, nil, "s1")
	rt.SetAvailableCheckpoints([]string{"known"})

	d := rt.Deliberate(cognitive.Trigger{Kind: cognitive.TriggerExplicitReason, Description: "thinking"})
	if d.Kind != cognitive.DecisionContinue {
		t.Fatalf("got %v, want Continue for 'suggest' action", d.Kind)
	}
}

func TestClarifyMapsToHalt(t *testing.T) {
	mock := providertest.NewMockProvider().WithResponse(&provider.AgentResponse{
		Action:    provider.ActionClarify,
		Questions: []string{"what is x supposed to be?"},
	})
	rt := cognitive.New(mock, cognitive.DefaultConfig(), nil, nil, "s1")

	d := rt.Deliberate(cognitive.Trigger{Kind: cognitive.TriggerExplicitReason, Description: "ambiguous"})
	if d.Kind != cognitive.DecisionHalt {
		t.Fatalf("got %v, want Halt", d.Kind)
	}
}

func TestMaxDeliberationsCapsWithoutCallingProvider(t *testing.T) {
	mock := providertest.NewMockProvider().WithResponse(&provider.AgentResponse{Action: provider.ActionSuggest})
	cfg := cognitive.DefaultConfig()
	cfg.MaxDeliberations = 2
	rt := cognitive.New(mock, cfg, nil, nil, "s1")

	for i := 0; i < 2; i++ {
		rt.Deliberate(cognitive.Trigger{Kind: cognitive.TriggerExplicitReason, Description: "x"})
	}
	before := mock.CallCount()
	d := rt.Deliberate(cognitive.Trigger{Kind: cognitive.TriggerExplicitReason, Description: "x"})
	if d.Kind != cognitive.DecisionContinue {
		t.Fatalf("got %v, want Continue once max_deliberations is reached", d.Kind)
	}
	if mock.CallCount() != before {
		t.Fatalf("provider was called again after max_deliberations reached: %d -> %d", before, mock.CallCount())
	}
}

func TestMaxDeliberationsWithoutProgressCapsWithoutCallingProvider(t *testing.T) {
	mock := providertest.NewMockProvider().WithResponse(&provider.AgentResponse{
		Action: provider.ActionPatch,
		Patch:  &provider.Patch{OldCode: "main = 1/0", NewCode: "main = 1/1"},
	})
	cfg := cognitive.DefaultConfig()
	cfg.MaxDeliberationsWithoutProgress = 2
	rt := cognitive.New(mock, cfg, []string{"positive x"}, nil, "s1")

	// Each call's patch drops the "positive x" goal, so the safety
	// validator rejects it and deliberationsWithoutProgress increments.
	for i := 0; i < 2; i++ {
		d := rt.Deliberate(cognitive.Trigger{Kind: cognitive.TriggerTechnicalError, Description: "div by zero"})
		if d.Kind != cognitive.DecisionContinue {
			t.Fatalf("call %d: got %v, want Continue (rejected fix)", i, d.Kind)
		}
	}

	before := mock.CallCount()
	d := rt.Deliberate(cognitive.Trigger{Kind: cognitive.TriggerTechnicalError, Description: "div by zero"})
	if d.Kind != cognitive.DecisionContinue {
		t.Fatalf("got %v, want Continue once max_deliberations_without_progress is reached", d.Kind)
	}
	if mock.CallCount() != before {
		t.Fatalf("provider was called again after max_deliberations_without_progress reached: %d -> %d", before, mock.CallCount())
	}
}

func TestIsActiveTrue(t *testing.T) {
	mock := providertest.NewMockProvider()
	rt := cognitive.New(mock, cognitive.DefaultConfig(), nil, nil, "s1")
	if !rt.IsActive() {
		t.Fatal("expected agent-backed runtime to report active")
	}
}
