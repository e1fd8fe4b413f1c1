package provider_test

import (
	"testing"

	"codenerd/internal/provider"
)

func TestExtractJSONFromPlainObject(t *testing.T) {
	got, err := provider.ExtractJSON(`{"action":"suggest"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"action":"suggest"}` {
		t.Fatalf("got %q", got)
	}
}

func TestExtractJSONToleratesSurroundingProse(t *testing.T) {
	text := "Here's the fix:\n" + `{"action":"patch","patch":{"old_code":"a","new_code":"b"}}` + "\nLet me know if that helps!"
	got, err := provider.ExtractJSON(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"action":"patch","patch":{"old_code":"a","new_code":"b"}}` {
		t.Fatalf("got %q", got)
	}
}

func TestExtractJSONHandlesNestedBraces(t *testing.T) {
	text := `blah {"a": {"b": 1}, "c": "}"} trailing`
	got, err := provider.ExtractJSON(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"a": {"b": 1}, "c": "}"}` {
		t.Fatalf("got %q", got)
	}
}

func TestExtractJSONNoObjectFound(t *testing.T) {
	if _, err := provider.ExtractJSON("no json here"); err == nil {
		t.Fatal("expected error when no balanced object is present")
	}
}

func TestParseAgentResponsePatch(t *testing.T) {
	text := `{"action":"patch","patch":{"old_code":"1/0","new_code":"1/1","description":"avoid division by zero"},"confidence":0.9,"explanation":"fixed"}`
	resp, agentErr := provider.ParseAgentResponse(text)
	if agentErr != nil {
		t.Fatalf("unexpected error: %v", agentErr)
	}
	if resp.Action != provider.ActionPatch {
		t.Fatalf("got action %v, want patch", resp.Action)
	}
	if resp.Patch == nil || resp.Patch.NewCode != "1/1" {
		t.Fatalf("got patch %v", resp.Patch)
	}
	if resp.Confidence != 0.9 {
		t.Fatalf("got confidence %v", resp.Confidence)
	}
}

func TestParseAgentResponseSerializationError(t *testing.T) {
	text := `{"action": "patch", not valid json}`
	_, agentErr := provider.ParseAgentResponse(text)
	if agentErr == nil || agentErr.Kind != provider.ErrSerialization {
		t.Fatal("expected a serialization error for malformed JSON")
	}
}
