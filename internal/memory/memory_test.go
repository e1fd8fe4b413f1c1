package memory_test

import (
	"os"
	"path/filepath"
	"testing"

	"codenerd/internal/memory"
)

func TestLoadMissingFileReturnsEmptyDocument(t *testing.T) {
	doc, err := memory.Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Version != memory.CurrentVersion {
		t.Fatalf("got version %q, want %q", doc.Version, memory.CurrentVersion)
	}
	if len(doc.Patterns) != 0 || len(doc.ReasoningEpisodes) != 0 {
		t.Fatalf("expected empty document, got %+v", doc)
	}
}

func TestV1DocumentMigratesToV2(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mem.json")
	os.WriteFile(path, []byte(`{"version":"1.0","patterns":[],"project_defaults":{}}`), 0o644)

	doc, err := memory.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Version != "2.0" {
		t.Fatalf("got version %q, want 2.0", doc.Version)
	}
	if doc.ReasoningEpisodes == nil || len(doc.ReasoningEpisodes) != 0 {
		t.Fatalf("expected empty (non-nil) episode list after migration, got %v", doc.ReasoningEpisodes)
	}
}

func TestSaveThenLoadIsIdempotentAfterMigration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mem.json")
	os.WriteFile(path, []byte(`{"version":"1.0","patterns":[],"project_defaults":{}}`), 0o644)

	doc, err := memory.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := memory.Save(path, doc); err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}
	reloaded, err := memory.Load(path)
	if err != nil {
		t.Fatalf("unexpected reload error: %v", err)
	}
	if reloaded.Version != "2.0" {
		t.Fatalf("got version %q, want 2.0", reloaded.Version)
	}
}

func TestUnknownFutureVersionIsRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mem.json")
	os.WriteFile(path, []byte(`{"version":"9.9"}`), 0o644)

	_, err := memory.Load(path)
	var mismatch *memory.VersionMismatch
	if err == nil {
		t.Fatal("expected a VersionMismatch error")
	}
	if !asVersionMismatch(err, &mismatch) {
		t.Fatalf("got %v (%T), want *VersionMismatch", err, err)
	}
	if mismatch.Found != "9.9" {
		t.Fatalf("got found=%q, want 9.9", mismatch.Found)
	}
}

func asVersionMismatch(err error, target **memory.VersionMismatch) bool {
	if vm, ok := err.(*memory.VersionMismatch); ok {
		*target = vm
		return true
	}
	return false
}

func TestFindPatternExactMatchCaseInsensitive(t *testing.T) {
	doc := &memory.Document{}
	doc.RecordFix("Division By Zero", "main.aura", "guard denominator")

	p, ok := doc.FindPattern("division by zero")
	if !ok {
		t.Fatal("expected exact case-insensitive match")
	}
	if p.Fix != "guard denominator" {
		t.Fatalf("got fix %q", p.Fix)
	}
}

func TestFindPatternSubstringBothDirections(t *testing.T) {
	doc := &memory.Document{}
	doc.RecordFix("division by zero", "", "guard denominator")

	if _, ok := doc.FindPattern("error: division by zero at line 4"); !ok {
		t.Fatal("expected substring match (pattern contained in query)")
	}
	if _, ok := doc.FindPattern("division"); !ok {
		t.Fatal("expected substring match (query contained in pattern)")
	}
}

func TestRecordFixUpdatesInPlaceWithCountAndLatestFix(t *testing.T) {
	doc := &memory.Document{}
	doc.RecordFix("division by zero", "main.aura", "first fix")
	doc.RecordFix("division by zero", "main.aura", "second fix")

	if len(doc.Patterns) != 1 {
		t.Fatalf("expected one pattern record, got %d", len(doc.Patterns))
	}
	p := doc.Patterns[0]
	if p.Count != 2 {
		t.Fatalf("got count %d, want 2", p.Count)
	}
	if p.Fix != "second fix" {
		t.Fatalf("got fix %q, want latest-wins 'second fix'", p.Fix)
	}
}

func TestRecordFixFillsInEmptyContext(t *testing.T) {
	doc := &memory.Document{}
	doc.RecordFix("division by zero", "", "first fix")
	doc.RecordFix("division by zero", "main.aura", "second fix")

	if doc.Patterns[0].Context != "main.aura" {
		t.Fatalf("got context %q, want fill-in from second call", doc.Patterns[0].Context)
	}
}

func TestRecordEpisodeFIFOBoundAt100(t *testing.T) {
	doc := &memory.Document{}
	for i := 0; i < 105; i++ {
		doc.RecordEpisode(memory.Episode{TriggerType: "TechnicalError", Decision: "Continue"})
	}
	if len(doc.ReasoningEpisodes) != 100 {
		t.Fatalf("got %d episodes, want 100", len(doc.ReasoningEpisodes))
	}
}

func TestFindSimilarEpisodesByTriggerAndObservationOverlap(t *testing.T) {
	doc := &memory.Document{}
	doc.RecordEpisode(memory.Episode{
		TriggerType:  "TechnicalError",
		Observations: []string{"x = -1"},
	})
	doc.RecordEpisode(memory.Episode{
		TriggerType:  "ExplicitReason",
		Observations: []string{"x = -1"},
	})

	matches := doc.FindSimilarEpisodes("TechnicalError", []string{"x = -1 at runtime"})
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1 (trigger type filters out the other episode)", len(matches))
	}
}
