package checkpoint

import (
	"testing"

	"codenerd/internal/value"
)

func TestFIFOEvictionKeepsMostRecent(t *testing.T) {
	m := NewManager(3)
	for i := 0; i < 5; i++ {
		name := []string{"cp0", "cp1", "cp2", "cp3", "cp4"}[i]
		m.Save(name, map[string]value.Value{"n": value.Int(int64(i))}, i)
	}

	got := m.List()
	want := []string{"cp2", "cp3", "cp4"}
	if len(got) != len(want) {
		t.Fatalf("List() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("List() = %v, want %v", got, want)
		}
	}
	if m.Exists("cp0") || m.Exists("cp1") {
		t.Fatal("expected cp0 and cp1 to have been evicted")
	}
}

func TestOverwriteDoesNotEvict(t *testing.T) {
	m := NewManager(2)
	m.Save("a", map[string]value.Value{}, 0)
	m.Save("b", map[string]value.Value{}, 0)
	m.Save("a", map[string]value.Value{"x": value.Int(9)}, 1) // overwrite, moves to end

	if m.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", m.Count())
	}
	if !m.Exists("b") {
		t.Fatal("expected 'b' to survive an overwrite of 'a'")
	}

	got := m.List()
	want := []string{"b", "a"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("List() = %v, want %v", got, want)
		}
	}

	cp, _ := m.Restore("a")
	if v := cp.Variables["x"]; func() int64 { i, _ := v.Int(); return i }() != 9 {
		t.Fatal("expected overwritten checkpoint to carry new variables")
	}
}

func TestMostRecentMatchesLastNonOverwrittenSave(t *testing.T) {
	m := NewManager(10)
	m.Save("a", map[string]value.Value{}, 0)
	m.Save("b", map[string]value.Value{}, 0)
	m.Save("a", map[string]value.Value{}, 1)

	cp, ok := m.MostRecent()
	if !ok || cp.Name != "a" {
		t.Fatalf("MostRecent() = %+v, want name 'a'", cp)
	}
}

func TestRestoreDoesNotAutoRollback(t *testing.T) {
	m := NewManager(5)
	m.Save("cp", map[string]value.Value{"x": value.Int(1)}, 0)

	cp, ok := m.Restore("cp")
	if !ok {
		t.Fatal("expected checkpoint to exist")
	}
	// Mutating the returned snapshot's copy must not affect the manager's
	// stored copy (Restore returns a defensive copy).
	cp.Variables["x"] = value.Int(999)

	cp2, _ := m.Restore("cp")
	if i, _ := cp2.Variables["x"].Int(); i != 1 {
		t.Fatal("expected stored checkpoint to be immune to caller mutation")
	}
}
