// Package checkpoint implements the in-memory, bounded, FIFO-evictable
// variable snapshots described in spec.md §4.3, grounded on the bounded
// FIFO queues the teacher uses for its own spawn queue
// (internal/core/spawn_queue.go) and trace ring (internal/autopoiesis/traces.go).
package checkpoint

import (
	"time"

	"codenerd/internal/value"
)

// Checkpoint is a named snapshot of a scope's variable map at a point in
// execution (spec.md §3).
type Checkpoint struct {
	Name      string
	Variables map[string]value.Value
	StepCount int
	Timestamp time.Time
}

// Manager is the FIFO-bounded checkpoint store (spec.md §4.3).
type Manager struct {
	max     int
	entries map[string]*Checkpoint
	order   []string // oldest first; insertion/most-recent order
}

// NewManager creates a Manager with the given capacity. A non-positive max
// is treated as unbounded.
func NewManager(max int) *Manager {
	return &Manager{max: max, entries: map[string]*Checkpoint{}}
}

// Save stores a checkpoint under name. Overwriting an existing name does
// not evict anything and does not count against capacity (spec.md §4.3);
// it simply moves the name to the most-recent position.
func (m *Manager) Save(name string, variables map[string]value.Value, stepCount int) {
	cp := &Checkpoint{Name: name, Variables: copyVars(variables), StepCount: stepCount, Timestamp: now()}

	if _, exists := m.entries[name]; exists {
		m.entries[name] = cp
		m.moveToEnd(name)
		return
	}

	m.entries[name] = cp
	m.order = append(m.order, name)

	if m.max > 0 && len(m.order) > m.max {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.entries, oldest)
	}
}

// Restore returns a reference to the stored checkpoint. It performs no
// auto-rollback — callers decide whether to overwrite the live environment
// (spec.md §4.3).
func (m *Manager) Restore(name string) (*Checkpoint, bool) {
	cp, ok := m.entries[name]
	if !ok {
		return nil, false
	}
	// Return a defensive copy so a caller mutating the returned variable map
	// (e.g. while applying Backtrack adjustments) can never corrupt the
	// stored checkpoint.
	out := &Checkpoint{Name: cp.Name, Variables: copyVars(cp.Variables), StepCount: cp.StepCount, Timestamp: cp.Timestamp}
	return out, true
}

// Exists reports whether name is currently stored.
func (m *Manager) Exists(name string) bool {
	_, ok := m.entries[name]
	return ok
}

// List returns checkpoint names in insertion order, oldest first
// (spec.md §3 invariant).
func (m *Manager) List() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Count returns the number of stored checkpoints.
func (m *Manager) Count() int { return len(m.order) }

// MaxCheckpoints returns the configured capacity (0 means unbounded).
func (m *Manager) MaxCheckpoints() int { return m.max }

// Clear empties the manager.
func (m *Manager) Clear() {
	m.entries = map[string]*Checkpoint{}
	m.order = nil
}

// MostRecent returns the checkpoint from the last Save call whose name was
// not subsequently overwritten (spec.md Testable Property 3).
func (m *Manager) MostRecent() (*Checkpoint, bool) {
	if len(m.order) == 0 {
		return nil, false
	}
	return m.entries[m.order[len(m.order)-1]], true
}

func (m *Manager) moveToEnd(name string) {
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.order = append(m.order, name)
}

func copyVars(in map[string]value.Value) map[string]value.Value {
	out := make(map[string]value.Value, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// now is a seam so tests can observe monotonic-but-controllable timestamps
// without depending on wall-clock ordering.
var now = func() time.Time { return time.Now() }
