// Package snapshot implements the file snapshot and undo/redo system
// (spec.md §4.7), grounded on the teacher's transaction manager
// (internal/core/transaction_manager.go), which captures a
// `Snapshots map[string][]byte` for rollback before committing a multi-file
// edit. AURA reuses that shape — a bounded FIFO of whole-file captures — but
// drops the 2PC shadow-validation machinery, since the safety validator
// (C7) already gates what content is allowed to be written.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Reason records why a snapshot was taken.
type Reason string

const (
	ReasonBeforeHeal      Reason = "before_heal"
	ReasonBeforeHotReload Reason = "before_hot_reload"
	ReasonManual          Reason = "manual"
	ReasonCheckpoint      Reason = "checkpoint"
)

// FileSnapshot is one file's captured content at snapshot time.
type FileSnapshot struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Snapshot is a point-in-time capture of zero or more files.
type Snapshot struct {
	ID        string         `json:"id"`
	Reason    Reason         `json:"reason"`
	CreatedAt time.Time      `json:"created_at"`
	Files     []FileSnapshot `json:"files"`
}

// Summary is the lightweight listing view (spec.md §4.7's list_snapshots).
type Summary struct {
	ID        string
	Reason    Reason
	CreatedAt time.Time
	FileCount int
}

// Manager is the bounded FIFO snapshot store (spec.md §4.7, default
// capacity 50). Persistence, when a directory is configured, writes each
// snapshot as JSON the way internal/store/migrations.go's schema records
// are persisted — plain encoding/json, no custom binary format.
type Manager struct {
	capacity int
	dir      string // "" disables disk persistence
	order    []string
	byID     map[string]*Snapshot
	counter  int64
}

// DefaultCapacity is spec.md §4.7's default SnapshotManager capacity.
const DefaultCapacity = 50

// NewManager creates a Manager. dir == "" keeps snapshots in memory only.
func NewManager(capacity int, dir string) *Manager {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Manager{capacity: capacity, dir: dir, byID: map[string]*Snapshot{}}
}

// LoadManager rebuilds a Manager from the `*.json` snapshot files persisted
// under dir by a prior process (spec.md §6's `.aura/snapshots/<id>.json`
// layout) — without this, every fresh `aura` invocation would see an empty
// FIFO despite the files on disk, which is the whole reason snapshots are
// written there rather than kept in memory only. A missing dir is treated
// as an empty store, not an error, since the first run of a workspace has
// nothing to load yet.
func LoadManager(capacity int, dir string) (*Manager, error) {
	m := NewManager(capacity, dir)
	if dir == "" {
		return m, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, fmt.Errorf("snapshot: reading snapshot dir: %w", err)
	}

	var names []string
	for _, ent := range entries {
		if ent.IsDir() || ent.Name() == undoHistoryFile || !strings.HasSuffix(ent.Name(), ".json") {
			continue
		}
		names = append(names, ent.Name())
	}

	// Each snapshot is its own file (CreateSnapshotWithFiles persists one
	// JSON document per id), so a workspace with a full snapshot history
	// means one read+unmarshal per file with no shared state between
	// them — a natural fit for fanning the disk I/O out across an
	// errgroup rather than reading the directory file-by-file.
	loaded := make([]*Snapshot, len(names))
	g, gctx := errgroup.WithContext(context.Background())
	g.SetLimit(8)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			b, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				return fmt.Errorf("snapshot: reading %s: %w", name, err)
			}
			var snap Snapshot
			if err := json.Unmarshal(b, &snap); err != nil {
				return fmt.Errorf("snapshot: parsing %s: %w", name, err)
			}
			loaded[i] = &snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(loaded, func(i, j int) bool { return loaded[i].CreatedAt.Before(loaded[j].CreatedAt) })

	for _, snap := range loaded {
		m.byID[snap.ID] = snap
		m.order = append(m.order, snap.ID)
	}
	if len(m.order) > m.capacity {
		overflow := len(m.order) - m.capacity
		for _, id := range m.order[:overflow] {
			delete(m.byID, id)
			os.Remove(m.snapshotPath(id))
		}
		m.order = m.order[overflow:]
	}
	m.counter = int64(len(m.order))
	return m, nil
}

// nowNano is a seam so tests get deterministic, strictly increasing IDs
// without depending on wall-clock resolution.
var nowNano = func() int64 { return time.Now().UnixNano() }

func (m *Manager) nextID(ts int64) string {
	m.counter++
	return fmt.Sprintf("snap_%d_%d", ts, m.counter)
}

// CreateSnapshot takes a snapshot with no captured files — used when a
// caller wants a named point in the undo history without file content
// (e.g. immediately before a checkpoint-driven Backtrack).
func (m *Manager) CreateSnapshot(reason Reason) (*Snapshot, error) {
	return m.CreateSnapshotWithFiles(reason, nil)
}

// CreateSnapshotWithFiles captures the given (path, content) pairs.
func (m *Manager) CreateSnapshotWithFiles(reason Reason, files []FileSnapshot) (*Snapshot, error) {
	ts := nowNano()
	snap := &Snapshot{ID: m.nextID(ts), Reason: reason, CreatedAt: time.Unix(0, ts), Files: append([]FileSnapshot(nil), files...)}

	m.byID[snap.ID] = snap
	m.order = append(m.order, snap.ID)
	if len(m.order) > m.capacity {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.byID, oldest)
		if m.dir != "" {
			os.Remove(m.snapshotPath(oldest))
		}
	}

	if m.dir != "" {
		if err := m.persist(snap); err != nil {
			return nil, err
		}
	}
	return snap, nil
}

func (m *Manager) persist(snap *Snapshot) error {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("snapshot: creating snapshot dir: %w", err)
	}
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("snapshot: marshaling snapshot %s: %w", snap.ID, err)
	}
	if err := os.WriteFile(m.snapshotPath(snap.ID), b, 0o644); err != nil {
		return fmt.Errorf("snapshot: writing snapshot %s: %w", snap.ID, err)
	}
	return nil
}

func (m *Manager) snapshotPath(id string) string {
	return filepath.Join(m.dir, id+".json")
}

// GetSnapshot retrieves a snapshot by ID.
func (m *Manager) GetSnapshot(id string) (*Snapshot, bool) {
	s, ok := m.byID[id]
	return s, ok
}

// ListSnapshots returns summaries oldest-first.
func (m *Manager) ListSnapshots() []Summary {
	out := make([]Summary, 0, len(m.order))
	for _, id := range m.order {
		s := m.byID[id]
		out = append(out, Summary{ID: s.ID, Reason: s.Reason, CreatedAt: s.CreatedAt, FileCount: len(s.Files)})
	}
	return out
}

// Prune keeps only the `keep` most recent snapshots, evicting the rest.
func (m *Manager) Prune(keep int) {
	if keep < 0 {
		keep = 0
	}
	for len(m.order) > keep {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.byID, oldest)
		if m.dir != "" {
			os.Remove(m.snapshotPath(oldest))
		}
	}
}

// Remove deletes a specific snapshot by ID.
func (m *Manager) Remove(id string) {
	if _, ok := m.byID[id]; !ok {
		return
	}
	delete(m.byID, id)
	for i, n := range m.order {
		if n == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	if m.dir != "" {
		os.Remove(m.snapshotPath(id))
	}
}

// Latest returns the most recently created snapshot.
func (m *Manager) Latest() (*Snapshot, bool) {
	if len(m.order) == 0 {
		return nil, false
	}
	return m.byID[m.order[len(m.order)-1]], true
}

// Count returns the number of stored snapshots.
func (m *Manager) Count() int { return len(m.order) }
