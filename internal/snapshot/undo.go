package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"codenerd/internal/provider"
)

// VerifyKind discriminates a HealingAction's verification outcome
// (spec.md §3's "unset" plus Success/Failure/Timeout/Skipped).
type VerifyKind string

const (
	VerifyUnset   VerifyKind = ""
	VerifySuccess VerifyKind = "Success"
	VerifyFailure VerifyKind = "Failure"
	VerifyTimeout VerifyKind = "Timeout"
	VerifySkipped VerifyKind = "Skipped"
)

// Verified is the tagged outcome of verifying a HealingAction's patch
// (spec.md §3: `Success{tests_passed}`, `Failure{error, tests_failed}`,
// `Timeout`, `Skipped`, or unset).
type Verified struct {
	Kind        VerifyKind
	TestsPassed []string
	Error       string
	TestsFailed []string
}

// HealingAction is one undoable/redoable unit of work (spec.md §3, §4.7):
// a healing fix, a hot reload, or a manual edit, each paired with the
// snapshot taken immediately before it was applied. SnapshotID is spec.md
// §3's snapshot_before — the id PrepareUndo/PrepareRedo resolve against.
type HealingAction struct {
	Description string
	SnapshotID  string

	Patch      *provider.Patch
	Timestamp  time.Time
	Confidence float64
	Verified   Verified
	FilePath   string
}

// DefaultMaxHistory is spec.md §4.7's default UndoManager history cap.
const DefaultMaxHistory = 100

// UndoManager wraps a Manager and maintains a linear action history with a
// cursor, the two-phase prepare/confirm protocol letting the caller
// materialize file writes itself before the cursor moves (spec.md §4.7).
type UndoManager struct {
	snapshots   *Manager
	history     []HealingAction
	cursor      int
	maxHistory  int
	historyPath string // "" disables disk persistence
}

// NewUndoManager creates an in-memory UndoManager backed by snapshots. A
// non-positive maxHistory falls back to DefaultMaxHistory. For an
// UndoManager that survives process restarts, use LoadUndoManager instead.
func NewUndoManager(snapshots *Manager, maxHistory int) *UndoManager {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &UndoManager{snapshots: snapshots, maxHistory: maxHistory}
}

// undoHistoryFile is the JSON log LoadUndoManager/Record persist the
// action history and cursor under, alongside the snapshot directory the
// history's SnapshotID fields point into.
const undoHistoryFile = "undo_history.json"

type persistedHistory struct {
	History []HealingAction `json:"history"`
	Cursor  int             `json:"cursor"`
}

// LoadUndoManager creates an UndoManager backed by snapshots whose action
// history is persisted as JSON under dir (spec.md §6's snapshot directory
// doubles as the undo log's home) — without this, `aura undo`/`aura redo`
// invoked as separate CLI processes would never see history recorded by an
// earlier process. A missing or absent history file starts empty, same as
// NewUndoManager. Every subsequent Record/ConfirmUndo/ConfirmRedo call
// re-persists the full history.
func LoadUndoManager(snapshots *Manager, maxHistory int, dir string) (*UndoManager, error) {
	u := NewUndoManager(snapshots, maxHistory)
	if dir == "" {
		return u, nil
	}
	u.historyPath = filepath.Join(dir, undoHistoryFile)

	b, err := os.ReadFile(u.historyPath)
	if err != nil {
		if os.IsNotExist(err) {
			return u, nil
		}
		return nil, fmt.Errorf("snapshot: reading undo history: %w", err)
	}
	var p persistedHistory
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("snapshot: parsing undo history: %w", err)
	}
	u.history = p.History
	u.cursor = p.Cursor
	return u, nil
}

// persist writes the current history/cursor to historyPath, a no-op when
// persistence is disabled.
func (u *UndoManager) persist() error {
	if u.historyPath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(u.historyPath), 0o755); err != nil {
		return fmt.Errorf("snapshot: creating undo history dir: %w", err)
	}
	b, err := json.MarshalIndent(persistedHistory{History: u.history, Cursor: u.cursor}, "", "  ")
	if err != nil {
		return fmt.Errorf("snapshot: marshaling undo history: %w", err)
	}
	if err := os.WriteFile(u.historyPath, b, 0o644); err != nil {
		return fmt.Errorf("snapshot: writing undo history: %w", err)
	}
	return nil
}

// Record appends a new action at the cursor, truncating any formerly
// redoable branch first (spec.md §4.7 invariant), and persists the history
// when LoadUndoManager was given a directory.
func (u *UndoManager) Record(action HealingAction) error {
	if u.cursor < len(u.history) {
		u.history = u.history[:u.cursor]
	}
	u.history = append(u.history, action)
	u.cursor++

	if len(u.history) > u.maxHistory {
		overflow := len(u.history) - u.maxHistory
		u.history = u.history[overflow:]
		u.cursor -= overflow
		if u.cursor < 0 {
			u.cursor = 0
		}
	}
	return u.persist()
}

// SetLastVerified updates the most recently recorded action's Verified
// outcome in place — used by heal_and_verify, which records an action
// before verification runs (HealErrorSafe) and learns the outcome only
// after a caller-supplied verifier has run against the candidate patch.
func (u *UndoManager) SetLastVerified(v Verified) error {
	if len(u.history) == 0 {
		return nil
	}
	u.history[len(u.history)-1].Verified = v
	return u.persist()
}

// CanUndo reports whether there is an action before the cursor.
func (u *UndoManager) CanUndo() bool { return u.cursor > 0 }

// CanRedo reports whether there is an action at or after the cursor.
func (u *UndoManager) CanRedo() bool { return u.cursor < len(u.history) }

// ErrNothingToUndo/ErrNothingToRedo are returned by PrepareUndo/PrepareRedo
// when the cursor is already at a history boundary.
var (
	ErrNothingToUndo = fmt.Errorf("snapshot: nothing to undo")
	ErrNothingToRedo = fmt.Errorf("snapshot: nothing to redo")
)

// PrepareUndo returns the action immediately before the cursor and its
// associated snapshot, without moving the cursor. The caller materializes
// the snapshot's files, then calls ConfirmUndo.
func (u *UndoManager) PrepareUndo() (HealingAction, *Snapshot, error) {
	if !u.CanUndo() {
		return HealingAction{}, nil, ErrNothingToUndo
	}
	action := u.history[u.cursor-1]
	snap, ok := u.snapshots.GetSnapshot(action.SnapshotID)
	if !ok {
		return HealingAction{}, nil, fmt.Errorf("snapshot: undo target snapshot %s not found", action.SnapshotID)
	}
	return action, snap, nil
}

// ConfirmUndo decrements the cursor after the caller has applied the
// snapshot PrepareUndo returned.
func (u *UndoManager) ConfirmUndo() error {
	if !u.CanUndo() {
		return ErrNothingToUndo
	}
	u.cursor--
	return u.persist()
}

// PrepareRedo returns the action at the cursor, without moving it. The
// caller re-applies the action, then calls ConfirmRedo.
func (u *UndoManager) PrepareRedo() (HealingAction, error) {
	if !u.CanRedo() {
		return HealingAction{}, ErrNothingToRedo
	}
	return u.history[u.cursor], nil
}

// ConfirmRedo increments the cursor after the caller has re-applied the
// action PrepareRedo returned.
func (u *UndoManager) ConfirmRedo() error {
	if !u.CanRedo() {
		return ErrNothingToRedo
	}
	u.cursor++
	return u.persist()
}

// Cursor returns the current cursor position, for tests and diagnostics.
func (u *UndoManager) Cursor() int { return u.cursor }

// HistoryLen returns the number of recorded actions.
func (u *UndoManager) HistoryLen() int { return len(u.history) }
