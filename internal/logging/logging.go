// Package logging is the ambient structured-logging stack (SPEC_FULL.md
// §4.15): a thin `go.uber.org/zap` bootstrap mirroring the teacher's own
// `cmd/nerd/main.go` (`zap.NewProductionConfig()` /
// `zap.NewAtomicLevelAt`), plus a lightweight in-process audit trail of
// cognitive events trimmed from the teacher's `internal/logging/audit.go`
// `AuditEventType` enum down to what this core actually emits.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a *zap.Logger at info level, or debug level when debug is
// true. debug=true mirrors the
// teacher's `--verbose` flag switching to DebugLevel.
func New(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

// EventType discriminates an audit event. Trimmed to the events the
// cognitive core actually raises (spec.md's deliberation/safety/snapshot/
// healing/memory lifecycle), unlike the teacher's much larger
// shard/kernel/campaign taxonomy.
type EventType string

const (
	EventDeliberationStart  EventType = "deliberation_start"
	EventDeliberationResult EventType = "deliberation_result"
	EventSafetyReject       EventType = "safety_reject"
	EventSnapshotCreate     EventType = "snapshot_create"
	EventHealingAttempt     EventType = "healing_attempt"
	EventHealingResult      EventType = "healing_result"
	EventMemoryMigration    EventType = "memory_migration"
)

// Audit emits structured audit events as zap fields on a dedicated logger,
// rather than the teacher's separate Mangle-fact sink — AURA carries no
// Datalog-equivalent kernel (see DESIGN.md).
type Audit struct {
	logger *zap.Logger
}

// NewAudit wraps logger for audit emission. A nil logger is replaced by
// zap.NewNop(), so Audit is always safe to call.
func NewAudit(logger *zap.Logger) *Audit {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Audit{logger: logger.Named("audit")}
}

// Emit records one audit event with arbitrary structured fields.
func (a *Audit) Emit(event EventType, fields ...zap.Field) {
	all := append([]zap.Field{zap.String("event", string(event))}, fields...)
	a.logger.Info("audit", all...)
}

// Deliberation logs a deliberation start/result pair's result half.
func (a *Audit) Deliberation(sessionID, triggerKind, decisionKind string) {
	a.Emit(EventDeliberationResult,
		zap.String("session_id", sessionID),
		zap.String("trigger", triggerKind),
		zap.String("decision", decisionKind),
	)
}

// SafetyReject logs a patch the validator rejected.
func (a *Audit) SafetyReject(check, reason string) {
	a.Emit(EventSafetyReject, zap.String("check", check), zap.String("reason", reason))
}

// SnapshotCreate logs a file snapshot being taken.
func (a *Audit) SnapshotCreate(id, reason string) {
	a.Emit(EventSnapshotCreate, zap.String("snapshot_id", id), zap.String("reason", reason))
}

// HealingAttempt logs a healing engine call being made.
func (a *Audit) HealingAttempt(errorID string) {
	a.Emit(EventHealingAttempt, zap.String("error_id", errorID))
}

// HealingResult logs a healing engine outcome.
func (a *Audit) HealingResult(errorID, kind string) {
	a.Emit(EventHealingResult, zap.String("error_id", errorID), zap.String("kind", kind))
}

// MemoryMigration logs a schema-version migration on load.
func (a *Audit) MemoryMigration(from, to string) {
	a.Emit(EventMemoryMigration, zap.String("from", from), zap.String("to", to))
}
