package logging_test

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"codenerd/internal/logging"
)

func TestNewDebugSetsDebugLevel(t *testing.T) {
	logger, err := logging.New(true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !logger.Core().Enabled(zap.DebugLevel) {
		t.Fatal("expected debug level to be enabled")
	}
}

func TestAuditEmitsStructuredEvent(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	audit := logging.NewAudit(zap.New(core))

	audit.SafetyReject("max_fix_lines", "patch too long")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["event"] != string(logging.EventSafetyReject) {
		t.Fatalf("got event %v, want %v", ctx["event"], logging.EventSafetyReject)
	}
	if ctx["check"] != "max_fix_lines" {
		t.Fatalf("got check %v", ctx["check"])
	}
}

func TestNewAuditNilLoggerIsSafe(t *testing.T) {
	audit := logging.NewAudit(nil)
	audit.Emit(logging.EventDeliberationStart)
}
