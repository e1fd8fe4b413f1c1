package capability_test

import (
	"testing"

	"codenerd/internal/capability"
	"codenerd/internal/value"
)

func TestDBRegistryListReflectsOpenConnections(t *testing.T) {
	reg := capability.NewDBRegistry()
	bundle := capability.DBBundle(reg)
	connect := bundle.Funcs["connect!"]
	closeConn := bundle.Funcs["close!"]

	if len(reg.List()) != 0 {
		t.Fatalf("expected no open connections before connect!, got %v", reg.List())
	}

	conn, err := connect([]value.Value{value.String(":memory:")})
	if err != nil {
		t.Fatalf("db.connect! error: %v", err)
	}

	handles := reg.List()
	if len(handles) != 1 {
		t.Fatalf("expected 1 open connection after connect!, got %v", handles)
	}

	if _, err := closeConn([]value.Value{conn}); err != nil {
		t.Fatalf("db.close! error: %v", err)
	}

	if len(reg.List()) != 0 {
		t.Fatalf("expected no open connections after close!, got %v", reg.List())
	}
}
