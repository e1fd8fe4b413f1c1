package capability_test

import (
	"testing"

	"codenerd/internal/capability"
	"codenerd/internal/value"
)

func TestJSONRoundTripStructuralEquality(t *testing.T) {
	reg := capability.Standard()
	stringify, ok := reg.Lookup("json", "stringify")
	if !ok {
		t.Fatal("expected json.stringify to be registered")
	}
	parse, ok := reg.Lookup("json", "parse")
	if !ok {
		t.Fatal("expected json.parse to be registered")
	}

	orig := value.Record(map[string]value.Value{
		"n": value.Int(1),
		"s": value.String("x"),
		"l": value.List([]value.Value{value.Bool(true), value.Nil}),
	})

	encoded, err := stringify([]value.Value{orig})
	if err != nil {
		t.Fatalf("stringify error: %v", err)
	}
	decoded, err := parse([]value.Value{encoded})
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if !value.Equal(orig, decoded) {
		t.Fatalf("round trip not structurally equal: got %v", value.Display(decoded))
	}
}

func TestJSONStringifyRejectsFunction(t *testing.T) {
	reg := capability.Standard()
	stringify, _ := reg.Lookup("json", "stringify")
	_, err := stringify([]value.Value{value.Function("f")})
	if err == nil {
		t.Fatal("expected error serializing a Function value")
	}
}

func TestEnvGetSetRoundTrip(t *testing.T) {
	reg := capability.Standard()
	set, _ := reg.Lookup("env", "set")
	get, _ := reg.Lookup("env", "get")

	if _, err := set([]value.Value{value.String("AURA_TEST_VAR"), value.String("hello")}); err != nil {
		t.Fatalf("env.set error: %v", err)
	}
	v, err := get([]value.Value{value.String("AURA_TEST_VAR")})
	if err != nil {
		t.Fatalf("env.get error: %v", err)
	}
	if v.String() != "hello" {
		t.Fatalf("got %q, want %q", v.String(), "hello")
	}
}

func TestEnvGetMissingReturnsNil(t *testing.T) {
	reg := capability.Standard()
	get, _ := reg.Lookup("env", "get")
	v, err := get([]value.Value{value.String("AURA_DOES_NOT_EXIST_VAR")})
	if err != nil {
		t.Fatalf("env.get error: %v", err)
	}
	if !v.IsNil() {
		t.Fatalf("got %v, want Nil", v)
	}
}

func TestLookupUnknownBundle(t *testing.T) {
	reg := capability.Standard()
	if _, ok := reg.Lookup("nope", "field"); ok {
		t.Fatal("expected unknown bundle lookup to fail")
	}
}
