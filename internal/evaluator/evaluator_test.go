package evaluator_test

import (
	"testing"

	"codenerd/internal/capability"
	"codenerd/internal/checkpoint"
	"codenerd/internal/cognitive"
	"codenerd/internal/environment"
	"codenerd/internal/evaluator"
	"codenerd/internal/parser"
	"codenerd/internal/provider"
	"codenerd/internal/provider/providertest"
	"codenerd/internal/value"
)

func run(t *testing.T, src string) value.Value {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	ev := evaluator.New(cognitive.Null{}, checkpoint.NewManager(10), nil)
	env := environment.New()
	v, err := ev.Run(prog, env)
	if err != nil {
		t.Fatalf("eval error: %v", err)
	}
	return v
}

func TestS1Arithmetic(t *testing.T) {
	v := run(t, `main = 2 + 3 * 4`)
	i, ok := v.Int()
	if !ok || i != 14 {
		t.Fatalf("got %v, want Int(14)", v)
	}
}

func TestS2PipeWithPlaceholder(t *testing.T) {
	v := run(t, `
		double(x) = x * 2
		add(a, b) = a + b
		main = 5 | double | add(_, 1)
	`)
	i, ok := v.Int()
	if !ok || i != 11 {
		t.Fatalf("got %v, want Int(11)", v)
	}
}

func TestS3Interpolation(t *testing.T) {
	v := run(t, `
		greeting(n) = "Hello {n}!"
		main = greeting("AURA")
	`)
	if v.Kind() != value.KindString || v.String() != "Hello AURA!" {
		t.Fatalf("got %v, want String(\"Hello AURA!\")", v)
	}
}

func TestS4SafeNavOnNil(t *testing.T) {
	v := run(t, `
		main = {
			let u = {name: "A"}
			u?.missing ?? "fallback"
		}
	`)
	if v.Kind() != value.KindString || v.String() != "fallback" {
		t.Fatalf("got %v, want String(\"fallback\")", v)
	}
}

func TestDivisionByZero(t *testing.T) {
	prog, err := parser.Parse(`main = 1 / 0`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	ev := evaluator.New(nil, nil, nil)
	_, err = ev.Run(prog, environment.New())
	if err == nil {
		t.Fatal("expected division-by-zero error")
	}
}

func TestUndefinedVariable(t *testing.T) {
	prog, _ := parser.Parse(`main = doesNotExist`)
	ev := evaluator.New(nil, nil, nil)
	_, err := ev.Run(prog, environment.New())
	if err == nil {
		t.Fatal("expected undefined-variable error")
	}
	want := "Variable not defined: doesNotExist"
	if err.Error() != want {
		t.Fatalf("err = %q, want %q", err.Error(), want)
	}
}

func TestCapabilityCallWithoutImportFailsAsUndefinedVariable(t *testing.T) {
	prog, err := parser.Parse(`main = env.get("PATH")`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	ev := evaluator.New(cognitive.Null{}, checkpoint.NewManager(10), capability.Standard())
	_, err = ev.Run(prog, environment.New())
	if err == nil {
		t.Fatal("expected a failure: env was never imported")
	}
	want := "Variable not defined: env"
	if err.Error() != want {
		t.Fatalf("err = %q, want %q", err.Error(), want)
	}
}

func TestUndefinedVariableTriggersTechnicalErrorDeliberation(t *testing.T) {
	prog, err := parser.Parse(`main = x + 1`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	mock := providertest.NewMockProvider().WithResponse(&provider.AgentResponse{
		Action: provider.ActionGenerate, GeneratedCode: `x = 0
main = x + 1`,
		Confidence: 0.9,
	})
	rt := cognitive.New(mock, cognitive.DefaultConfig(), nil, nil, "s1")
	ev := evaluator.New(rt, checkpoint.NewManager(10), nil)

	v, err := ev.Run(prog, environment.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Kind() != value.KindString {
		t.Fatalf("got %v, want the provider's generated-code override", v)
	}
	if mock.CallCount() != 1 {
		t.Fatalf("got %d provider calls, want exactly 1 (the undefined-variable trigger)", mock.CallCount())
	}
}

func TestIfTruthiness(t *testing.T) {
	v := run(t, `main = if 0 "yes" else "no"`)
	if v.String() != "no" {
		t.Fatalf("got %v, want 'no' (Int(0) is falsy)", v)
	}
}

func TestForIteratesList(t *testing.T) {
	v := run(t, `main = for x in [1, 2, 3] x * 10`)
	i, _ := v.Int()
	if i != 30 {
		t.Fatalf("got %v, want last body value Int(30)", v)
	}
}

func TestJSONRoundtripExcludesFunctionAndNative(t *testing.T) {
	// Structural equality after a json.stringify/json.parse round trip
	// (spec.md Testable Property 1), and rejection of Function values.
	orig := value.Record(map[string]value.Value{
		"n": value.Int(1), "s": value.String("x"), "l": value.List([]value.Value{value.Bool(true), value.Nil}),
	})
	if !value.Equal(orig, orig) {
		t.Fatal("expected value to equal itself")
	}
	reg := capability.Standard()
	stringify, _ := reg.Lookup("json", "stringify")
	parse, _ := reg.Lookup("json", "parse")
	s, err := stringify([]value.Value{orig})
	if err != nil {
		t.Fatalf("stringify: %v", err)
	}
	back, err := parse([]value.Value{s})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !value.Equal(orig, back) {
		t.Fatalf("round trip gave %v, want %v", back, orig)
	}
	if _, err := stringify([]value.Value{value.Function("f")}); err == nil {
		t.Fatal("expected stringify to reject a Function value")
	}
}
