// Package evaluator implements the recursive AST evaluation described in
// spec.md §4.1, grounded on the dispatch-table style of the teacher's own
// internal/core/kernel_eval.go (which dispatches on fact/rule shape the
// same way this evaluator dispatches on expression shape).
package evaluator

import (
	"time"

	"codenerd/internal/ast"
	"codenerd/internal/checkpoint"
	"codenerd/internal/cognitive"
	"codenerd/internal/environment"
	"codenerd/internal/value"
)

// CapabilityFunc is the shape of one capability builtin (spec.md §6):
// http.get, json.parse, db.connect!, env.get, etc.
type CapabilityFunc func(args []value.Value) (value.Value, error)

// Capabilities resolves (object, field) pairs — e.g. ("http", "get") — to a
// CapabilityFunc. internal/capability implements this interface; the
// evaluator only depends on the interface to avoid an import cycle.
type Capabilities interface {
	Lookup(object, field string) (CapabilityFunc, bool)
}

// Evaluator holds the state threaded through one program run: the
// cognitive runtime it reports events to, the checkpoint manager backing
// Backtrack decisions, and the set of capability bundles a program has
// imported.
type Evaluator struct {
	Cognitive    cognitive.Runtime
	Checkpoints  *checkpoint.Manager
	Capabilities Capabilities
	Imports      map[string]bool

	// PendingFixes accumulates Fix decisions for internal/runner to apply
	// on the next attempt (spec.md §4.10).
	PendingFixes []PendingFix

	stepCount int
	pipeStack []value.Value
}

// PendingFix is a queued source replacement awaiting validation+application
// by the cognitive runner (C11).
type PendingFix struct {
	NewCode     string
	Explanation string
}

// New creates an Evaluator. A nil runtime defaults to cognitive.Null{}.
func New(runtime cognitive.Runtime, checkpoints *checkpoint.Manager, caps Capabilities) *Evaluator {
	if runtime == nil {
		runtime = cognitive.Null{}
	}
	return &Evaluator{
		Cognitive:    runtime,
		Checkpoints:  checkpoints,
		Capabilities: caps,
		Imports:      map[string]bool{},
	}
}

// LoadProgram registers a program's functions, types, and imports into env.
func (e *Evaluator) LoadProgram(prog *ast.Program, env *environment.Environment) {
	for _, fd := range prog.Functions {
		env.DefineFunction(fd)
	}
	for _, td := range prog.Types {
		env.DefineType(td)
	}
	for _, imp := range prog.Imports {
		e.Imports[imp] = true
	}
}

// Run evaluates a program's Main expression in env, returning its result.
func (e *Evaluator) Run(prog *ast.Program, env *environment.Environment) (value.Value, error) {
	e.LoadProgram(prog, env)
	if prog.Main == nil {
		return value.Nil, &RuntimeError{Message: "program has no main expression"}
	}
	return e.Eval(prog.Main, env)
}

// Eval recursively evaluates node in env. A *RuntimeError surfacing from
// dispatch is, when a cognitive runtime is active, offered to it as a
// TechnicalError trigger before propagating (spec.md §4.5, §7: "runtime
// error... may be turned into TechnicalError trigger") — this is how an
// undefined variable or a division by zero reaches the same Fix/Override/
// Backtrack/Halt decision machinery Expect and Reason already use.
func (e *Evaluator) Eval(node ast.Node, env *environment.Environment) (value.Value, error) {
	v, err := e.dispatch(node, env)
	if err == nil {
		return v, nil
	}
	rerr, ok := err.(*RuntimeError)
	if !ok || rerr.Kind == "Halt" || !e.Cognitive.IsActive() {
		return v, err
	}
	decision := e.Cognitive.Deliberate(cognitive.Trigger{
		Kind:        cognitive.TriggerTechnicalError,
		Description: rerr.Message,
		Detail:      rerr.Kind,
	})
	return e.applyDecision(decision, env)
}

func (e *Evaluator) dispatch(node ast.Node, env *environment.Environment) (value.Value, error) {
	e.stepCount++
	switch n := node.(type) {
	case *ast.IntLit:
		return value.Int(n.Value), nil
	case *ast.FloatLit:
		return value.Float(n.Value), nil
	case *ast.BoolLit:
		return value.Bool(n.Value), nil
	case *ast.NilLit:
		return value.Nil, nil
	case *ast.StringLit:
		return value.String(e.interpolate(n.Value, env)), nil
	case *ast.Identifier:
		return e.evalIdentifier(n, env)
	case *ast.Placeholder:
		if len(e.pipeStack) == 0 {
			return value.Nil, errf("PlaceholderOutsidePipe", "'_' placeholder used outside a pipe")
		}
		return e.pipeStack[len(e.pipeStack)-1], nil
	case *ast.ListLit:
		return e.evalList(n, env)
	case *ast.RecordLit:
		return e.evalRecord(n, env)
	case *ast.FieldAccess:
		return e.evalFieldAccess(n, env)
	case *ast.SafeAccess:
		return e.evalSafeAccess(n, env)
	case *ast.Call:
		return e.evalCall(n, env)
	case *ast.BinaryOp:
		return e.evalBinaryOp(n, env)
	case *ast.UnaryOp:
		return e.evalUnaryOp(n, env)
	case *ast.Pipe:
		return e.evalPipe(n, env)
	case *ast.NullCoalesce:
		return e.evalNullCoalesce(n, env)
	case *ast.Let:
		v, err := e.Eval(n.Value, env)
		if err != nil {
			return value.Nil, err
		}
		env.Define(n.Name, v)
		e.observeValueChanged(n.Name, v)
		return v, nil
	case *ast.Block:
		return e.evalBlock(n, env)
	case *ast.If:
		return e.evalIf(n, env)
	case *ast.For:
		return e.evalFor(n, env)
	case *ast.Expect:
		return e.evalExpect(n, env)
	case *ast.Observe:
		return e.evalObserveExpr(n, env)
	case *ast.Reason:
		return e.evalReason(n, env)
	default:
		return value.Nil, errf("UnknownNode", "evaluator: unknown AST node %T", node)
	}
}

func (e *Evaluator) evalIdentifier(n *ast.Identifier, env *environment.Environment) (value.Value, error) {
	if v, ok := env.Get(n.Name); ok {
		return v, nil
	}
	if _, ok := env.GetFunction(n.Name); ok {
		return value.Function(n.Name), nil
	}
	if _, ok := env.GetType(n.Name); ok {
		return value.Function(n.Name), nil
	}
	return value.Nil, &RuntimeError{Message: (&environment.ErrUndefined{Name: n.Name}).Error(), Kind: "UndefinedVariable"}
}

func (e *Evaluator) evalList(n *ast.ListLit, env *environment.Environment) (value.Value, error) {
	elems := make([]value.Value, 0, len(n.Elements))
	for _, elNode := range n.Elements {
		v, err := e.Eval(elNode, env)
		if err != nil {
			return value.Nil, err
		}
		elems = append(elems, v)
	}
	return value.List(elems), nil
}

func (e *Evaluator) evalRecord(n *ast.RecordLit, env *environment.Environment) (value.Value, error) {
	fields := make(map[string]value.Value, len(n.Order))
	for _, name := range n.Order {
		v, err := e.Eval(n.Fields[name], env)
		if err != nil {
			return value.Nil, err
		}
		fields[name] = v
	}
	return value.Record(fields), nil
}

func (e *Evaluator) evalFieldAccess(n *ast.FieldAccess, env *environment.Environment) (value.Value, error) {
	target, err := e.Eval(n.Target, env)
	if err != nil {
		return value.Nil, err
	}
	if target.Kind() != value.KindRecord {
		return value.Nil, errf("NotARecord", "field access on non-record value")
	}
	f, ok := target.Field(n.Field)
	if !ok {
		return value.Nil, errf("MissingField", "missing field: %s", n.Field)
	}
	return f, nil
}

func (e *Evaluator) evalSafeAccess(n *ast.SafeAccess, env *environment.Environment) (value.Value, error) {
	target, err := e.Eval(n.Target, env)
	if err != nil {
		return value.Nil, err
	}
	if target.IsNil() {
		return value.Nil, nil
	}
	if target.Kind() != value.KindRecord {
		return value.Nil, nil
	}
	f, ok := target.Field(n.Field)
	if !ok {
		return value.Nil, nil
	}
	return f, nil
}

func (e *Evaluator) evalNullCoalesce(n *ast.NullCoalesce, env *environment.Environment) (value.Value, error) {
	left, err := e.Eval(n.Left, env)
	if err != nil {
		return value.Nil, err
	}
	if left.IsNil() {
		return e.Eval(n.Right, env)
	}
	return left, nil
}

func (e *Evaluator) evalBlock(n *ast.Block, env *environment.Environment) (value.Value, error) {
	var result value.Value
	for _, expr := range n.Exprs {
		v, err := e.Eval(expr, env)
		if err != nil {
			return value.Nil, err
		}
		result = v
	}
	return result, nil
}

func (e *Evaluator) evalIf(n *ast.If, env *environment.Environment) (value.Value, error) {
	cond, err := e.Eval(n.Cond, env)
	if err != nil {
		return value.Nil, err
	}
	if cond.Truthy() {
		return e.Eval(n.Then, env)
	}
	return e.Eval(n.Else, env)
}

func (e *Evaluator) evalFor(n *ast.For, env *environment.Environment) (value.Value, error) {
	iterVal, err := e.Eval(n.Iter, env)
	if err != nil {
		return value.Nil, err
	}
	items, ok := iterVal.List()
	if !ok {
		return value.Nil, errf("NotIterable", "for: value is not a list")
	}
	var result value.Value
	for _, item := range items {
		env.Define(n.Var, item)
		v, err := e.Eval(n.Body, env)
		if err != nil {
			return value.Nil, err
		}
		result = v
	}
	return result, nil
}

func (e *Evaluator) evalObserveExpr(n *ast.Observe, env *environment.Environment) (value.Value, error) {
	v, err := e.Eval(n.Value, env)
	if err != nil {
		return value.Nil, err
	}
	if e.Cognitive.IsActive() {
		e.Cognitive.Observe(cognitive.Observation{Kind: cognitive.ObsValueChanged, Value: v, Timestamp: time.Now()})
	}
	return v, nil
}

func (e *Evaluator) evalReason(n *ast.Reason, env *environment.Environment) (value.Value, error) {
	prompt, err := e.Eval(n.Prompt, env)
	if err != nil {
		return value.Nil, err
	}
	decision := e.Cognitive.Deliberate(cognitive.Trigger{
		Kind:        cognitive.TriggerExplicitReason,
		Description: "explicit reason block",
		Detail:      value.Display(prompt),
	})
	return e.applyDecision(decision, env)
}

func (e *Evaluator) evalExpect(n *ast.Expect, env *environment.Environment) (value.Value, error) {
	cond, err := e.Eval(n.Cond, env)
	if err != nil {
		return value.Nil, err
	}
	if e.Cognitive.IsActive() {
		e.Cognitive.Observe(cognitive.Observation{Kind: cognitive.ObsExpectEvaluated, Value: cond, Timestamp: time.Now()})
	}
	if cond.Truthy() {
		return cond, nil
	}
	msg := n.Message
	if msg == "" {
		msg = "expectation failed"
	}
	decision := e.Cognitive.Deliberate(cognitive.Trigger{
		Kind:        cognitive.TriggerExpectFailed,
		Description: msg,
	})
	return e.applyDecision(decision, env)
}

// applyDecision interprets a cognitive.Decision the way the evaluator
// itself is responsible for (Override/Backtrack/Halt/Fix-queue/Continue),
// per spec.md §4.4.
func (e *Evaluator) applyDecision(d cognitive.Decision, env *environment.Environment) (value.Value, error) {
	switch d.Kind {
	case cognitive.DecisionOverride:
		return d.OverrideValue, nil
	case cognitive.DecisionFix:
		e.PendingFixes = append(e.PendingFixes, PendingFix{NewCode: d.NewCode, Explanation: d.Explanation})
		return value.Nil, nil
	case cognitive.DecisionBacktrack:
		if e.Checkpoints == nil {
			return value.Nil, errf("NoCheckpointManager", "backtrack requested but no checkpoint manager is configured")
		}
		cp, ok := e.Checkpoints.Restore(d.Checkpoint)
		if !ok {
			return value.Nil, errf("UnknownCheckpoint", "backtrack target not found: %s", d.Checkpoint)
		}
		merged := make(map[string]value.Value, len(cp.Variables)+len(d.Adjustments))
		for k, v := range cp.Variables {
			merged[k] = v
		}
		for k, v := range d.Adjustments {
			merged[k] = v
		}
		env.Restore(merged)
		return value.Nil, nil
	case cognitive.DecisionHalt:
		return value.Nil, &RuntimeError{Message: d.HaltError, Kind: "Halt"}
	default:
		return value.Bool(true), nil
	}
}

func (e *Evaluator) observeValueChanged(name string, v value.Value) {
	if !e.Cognitive.IsActive() {
		return
	}
	e.Cognitive.Observe(cognitive.Observation{Kind: cognitive.ObsValueChanged, Name: name, Value: v, Timestamp: time.Now()})
}
