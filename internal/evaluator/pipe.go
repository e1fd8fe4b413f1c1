package evaluator

import (
	"codenerd/internal/ast"
	"codenerd/internal/environment"
	"codenerd/internal/value"
)

// evalPipe implements spec.md §4.1's `a | b | c` desugar: evaluate the seed,
// then for each step either call a bare identifier as a zero-arg function
// fed the previous result, or call an explicit Call — substituting any `_`
// placeholder with the previous result, or else prepending it as the first
// argument.
func (e *Evaluator) evalPipe(n *ast.Pipe, env *environment.Environment) (value.Value, error) {
	if len(n.Steps) == 0 {
		return value.Nil, nil
	}
	result, err := e.Eval(n.Steps[0], env)
	if err != nil {
		return value.Nil, err
	}
	for _, step := range n.Steps[1:] {
		result, err = e.evalPipeStep(step, result, env)
		if err != nil {
			return value.Nil, err
		}
	}
	return result, nil
}

func (e *Evaluator) evalPipeStep(step ast.Node, piped value.Value, env *environment.Environment) (value.Value, error) {
	switch s := step.(type) {
	case *ast.Identifier:
		return e.callFunction(s.Name, []value.Value{piped}, env)
	case *ast.Call:
		if containsPlaceholder(s) {
			e.pipeStack = append(e.pipeStack, piped)
			defer func() { e.pipeStack = e.pipeStack[:len(e.pipeStack)-1] }()
			return e.evalCall(s, env)
		}
		name, ok := calleeName(s.Callee)
		if !ok {
			return value.Nil, errf("InvalidPipeStep", "pipe step callee is not a plain function name")
		}
		args, err := e.evalArgs(s.Args, env)
		if err != nil {
			return value.Nil, err
		}
		allArgs := append([]value.Value{piped}, args...)
		return e.callFunction(name, allArgs, env)
	default:
		return value.Nil, errf("InvalidPipeStep", "pipe steps must be a bare identifier or a call")
	}
}

func calleeName(n ast.Node) (string, bool) {
	if id, ok := n.(*ast.Identifier); ok {
		return id.Name, true
	}
	return "", false
}

// containsPlaceholder reports whether node contains a `_` placeholder
// anywhere in its (shallow but recursive) structure, used to decide whether
// a pipe step's args substitute the placeholder or prepend the piped value.
func containsPlaceholder(node ast.Node) bool {
	switch n := node.(type) {
	case *ast.Placeholder:
		return true
	case *ast.Call:
		for _, a := range n.Args {
			if containsPlaceholder(a) {
				return true
			}
		}
		return containsPlaceholder(n.Callee)
	case *ast.BinaryOp:
		return containsPlaceholder(n.Left) || containsPlaceholder(n.Right)
	case *ast.UnaryOp:
		return containsPlaceholder(n.Operand)
	case *ast.FieldAccess:
		return containsPlaceholder(n.Target)
	case *ast.SafeAccess:
		return containsPlaceholder(n.Target)
	case *ast.ListLit:
		for _, el := range n.Elements {
			if containsPlaceholder(el) {
				return true
			}
		}
		return false
	case *ast.NullCoalesce:
		return containsPlaceholder(n.Left) || containsPlaceholder(n.Right)
	default:
		return false
	}
}
