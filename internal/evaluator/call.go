package evaluator

import (
	"time"

	"codenerd/internal/ast"
	"codenerd/internal/cognitive"
	"codenerd/internal/environment"
	"codenerd/internal/value"
)

func funcReturnedObservation(name string, v value.Value) cognitive.Observation {
	return cognitive.Observation{Kind: cognitive.ObsFunctionReturned, Name: name, Value: v, Timestamp: time.Now()}
}

func (e *Evaluator) evalCall(n *ast.Call, env *environment.Environment) (value.Value, error) {
	if fa, ok := n.Callee.(*ast.FieldAccess); ok {
		if ident, ok := fa.Target.(*ast.Identifier); ok && e.isCapabilityBundle(ident.Name) {
			if fn, ok := e.Capabilities.Lookup(ident.Name, fa.Field); ok {
				args, err := e.evalArgs(n.Args, env)
				if err != nil {
					return value.Nil, err
				}
				v, err := fn(args)
				if err != nil {
					return value.Nil, &RuntimeError{Message: err.Error(), Kind: "CapabilityError"}
				}
				return v, nil
			}
			return value.Nil, errf("UnknownCapability", "unknown capability: %s.%s", ident.Name, fa.Field)
		}
	}

	calleeVal, err := e.Eval(n.Callee, env)
	if err != nil {
		return value.Nil, err
	}
	name, ok := calleeVal.FunctionName()
	if !ok {
		return value.Nil, errf("NotCallable", "value is not callable")
	}

	args, err := e.evalArgs(n.Args, env)
	if err != nil {
		return value.Nil, err
	}
	return e.callFunction(name, args, env)
}

func (e *Evaluator) evalArgs(nodes []ast.Node, env *environment.Environment) ([]value.Value, error) {
	args := make([]value.Value, 0, len(nodes))
	for _, a := range nodes {
		v, err := e.Eval(a, env)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return args, nil
}

func (e *Evaluator) callFunction(name string, args []value.Value, callerEnv *environment.Environment) (value.Value, error) {
	fd, ok := callerEnv.GetFunction(name)
	if !ok {
		if td, ok := callerEnv.GetType(name); ok {
			return e.constructType(td, args)
		}
		return value.Nil, errf("UndefinedFunction", "function not defined: %s", name)
	}
	if len(args) != len(fd.Params) {
		return value.Nil, errf("ArityMismatch", "%s expects %d argument(s), got %d", name, len(fd.Params), len(args))
	}

	callScope := callerEnv.Child()
	for i, p := range fd.Params {
		callScope.Define(p, args[i])
	}

	result, err := e.Eval(fd.Body, callScope)
	if err != nil {
		return value.Nil, err
	}
	if e.Cognitive.IsActive() {
		e.Cognitive.Observe(funcReturnedObservation(name, result))
	}
	return result, nil
}

// constructType builds a record value from a type's declared field order,
// used when a type name is invoked as a constructor (spec.md §4.1:
// Identifier resolution falls through to types "also Function(name) used
// as constructor").
func (e *Evaluator) constructType(td *ast.TypeDef, args []value.Value) (value.Value, error) {
	if len(args) != len(td.Fields) {
		return value.Nil, errf("ArityMismatch", "%s constructor expects %d field(s), got %d", td.Name, len(td.Fields), len(args))
	}
	fields := make(map[string]value.Value, len(td.Fields))
	for i, f := range td.Fields {
		fields[f] = args[i]
	}
	return value.Record(fields), nil
}

func (e *Evaluator) isCapabilityBundle(name string) bool {
	return e.Capabilities != nil && e.Imports[name]
}
