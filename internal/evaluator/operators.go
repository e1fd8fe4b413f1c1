package evaluator

import (
	"codenerd/internal/ast"
	"codenerd/internal/environment"
	"codenerd/internal/value"
)

func (e *Evaluator) evalBinaryOp(n *ast.BinaryOp, env *environment.Environment) (value.Value, error) {
	left, err := e.Eval(n.Left, env)
	if err != nil {
		return value.Nil, err
	}
	right, err := e.Eval(n.Right, env)
	if err != nil {
		return value.Nil, err
	}

	switch n.Op {
	case "==":
		return value.Bool(value.Equal(left, right)), nil
	case "!=":
		return value.Bool(!value.Equal(left, right)), nil
	case "&&":
		// Both sides are evaluated unconditionally above; short-circuiting
		// is not guaranteed at this layer (spec.md §4.1, §9 open question).
		return value.Bool(left.Truthy() && right.Truthy()), nil
	case "||":
		return value.Bool(left.Truthy() || right.Truthy()), nil
	case "++":
		return value.String(value.Display(left) + value.Display(right)), nil
	case "+", "-", "*", "/", "%":
		return evalArith(n.Op, left, right)
	case "<", ">", "<=", ">=":
		return evalCompare(n.Op, left, right)
	}
	return value.Nil, errf("UnknownOperator", "unknown binary operator %q", n.Op)
}

func evalArith(op string, left, right value.Value) (value.Value, error) {
	li, lIsInt := left.Int()
	ri, rIsInt := right.Int()
	if lIsInt && rIsInt {
		if (op == "/" || op == "%") && ri == 0 {
			return value.Nil, errf("DivisionByZero", "division by zero")
		}
		switch op {
		case "+":
			return value.Int(li + ri), nil
		case "-":
			return value.Int(li - ri), nil
		case "*":
			return value.Int(li * ri), nil
		case "/":
			return value.Int(li / ri), nil
		case "%":
			return value.Int(li % ri), nil
		}
	}

	lf, lok := asFloat(left)
	rf, rok := asFloat(right)
	if !lok || !rok {
		return value.Nil, errf("TypeMismatch", "arithmetic requires Int or Float operands, got %s and %s", left.Kind(), right.Kind())
	}
	if op == "/" && rf == 0 {
		return value.Nil, errf("DivisionByZero", "division by zero")
	}
	switch op {
	case "+":
		return value.Float(lf + rf), nil
	case "-":
		return value.Float(lf - rf), nil
	case "*":
		return value.Float(lf * rf), nil
	case "/":
		return value.Float(lf / rf), nil
	case "%":
		return value.Nil, errf("TypeMismatch", "%% is only defined for Int operands")
	}
	return value.Nil, errf("UnknownOperator", "unknown arithmetic operator %q", op)
}

func asFloat(v value.Value) (float64, bool) {
	if f, ok := v.Float(); ok {
		return f, true
	}
	if i, ok := v.Int(); ok {
		return float64(i), true
	}
	return 0, false
}

// evalCompare implements spec.md §4.1: "comparisons are defined for Int,
// Int and String, String".
func evalCompare(op string, left, right value.Value) (value.Value, error) {
	if li, lok := left.Int(); lok {
		if ri, rok := right.Int(); rok {
			return value.Bool(compareOrdered(op, li, ri)), nil
		}
	}
	if left.Kind() == value.KindString && right.Kind() == value.KindString {
		return value.Bool(compareOrdered(op, left.String(), right.String())), nil
	}
	return value.Nil, errf("NotComparable", "comparison %q is only defined for Int,Int or String,String, got %s and %s", op, left.Kind(), right.Kind())
}

func compareOrdered[T int64 | string](op string, a, b T) bool {
	switch op {
	case "<":
		return a < b
	case ">":
		return a > b
	case "<=":
		return a <= b
	case ">=":
		return a >= b
	}
	return false
}

func (e *Evaluator) evalUnaryOp(n *ast.UnaryOp, env *environment.Environment) (value.Value, error) {
	operand, err := e.Eval(n.Operand, env)
	if err != nil {
		return value.Nil, err
	}
	switch n.Op {
	case "-":
		if i, ok := operand.Int(); ok {
			return value.Int(-i), nil
		}
		if f, ok := operand.Float(); ok {
			return value.Float(-f), nil
		}
		return value.Nil, errf("TypeMismatch", "unary '-' requires Int or Float, got %s", operand.Kind())
	case "!":
		return value.Bool(!operand.Truthy()), nil
	}
	return value.Nil, errf("UnknownOperator", "unknown unary operator %q", n.Op)
}
