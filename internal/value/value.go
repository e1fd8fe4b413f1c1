// Package value implements the tagged value universe AURA programs evaluate
// to. It mirrors the teacher's own habit of hand-rolling tagged unions over
// native Go types (see internal/core/kernel_types.go's term tagging) rather
// than reaching for reflection-based variant libraries.
package value

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind discriminates the tag of a Value.
type Kind int

const (
	KindNil Kind = iota
	KindInt
	KindFloat
	KindString
	KindBool
	KindList
	KindRecord
	KindFunction
	KindNative
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindRecord:
		return "record"
	case KindFunction:
		return "function"
	case KindNative:
		return "native"
	default:
		return "unknown"
	}
}

// Native is the escape hatch for foreign resources (e.g. a database
// connection handle). It never owns the underlying resource — a separate,
// explicitly-owned registry does (see internal/capability.DBRegistry).
type Native struct {
	TypeID string
	Handle uint64
}

// Value is the tagged sum described in spec.md §3. Exactly one of the
// payload fields is meaningful, selected by Kind.
type Value struct {
	kind   Kind
	i      int64
	f      float64
	s      string
	b      bool
	list   []Value
	record map[string]Value
	fn     string
	native Native
}

// Nil is the canonical Nil value.
var Nil = Value{kind: KindNil}

func Int(i int64) Value      { return Value{kind: KindInt, i: i} }
func Float(f float64) Value  { return Value{kind: KindFloat, f: f} }
func String(s string) Value  { return Value{kind: KindString, s: s} }
func Bool(b bool) Value      { return Value{kind: KindBool, b: b} }
func List(vs []Value) Value  { return Value{kind: KindList, list: vs} }
func Function(name string) Value {
	return Value{kind: KindFunction, fn: name}
}
func NativeValue(typeID string, handle uint64) Value {
	return Value{kind: KindNative, native: Native{TypeID: typeID, Handle: handle}}
}

// Record builds a record value from a mapping; insertion order is not
// preserved (spec.md §3), so a plain map suffices.
func Record(fields map[string]Value) Value {
	if fields == nil {
		fields = map[string]Value{}
	}
	return Value{kind: KindRecord, record: fields}
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNil() bool { return v.kind == KindNil }

func (v Value) Int() (int64, bool)       { return v.i, v.kind == KindInt }
func (v Value) Float() (float64, bool)   { return v.f, v.kind == KindFloat }
func (v Value) String() string           { return v.s }
func (v Value) Bool() (bool, bool)       { return v.b, v.kind == KindBool }
func (v Value) List() ([]Value, bool)    { return v.list, v.kind == KindList }
func (v Value) FunctionName() (string, bool) {
	return v.fn, v.kind == KindFunction
}
func (v Value) Native() (Native, bool) { return v.native, v.kind == KindNative }

// Field returns a record field and whether it was present. Calling Field on
// a non-record value returns (Nil, false).
func (v Value) Field(name string) (Value, bool) {
	if v.kind != KindRecord {
		return Nil, false
	}
	f, ok := v.record[name]
	return f, ok
}

// Fields returns the record's field names in sorted order, for stable
// iteration (the record mapping itself makes no insertion-order guarantee).
func (v Value) Fields() []string {
	if v.kind != KindRecord {
		return nil
	}
	names := make([]string, 0, len(v.record))
	for k := range v.record {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Truthy implements spec.md §4.1's If truthiness rule.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNil:
		return false
	case KindBool:
		return v.b
	case KindInt:
		return v.i != 0
	case KindString:
		return v.s != ""
	case KindList:
		return len(v.list) != 0
	default:
		return true
	}
}

// Equal implements spec.md §3's structural equality.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		// Int/Float cross-kind equality is not defined; spec.md leaves
		// comparisons to Int,Int and String,String, so mixed kinds are
		// simply unequal.
		return false
	}
	switch a.kind {
	case KindNil:
		return true
	case KindInt:
		return a.i == b.i
	case KindFloat:
		return a.f == b.f
	case KindString:
		return a.s == b.s
	case KindBool:
		return a.b == b.b
	case KindList:
		if len(a.list) != len(b.list) {
			return false
		}
		for i := range a.list {
			if !Equal(a.list[i], b.list[i]) {
				return false
			}
		}
		return true
	case KindRecord:
		if len(a.record) != len(b.record) {
			return false
		}
		for k, av := range a.record {
			bv, ok := b.record[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	case KindFunction:
		return a.fn == b.fn
	case KindNative:
		return a.native == b.native
	default:
		return false
	}
}

// Display renders a value's canonical textual form, used by string
// interpolation and the CLI.
func Display(v Value) string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return v.s
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindList:
		parts := make([]string, len(v.list))
		for i, e := range v.list {
			parts[i] = Display(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindRecord:
		names := v.Fields()
		parts := make([]string, len(names))
		for i, n := range names {
			parts[i] = fmt.Sprintf("%s: %s", n, Display(v.record[n]))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindFunction:
		return "<function " + v.fn + ">"
	case KindNative:
		return fmt.Sprintf("<native %s:%d>", v.native.TypeID, v.native.Handle)
	default:
		return "<unknown>"
	}
}
