package interpreter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/edwardcox/bplplus-autoimport/ast"
)

type ValueKind int

const (
	ValNull ValueKind = iota
	ValNumber
	ValString
	ValBool
	ValArray
	ValMap
	ValFunc
	ValBuiltin
	ValObject
)

// ArrayObject gives arrays reference semantics.
type ArrayObject struct {
	Elems []Value
}

// MapObject gives maps reference semantics.
type MapObject struct {
	Elems map[string]Value
}

// Function is a user-defined function. Free variables in its body resolve
// through Scope, the module it was defined in.
type Function struct {
	Decl  *ast.FunctionDecl
	Scope *Module
}

// BuiltinFunc is a native function. The interpreter is passed for helpers
// that need runtime context (stdin, error spans).
type BuiltinFunc func(in *Interpreter, args []Value, span ast.Span) (Value, error)

type Builtin struct {
	Name string
	Fn   BuiltinFunc
}

// Object is a value with attributes. Modules implement it; so can wrappers
// that forward to a module.
type Object interface {
	TypeName() string
	GetAttr(name string) (Value, error)
	SetAttr(name string, v Value) error
	// Attrs returns the live attribute table.
	Attrs() map[string]Value
}

// Documented objects expose a help text.
type Documented interface {
	Doc() string
}

type Value struct {
	Kind    ValueKind
	Number  float64
	Str     string
	Bool    bool
	Arr     *ArrayObject
	Map     *MapObject
	Fn      *Function
	Builtin *Builtin
	Obj     Object
}

func NullValue() Value            { return Value{Kind: ValNull} }
func NumberValue(n float64) Value { return Value{Kind: ValNumber, Number: n} }
func StringValue(s string) Value  { return Value{Kind: ValString, Str: s} }
func BoolValue(b bool) Value      { return Value{Kind: ValBool, Bool: b} }
func ArrayValue(elems []Value) Value {
	return Value{Kind: ValArray, Arr: &ArrayObject{Elems: elems}}
}
func MapValue(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{Kind: ValMap, Map: &MapObject{Elems: m}}
}
func FuncValue(fn *Function) Value { return Value{Kind: ValFunc, Fn: fn} }
func BuiltinValue(name string, fn BuiltinFunc) Value {
	return Value{Kind: ValBuiltin, Builtin: &Builtin{Name: name, Fn: fn}}
}
func ObjectValue(o Object) Value { return Value{Kind: ValObject, Obj: o} }

// Module returns the module held by v, if any.
func (v Value) Module() (*Module, bool) {
	if v.Kind != ValObject {
		return nil, false
	}
	m, ok := v.Obj.(*Module)
	return m, ok
}

func (v Value) arrayElems() []Value {
	if v.Kind != ValArray || v.Arr == nil {
		return nil
	}
	return v.Arr.Elems
}

func (v Value) mapElems() map[string]Value {
	if v.Kind != ValMap || v.Map == nil {
		return nil
	}
	return v.Map.Elems
}

// TypeName is the user-visible type tag returned by type().
func (v Value) TypeName() string {
	switch v.Kind {
	case ValNumber:
		return "number"
	case ValString:
		return "string"
	case ValBool:
		return "bool"
	case ValArray:
		return "array"
	case ValMap:
		return "map"
	case ValFunc:
		return "function"
	case ValBuiltin:
		return "builtin"
	case ValObject:
		if v.Obj == nil {
			return "null"
		}
		return v.Obj.TypeName()
	default:
		return "null"
	}
}

func (v Value) ToString() string {
	switch v.Kind {
	case ValNumber:
		if v.Number == float64(int64(v.Number)) {
			return fmt.Sprintf("%d", int64(v.Number))
		}
		return fmt.Sprintf("%g", v.Number)

	case ValString:
		return v.Str

	case ValBool:
		if v.Bool {
			return "true"
		}
		return "false"

	case ValArray:
		elems := v.arrayElems()
		var b strings.Builder
		b.WriteString("[")
		for idx, el := range elems {
			if idx > 0 {
				b.WriteString(", ")
			}
			b.WriteString(el.Repr())
		}
		b.WriteString("]")
		return b.String()

	case ValMap:
		m := v.mapElems()
		if m == nil {
			return "{}"
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var b strings.Builder
		b.WriteString("{")
		for idx, k := range keys {
			if idx > 0 {
				b.WriteString(", ")
			}
			b.WriteString(fmt.Sprintf("%q: %s", k, m[k].Repr()))
		}
		b.WriteString("}")
		return b.String()

	case ValFunc:
		return fmt.Sprintf("<function %s>", v.Fn.Decl.Name)

	case ValBuiltin:
		return fmt.Sprintf("<builtin %s>", v.Builtin.Name)

	case ValObject:
		if v.Obj == nil {
			return "null"
		}
		if s, ok := v.Obj.(fmt.Stringer); ok {
			return s.String()
		}
		return fmt.Sprintf("<%s>", v.Obj.TypeName())

	default:
		return "null"
	}
}

// Repr quotes strings; everything else renders like ToString.
func (v Value) Repr() string {
	if v.Kind == ValString {
		return fmt.Sprintf("%q", v.Str)
	}
	return v.ToString()
}
