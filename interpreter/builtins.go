package interpreter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/edwardcox/bplplus-autoimport/ast"
)

var builtins map[string]Value

func init() {
	builtins = map[string]Value{}
	for name, fn := range map[string]BuiltinFunc{
		// core
		"str":   builtinStr,
		"num":   builtinNum,
		"len":   builtinLen,
		"input": builtinInput,
		"vars":  builtinVars,
		"type":  builtinType,
		"help":  builtinHelp,
		"keys":  builtinKeys,

		// strings
		"lower":       builtinLower,
		"upper":       builtinUpper,
		"trim":        trimFunc("trim", strings.TrimSpace, strings.Trim),
		"ltrim":       trimFunc("ltrim", func(s string) string { return strings.TrimLeftFunc(s, unicode.IsSpace) }, strings.TrimLeft),
		"rtrim":       trimFunc("rtrim", func(s string) string { return strings.TrimRightFunc(s, unicode.IsSpace) }, strings.TrimRight),
		"contains":    stringPredicate("contains", "sub", strings.Contains),
		"startswith":  stringPredicate("startswith", "prefix", strings.HasPrefix),
		"endswith":    stringPredicate("endswith", "suffix", strings.HasSuffix),
		"replace":     builtinReplace,
		"split":       builtinSplit,
		"join":        builtinJoin,
		"indexof":     builtinIndexOf,
		"lastindexof": builtinLastIndexOf,
		"repeat":      builtinRepeat,
		"substr":      builtinSubstr,
	} {
		builtins[name] = BuiltinValue(name, fn)
	}
}

// LookupBuiltin returns the builtin bound to name. Builtins are consulted
// after every namespace, so user bindings shadow them.
func LookupBuiltin(name string) (Value, bool) {
	v, ok := builtins[name]
	return v, ok
}

// BuiltinNames returns the sorted builtin names.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// --- core ---

func builtinStr(in *Interpreter, args []Value, span ast.Span) (Value, error) {
	if len(args) != 1 {
		return Value{}, in.runtimeErr(span, "str() expects 1 arg")
	}
	return StringValue(args[0].ToString()), nil
}

func builtinNum(in *Interpreter, args []Value, span ast.Span) (Value, error) {
	if len(args) != 1 {
		return Value{}, in.runtimeErr(span, "num() expects 1 arg")
	}
	if args[0].Kind == ValNumber {
		return args[0], nil
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(args[0].ToString()), 64)
	if err != nil {
		return Value{}, in.runtimeErr(span, fmt.Sprintf("num() could not parse %q", args[0].ToString()))
	}
	return NumberValue(n), nil
}

func builtinLen(in *Interpreter, args []Value, span ast.Span) (Value, error) {
	if len(args) != 1 {
		return Value{}, in.runtimeErr(span, "len() expects 1 arg")
	}
	switch args[0].Kind {
	case ValString:
		return NumberValue(float64(runeLen(args[0].Str))), nil
	case ValArray:
		return NumberValue(float64(len(args[0].arrayElems()))), nil
	case ValMap:
		return NumberValue(float64(len(args[0].mapElems()))), nil
	default:
		return Value{}, in.runtimeErr(span, "len() expects a string, array, or map")
	}
}

func builtinInput(in *Interpreter, args []Value, span ast.Span) (Value, error) {
	if len(args) > 1 {
		return Value{}, in.runtimeErr(span, "input() expects 0 or 1 args")
	}
	if len(args) == 1 {
		fmt.Fprint(in.out, args[0].ToString())
	}
	line, _ := in.in.ReadString('\n')
	return StringValue(strings.TrimRight(line, "\r\n")), nil
}

// vars() returns a copy of the bindings visible at the call site; vars(obj)
// returns the object's live attribute table.
func builtinVars(in *Interpreter, args []Value, span ast.Span) (Value, error) {
	if len(args) > 1 {
		return Value{}, in.runtimeErr(span, "vars() expects 0 or 1 args")
	}
	if len(args) == 1 {
		if args[0].Kind != ValObject || args[0].Obj == nil {
			return Value{}, in.runtimeErr(span, "vars() argument must have attributes")
		}
		return MapValue(args[0].Obj.Attrs()), nil
	}
	f := in.top()
	if f.locals != nil {
		return MapValue(copyVars(f.locals)), nil
	}
	return MapValue(f.ns.Snapshot()), nil
}

func builtinType(in *Interpreter, args []Value, span ast.Span) (Value, error) {
	if len(args) != 1 {
		return Value{}, in.runtimeErr(span, "type() expects 1 arg")
	}
	return StringValue(args[0].TypeName()), nil
}

func builtinHelp(in *Interpreter, args []Value, span ast.Span) (Value, error) {
	if len(args) != 1 {
		return Value{}, in.runtimeErr(span, "help() expects 1 arg")
	}
	v := args[0]
	switch v.Kind {
	case ValFunc:
		return StringValue(fmt.Sprintf("function %s(%s)", v.Fn.Decl.Name, strings.Join(v.Fn.Decl.Params, ", "))), nil
	case ValBuiltin:
		return StringValue(fmt.Sprintf("builtin %s()", v.Builtin.Name)), nil
	case ValObject:
		if d, ok := v.Obj.(Documented); ok && d.Doc() != "" {
			return StringValue(d.Doc()), nil
		}
		return StringValue(v.ToString()), nil
	default:
		return StringValue(v.TypeName()), nil
	}
}

// keys() lists map keys or object attributes, sorted.
func builtinKeys(in *Interpreter, args []Value, span ast.Span) (Value, error) {
	if len(args) != 1 {
		return Value{}, in.runtimeErr(span, "keys() expects 1 arg")
	}
	var m map[string]Value
	switch args[0].Kind {
	case ValMap:
		m = args[0].mapElems()
	case ValObject:
		m = args[0].Obj.Attrs()
	default:
		return Value{}, in.runtimeErr(span, "keys() expects a map or module")
	}
	out := make([]Value, 0, len(m))
	for _, k := range sortedKeys(m) {
		out = append(out, StringValue(k))
	}
	return ArrayValue(out), nil
}

func copyVars(m map[string]Value) map[string]Value {
	out := make(map[string]Value, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// --- strings ---

func builtinLower(in *Interpreter, args []Value, span ast.Span) (Value, error) {
	if len(args) != 1 || args[0].Kind != ValString {
		return Value{}, in.runtimeErr(span, "lower() expects 1 string arg")
	}
	return StringValue(strings.ToLower(args[0].Str)), nil
}

func builtinUpper(in *Interpreter, args []Value, span ast.Span) (Value, error) {
	if len(args) != 1 || args[0].Kind != ValString {
		return Value{}, in.runtimeErr(span, "upper() expects 1 string arg")
	}
	return StringValue(strings.ToUpper(args[0].Str)), nil
}

func trimFunc(name string, space func(string) string, cut func(string, string) string) BuiltinFunc {
	return func(in *Interpreter, args []Value, span ast.Span) (Value, error) {
		if len(args) != 1 && len(args) != 2 {
			return Value{}, in.runtimeErr(span, fmt.Sprintf("%s() expects 1 or 2 args: %s(s [,cutset])", name, name))
		}
		if args[0].Kind != ValString {
			return Value{}, in.runtimeErr(span, name+"() first arg must be a string")
		}
		if len(args) == 1 {
			return StringValue(space(args[0].Str)), nil
		}
		if args[1].Kind != ValString {
			return Value{}, in.runtimeErr(span, name+"() cutset must be a string")
		}
		return StringValue(cut(args[0].Str, args[1].Str)), nil
	}
}

func stringPredicate(name, second string, pred func(string, string) bool) BuiltinFunc {
	return func(in *Interpreter, args []Value, span ast.Span) (Value, error) {
		if len(args) != 2 || args[0].Kind != ValString || args[1].Kind != ValString {
			return Value{}, in.runtimeErr(span, fmt.Sprintf("%s() expects 2 string args: %s(s, %s)", name, name, second))
		}
		return BoolValue(pred(args[0].Str, args[1].Str)), nil
	}
}

func builtinReplace(in *Interpreter, args []Value, span ast.Span) (Value, error) {
	if len(args) != 3 && len(args) != 4 {
		return Value{}, in.runtimeErr(span, "replace() expects 3 or 4 args: replace(s, old, new [,n])")
	}
	if args[0].Kind != ValString || args[1].Kind != ValString || args[2].Kind != ValString {
		return Value{}, in.runtimeErr(span, "replace() expects string args for s/old/new")
	}
	n := -1
	if len(args) == 4 {
		if args[3].Kind != ValNumber {
			return Value{}, in.runtimeErr(span, "replace() n must be a number")
		}
		n = int(args[3].Number)
	}
	return StringValue(strings.Replace(args[0].Str, args[1].Str, args[2].Str, n)), nil
}

func builtinSplit(in *Interpreter, args []Value, span ast.Span) (Value, error) {
	if len(args) != 2 || args[0].Kind != ValString || args[1].Kind != ValString {
		return Value{}, in.runtimeErr(span, "split() expects 2 string args: split(s, sep)")
	}
	parts := strings.Split(args[0].Str, args[1].Str)
	out := make([]Value, 0, len(parts))
	for _, p := range parts {
		out = append(out, StringValue(p))
	}
	return ArrayValue(out), nil
}

func builtinJoin(in *Interpreter, args []Value, span ast.Span) (Value, error) {
	if len(args) != 2 {
		return Value{}, in.runtimeErr(span, "join() expects 2 args: join(array, sep)")
	}
	if args[0].Kind != ValArray || args[0].Arr == nil {
		return Value{}, in.runtimeErr(span, "join() first arg must be an array")
	}
	if args[1].Kind != ValString {
		return Value{}, in.runtimeErr(span, "join() sep must be a string")
	}
	elems := args[0].Arr.Elems
	ss := make([]string, 0, len(elems))
	for _, v := range elems {
		ss = append(ss, v.ToString())
	}
	return StringValue(strings.Join(ss, args[1].Str)), nil
}

func builtinIndexOf(in *Interpreter, args []Value, span ast.Span) (Value, error) {
	if len(args) != 2 || args[0].Kind != ValString || args[1].Kind != ValString {
		return Value{}, in.runtimeErr(span, "indexof() expects 2 string args: indexof(s, sub)")
	}
	return NumberValue(float64(runeIndexOf(args[0].Str, args[1].Str))), nil
}

func builtinLastIndexOf(in *Interpreter, args []Value, span ast.Span) (Value, error) {
	if len(args) != 2 || args[0].Kind != ValString || args[1].Kind != ValString {
		return Value{}, in.runtimeErr(span, "lastindexof() expects 2 string args: lastindexof(s, sub)")
	}
	return NumberValue(float64(runeLastIndexOf(args[0].Str, args[1].Str))), nil
}

func builtinRepeat(in *Interpreter, args []Value, span ast.Span) (Value, error) {
	if len(args) != 2 || args[0].Kind != ValString || args[1].Kind != ValNumber {
		return Value{}, in.runtimeErr(span, "repeat() expects (string, number): repeat(s, n)")
	}
	n := int(args[1].Number)
	if n < 0 {
		return Value{}, in.runtimeErr(span, "repeat() n must be >= 0")
	}
	return StringValue(strings.Repeat(args[0].Str, n)), nil
}

func builtinSubstr(in *Interpreter, args []Value, span ast.Span) (Value, error) {
	if len(args) != 2 && len(args) != 3 {
		return Value{}, in.runtimeErr(span, "substr() expects 2 or 3 args: substr(s, start [,len])")
	}
	if args[0].Kind != ValString || args[1].Kind != ValNumber {
		return Value{}, in.runtimeErr(span, "substr() expects (string, number [,number])")
	}
	start := int(args[1].Number)
	if args[1].Number != float64(start) {
		return Value{}, in.runtimeErr(span, "substr() start must be an integer")
	}
	var length *int
	if len(args) == 3 {
		if args[2].Kind != ValNumber {
			return Value{}, in.runtimeErr(span, "substr() len must be a number")
		}
		l := int(args[2].Number)
		if args[2].Number != float64(l) {
			return Value{}, in.runtimeErr(span, "substr() len must be an integer")
		}
		length = &l
	}
	out, ok := substrRunes(args[0].Str, start, length)
	if !ok {
		return Value{}, in.runtimeErr(span, "substr() out of range")
	}
	return StringValue(out), nil
}
