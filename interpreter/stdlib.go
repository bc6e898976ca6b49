package interpreter

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/edwardcox/bplplus-autoimport/ast"
)

// NativeModule is a module implemented in Go. Members is called once per
// interpreter, on first import.
type NativeModule struct {
	Name    string
	Doc     string
	Package bool
	Members func() map[string]Value
}

func (nm NativeModule) build() *Module {
	m := NewModule(nm.Name, nm.Doc)
	m.Package = nm.Package
	if nm.Members != nil {
		for k, v := range nm.Members() {
			m.Dict[k] = v
		}
	}
	return m
}

// NativeModuleNames returns the names of the Go-implemented modules.
func NativeModuleNames() []string {
	names := make([]string, 0, len(nativeModules))
	for _, nm := range nativeModules {
		names = append(names, nm.Name)
	}
	sort.Strings(names)
	return names
}

var nativeModules = []NativeModule{
	{Name: "math", Doc: "Mathematical constants and functions.", Members: mathMembers},
	{Name: "time", Doc: "Wall-clock time and sleeping.", Members: timeMembers},
	{Name: "os", Doc: "Process environment.", Package: true, Members: osMembers},
	{Name: "os.path", Doc: "File path manipulation.", Members: pathMembers},
	{Name: "encoding", Doc: "Data encodings.", Package: true},
	{Name: "encoding.json", Doc: "JSON encoding and decoding.", Members: codecMembers(json.Marshal, json.Unmarshal)},
	{Name: "encoding.yaml", Doc: "YAML encoding and decoding.", Members: codecMembers(yaml.Marshal, yaml.Unmarshal)},
}

func numArgs(in *Interpreter, name string, args []Value, n int, span ast.Span) ([]float64, error) {
	if len(args) != n {
		return nil, in.runtimeErr(span, fmt.Sprintf("%s() expects %d number args", name, n))
	}
	out := make([]float64, n)
	for idx, a := range args {
		if a.Kind != ValNumber {
			return nil, in.runtimeErr(span, fmt.Sprintf("%s() expects %d number args", name, n))
		}
		out[idx] = a.Number
	}
	return out, nil
}

func unaryMath(name string, f func(float64) float64) Value {
	return BuiltinValue(name, func(in *Interpreter, args []Value, span ast.Span) (Value, error) {
		xs, err := numArgs(in, name, args, 1, span)
		if err != nil {
			return Value{}, err
		}
		return NumberValue(f(xs[0])), nil
	})
}

func binaryMath(name string, f func(float64, float64) float64) Value {
	return BuiltinValue(name, func(in *Interpreter, args []Value, span ast.Span) (Value, error) {
		xs, err := numArgs(in, name, args, 2, span)
		if err != nil {
			return Value{}, err
		}
		return NumberValue(f(xs[0], xs[1])), nil
	})
}

func mathMembers() map[string]Value {
	return map[string]Value{
		"pi":    NumberValue(math.Pi),
		"e":     NumberValue(math.E),
		"floor": unaryMath("floor", math.Floor),
		"ceil":  unaryMath("ceil", math.Ceil),
		"round": unaryMath("round", math.Round),
		"sqrt":  unaryMath("sqrt", math.Sqrt),
		"abs":   unaryMath("abs", math.Abs),
		"pow":   binaryMath("pow", math.Pow),
		"min":   binaryMath("min", math.Min),
		"max":   binaryMath("max", math.Max),
	}
}

func timeMembers() map[string]Value {
	return map[string]Value{
		// seconds since the epoch, fractional
		"now": BuiltinValue("now", func(in *Interpreter, args []Value, span ast.Span) (Value, error) {
			if len(args) != 0 {
				return Value{}, in.runtimeErr(span, "now() expects no args")
			}
			return NumberValue(float64(time.Now().UnixNano()) / 1e9), nil
		}),
		"sleep": BuiltinValue("sleep", func(in *Interpreter, args []Value, span ast.Span) (Value, error) {
			xs, err := numArgs(in, "sleep", args, 1, span)
			if err != nil {
				return Value{}, err
			}
			time.Sleep(time.Duration(xs[0] * float64(time.Second)))
			return NullValue(), nil
		}),
		"format": BuiltinValue("format", func(in *Interpreter, args []Value, span ast.Span) (Value, error) {
			xs, err := numArgs(in, "format", args, 1, span)
			if err != nil {
				return Value{}, err
			}
			sec, frac := math.Modf(xs[0])
			return StringValue(time.Unix(int64(sec), int64(frac*1e9)).UTC().Format(time.RFC3339)), nil
		}),
	}
}

func stringArg(in *Interpreter, name string, args []Value, span ast.Span) (string, error) {
	if len(args) != 1 || args[0].Kind != ValString {
		return "", in.runtimeErr(span, name+"() expects 1 string arg")
	}
	return args[0].Str, nil
}

func osMembers() map[string]Value {
	return map[string]Value{
		"sep": StringValue(string(os.PathSeparator)),
		"getenv": BuiltinValue("getenv", func(in *Interpreter, args []Value, span ast.Span) (Value, error) {
			name, err := stringArg(in, "getenv", args, span)
			if err != nil {
				return Value{}, err
			}
			v, ok := os.LookupEnv(name)
			if !ok {
				return NullValue(), nil
			}
			return StringValue(v), nil
		}),
		"getcwd": BuiltinValue("getcwd", func(in *Interpreter, args []Value, span ast.Span) (Value, error) {
			wd, err := os.Getwd()
			if err != nil {
				return Value{}, in.runtimeErr(span, fmt.Sprintf("getcwd() failed: %v", err))
			}
			return StringValue(wd), nil
		}),
	}
}

func pathMembers() map[string]Value {
	str1 := func(name string, f func(string) string) Value {
		return BuiltinValue(name, func(in *Interpreter, args []Value, span ast.Span) (Value, error) {
			s, err := stringArg(in, name, args, span)
			if err != nil {
				return Value{}, err
			}
			return StringValue(f(s)), nil
		})
	}
	return map[string]Value{
		"base":  str1("base", filepath.Base),
		"dir":   str1("dir", filepath.Dir),
		"ext":   str1("ext", filepath.Ext),
		"clean": str1("clean", filepath.Clean),
		"join": BuiltinValue("join", func(in *Interpreter, args []Value, span ast.Span) (Value, error) {
			parts := make([]string, 0, len(args))
			for _, a := range args {
				if a.Kind != ValString {
					return Value{}, in.runtimeErr(span, "join() expects string args")
				}
				parts = append(parts, a.Str)
			}
			return StringValue(filepath.Join(parts...)), nil
		}),
		"exists": BuiltinValue("exists", func(in *Interpreter, args []Value, span ast.Span) (Value, error) {
			p, err := stringArg(in, "exists", args, span)
			if err != nil {
				return Value{}, err
			}
			_, statErr := os.Stat(p)
			return BoolValue(statErr == nil), nil
		}),
	}
}

func codecMembers(marshal func(any) ([]byte, error), unmarshal func([]byte, any) error) func() map[string]Value {
	return func() map[string]Value {
		return map[string]Value{
			"dumps": BuiltinValue("dumps", func(in *Interpreter, args []Value, span ast.Span) (Value, error) {
				if len(args) != 1 {
					return Value{}, in.runtimeErr(span, "dumps() expects 1 arg")
				}
				native, err := toNative(args[0])
				if err != nil {
					return Value{}, in.runtimeErr(span, "dumps(): "+err.Error())
				}
				out, err := marshal(native)
				if err != nil {
					return Value{}, in.runtimeErr(span, "dumps(): "+err.Error())
				}
				return StringValue(string(out)), nil
			}),
			"loads": BuiltinValue("loads", func(in *Interpreter, args []Value, span ast.Span) (Value, error) {
				src, err := stringArg(in, "loads", args, span)
				if err != nil {
					return Value{}, err
				}
				var native any
				if err := unmarshal([]byte(src), &native); err != nil {
					return Value{}, in.runtimeErr(span, "loads(): "+err.Error())
				}
				return fromNative(native)
			}),
		}
	}
}

// toNative converts data values to plain Go values for encoding.
func toNative(v Value) (any, error) {
	switch v.Kind {
	case ValNull:
		return nil, nil
	case ValNumber:
		if v.Number == math.Trunc(v.Number) && math.Abs(v.Number) < 1<<53 {
			return int64(v.Number), nil
		}
		return v.Number, nil
	case ValString:
		return v.Str, nil
	case ValBool:
		return v.Bool, nil
	case ValArray:
		out := make([]any, 0, len(v.arrayElems()))
		for _, el := range v.arrayElems() {
			n, err := toNative(el)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		}
		return out, nil
	case ValMap:
		out := make(map[string]any, len(v.mapElems()))
		for k, el := range v.mapElems() {
			n, err := toNative(el)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	default:
		return nil, fmt.Errorf("cannot encode %s", v.TypeName())
	}
}

func fromNative(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return NullValue(), nil
	case bool:
		return BoolValue(t), nil
	case string:
		return StringValue(t), nil
	case int:
		return NumberValue(float64(t)), nil
	case int64:
		return NumberValue(float64(t)), nil
	case uint64:
		return NumberValue(float64(t)), nil
	case float64:
		return NumberValue(t), nil
	case []any:
		out := make([]Value, 0, len(t))
		for _, el := range t {
			v, err := fromNative(el)
			if err != nil {
				return Value{}, err
			}
			out = append(out, v)
		}
		return ArrayValue(out), nil
	case map[string]any:
		out := make(map[string]Value, len(t))
		for k, el := range t {
			v, err := fromNative(el)
			if err != nil {
				return Value{}, err
			}
			out[k] = v
		}
		return MapValue(out), nil
	case map[any]any:
		out := make(map[string]Value, len(t))
		for k, el := range t {
			v, err := fromNative(el)
			if err != nil {
				return Value{}, err
			}
			out[fmt.Sprint(k)] = v
		}
		return MapValue(out), nil
	default:
		return Value{}, fmt.Errorf("cannot decode %T", x)
	}
}
