// interpreter/interpreter.go
package interpreter

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/edwardcox/bplplus-autoimport/ast"
)

type moduleState int

const (
	modNone moduleState = iota
	modLoading
	modLoaded
)

// MainModule is the name of the REPL's execution scope.
const MainModule = "__main__"

// frame is one level of execution. Top-level code (REPL chunks, module
// bodies) binds through ns; function bodies bind into locals and read free
// variables from scope.
type frame struct {
	ns     Namespace
	locals map[string]Value
	scope  *Module
	// pkg is the package relative imports resolve against.
	pkg string
}

type Interpreter struct {
	main   *Module
	base   frame
	frames []*frame

	in  *bufio.Reader
	out io.Writer
	log *zap.Logger

	filename string
	lines    []string

	callStack []string

	modules     map[string]*Module
	moduleState map[string]moduleState
	moduleStack []string
	searchPath  []string
	natives     map[string]NativeModule

	// files run via `import "path"`, keyed by resolved path
	included map[string]moduleState
}

type Option func(*Interpreter)

// WithSearchPath sets the directories source modules are looked up in.
func WithSearchPath(dirs ...string) Option {
	return func(i *Interpreter) { i.searchPath = append([]string(nil), dirs...) }
}

func WithStdout(w io.Writer) Option {
	return func(i *Interpreter) { i.out = w }
}

func WithStdin(r io.Reader) Option {
	return func(i *Interpreter) { i.in = bufio.NewReader(r) }
}

func WithLogger(l *zap.Logger) Option {
	return func(i *Interpreter) {
		if l != nil {
			i.log = l
		}
	}
}

func NewWithSource(filename string, source string, opts ...Option) *Interpreter {
	i := &Interpreter{
		main:        NewModule(MainModule, ""),
		frames:      []*frame{},
		in:          bufio.NewReader(os.Stdin),
		out:         os.Stdout,
		log:         zap.NewNop(),
		filename:    filename,
		lines:       splitLines(source),
		callStack:   []string{},
		modules:     map[string]*Module{},
		moduleState: map[string]moduleState{},
		moduleStack: []string{},
		searchPath:  []string{".", "lib"},
		natives:     map[string]NativeModule{},
		included:    map[string]moduleState{},
	}
	for _, nm := range nativeModules {
		i.natives[nm.Name] = nm
	}
	i.modules[MainModule] = i.main
	i.moduleState[MainModule] = modLoaded
	i.base = frame{ns: NewMapNamespace(i.main.Dict), scope: i.main}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func New(opts ...Option) *Interpreter { return NewWithSource("", "", opts...) }

// Namespace returns the namespace top-level REPL code runs against.
func (i *Interpreter) Namespace() Namespace { return i.base.ns }

// SetNamespace swaps the REPL namespace. nil restores a plain namespace over
// the main module.
func (i *Interpreter) SetNamespace(ns Namespace) {
	if ns == nil {
		ns = NewMapNamespace(i.main.Dict)
	}
	i.base.ns = ns
}

// Scope is the main module: the object function bodies defined at the REPL
// resolve free variables through.
func (i *Interpreter) Scope() *Module { return i.main }

func (i *Interpreter) top() *frame {
	if n := len(i.frames); n > 0 {
		return i.frames[n-1]
	}
	return &i.base
}

func (i *Interpreter) pushFrame(f *frame) { i.frames = append(i.frames, f) }
func (i *Interpreter) popFrame()          { i.frames = i.frames[:len(i.frames)-1] }

// frameNamespace is where import statements and assignments bind in f.
func frameNamespace(f *frame) Namespace {
	if f.locals != nil {
		return NewMapNamespace(f.locals)
	}
	return f.ns
}

func (i *Interpreter) lookup(name string) (Value, error) {
	f := i.top()
	if f.locals != nil {
		if v, ok := f.locals[name]; ok {
			return v, nil
		}
		if v, ok := f.scope.Dict[name]; ok {
			return v, nil
		}
	} else {
		v, err := f.ns.Get(name)
		if err == nil {
			return v, nil
		}
		var ne *NameError
		if !errors.As(err, &ne) {
			return Value{}, err
		}
	}
	if b, ok := LookupBuiltin(name); ok {
		return b, nil
	}
	return Value{}, &NameError{Name: name}
}

func (i *Interpreter) assign(name string, v Value) error {
	f := i.top()
	if f.locals != nil {
		f.locals[name] = v
		return nil
	}
	return f.ns.Set(name, v)
}

func (i *Interpreter) unbind(name string) error {
	f := i.top()
	if f.locals != nil {
		if _, ok := f.locals[name]; !ok {
			return &NameError{Name: name}
		}
		delete(f.locals, name)
		return nil
	}
	return f.ns.Delete(name)
}

func (i *Interpreter) Run(stmts []ast.Stmt) error {
	for _, s := range stmts {
		if err := i.execStmt(s); err != nil {
			return err
		}
	}
	return nil
}

// RunChunk runs a REPL chunk. When the last statement is an expression its
// value is returned with ok set, so the caller can echo it.
func (i *Interpreter) RunChunk(stmts []ast.Stmt) (Value, bool, error) {
	if len(stmts) == 0 {
		return Value{}, false, nil
	}
	last, isExpr := stmts[len(stmts)-1].(*ast.ExprStmt)
	if !isExpr {
		return Value{}, false, i.Run(stmts)
	}
	if err := i.Run(stmts[:len(stmts)-1]); err != nil {
		return Value{}, false, err
	}
	v, err := i.evalExpr(last.Expr)
	if err != nil {
		return Value{}, false, err
	}
	return v, true, nil
}

func (i *Interpreter) execStmt(s ast.Stmt) error {
	switch stmt := s.(type) {
	case *ast.IncludeStmt:
		return i.execInclude(stmt)

	case *ast.ImportStmt, *ast.FromImportStmt:
		f := i.top()
		if err := i.bindImport(stmt, frameNamespace(f), f.pkg); err != nil {
			return i.wrapErr(stmt.GetSpan(), err)
		}
		return nil

	case *ast.FunctionDecl:
		fn := FuncValue(&Function{Decl: stmt, Scope: i.top().scope})
		if err := i.assign(stmt.Name, fn); err != nil {
			return i.wrapErr(stmt.GetSpan(), err)
		}
		return nil

	case *ast.ReturnStmt:
		if i.top().locals == nil {
			return i.runtimeErr(stmt.GetSpan(), "Return is only valid inside a function")
		}
		if stmt.Value == nil {
			return ReturnSignal{Val: NullValue()}
		}
		val, err := i.evalExpr(stmt.Value)
		if err != nil {
			return err
		}
		return ReturnSignal{Val: val}

	case *ast.BreakStmt:
		return BreakSignal{}

	case *ast.ContinueStmt:
		return ContinueSignal{}

	case *ast.AssignStmt:
		val, err := i.evalExpr(stmt.Value)
		if err != nil {
			return err
		}
		if err := i.assign(stmt.Name, val); err != nil {
			return i.wrapErr(stmt.GetSpan(), err)
		}
		return nil

	case *ast.DelStmt:
		for _, name := range stmt.Names {
			if err := i.unbind(name); err != nil {
				return i.wrapErr(stmt.GetSpan(), err)
			}
		}
		return nil

	case *ast.IndexAssignStmt:
		return i.execIndexAssign(stmt)

	case *ast.AttrAssignStmt:
		return i.execAttrAssign(stmt)

	case *ast.ExprStmt:
		_, err := i.evalExpr(stmt.Expr)
		return err

	case *ast.PrintStmt:
		val, err := i.evalExpr(stmt.Value)
		if err != nil {
			return err
		}
		fmt.Fprintln(i.out, val.ToString())
		return nil

	case *ast.IfStmt:
		cond, err := i.evalExpr(stmt.Condition)
		if err != nil {
			return err
		}
		if cond.Kind != ValBool {
			return i.runtimeErr(stmt.Condition.GetSpan(), "If condition must be boolean")
		}
		if cond.Bool {
			return i.Run(stmt.Then)
		}
		return i.Run(stmt.Else)

	case *ast.WhileStmt:
		for {
			cond, err := i.evalExpr(stmt.Condition)
			if err != nil {
				return err
			}
			if cond.Kind != ValBool {
				return i.runtimeErr(stmt.Condition.GetSpan(), "While condition must be boolean")
			}
			if !cond.Bool {
				break
			}
			err = i.Run(stmt.Body)
			if err != nil {
				switch err.(type) {
				case BreakSignal:
					return nil
				case ContinueSignal:
					continue
				default:
					return err
				}
			}
		}
		return nil

	case *ast.ForStmt:
		return i.execFor(stmt)

	case *ast.ForEachStmt:
		return i.execForEach(stmt)

	default:
		return i.runtimeErr(s.GetSpan(), fmt.Sprintf("Unsupported statement %s", s.NodeKind()))
	}
}

// ---------- Assignment targets ----------

func (i *Interpreter) execIndexAssign(stmt *ast.IndexAssignStmt) error {
	containerVal, err := i.evalExpr(stmt.Target)
	if err != nil {
		return err
	}

	iv, err := i.evalExpr(stmt.Index)
	if err != nil {
		return err
	}

	newVal, err := i.evalExpr(stmt.Value)
	if err != nil {
		return err
	}

	if containerVal.Kind == ValArray && containerVal.Arr != nil {
		idx, err := i.toIndex(iv, stmt.Index.GetSpan())
		if err != nil {
			return err
		}

		elems := containerVal.Arr.Elems
		if idx < 0 || idx >= len(elems) {
			return i.runtimeErr(stmt.GetSpan(), fmt.Sprintf("Array index out of bounds (index %d, size %d)", idx, len(elems)))
		}

		containerVal.Arr.Elems[idx] = newVal
		return nil
	}

	if containerVal.Kind == ValMap && containerVal.Map != nil {
		if iv.Kind != ValString {
			return i.runtimeErr(stmt.Index.GetSpan(), "Map key must be a string")
		}
		if containerVal.Map.Elems == nil {
			containerVal.Map.Elems = map[string]Value{}
		}
		containerVal.Map.Elems[iv.Str] = newVal
		return nil
	}

	return i.runtimeErr(stmt.GetSpan(), "Index assignment requires an array or map")
}

func (i *Interpreter) execAttrAssign(stmt *ast.AttrAssignStmt) error {
	target, err := i.evalExpr(stmt.Target)
	if err != nil {
		return err
	}
	newVal, err := i.evalExpr(stmt.Value)
	if err != nil {
		return err
	}
	if target.Kind != ValObject || target.Obj == nil {
		return i.runtimeErr(stmt.GetSpan(), fmt.Sprintf("cannot set attribute %q on %s", stmt.Name, target.TypeName()))
	}
	if err := target.Obj.SetAttr(stmt.Name, newVal); err != nil {
		return i.wrapErr(stmt.GetSpan(), err)
	}
	return nil
}

// ---------- Loops ----------

func (i *Interpreter) setLoopVar(name string, v Value) {
	// loop variables live in the same table as assignments
	_ = i.assign(name, v)
}

func (i *Interpreter) execFor(stmt *ast.ForStmt) error {
	startV, err := i.evalExpr(stmt.Start)
	if err != nil {
		return err
	}
	endV, err := i.evalExpr(stmt.End)
	if err != nil {
		return err
	}
	if startV.Kind != ValNumber || endV.Kind != ValNumber {
		return i.runtimeErr(stmt.GetSpan(), "For loop start/end must be numbers")
	}

	step := 1.0
	if stmt.Step != nil {
		stepV, err := i.evalExpr(stmt.Step)
		if err != nil {
			return err
		}
		if stepV.Kind != ValNumber || stepV.Number == 0 {
			return i.runtimeErr(stmt.Step.GetSpan(), "For loop step must be a non-zero number")
		}
		step = stepV.Number
	} else if startV.Number > endV.Number {
		step = -1
	}

	cur := startV.Number
	for {
		if (step > 0 && cur > endV.Number) || (step < 0 && cur < endV.Number) {
			break
		}
		i.setLoopVar(stmt.Var, NumberValue(cur))

		err := i.Run(stmt.Body)
		if err != nil {
			switch err.(type) {
			case BreakSignal:
				return nil
			case ContinueSignal:
			default:
				return err
			}
		}

		curV, lerr := i.lookup(stmt.Var)
		if lerr != nil || curV.Kind != ValNumber {
			return i.runtimeErr(stmt.GetSpan(), "For loop variable must remain numeric")
		}
		cur = curV.Number + step
	}

	return nil
}

func (i *Interpreter) execForEach(stmt *ast.ForEachStmt) error {
	iterV, err := i.evalExpr(stmt.Iterable)
	if err != nil {
		return err
	}

	var items []Value
	switch {
	case iterV.Kind == ValArray && iterV.Arr != nil:
		items = append(items, iterV.Arr.Elems...)
	case iterV.Kind == ValMap && iterV.Map != nil:
		for _, k := range sortedKeys(iterV.Map.Elems) {
			items = append(items, StringValue(k))
		}
	default:
		return i.runtimeErr(stmt.GetSpan(), "foreach expects an array or map")
	}

	for idx, el := range items {
		i.setLoopVar(stmt.Var, el)
		if stmt.IndexVar != "" {
			i.setLoopVar(stmt.IndexVar, NumberValue(float64(idx)))
		}
		err := i.Run(stmt.Body)
		if err != nil {
			switch err.(type) {
			case BreakSignal:
				return nil
			case ContinueSignal:
				continue
			default:
				return err
			}
		}
	}
	return nil
}

func sortedKeys(m map[string]Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (i *Interpreter) valuesEqual(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case ValNull:
		return true
	case ValNumber:
		return a.Number == b.Number
	case ValString:
		return a.Str == b.Str
	case ValBool:
		return a.Bool == b.Bool
	case ValArray:
		if a.Arr == nil || b.Arr == nil {
			return a.Arr == b.Arr
		}
		if len(a.Arr.Elems) != len(b.Arr.Elems) {
			return false
		}
		for idx := range a.Arr.Elems {
			if !i.valuesEqual(a.Arr.Elems[idx], b.Arr.Elems[idx]) {
				return false
			}
		}
		return true
	case ValMap:
		if a.Map == nil || b.Map == nil {
			return a.Map == b.Map
		}
		am := a.Map.Elems
		bm := b.Map.Elems
		if len(am) != len(bm) {
			return false
		}
		for k, av := range am {
			bv, ok := bm[k]
			if !ok {
				return false
			}
			if !i.valuesEqual(av, bv) {
				return false
			}
		}
		return true
	case ValFunc:
		return a.Fn == b.Fn
	case ValBuiltin:
		return a.Builtin == b.Builtin
	case ValObject:
		return sameObject(a.Obj, b.Obj)
	default:
		return false
	}
}

// sameObject compares through forwarding wrappers so a wrapped module equals
// the module itself.
func sameObject(a, b Object) bool {
	if ua, ok := a.(interface{ Unwrap() Object }); ok {
		a = ua.Unwrap()
	}
	if ub, ok := b.(interface{ Unwrap() Object }); ok {
		b = ub.Unwrap()
	}
	return a == b
}

func (i *Interpreter) compareStrings(op string, a string, b string) (bool, bool) {
	switch op {
	case "<":
		return a < b, true
	case ">":
		return a > b, true
	case "<=":
		return a <= b, true
	case ">=":
		return a >= b, true
	default:
		return false, false
	}
}

func (i *Interpreter) toIndex(v Value, span ast.Span) (int, error) {
	if v.Kind != ValNumber {
		return 0, i.runtimeErr(span, "Array index must be a number")
	}
	idx := int(v.Number)
	if v.Number != float64(idx) {
		return 0, i.runtimeErr(span, "Array index must be an integer")
	}
	return idx, nil
}

func (i *Interpreter) contains(container, item Value, span ast.Span) (bool, error) {
	switch container.Kind {
	case ValArray:
		for _, el := range container.arrayElems() {
			if i.valuesEqual(el, item) {
				return true, nil
			}
		}
		return false, nil
	case ValMap:
		if item.Kind != ValString {
			return false, i.runtimeErr(span, "Map membership requires a string key")
		}
		_, ok := container.mapElems()[item.Str]
		return ok, nil
	case ValString:
		if item.Kind != ValString {
			return false, i.runtimeErr(span, "String membership requires a string")
		}
		return strings.Contains(container.Str, item.Str), nil
	case ValObject:
		if item.Kind != ValString {
			return false, i.runtimeErr(span, "Attribute membership requires a string")
		}
		_, ok := container.Obj.Attrs()[item.Str]
		return ok, nil
	default:
		return false, i.runtimeErr(span, fmt.Sprintf("Operator 'in' is not supported on %s", container.TypeName()))
	}
}

// ---------- String helpers (runes) ----------

func runeLen(s string) int { return utf8.RuneCountInString(s) }

func substrRunes(s string, start int, length *int) (string, bool) {
	rs := []rune(s)
	if start < 0 || start > len(rs) {
		return "", false
	}
	if length == nil {
		return string(rs[start:]), true
	}
	if *length < 0 {
		return "", false
	}
	end := start + *length
	if end > len(rs) {
		end = len(rs)
	}
	return string(rs[start:end]), true
}

func runeIndexOf(hay, needle string) int {
	hs := []rune(hay)
	ns := []rune(needle)
	if len(ns) == 0 {
		return 0
	}
	if len(ns) > len(hs) {
		return -1
	}
	for i := 0; i <= len(hs)-len(ns); i++ {
		ok := true
		for j := 0; j < len(ns); j++ {
			if hs[i+j] != ns[j] {
				ok = false
				break
			}
		}
		if ok {
			return i
		}
	}
	return -1
}

func runeLastIndexOf(hay, needle string) int {
	hs := []rune(hay)
	ns := []rune(needle)
	if len(ns) == 0 {
		return len(hs)
	}
	if len(ns) > len(hs) {
		return -1
	}
	for i := len(hs) - len(ns); i >= 0; i-- {
		ok := true
		for j := 0; j < len(ns); j++ {
			if hs[i+j] != ns[j] {
				ok = false
				break
			}
		}
		if ok {
			return i
		}
	}
	return -1
}

// ---------- Expressions ----------

func (i *Interpreter) evalExpr(e ast.Expr) (Value, error) {
	switch expr := e.(type) {
	case *ast.StringLiteral:
		return StringValue(expr.Value), nil

	case *ast.NumberLiteral:
		n, err := strconv.ParseFloat(expr.Lexeme, 64)
		if err != nil {
			return Value{}, i.runtimeErr(expr.GetSpan(), fmt.Sprintf("Invalid number %q", expr.Lexeme))
		}
		return NumberValue(n), nil

	case *ast.BoolLiteral:
		return BoolValue(expr.Value), nil

	case *ast.NullLiteral:
		return NullValue(), nil

	case *ast.ArrayLiteralExpr:
		els := make([]Value, 0, len(expr.Elements))
		for _, el := range expr.Elements {
			v, err := i.evalExpr(el)
			if err != nil {
				return Value{}, err
			}
			els = append(els, v)
		}
		return ArrayValue(els), nil

	case *ast.MapLiteralExpr:
		m := map[string]Value{}
		for _, ent := range expr.Entries {
			v, err := i.evalExpr(ent.Value)
			if err != nil {
				return Value{}, err
			}
			m[ent.Key] = v
		}
		return MapValue(m), nil

	case *ast.IndexExpr:
		left, err := i.evalExpr(expr.Left)
		if err != nil {
			return Value{}, err
		}
		iv, err := i.evalExpr(expr.Index)
		if err != nil {
			return Value{}, err
		}

		if left.Kind == ValArray && left.Arr != nil {
			idx, err := i.toIndex(iv, expr.Index.GetSpan())
			if err != nil {
				return Value{}, err
			}
			if idx < 0 || idx >= len(left.Arr.Elems) {
				return Value{}, i.runtimeErr(expr.GetSpan(), fmt.Sprintf("Array index out of bounds (index %d, size %d)", idx, len(left.Arr.Elems)))
			}
			return left.Arr.Elems[idx], nil
		}

		if left.Kind == ValMap && left.Map != nil {
			if iv.Kind != ValString {
				return Value{}, i.runtimeErr(expr.Index.GetSpan(), "Map key must be a string")
			}
			val, ok := left.Map.Elems[iv.Str]
			if !ok {
				return Value{}, i.runtimeErr(expr.GetSpan(), fmt.Sprintf("Map key %q not found", iv.Str))
			}
			return val, nil
		}

		return Value{}, i.runtimeErr(expr.GetSpan(), "Indexing requires an array or map")

	case *ast.AttrExpr:
		left, err := i.evalExpr(expr.Left)
		if err != nil {
			return Value{}, err
		}
		if left.Kind != ValObject || left.Obj == nil {
			return Value{}, i.wrapErr(expr.GetSpan(), &AttributeError{Type: left.TypeName(), Name: expr.Name})
		}
		v, err := left.Obj.GetAttr(expr.Name)
		if err != nil {
			return Value{}, i.wrapErr(expr.GetSpan(), err)
		}
		return v, nil

	case *ast.Identifier:
		v, err := i.lookup(expr.Name)
		if err != nil {
			return Value{}, i.wrapErr(expr.GetSpan(), err)
		}
		return v, nil

	case *ast.CallExpr:
		return i.evalCall(expr)

	case *ast.UnaryExpr:
		right, err := i.evalExpr(expr.Right)
		if err != nil {
			return Value{}, err
		}
		switch expr.Op {
		case "not":
			if right.Kind != ValBool {
				return Value{}, i.runtimeErr(expr.GetSpan(), "Operator 'not' requires boolean")
			}
			return BoolValue(!right.Bool), nil
		case "-":
			if right.Kind != ValNumber {
				return Value{}, i.runtimeErr(expr.GetSpan(), "Unary '-' requires a number")
			}
			return NumberValue(-right.Number), nil
		default:
			return Value{}, i.runtimeErr(expr.GetSpan(), fmt.Sprintf("Unknown unary operator %q", expr.Op))
		}

	case *ast.BinaryExpr:
		return i.evalBinary(expr)

	default:
		return Value{}, i.runtimeErr(e.GetSpan(), fmt.Sprintf("Unsupported expression %s", e.NodeKind()))
	}
}

func (i *Interpreter) evalBinary(expr *ast.BinaryExpr) (Value, error) {
	if expr.Op == "and" || expr.Op == "or" {
		left, err := i.evalExpr(expr.Left)
		if err != nil {
			return Value{}, err
		}
		if left.Kind != ValBool {
			return Value{}, i.runtimeErr(expr.Left.GetSpan(), fmt.Sprintf("Operator %q requires booleans", expr.Op))
		}

		if expr.Op == "and" {
			if !left.Bool {
				return BoolValue(false), nil
			}
			right, err := i.evalExpr(expr.Right)
			if err != nil {
				return Value{}, err
			}
			if right.Kind != ValBool {
				return Value{}, i.runtimeErr(expr.Right.GetSpan(), "Operator 'and' requires booleans")
			}
			return BoolValue(left.Bool && right.Bool), nil
		}

		if left.Bool {
			return BoolValue(true), nil
		}
		right, err := i.evalExpr(expr.Right)
		if err != nil {
			return Value{}, err
		}
		if right.Kind != ValBool {
			return Value{}, i.runtimeErr(expr.Right.GetSpan(), "Operator 'or' requires booleans")
		}
		return BoolValue(left.Bool || right.Bool), nil
	}

	left, err := i.evalExpr(expr.Left)
	if err != nil {
		return Value{}, err
	}
	right, err := i.evalExpr(expr.Right)
	if err != nil {
		return Value{}, err
	}

	switch expr.Op {
	case "in":
		ok, err := i.contains(right, left, expr.GetSpan())
		if err != nil {
			return Value{}, err
		}
		return BoolValue(ok), nil

	case "+":
		if left.Kind == ValNumber && right.Kind == ValNumber {
			return NumberValue(left.Number + right.Number), nil
		}
		if left.Kind == ValArray && right.Kind == ValArray {
			if left.Arr == nil || right.Arr == nil {
				return Value{}, i.runtimeErr(expr.GetSpan(), "Array concat requires valid arrays")
			}
			out := make([]Value, 0, len(left.Arr.Elems)+len(right.Arr.Elems))
			out = append(out, left.Arr.Elems...)
			out = append(out, right.Arr.Elems...)
			return ArrayValue(out), nil
		}
		return StringValue(left.ToString() + right.ToString()), nil

	case "==", "!=":
		eq := i.valuesEqual(left, right)
		if expr.Op == "!=" {
			eq = !eq
		}
		return BoolValue(eq), nil

	case "<", ">", "<=", ">=":
		if left.Kind == ValNumber && right.Kind == ValNumber {
			switch expr.Op {
			case "<":
				return BoolValue(left.Number < right.Number), nil
			case ">":
				return BoolValue(left.Number > right.Number), nil
			case "<=":
				return BoolValue(left.Number <= right.Number), nil
			default:
				return BoolValue(left.Number >= right.Number), nil
			}
		}
		if left.Kind == ValString && right.Kind == ValString {
			res, _ := i.compareStrings(expr.Op, left.Str, right.Str)
			return BoolValue(res), nil
		}
		return Value{}, i.runtimeErr(expr.GetSpan(), fmt.Sprintf("Operator %q requires two numbers or two strings", expr.Op))
	}

	if left.Kind != ValNumber || right.Kind != ValNumber {
		return Value{}, i.runtimeErr(expr.GetSpan(), fmt.Sprintf("Operator %q requires numbers", expr.Op))
	}

	switch expr.Op {
	case "-":
		return NumberValue(left.Number - right.Number), nil
	case "*":
		return NumberValue(left.Number * right.Number), nil
	case "/":
		return NumberValue(left.Number / right.Number), nil
	}

	return Value{}, i.runtimeErr(expr.GetSpan(), fmt.Sprintf("Unknown operator %q", expr.Op))
}

func (i *Interpreter) evalCall(call *ast.CallExpr) (Value, error) {
	callee, err := i.evalExpr(call.Callee)
	if err != nil {
		return Value{}, err
	}

	args := make([]Value, 0, len(call.Args))
	for _, a := range call.Args {
		v, err := i.evalExpr(a)
		if err != nil {
			return Value{}, err
		}
		args = append(args, v)
	}

	switch callee.Kind {
	case ValFunc:
		return i.callFunction(callee.Fn, args, call.GetSpan())
	case ValBuiltin:
		v, err := callee.Builtin.Fn(i, args, call.GetSpan())
		if err != nil {
			return Value{}, i.wrapErr(call.GetSpan(), err)
		}
		return v, nil
	default:
		return Value{}, i.runtimeErr(call.GetSpan(), fmt.Sprintf("%s is not callable", callee.TypeName()))
	}
}

func (i *Interpreter) callFunction(fn *Function, args []Value, callSpan ast.Span) (Value, error) {
	decl := fn.Decl
	if len(args) != len(decl.Params) {
		return Value{}, i.runtimeErr(callSpan, fmt.Sprintf("Function %q expects %d args, got %d", decl.Name, len(decl.Params), len(args)))
	}

	locals := make(map[string]Value, len(args))
	for idx, name := range decl.Params {
		locals[name] = args[idx]
	}

	i.callStack = append(i.callStack, decl.Name)
	i.pushFrame(&frame{locals: locals, scope: fn.Scope, pkg: packageOf(fn.Scope)})
	defer func() {
		i.popFrame()
		i.callStack = i.callStack[:len(i.callStack)-1]
	}()

	err := i.Run(decl.Body)
	if rs, ok := err.(ReturnSignal); ok {
		return rs.Val, nil
	}
	if err != nil {
		return Value{}, err
	}
	return NullValue(), nil
}

// Call invokes a function or builtin value from Go.
func (i *Interpreter) Call(fn Value, args ...Value) (Value, error) {
	switch fn.Kind {
	case ValFunc:
		return i.callFunction(fn.Fn, args, fn.Fn.Decl.GetSpan())
	case ValBuiltin:
		return fn.Builtin.Fn(i, args, ast.Span{})
	default:
		return Value{}, fmt.Errorf("%s is not callable", fn.TypeName())
	}
}
