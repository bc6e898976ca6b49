package interpreter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltins(t *testing.T) {
	tests := []struct {
		src  string
		want Value
	}{
		{`str(12)`, StringValue("12")},
		{`num(" 2.5 ")`, NumberValue(2.5)},
		{`len("héllo")`, NumberValue(5)},
		{`len([1, 2, 3])`, NumberValue(3)},
		{`type({})`, StringValue("map")},
		{`type(len)`, StringValue("builtin")},
		{`lower("ABC")`, StringValue("abc")},
		{`trim("  x  ")`, StringValue("x")},
		{`ltrim("xxy", "x")`, StringValue("y")},
		{`contains("hello", "ell")`, BoolValue(true)},
		{`startswith("hello", "he")`, BoolValue(true)},
		{`endswith("hello", "lo")`, BoolValue(true)},
		{`replace("a-b-c", "-", "+")`, StringValue("a+b+c")},
		{`join(split("a,b,c", ","), "|")`, StringValue("a|b|c")},
		{`indexof("hello", "l")`, NumberValue(2)},
		{`lastindexof("hello", "l")`, NumberValue(3)},
		{`repeat("ab", 3)`, StringValue("ababab")},
		{`substr("hello", 1, 3)`, StringValue("ell")},
		{`keys({"b": 1, "a": 2})[0]`, StringValue("a")},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			in, _ := newTestInterp(t, t.TempDir())
			assert.Equal(t, tt.want, mustEval(t, in, tt.src))
		})
	}
}

func TestBuiltinArityErrors(t *testing.T) {
	in, _ := newTestInterp(t, t.TempDir())
	for _, src := range []string{`str()`, `len(1)`, `type(1, 2)`, `vars(1)`} {
		_, err := eval(t, in, src)
		assert.Error(t, err, src)
	}
}

func TestVars(t *testing.T) {
	in, _ := newTestInterp(t, t.TempDir())
	mustEval(t, in, "x = 1")

	v := mustEval(t, in, `vars()["x"]`)
	assert.Equal(t, NumberValue(1), v)

	// vars() at top level is a copy
	mustEval(t, in, `snap = vars()
snap["y"] = 2`)
	_, err := eval(t, in, "y")
	assert.Error(t, err)

	// inside a function it shows locals
	v = mustEval(t, in, "function f(a)\n  return keys(vars())\nend\nf(1)")
	assert.Equal(t, `["a"]`, v.ToString())

	// vars(module) is live
	mustEval(t, in, "import math\nvars(math)[\"tau\"] = 6.28")
	assert.Equal(t, NumberValue(6.28), mustEval(t, in, "math.tau"))
}

func TestBuiltinsShadowedByUserBindings(t *testing.T) {
	in, _ := newTestInterp(t, t.TempDir())
	mustEval(t, in, "function len(x)\n  return -1\nend")
	assert.Equal(t, NumberValue(-1), mustEval(t, in, `len("abc")`))

	mustEval(t, in, "del len")
	assert.Equal(t, NumberValue(3), mustEval(t, in, `len("abc")`))
}

func TestInput(t *testing.T) {
	var out strings.Builder
	in := New(WithStdin(strings.NewReader("bob\n")), WithStdout(&out))
	v := mustEval(t, in, `input("name? ")`)
	assert.Equal(t, StringValue("bob"), v)
	assert.Equal(t, "name? ", out.String())
}

func TestBuiltinNames(t *testing.T) {
	names := BuiltinNames()
	require.NotEmpty(t, names)
	assert.Contains(t, names, "vars")
	assert.IsIncreasing(t, names)

	_, ok := LookupBuiltin("nope")
	assert.False(t, ok)
}
