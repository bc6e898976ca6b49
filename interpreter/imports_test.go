package interpreter

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edwardcox/bplplus-autoimport/parser"
)

// writeTree creates files under a new temp dir. Keys are slash paths.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func newTestInterp(t *testing.T, dir string) (*Interpreter, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	return New(WithSearchPath(dir), WithStdout(&out)), &out
}

func eval(t *testing.T, in *Interpreter, src string) (Value, error) {
	t.Helper()
	stmts, err := parser.Parse(src)
	require.NoError(t, err)
	v, _, err := in.RunChunk(stmts)
	return v, err
}

func mustEval(t *testing.T, in *Interpreter, src string) Value {
	t.Helper()
	v, err := eval(t, in, src)
	require.NoError(t, err)
	return v
}

func TestImportSourceModule(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"util.bpl": "\"Helpers.\"\nanswer = 42\nfunction double(n)\n  return n * 2\nend\n",
	})
	in, _ := newTestInterp(t, dir)

	assert.Equal(t, NumberValue(84), mustEval(t, in, "import util\nutil.double(util.answer)"))
	assert.Equal(t, StringValue("Helpers."), mustEval(t, in, "help(util)"))
	assert.Equal(t, StringValue("util"), mustEval(t, in, "util.__name__"))

	m, ok := in.Loaded("util")
	require.True(t, ok)
	assert.False(t, m.IsPackage())
	assert.Equal(t, filepath.Join(dir, "util.bpl"), m.File)
}

func TestImportBindsTopPackage(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"a/__init__.bpl": "top = true\n",
		"a/b/c.bpl":      "x = 1\n",
	})
	in, _ := newTestInterp(t, dir)

	mustEval(t, in, "import a.b.c")
	v := mustEval(t, in, "a")
	m, ok := v.Module()
	require.True(t, ok)
	assert.Equal(t, "a", m.Name)
	assert.True(t, m.IsPackage())

	assert.Equal(t, NumberValue(1), mustEval(t, in, "a.b.c.x"))
	assert.Equal(t, BoolValue(true), mustEval(t, in, "a.top"))

	b, ok := in.Loaded("a.b")
	require.True(t, ok)
	assert.Empty(t, b.File, "a/b has no __init__ and is a namespace package")
	assert.Contains(t, b.String(), "namespace")
}

func TestImportAlias(t *testing.T) {
	dir := writeTree(t, map[string]string{"a/b/c.bpl": "x = 1\n"})
	in, _ := newTestInterp(t, dir)

	assert.Equal(t, NumberValue(1), mustEval(t, in, "import a.b.c as leaf\nleaf.x"))
	_, err := eval(t, in, "a")
	var ne *NameError
	assert.True(t, errors.As(err, &ne))
}

func TestFromImport(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"pkg/__init__.bpl": "version = \"1.0\"\n",
		"pkg/mod.bpl":      "value = 7\n",
	})
	in, _ := newTestInterp(t, dir)

	assert.Equal(t, StringValue("1.0"), mustEval(t, in, "from pkg import version\nversion"))
	// a submodule not yet loaded is imported on demand
	assert.Equal(t, NumberValue(7), mustEval(t, in, "from pkg import mod as m\nm.value"))

	_, err := eval(t, in, "from pkg import missing")
	var ie *ImportError
	require.True(t, errors.As(err, &ie))
	assert.Contains(t, err.Error(), `cannot import name "missing"`)
}

func TestRelativeImport(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"pkg/__init__.bpl":     "",
		"pkg/base.bpl":         "name = \"base\"\n",
		"pkg/sub/__init__.bpl": "from .. import base\nfrom ..base import name\nfrom . import leaf\n",
		"pkg/sub/leaf.bpl":     "from .. import base as b\nowner = b.name\n",
	})
	in, _ := newTestInterp(t, dir)

	mustEval(t, in, "import pkg.sub")
	assert.Equal(t, StringValue("base"), mustEval(t, in, "pkg.sub.name"))
	assert.Equal(t, StringValue("base"), mustEval(t, in, "pkg.sub.leaf.owner"))
}

func TestRelativeImportOutsidePackage(t *testing.T) {
	in, _ := newTestInterp(t, t.TempDir())
	_, err := eval(t, in, "from . import x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no known parent package")
}

func TestImportNotFound(t *testing.T) {
	dir := t.TempDir()
	in, _ := newTestInterp(t, dir)

	_, err := eval(t, in, "import nope")
	var ie *ImportError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "nope", ie.Module)
	assert.Equal(t, []string{
		filepath.Join(dir, "nope", "__init__.bpl"),
		filepath.Join(dir, "nope.bpl"),
	}, ie.Tried)
}

func TestImportSubmoduleOfModule(t *testing.T) {
	dir := writeTree(t, map[string]string{"plain.bpl": "x = 1\n"})
	in, _ := newTestInterp(t, dir)

	_, err := in.ImportModule("plain.child")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not a package")

	_, err = in.ImportModule("plain..x")
	assert.Error(t, err)
}

func TestImportFailureLeavesNoModule(t *testing.T) {
	dir := writeTree(t, map[string]string{"bad.bpl": "x = 1\ny = missing_name\n"})
	in, _ := newTestInterp(t, dir)

	_, err := eval(t, in, "import bad")
	var ie *ImportError
	require.True(t, errors.As(err, &ie))
	var ne *NameError
	assert.True(t, errors.As(err, &ne))

	_, ok := in.Loaded("bad")
	assert.False(t, ok)
	_, err = eval(t, in, "bad")
	assert.True(t, errors.As(err, &ne))
}

func TestCircularImport(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"ping.bpl": "import pong\n",
		"pong.bpl": "import ping\n",
	})
	in, _ := newTestInterp(t, dir)

	_, err := eval(t, in, "import ping")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Circular import detected")
}

func TestModuleLoadsOnce(t *testing.T) {
	dir := writeTree(t, map[string]string{"noisy.bpl": "print \"loading\"\n"})
	in, out := newTestInterp(t, dir)

	mustEval(t, in, "import noisy\nimport noisy as again")
	assert.Equal(t, "loading\n", out.String())
}

func TestModuleFunctionsUseModuleScope(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"counter.bpl": "count = 0\nfunction bump()\n  count = count + 1\n  return count\nend\n",
	})
	in, _ := newTestInterp(t, dir)

	mustEval(t, in, "import counter\ncount = 100")
	// locals shadow, the module's own count is read
	assert.Equal(t, NumberValue(1), mustEval(t, in, "counter.bump()"))
	assert.Equal(t, NumberValue(100), mustEval(t, in, "count"))
}

func TestExecImport(t *testing.T) {
	dir := writeTree(t, map[string]string{"a/b.bpl": "x = 1\n"})
	in, _ := newTestInterp(t, dir)
	target := NewMapNamespace(nil)

	require.NoError(t, in.ExecImport("from a import b", target))
	v, err := target.Get("b")
	require.NoError(t, err)
	m, ok := v.Module()
	require.True(t, ok)
	assert.Equal(t, "a.b", m.Name)

	// the REPL namespace is untouched
	_, err = eval(t, in, "b")
	assert.Error(t, err)

	assert.Error(t, in.ExecImport("x = 1", target))
	assert.Error(t, in.ExecImport("import os\nimport math", target))
	assert.Error(t, in.ExecImport("import (", target))
}

func TestNativeModules(t *testing.T) {
	in, _ := newTestInterp(t, t.TempDir())

	assert.Equal(t, NumberValue(3), mustEval(t, in, "import math\nmath.floor(3.7)"))
	assert.Equal(t, StringValue("c.txt"), mustEval(t, in, `import os.path
os.path.base("a/b/c.txt")`))

	osMod, ok := in.Loaded("os")
	require.True(t, ok)
	assert.True(t, osMod.IsPackage())
	assert.Contains(t, NativeModuleNames(), "encoding.json")
}

func TestJSONAndYAMLCodecs(t *testing.T) {
	in, _ := newTestInterp(t, t.TempDir())

	v := mustEval(t, in, `import encoding.json
encoding.json.dumps({"b": [1, 2.5, true], "a": null})`)
	assert.Equal(t, StringValue(`{"a":null,"b":[1,2.5,true]}`), v)

	v = mustEval(t, in, `encoding.json.loads("{\"k\": [1, \"two\"]}")["k"][1]`)
	assert.Equal(t, StringValue("two"), v)

	v = mustEval(t, in, `from encoding import yaml
yaml.loads("name: bpl\ncount: 3\n")["count"]`)
	assert.Equal(t, NumberValue(3), v)

	v = mustEval(t, in, `yaml.dumps({"name": "bpl"})`)
	assert.Equal(t, StringValue("name: bpl\n"), v)

	_, err := eval(t, in, `encoding.json.loads("{")`)
	assert.Error(t, err)
}

func TestInclude(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"lib/helpers.bpl": "function greet(n)\n  return \"hi \" + n\nend\nprint \"included\"\n",
	})
	in, out := newTestInterp(t, dir)

	assert.Equal(t, StringValue("hi bob"), mustEval(t, in, "import \"lib/helpers\"\ngreet(\"bob\")"))
	mustEval(t, in, "import \"lib/helpers.bpl\"")
	assert.Equal(t, "included\n", out.String())

	_, err := eval(t, in, `import "missing/file"`)
	var ie *ImportError
	assert.True(t, errors.As(err, &ie))
}

func TestSetNamespace(t *testing.T) {
	in, _ := newTestInterp(t, t.TempDir())
	mustEval(t, in, "x = 1")

	swapped := NewMapNamespace(map[string]Value{"y": NumberValue(2)})
	in.SetNamespace(swapped)
	assert.Equal(t, NumberValue(2), mustEval(t, in, "y"))
	_, err := eval(t, in, "x")
	assert.Error(t, err)

	in.SetNamespace(nil)
	assert.Equal(t, NumberValue(1), mustEval(t, in, "x"))
}

func TestRuntimeErrorCarriesLocation(t *testing.T) {
	in, _ := newTestInterp(t, t.TempDir())
	in.SetSource("<repl:1>", "x = 1\ny = nothing\n")

	stmts, err := parser.Parse("x = 1\ny = nothing\n")
	require.NoError(t, err)
	err = in.Run(stmts)
	require.Error(t, err)

	var re RuntimeError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 2, re.Span.Line)
	assert.True(t, strings.HasPrefix(err.Error(), "Runtime error at <repl:1>:2:5"))
	assert.Contains(t, err.Error(), `name "nothing" is not defined`)
}
