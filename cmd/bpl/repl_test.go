package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/edwardcox/bplplus-autoimport/config"
	"github.com/edwardcox/bplplus-autoimport/history"
)

type testREPL struct {
	*repl
	out    *bytes.Buffer
	errOut *bytes.Buffer
}

func newTestREPL(t *testing.T, enabled bool) *testREPL {
	t.Helper()
	c := config.Default()
	c.SearchPath = []string{t.TempDir()}
	c.Autoimport.Color = config.ColorNever

	store, err := history.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	var out, errOut bytes.Buffer
	r := newREPL(c, store, &out, &errOut, nil, enabled)
	return &testREPL{repl: r, out: &out, errOut: &errOut}
}

func TestREPLAutoimportsAndEchoes(t *testing.T) {
	r := newTestREPL(t, true)
	r.runChunk("math.floor(2.7)\n")
	assert.Equal(t, "Autoimport: import math\n2\n", r.out.String())
	assert.Empty(t, r.errOut.String())

	got, err := r.history.Tail(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"math.floor(2.7)"}, got)
}

func TestREPLDisabled(t *testing.T) {
	r := newTestREPL(t, false)
	r.runChunk("math")
	assert.Empty(t, r.out.String())
	assert.Contains(t, r.errOut.String(), `name "math" is not defined`)

	require.NoError(t, r.command(":load_ext autoimport"))
	r.runChunk("math.pi > 3")
	assert.Equal(t, "Autoimport: import math\ntrue\n", r.out.String())

	require.NoError(t, r.command(":unload_ext autoimport"))
	assert.False(t, r.session.Active())
	assert.Error(t, r.command(":load_ext other"))
}

func TestREPLDirectiveRecordedAndReplayed(t *testing.T) {
	r := newTestREPL(t, true)
	r.runChunk("import math as m")
	r.runChunk("import os as m")
	// the cache was built before either import ran
	assert.Equal(t, 0, r.session.Cache().Len())

	r.command(":unload_ext autoimport")
	r.command(":load_ext autoimport")
	cands, ok := r.session.Cache().Candidates("m")
	require.True(t, ok)
	assert.Len(t, cands, 2)

	r.out.Reset()
	require.NoError(t, r.command(":autoimport --clear m"))
	assert.Equal(t, "Autoimport: cleared symbol \"m\" from autoimport cache.\n", r.out.String())

	// a rebuilt cache replays the recorded directive
	r.command(":unload_ext autoimport")
	r.command(":load_ext autoimport")
	_, ok = r.session.Cache().Candidates("m")
	assert.False(t, ok)
}

func TestREPLAutoimportList(t *testing.T) {
	r := newTestREPL(t, true)
	r.runChunk("os.sep")
	r.out.Reset()
	require.NoError(t, r.command(":autoimport -l"))
	assert.Equal(t, "Autoimport: the following autoimports were run:\nimport os\n", r.out.String())

	assert.Error(t, r.command(":autoimport"))
}

func TestREPLTimeSuspendsAutoimport(t *testing.T) {
	r := newTestREPL(t, true)
	require.NoError(t, r.command(":timeit -n 3 x = 1"))
	assert.Contains(t, r.out.String(), "3 loops")

	r.out.Reset()
	err := r.command(":time math")
	require.Error(t, err)
	assert.NotContains(t, r.out.String(), "Autoimport")
	assert.True(t, r.session.Active())

	assert.Error(t, r.command(":time"))
	assert.Error(t, r.command(":timeit -n zero x"))
}

func TestREPLMetrics(t *testing.T) {
	r := newTestREPL(t, true)
	r.runChunk("math")
	r.runChunk("nosuchmodule")
	r.out.Reset()

	require.NoError(t, r.command(":metrics"))
	assert.Contains(t, r.out.String(), "bplplus_autoimport_imports_total 1\n")
	assert.Contains(t, r.out.String(), "bplplus_autoimport_failed_total 1\n")
}

func TestREPLHistoryCommand(t *testing.T) {
	r := newTestREPL(t, true)
	r.runChunk("x = 1")
	r.runChunk("y = 2")
	r.out.Reset()

	require.NoError(t, r.command(":history 1"))
	assert.Contains(t, r.out.String(), "y = 2")
	assert.NotContains(t, r.out.String(), "x = 1")
	assert.Error(t, r.command(":history many"))
}

func TestREPLIntrospection(t *testing.T) {
	r := newTestREPL(t, false)
	r.runChunk("x = \"a\"\nfunction f()\nend")
	r.out.Reset()

	require.NoError(t, r.command(":vars"))
	assert.Contains(t, r.out.String(), `x = "a"`)

	r.out.Reset()
	require.NoError(t, r.command(":funcs"))
	assert.Equal(t, "f\n", r.out.String())

	assert.True(t, errors.Is(r.command(":quit"), errQuit))
}

func TestUpdateDepth(t *testing.T) {
	tests := []struct {
		depth int
		line  string
		want  int
	}{
		{0, "if x > 1", 1},
		{1, "while true", 2},
		{2, "end", 1},
		{1, "END", 0},
		{0, "end", 0},
		{1, "else", 1},
		{1, "# for comment", 1},
		{0, "function f()", 1},
		{0, "x = 1", 0},
		{0, "", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, updateDepth(tt.depth, tt.line), "%d %q", tt.depth, tt.line)
	}
}

func TestParseTimeit(t *testing.T) {
	n, code, err := parseTimeit("-n 10 x = 1")
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, "x = 1", code)

	n, code, err = parseTimeit("len(\"a b\")")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "len(\"a b\")", code)

	_, _, err = parseTimeit("-n 0 x")
	assert.Error(t, err)
	_, _, err = parseTimeit("-n 5")
	assert.Error(t, err)
}

func TestBuildLogger(t *testing.T) {
	l, err := buildLogger("info", false)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))

	l, err = buildLogger("error", true)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	_, err = buildLogger("loud", false)
	assert.Error(t, err)
}

func TestRunFileIncludesBesideFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "prog")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "helper.bpl"),
		[]byte("function double(n)\n  return n * 2\nend\n"), 0o644))
	prog := filepath.Join(dir, "main.bpl")
	require.NoError(t, os.WriteFile(prog, []byte("import \"helper\"\ny = double(2)\n"), 0o644))

	require.NoError(t, runFile(prog))

	err := runFile(filepath.Join(dir, "missing.bpl"))
	assert.Error(t, err)
	assert.Error(t, runFile(filepath.Join(dir, "helper.txt")))
}

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		in, name, arg string
	}{
		{":quit", ":quit", ""},
		{":autoimport -c os", ":autoimport", "-c os"},
		{":autoimport\t-c os", ":autoimport", "-c os"},
		{"  :history   5 ", ":history", "5"},
	}
	for _, tt := range tests {
		name, arg := splitCommand(tt.in)
		assert.Equal(t, tt.name, name, tt.in)
		assert.Equal(t, tt.arg, arg, tt.in)
	}
}

func TestREPLDirectiveWithTab(t *testing.T) {
	r := newTestREPL(t, true)
	r.runChunk("import math as m")
	r.command(":unload_ext autoimport")
	r.command(":load_ext autoimport")
	r.out.Reset()

	require.NoError(t, r.command(":autoimport\t-c m"))
	assert.Equal(t, "Autoimport: cleared symbol \"m\" from autoimport cache.\n", r.out.String())

	r.command(":unload_ext autoimport")
	r.command(":load_ext autoimport")
	_, ok := r.session.Cache().Candidates("m")
	assert.False(t, ok)
}
