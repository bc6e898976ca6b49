package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edwardcox/bplplus-autoimport/ast"
)

func TestParseImports(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"import os", "Import(os)"},
		{"import a.b.c", "Import(a.b.c)"},
		{"import a.b as x, os", "Import(a.b as x, os)"},
		{"from a.b import c", "FromImport(a.b: c)"},
		{"from os import path as p, sep", "FromImport(os: path as p, sep)"},
		{"from . import x", "FromImport(.: x)"},
		{"from ..pkg.mod import y", "FromImport(..pkg.mod: y)"},
		{`import "lib/util"`, `Include("lib/util")`},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			stmts, err := Parse(tt.src)
			require.NoError(t, err)
			require.Len(t, stmts, 1)
			assert.Equal(t, tt.want, stmts[0].(interface{ String() string }).String())
		})
	}
}

func TestParseImportAliasBound(t *testing.T) {
	stmts, err := Parse("import a.b.c, x.y as z")
	require.NoError(t, err)
	imp, ok := stmts[0].(*ast.ImportStmt)
	require.True(t, ok)
	assert.Equal(t, "a", imp.Names[0].Bound())
	assert.Equal(t, "z", imp.Names[1].Bound())
}

func TestParseErrors(t *testing.T) {
	for _, src := range []string{
		"import",
		"import a.",
		"import a as",
		"from a",
		"from import x",
		"from a import",
		"if true",
		"function f(\nend",
		"x = (",
		"1 = 2",
		"del 1",
	} {
		t.Run(src, func(t *testing.T) {
			_, err := Parse(src)
			assert.Error(t, err)
		})
	}
}

func TestParseStatements(t *testing.T) {
	src := `x = 1; y = "two"
function f(a, b)
  if a > b
    return a
  else
    return b
  end
end
for each v, i in [1, 2]
  print v
end
del x, y
obj.attr = 3
m["k"] = 4
`
	stmts, err := Parse(src)
	require.NoError(t, err)

	kinds := make([]string, 0, len(stmts))
	for _, s := range stmts {
		kinds = append(kinds, s.NodeKind())
	}
	assert.Equal(t, []string{
		"AssignStmt", "AssignStmt", "FunctionDecl", "ForEachStmt",
		"DelStmt", "AttrAssignStmt", "IndexAssignStmt",
	}, kinds)
}

func TestInspectDescends(t *testing.T) {
	stmts, err := Parse("if true\n  while false\n    import os\n  end\nend\nimport math")
	require.NoError(t, err)

	var found []string
	ast.Inspect(stmts, func(s ast.Stmt) bool {
		if imp, ok := s.(*ast.ImportStmt); ok {
			found = append(found, imp.Names[0].Name)
		}
		return true
	})
	assert.Equal(t, []string{"os", "math"}, found)

	found = nil
	ast.Inspect(stmts, func(s ast.Stmt) bool {
		if imp, ok := s.(*ast.ImportStmt); ok {
			found = append(found, imp.Names[0].Name)
		}
		_, isIf := s.(*ast.IfStmt)
		return !isIf
	})
	assert.Equal(t, []string{"math"}, found)
}
