package ast

import (
	"fmt"
	"strings"
)

// IncludeStmt runs another source file into the current namespace:
//
//	import "lib/util.bpl"
type IncludeStmt struct {
	S    Span
	Path string
}

func (i *IncludeStmt) NodeKind() string { return "IncludeStmt" }
func (i *IncludeStmt) stmtNode()        {}
func (i *IncludeStmt) GetSpan() Span    { return i.S }
func (i *IncludeStmt) String() string   { return fmt.Sprintf("Include(%q)", i.Path) }

// ImportAlias is one clause of an import list: Name [as AsName].
type ImportAlias struct {
	Name   string
	AsName string
}

// Bound returns the name the clause binds in a plain import: the alias if
// present, else the first dotted segment.
func (a ImportAlias) Bound() string {
	if a.AsName != "" {
		return a.AsName
	}
	if idx := strings.IndexByte(a.Name, '.'); idx >= 0 {
		return a.Name[:idx]
	}
	return a.Name
}

func (a ImportAlias) String() string {
	if a.AsName != "" {
		return a.Name + " as " + a.AsName
	}
	return a.Name
}

// import a.b.c [as x], d
type ImportStmt struct {
	S     Span
	Names []ImportAlias
}

func (i *ImportStmt) NodeKind() string { return "ImportStmt" }
func (i *ImportStmt) stmtNode()        {}
func (i *ImportStmt) GetSpan() Span    { return i.S }
func (i *ImportStmt) String() string {
	parts := make([]string, 0, len(i.Names))
	for _, n := range i.Names {
		parts = append(parts, n.String())
	}
	return fmt.Sprintf("Import(%s)", strings.Join(parts, ", "))
}

// from [.]*module import x [as y], z
// Level counts leading dots; Module may be empty when Level > 0.
type FromImportStmt struct {
	S      Span
	Module string
	Level  int
	Names  []ImportAlias
}

func (f *FromImportStmt) NodeKind() string { return "FromImportStmt" }
func (f *FromImportStmt) stmtNode()        {}
func (f *FromImportStmt) GetSpan() Span    { return f.S }
func (f *FromImportStmt) String() string {
	parts := make([]string, 0, len(f.Names))
	for _, n := range f.Names {
		parts = append(parts, n.String())
	}
	return fmt.Sprintf("FromImport(%s%s: %s)", strings.Repeat(".", f.Level), f.Module, strings.Join(parts, ", "))
}

// ModuleName is the target as written, dots included.
func (f *FromImportStmt) ModuleName() string {
	return strings.Repeat(".", f.Level) + f.Module
}
