package interpreter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/edwardcox/bplplus-autoimport/ast"
	"github.com/edwardcox/bplplus-autoimport/lexer"
	"github.com/edwardcox/bplplus-autoimport/parser"
)

const (
	sourceExt = ".bpl"
	initFile  = "__init__" + sourceExt
)

// ---------- Module imports ----------

// ImportModule imports a dotted module name. Parents are imported first and
// each child is bound as an attribute of its parent. The leaf is returned.
func (i *Interpreter) ImportModule(name string) (*Module, error) {
	parts := strings.Split(name, ".")
	for _, p := range parts {
		if p == "" {
			return nil, &ImportError{Module: name, Err: errors.New("empty module name")}
		}
	}

	var parent *Module
	for idx := range parts {
		full := strings.Join(parts[:idx+1], ".")
		m, err := i.importOne(full, parts[idx], parent)
		if err != nil {
			return nil, err
		}
		parent = m
	}
	return parent, nil
}

// Loaded returns an already-imported module without loading anything.
func (i *Interpreter) Loaded(name string) (*Module, bool) {
	m, ok := i.modules[name]
	return m, ok && i.moduleState[name] == modLoaded
}

func (i *Interpreter) importOne(full, leaf string, parent *Module) (*Module, error) {
	switch i.moduleState[full] {
	case modLoaded:
		return i.modules[full], nil
	case modLoading:
		// A package's __init__ may import its own submodules.
		if m := i.modules[full]; m != nil && m.IsPackage() {
			return m, nil
		}
		return nil, &ImportError{Module: full, Err: errors.New(i.circularImportMessage(full))}
	}

	m, err := i.findAndLoad(full, leaf, parent)
	if err != nil {
		return nil, err
	}
	if parent != nil {
		parent.Dict[leaf] = ObjectValue(m)
	}
	return m, nil
}

func (i *Interpreter) findAndLoad(full, leaf string, parent *Module) (*Module, error) {
	if nm, ok := i.natives[full]; ok {
		m := nm.build()
		i.modules[full] = m
		i.moduleState[full] = modLoaded
		i.log.Debug("loaded native module", zap.String("module", full))
		return m, nil
	}

	var dirs []string
	if parent == nil {
		dirs = i.searchPath
	} else {
		if !parent.IsPackage() {
			return nil, &ImportError{Module: full, Err: fmt.Errorf("%q is not a package", parent.Name)}
		}
		if parent.Path != "" {
			dirs = []string{parent.Path}
		}
	}

	var tried []string
	nsDir := ""
	for _, dir := range dirs {
		pkgDir := filepath.Join(dir, leaf)
		init := filepath.Join(pkgDir, initFile)
		tried = append(tried, init)
		if i.fileExists(init) {
			return i.loadSource(full, init, pkgDir)
		}

		modFile := filepath.Join(dir, leaf+sourceExt)
		tried = append(tried, modFile)
		if i.fileExists(modFile) {
			return i.loadSource(full, modFile, "")
		}

		if nsDir == "" && i.dirExists(pkgDir) {
			nsDir = pkgDir
		}
	}

	if nsDir != "" {
		m := NewModule(full, "")
		m.Package = true
		m.Path = nsDir
		m.Dict["__path__"] = StringValue(nsDir)
		i.modules[full] = m
		i.moduleState[full] = modLoaded
		i.log.Debug("loaded namespace package", zap.String("module", full), zap.String("path", nsDir))
		return m, nil
	}

	return nil, &ImportError{Module: full, Tried: tried}
}

// loadSource executes a module file in a fresh module scope. pkgDir is set
// when the file is a package's __init__.
func (i *Interpreter) loadSource(full, file, pkgDir string) (*Module, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, &ImportError{Module: full, Err: err}
	}
	prog, err := parser.Parse(string(data))
	if err != nil {
		return nil, &ImportError{Module: full, Err: fmt.Errorf("%s: %w", file, err)}
	}

	m := NewModule(full, moduleDoc(prog))
	m.File = file
	m.Dict["__file__"] = StringValue(file)
	if pkgDir != "" {
		m.Package = true
		m.Path = pkgDir
		m.Dict["__path__"] = StringValue(pkgDir)
	}

	i.modules[full] = m
	i.moduleState[full] = modLoading
	i.moduleStack = append(i.moduleStack, full)

	runErr := i.runIn(m, file, string(data), prog)

	i.moduleStack = i.moduleStack[:len(i.moduleStack)-1]

	if runErr != nil {
		delete(i.modules, full)
		i.moduleState[full] = modNone
		return nil, &ImportError{Module: full, Err: runErr}
	}

	i.moduleState[full] = modLoaded
	i.log.Debug("loaded module", zap.String("module", full), zap.String("file", file))
	return m, nil
}

// runIn executes prog as the body of module m.
func (i *Interpreter) runIn(m *Module, file, src string, prog []ast.Stmt) error {
	return i.withSource(file, src, func() error {
		i.pushFrame(&frame{ns: NewMapNamespace(m.Dict), scope: m, pkg: packageOf(m)})
		defer i.popFrame()
		return i.Run(prog)
	})
}

// moduleDoc returns the leading string literal of a module body, if any.
func moduleDoc(prog []ast.Stmt) string {
	if len(prog) == 0 {
		return ""
	}
	es, ok := prog[0].(*ast.ExprStmt)
	if !ok {
		return ""
	}
	if lit, ok := es.Expr.(*ast.StringLiteral); ok {
		return lit.Value
	}
	return ""
}

// packageOf is the package relative imports inside m resolve against.
func packageOf(m *Module) string {
	if m == nil || m.Name == MainModule {
		return ""
	}
	if m.IsPackage() {
		return m.Name
	}
	if idx := strings.LastIndexByte(m.Name, '.'); idx >= 0 {
		return m.Name[:idx]
	}
	return ""
}

func resolveRelative(level int, module, pkg string) (string, error) {
	if pkg == "" {
		return "", errors.New("attempted relative import with no known parent package")
	}
	parts := strings.Split(pkg, ".")
	keep := len(parts) - (level - 1)
	if keep <= 0 {
		return "", errors.New("attempted relative import beyond top-level package")
	}
	base := strings.Join(parts[:keep], ".")
	if module == "" {
		return base, nil
	}
	return base + "." + module, nil
}

// bindImport executes an import or from-import statement, binding names into ns.
func (i *Interpreter) bindImport(s ast.Stmt, ns Namespace, pkg string) error {
	switch stmt := s.(type) {
	case *ast.ImportStmt:
		for _, alias := range stmt.Names {
			leaf, err := i.ImportModule(alias.Name)
			if err != nil {
				return err
			}
			bound := ObjectValue(leaf)
			if alias.AsName == "" {
				top, _ := i.Loaded(alias.Bound())
				bound = ObjectValue(top)
			}
			if err := ns.Set(alias.Bound(), bound); err != nil {
				return err
			}
		}
		return nil

	case *ast.FromImportStmt:
		modName := stmt.Module
		if stmt.Level > 0 {
			name, err := resolveRelative(stmt.Level, stmt.Module, pkg)
			if err != nil {
				return &ImportError{Module: stmt.ModuleName(), Err: err}
			}
			modName = name
		}
		m, err := i.ImportModule(modName)
		if err != nil {
			return err
		}
		for _, alias := range stmt.Names {
			v, ok := m.Dict[alias.Name]
			if !ok {
				sub, err := i.ImportModule(modName + "." + alias.Name)
				if err != nil {
					return &ImportError{Module: modName, Err: fmt.Errorf("cannot import name %q", alias.Name)}
				}
				v = ObjectValue(sub)
			}
			bound := alias.Name
			if alias.AsName != "" {
				bound = alias.AsName
			}
			if err := ns.Set(bound, v); err != nil {
				return err
			}
		}
		return nil

	default:
		return fmt.Errorf("not an import statement: %s", s.NodeKind())
	}
}

// ExecImport runs a single import statement given as source text against
// target. Anything other than exactly one import or from-import is rejected
// before it runs.
func (i *Interpreter) ExecImport(src string, target Namespace) error {
	stmts, err := parser.Parse(src)
	if err != nil {
		return fmt.Errorf("parse %q: %w", src, err)
	}
	if len(stmts) != 1 {
		return fmt.Errorf("expected a single import statement, got %d statements", len(stmts))
	}
	switch stmts[0].(type) {
	case *ast.ImportStmt, *ast.FromImportStmt:
	default:
		return fmt.Errorf("expected an import statement, got %s", stmts[0].NodeKind())
	}
	return i.bindImport(stmts[0], target, "")
}

func (i *Interpreter) circularImportMessage(target string) string {
	var b strings.Builder
	b.WriteString("Circular import detected:\n")
	for _, p := range i.moduleStack {
		b.WriteString("  ")
		b.WriteString(p)
		b.WriteString("\n")
	}
	b.WriteString("  ")
	b.WriteString(target)
	return strings.TrimRight(b.String(), "\n")
}

// ---------- File includes ----------

func (i *Interpreter) fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}

func (i *Interpreter) dirExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && st.IsDir()
}

func (i *Interpreter) includeCandidates(raw string, importerFilename string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}
	}

	withExt := raw
	needsExt := filepath.Ext(raw) == ""
	if needsExt {
		withExt = raw + sourceExt
	}

	if filepath.IsAbs(raw) {
		cands := []string{filepath.Clean(raw)}
		if needsExt {
			cands = append(cands, filepath.Clean(withExt))
		}
		return cands
	}

	roots := []string{}
	if importerFilename != "" {
		roots = append(roots, filepath.Dir(importerFilename))
	}
	roots = append(roots, i.searchPath...)

	cands := []string{}
	for _, root := range roots {
		cands = append(cands, filepath.Clean(filepath.Join(root, raw)))
		if needsExt {
			cands = append(cands, filepath.Clean(filepath.Join(root, withExt)))
		}
	}

	seen := map[string]bool{}
	out := []string{}
	for _, c := range cands {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

func (i *Interpreter) resolveIncludePath(raw string, importerFilename string) (string, []string) {
	cands := i.includeCandidates(raw, importerFilename)
	for _, c := range cands {
		if i.fileExists(c) {
			return c, cands
		}
	}
	if len(cands) > 0 {
		return cands[0], cands
	}
	return raw, cands
}

// execInclude runs a file into the current namespace once per session.
func (i *Interpreter) execInclude(stmt *ast.IncludeStmt) error {
	resolved, tried := i.resolveIncludePath(stmt.Path, i.filename)

	switch i.included[resolved] {
	case modLoaded:
		return nil
	case modLoading:
		return i.runtimeErr(stmt.GetSpan(), i.circularImportMessage(resolved))
	}

	if !i.fileExists(resolved) {
		return i.wrapErr(stmt.GetSpan(), &ImportError{Module: stmt.Path, Tried: tried})
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return i.runtimeErr(stmt.GetSpan(), fmt.Sprintf("import failed for %q: %v", resolved, err))
	}

	p := parser.New(lexer.New(string(data)))
	prog, err := p.ParseProgram()
	if err != nil {
		return err
	}

	i.included[resolved] = modLoading
	i.moduleStack = append(i.moduleStack, resolved)

	runErr := i.withSource(resolved, string(data), func() error { return i.Run(prog) })
	i.moduleStack = i.moduleStack[:len(i.moduleStack)-1]

	if runErr != nil {
		i.included[resolved] = modNone
		return runErr
	}

	i.included[resolved] = modLoaded
	return nil
}
