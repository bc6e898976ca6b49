package autoimport

import (
	"sort"
	"strings"

	"github.com/edwardcox/bplplus-autoimport/ast"
	"github.com/edwardcox/bplplus-autoimport/parser"
)

// Cache maps a bound name to the distinct import statements that would bind
// it. More than one statement for a name means the name is ambiguous.
type Cache struct {
	entries map[string]map[string]struct{}
}

func NewCache() *Cache {
	return &Cache{entries: map[string]map[string]struct{}{}}
}

// Add records stmt as a way to bind name.
func (c *Cache) Add(name, stmt string) {
	set, ok := c.entries[name]
	if !ok {
		set = map[string]struct{}{}
		c.entries[name] = set
	}
	set[stmt] = struct{}{}
}

// Candidates returns the statements recorded for name, sorted.
func (c *Cache) Candidates(name string) ([]string, bool) {
	set, ok := c.entries[name]
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(set))
	for stmt := range set {
		out = append(out, stmt)
	}
	sort.Strings(out)
	return out, true
}

// Clear drops name and reports whether anything was recorded for it.
func (c *Cache) Clear(name string) bool {
	if _, ok := c.entries[name]; !ok {
		return false
	}
	delete(c.entries, name)
	return true
}

// Names returns the cached names, sorted.
func (c *Cache) Names() []string {
	out := make([]string, 0, len(c.entries))
	for name := range c.entries {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (c *Cache) Len() int { return len(c.entries) }

// BuildCache replays history oldest to newest in a single pass. Clear
// directives act on the cache as built so far, so a statement earlier than
// the directive is forgotten while a later one is kept. Entries that fail to
// parse, and malformed directives, contribute nothing.
func BuildCache(history []string) *Cache {
	c := NewCache()
	for _, entry := range history {
		if args, ok := directiveArgs(entry); ok {
			d, err := ParseDirective(args)
			if err == nil && d.Clear != "" {
				c.Clear(d.Clear)
			}
			continue
		}
		stmts, err := parser.Parse(entry)
		if err != nil {
			continue
		}
		collectImports(c, stmts)
	}
	return c
}

// collectImports records every import clause in stmts, nested blocks
// included. Relative from-imports only make sense inside their package and
// are skipped.
func collectImports(c *Cache, stmts []ast.Stmt) {
	ast.Inspect(stmts, func(s ast.Stmt) bool {
		switch st := s.(type) {
		case *ast.ImportStmt:
			for _, alias := range st.Names {
				c.Add(alias.Bound(), "import "+alias.String())
			}
		case *ast.FromImportStmt:
			if st.Level > 0 {
				return true
			}
			for _, alias := range st.Names {
				bound := alias.Name
				if alias.AsName != "" {
					bound = alias.AsName
				}
				c.Add(bound, "from "+st.Module+" import "+alias.String())
			}
		}
		return true
	})
}

// directiveArgs reports whether entry is an :autoimport directive and returns
// its argument text.
func directiveArgs(entry string) (string, bool) {
	trimmed := strings.TrimSpace(entry)
	if !strings.HasPrefix(trimmed, DirectivePrefix) {
		return "", false
	}
	rest := trimmed[len(DirectivePrefix):]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return "", false
	}
	return rest, true
}
