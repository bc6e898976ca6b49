package autoimport

import (
	"go.uber.org/zap"

	"github.com/edwardcox/bplplus-autoimport/interpreter"
)

// Namespace stands in for the REPL namespace while autoimport is active.
// A lookup miss that is not a builtin is resolved by running the one cached
// import statement that binds the name, if there is exactly one.
//
// Writes go to both the namespace and the host scope, since function bodies
// resolve free variables through the scope and never see this map.
type Namespace struct {
	vars map[string]interpreter.Value
	s    *Session
}

func newNamespace(s *Session, vars map[string]interpreter.Value) *Namespace {
	if vars == nil {
		vars = map[string]interpreter.Value{}
	}
	return &Namespace{vars: vars, s: s}
}

func (n *Namespace) Get(name string) (interpreter.Value, error) {
	v, ok := n.vars[name]
	if !ok {
		// Builtins win over anything importable, so a local directory
		// cannot shadow one. They are never modules and need no wrapping.
		if b, ok := interpreter.LookupBuiltin(name); ok {
			return b, nil
		}
		var err error
		if v, err = n.resolve(name); err != nil {
			return interpreter.Value{}, err
		}
	}
	return n.s.wrap(v), nil
}

// resolve runs the import that binds name. Every failure surfaces as the
// plain NameError the lookup would have produced anyway.
func (n *Namespace) resolve(name string) (interpreter.Value, error) {
	miss := &interpreter.NameError{Name: name}

	candidates, ok := n.s.cache.Candidates(name)
	if !ok {
		candidates = []string{"import " + name}
	}
	switch {
	case len(candidates) == 0:
		return interpreter.Value{}, miss
	case len(candidates) > 1:
		n.s.metrics.Ambiguous.Inc()
		n.s.report(ambiguityMessage(name, candidates))
		return interpreter.Value{}, miss
	}

	stmt := candidates[0]
	if err := n.s.host.ExecImport(stmt, n); err != nil {
		n.s.metrics.Failed.Inc()
		n.s.log.Debug("autoimport failed", zap.String("name", name), zap.String("stmt", stmt), zap.Error(err))
		return interpreter.Value{}, miss
	}
	n.s.imported = append(n.s.imported, stmt)
	n.s.metrics.Imports.Inc()
	n.s.log.Debug("autoimport", zap.String("name", name), zap.String("stmt", stmt))
	n.s.report(stmt)

	v, ok := n.vars[name]
	if !ok {
		return interpreter.Value{}, miss
	}
	return v, nil
}

func (n *Namespace) Set(name string, v interpreter.Value) error {
	n.vars[name] = v
	return n.s.host.Scope().SetAttr(name, v)
}

func (n *Namespace) Delete(name string) error {
	if _, ok := n.vars[name]; !ok {
		return &interpreter.NameError{Name: name}
	}
	delete(n.vars, name)
	if !n.s.host.Scope().DelAttr(name) {
		return &interpreter.NameError{Name: name}
	}
	return nil
}

func (n *Namespace) Snapshot() map[string]interpreter.Value {
	out := make(map[string]interpreter.Value, len(n.vars))
	for k, v := range n.vars {
		out[k] = v
	}
	return out
}
