package interpreter

// Namespace is the name table top-level code reads and writes. The REPL's
// namespace can be swapped at runtime (see Interpreter.SetNamespace); function
// bodies never consult it and resolve free variables through their module.
type Namespace interface {
	// Get returns *NameError when name is unbound.
	Get(name string) (Value, error)
	Set(name string, v Value) error
	// Delete returns *NameError when name is unbound.
	Delete(name string) error
	// Snapshot returns a copy of the current bindings.
	Snapshot() map[string]Value
}

// MapNamespace is a plain, non-resolving namespace over a map.
type MapNamespace struct {
	vars map[string]Value
}

// NewMapNamespace wraps vars without copying it.
func NewMapNamespace(vars map[string]Value) *MapNamespace {
	if vars == nil {
		vars = map[string]Value{}
	}
	return &MapNamespace{vars: vars}
}

func (n *MapNamespace) Get(name string) (Value, error) {
	if v, ok := n.vars[name]; ok {
		return v, nil
	}
	return Value{}, &NameError{Name: name}
}

func (n *MapNamespace) Set(name string, v Value) error {
	n.vars[name] = v
	return nil
}

func (n *MapNamespace) Delete(name string) error {
	if _, ok := n.vars[name]; !ok {
		return &NameError{Name: name}
	}
	delete(n.vars, name)
	return nil
}

func (n *MapNamespace) Snapshot() map[string]Value {
	out := make(map[string]Value, len(n.vars))
	for k, v := range n.vars {
		out[k] = v
	}
	return out
}
