package interpreter

import "fmt"

// Module is a loaded module. Dict is its attribute table and doubles as the
// execution scope for code defined in the module.
type Module struct {
	Name string
	// File is the source file, empty for native and namespace modules.
	File string
	// Path is the package directory. Packages without one are native.
	Path    string
	Package bool
	Dict    map[string]Value
}

func NewModule(name, doc string) *Module {
	m := &Module{Name: name, Dict: map[string]Value{}}
	m.Dict["__name__"] = StringValue(name)
	m.Dict["__doc__"] = NullValue()
	if doc != "" {
		m.Dict["__doc__"] = StringValue(doc)
	}
	return m
}

func (m *Module) IsPackage() bool { return m.Package }

func (m *Module) TypeName() string { return "module" }

func (m *Module) GetAttr(name string) (Value, error) {
	if v, ok := m.Dict[name]; ok {
		return v, nil
	}
	return Value{}, &AttributeError{Type: fmt.Sprintf("module %q", m.Name), Name: name}
}

// SetAttr binds name. It never fails; the error return satisfies Object.
func (m *Module) SetAttr(name string, v Value) error {
	m.Dict[name] = v
	return nil
}

// DelAttr removes name and reports whether it was bound.
func (m *Module) DelAttr(name string) bool {
	if _, ok := m.Dict[name]; !ok {
		return false
	}
	delete(m.Dict, name)
	return true
}

func (m *Module) Attrs() map[string]Value { return m.Dict }

func (m *Module) Doc() string {
	if v, ok := m.Dict["__doc__"]; ok && v.Kind == ValString {
		return v.Str
	}
	return ""
}

func (m *Module) String() string {
	if m.File != "" {
		return fmt.Sprintf("<module %q from %q>", m.Name, m.File)
	}
	if m.Path != "" {
		return fmt.Sprintf("<module %q (namespace)>", m.Name)
	}
	return fmt.Sprintf("<module %q (native)>", m.Name)
}
