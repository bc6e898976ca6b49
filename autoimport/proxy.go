package autoimport

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/edwardcox/bplplus-autoimport/interpreter"
)

// Proxy wraps a package so that reading a missing attribute imports the
// submodule of that name. A fresh Proxy is made on every access; it holds
// no state of its own beyond the documentation copied at construction.
type Proxy struct {
	mod *interpreter.Module
	s   *Session
	doc string
}

func newProxy(s *Session, m *interpreter.Module) *Proxy {
	return &Proxy{mod: m, s: s, doc: m.Doc()}
}

func (p *Proxy) TypeName() string { return "autoimport module" }

func (p *Proxy) GetAttr(name string) (interpreter.Value, error) {
	if v, err := p.mod.GetAttr(name); err == nil {
		return p.s.wrap(v), nil
	}

	target := p.mod.Name + "." + name
	sub, err := p.s.host.ImportModule(target)
	if err != nil {
		p.s.log.Debug("submodule autoimport failed", zap.String("module", target), zap.Error(err))
		// A fresh error: the import failure is not part of the chain.
		return interpreter.Value{}, &interpreter.AttributeError{Type: fmt.Sprintf("module %q", p.mod.Name), Name: name}
	}
	p.s.metrics.Submodules.Inc()
	p.s.report("import " + target)
	return p.s.wrap(interpreter.ObjectValue(sub)), nil
}

// SetAttr writes through to the package.
func (p *Proxy) SetAttr(name string, v interpreter.Value) error {
	return p.mod.SetAttr(name, v)
}

func (p *Proxy) Attrs() map[string]interpreter.Value { return p.mod.Attrs() }

func (p *Proxy) Doc() string { return p.doc }

// Unwrap returns the wrapped package.
func (p *Proxy) Unwrap() interpreter.Object { return p.mod }

func (p *Proxy) String() string {
	return fmt.Sprintf("<autoimport module %q>", p.mod.Name)
}
