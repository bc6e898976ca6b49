// Package autoimport resolves undefined names at the REPL by importing them.
//
// A Session swaps the interpreter's REPL namespace for a Namespace that, on a
// lookup miss, consults a cache of import statements mined from history and
// runs the single statement that binds the name. Packages it hands out are
// wrapped in a Proxy that imports submodules on first attribute access.
package autoimport

import (
	"fmt"
	"maps"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/edwardcox/bplplus-autoimport/interpreter"
)

// DefaultHistoryLength is how many history entries the cache is built from.
const DefaultHistoryLength = 1000

// Host is the interpreter surface a Session drives.
type Host interface {
	// Namespace is the namespace REPL code is currently evaluated against.
	Namespace() interpreter.Namespace
	SetNamespace(ns interpreter.Namespace)
	// Scope is the module function bodies resolve free variables through.
	Scope() *interpreter.Module
	// ExecImport runs one import statement, binding names into target.
	ExecImport(src string, target interpreter.Namespace) error
	ImportModule(name string) (*interpreter.Module, error)
}

// History returns up to limit recent entries, oldest first.
type History interface {
	Tail(limit int) ([]string, error)
}

// HistoryFunc adapts a function to History.
type HistoryFunc func(limit int) ([]string, error)

func (f HistoryFunc) Tail(limit int) ([]string, error) { return f(limit) }

// Reporter prints one status line. It must not fail.
type Reporter interface {
	Report(msg string)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(msg string)

func (f ReporterFunc) Report(msg string) { f(msg) }

// Session is one activation context: the installed namespace, its import
// cache and the log of imports it ran. A Session is not safe for concurrent
// use; callers that touch it from more than one goroutine must serialise.
type Session struct {
	host     Host
	history  History
	reporter Reporter

	log           *zap.Logger
	metrics       *Metrics
	historyLength int

	ns       *Namespace
	cache    *Cache
	imported []string
}

type Option func(*Session)

func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithHistoryLength bounds the history window the cache is built from.
func WithHistoryLength(n int) Option {
	return func(s *Session) { s.historyLength = n }
}

// WithMetrics sets the counters the session updates.
func WithMetrics(m *Metrics) Option {
	return func(s *Session) {
		if m != nil {
			s.metrics = m
		}
	}
}

// New creates an inactive session. history may be nil, in which case the
// cache starts empty.
func New(host Host, history History, reporter Reporter, opts ...Option) *Session {
	s := &Session{
		host:          host,
		history:       history,
		reporter:      reporter,
		log:           zap.NewNop(),
		historyLength: DefaultHistoryLength,
		cache:         NewCache(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(prometheus.NewRegistry())
	}
	return s
}

// Active reports whether the resolving namespace is installed.
func (s *Session) Active() bool { return s.ns != nil }

// Install builds the cache from history and installs a resolving namespace
// seeded from the host's current one. The cache is built on the caller's
// goroutine before Install returns.
func (s *Session) Install() {
	if s.Active() {
		return
	}
	s.cache = s.buildCache()
	s.metrics.CacheNames.Set(float64(s.cache.Len()))
	s.install()
	s.log.Info("autoimport installed", zap.Int("cached_names", s.cache.Len()))
}

// Uninstall replaces the resolving namespace with a plain one holding the
// same bindings. Undefined names fail immediately afterwards.
func (s *Session) Uninstall() {
	if !s.Active() {
		return
	}
	s.uninstall()
	s.log.Info("autoimport uninstalled")
}

// Suspend runs fn with the resolving namespace uninstalled, then reinstalls
// it. The cache and the import log carry over. When the session is inactive
// fn just runs.
func (s *Session) Suspend(fn func() error) error {
	if !s.Active() {
		return fn()
	}
	s.uninstall()
	defer s.install()
	return fn()
}

func (s *Session) install() {
	s.ns = newNamespace(s, s.host.Namespace().Snapshot())
	s.host.SetNamespace(s.ns)
}

func (s *Session) uninstall() {
	scope := s.host.Scope()
	maps.Copy(scope.Dict, s.ns.Snapshot())
	s.host.SetNamespace(interpreter.NewMapNamespace(scope.Attrs()))
	s.ns = nil
}

func (s *Session) buildCache() *Cache {
	if s.history == nil {
		return NewCache()
	}
	entries, err := s.history.Tail(s.historyLength)
	if err != nil {
		s.log.Warn("reading history for autoimport cache failed", zap.Error(err))
		return NewCache()
	}
	c := BuildCache(entries)
	s.log.Debug("autoimport cache built",
		zap.Int("entries", len(entries)),
		zap.Strings("names", c.Names()),
	)
	return c
}

// wrap returns v with packages wrapped in a Proxy.
func (s *Session) wrap(v interpreter.Value) interpreter.Value {
	if m, ok := v.Module(); ok && m.IsPackage() {
		return interpreter.ObjectValue(newProxy(s, m))
	}
	return v
}

func (s *Session) report(msg string) {
	if s.reporter != nil {
		s.reporter.Report(msg)
	}
}

// Clear drops name from the cache, so the next lookup resolves it afresh.
func (s *Session) Clear(name string) bool {
	ok := s.cache.Clear(name)
	if ok {
		s.metrics.CacheNames.Set(float64(s.cache.Len()))
		s.report(fmt.Sprintf("cleared symbol %q from autoimport cache.", name))
	} else {
		s.report(fmt.Sprintf("didn't find symbol %q in autoimport cache.", name))
	}
	return ok
}

// List reports the imports run this session.
func (s *Session) List() {
	if len(s.imported) == 0 {
		s.report("no autoimports in this session yet.")
		return
	}
	s.report("the following autoimports were run:\n" + strings.Join(s.imported, "\n"))
}

// Directive runs the arguments of an ":autoimport" command.
func (s *Session) Directive(args string) error {
	d, err := ParseDirective(args)
	if err != nil {
		return err
	}
	if d.Clear == "" && !d.List {
		return fmt.Errorf("%s: nothing to do\n%s", DirectivePrefix, DirectiveUsage())
	}
	if d.Clear != "" {
		s.Clear(d.Clear)
	}
	if d.List {
		s.List()
	}
	return nil
}

// Imported returns the statements auto-imported this session, in order.
func (s *Session) Imported() []string {
	return append([]string(nil), s.imported...)
}

// Cache is the current import cache.
func (s *Session) Cache() *Cache { return s.cache }

func ambiguityMessage(name string, candidates []string) string {
	return fmt.Sprintf("multiple imports available for %q:\n%s\n'%s --clear %s' can be used to clear the cache for this symbol.",
		name, strings.Join(candidates, "\n"), DirectivePrefix, name)
}
