package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/chzyer/readline"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"go.uber.org/zap"

	"github.com/edwardcox/bplplus-autoimport/autoimport"
	"github.com/edwardcox/bplplus-autoimport/config"
	"github.com/edwardcox/bplplus-autoimport/history"
	"github.com/edwardcox/bplplus-autoimport/interpreter"
)

// errQuit ends the read loop.
var errQuit = errors.New("quit")

// extName is the name :load_ext and :unload_ext accept.
const extName = "autoimport"

// repl is the state shared by every input of one REPL run.
type repl struct {
	in       *interpreter.Interpreter
	session  *autoimport.Session
	history  *history.Store
	printer  *autoimport.Printer
	registry *prometheus.Registry

	out    io.Writer
	errOut io.Writer
	log    *zap.Logger

	chunk int
}

// newREPL wires an interpreter, its autoimport session and the history store.
// The session is installed when enabled is set.
func newREPL(c *config.Config, store *history.Store, out, errOut io.Writer, log *zap.Logger, enabled bool) *repl {
	if log == nil {
		log = zap.NewNop()
	}
	r := &repl{
		history:  store,
		registry: prometheus.NewRegistry(),
		out:      out,
		errOut:   errOut,
		log:      log,
	}
	r.in = interpreter.New(
		interpreter.WithSearchPath(c.SearchPath...),
		interpreter.WithStdout(out),
		interpreter.WithLogger(log.Named("interp")),
	)
	r.printer = autoimport.NewPrinter(out, c.Autoimport.Color, autoimport.WithTerminal(os.Stdout))

	var hist autoimport.History
	if store != nil {
		hist = store
	}
	r.session = autoimport.New(r.in, hist, r.printer,
		autoimport.WithLogger(log.Named("autoimport")),
		autoimport.WithHistoryLength(c.History.LoadLength),
		autoimport.WithMetrics(autoimport.NewMetrics(r.registry)),
	)
	if enabled {
		r.session.Install()
	}
	return r
}

func openHistory(c *config.Config, log *zap.Logger) (*history.Store, error) {
	path := c.History.Path
	if path == "" {
		path = ":memory:"
	}
	return history.Open(path, history.WithLogger(log.Named("history")))
}

func runREPL() error {
	store, err := openHistory(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:                 "bpl> ",
		InterruptPrompt:        "^C",
		EOFPrompt:              "exit",
		HistorySearchFold:      true,
		DisableAutoSaveHistory: true,
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	// Seed line editing history from the store.
	if past, err := store.Tail(cfg.History.LoadLength); err == nil {
		for _, entry := range past {
			_ = rl.SaveHistory(strings.TrimRight(entry, "\n"))
		}
	}

	r := newREPL(cfg, store, rl.Stdout(), rl.Stderr(), logger, cfg.Autoimport.Enabled)

	if w, err := config.NewWatcher(cfgPath, config.WithWatcherLogger(logger.Named("config"))); err == nil {
		w.OnChange(func(c *config.Config) { r.printer.SetColor(c.Autoimport.Color) })
		w.StartAsync()
		defer func() {
			_ = w.Stop()
			w.Wait()
		}()
	} else {
		logger.Debug("config watcher disabled", zap.Error(err))
	}

	fmt.Fprintln(r.out, "BPL+ REPL. :help for commands, :quit to exit.")
	fmt.Fprintln(r.out, "Multi-line blocks supported (if/while/for/function ... end).")
	fmt.Fprintln(r.out, "Paste Mode: type :paste, then end with '.' or :endpaste")
	if r.session.Active() {
		fmt.Fprintln(r.out, "Autoimport is on: undefined names are imported from your history.")
	}
	fmt.Fprintln(r.out)

	var buf strings.Builder
	depth := 0

	pasteMode := false
	var pasteBuf strings.Builder

	for {
		if pasteMode {
			rl.SetPrompt(pastePrompt())
		} else {
			rl.SetPrompt(replPrompt(depth))
		}

		line, err := rl.Readline()

		// Ctrl+C
		if err == readline.ErrInterrupt {
			if pasteMode {
				pasteMode = false
				pasteBuf.Reset()
				fmt.Fprintln(r.out, "^C (paste cancelled)")
				continue
			}
			if buf.Len() > 0 || depth > 0 {
				buf.Reset()
				depth = 0
				fmt.Fprintln(r.out, "^C (buffer cleared)")
			}
			continue
		}

		// Ctrl+D
		if err == io.EOF {
			fmt.Fprintln(r.out)
			return nil
		}
		if err != nil {
			return err
		}

		trim := strings.TrimSpace(line)

		if pasteMode {
			if trim == "." || trim == ":endpaste" {
				src := pasteBuf.String()
				pasteBuf.Reset()
				pasteMode = false
				if strings.TrimSpace(src) == "" {
					fmt.Fprintln(r.out, "(paste buffer empty)")
					continue
				}
				r.runChunk(src)
				_ = rl.SaveHistory(strings.TrimRight(src, "\n"))
				continue
			}
			if trim == ":cancel" {
				pasteBuf.Reset()
				pasteMode = false
				fmt.Fprintln(r.out, "(paste cancelled)")
				continue
			}
			pasteBuf.WriteString(line)
			pasteBuf.WriteString("\n")
			continue
		}

		// Commands only when not buffering a block.
		if depth == 0 && buf.Len() == 0 && strings.HasPrefix(trim, ":") {
			_ = rl.SaveHistory(trim)
			if trim == ":paste" {
				pasteBuf.Reset()
				pasteMode = true
				fmt.Fprintln(r.out, "(paste mode: end with '.' or :endpaste, cancel with :cancel)")
				continue
			}
			if trim == ":reset" {
				fmt.Fprintln(r.out, "(buffer cleared)")
				continue
			}
			if err := r.command(trim); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				fmt.Fprintln(r.errOut, err.Error())
			}
			continue
		}

		buf.WriteString(line)
		buf.WriteString("\n")

		depth = updateDepth(depth, trim)
		if depth > 0 {
			continue
		}

		src := buf.String()
		buf.Reset()
		if strings.TrimSpace(src) == "" {
			continue
		}
		r.runChunk(src)
		_ = rl.SaveHistory(strings.TrimRight(src, "\n"))
	}
}

// record appends src to the history store. Failures only get logged.
func (r *repl) record(src string) {
	if r.history == nil {
		return
	}
	if err := r.history.Append(src); err != nil {
		r.log.Warn("history append failed", zap.Error(err))
	}
}

// runChunk records and runs one complete input, echoing a trailing
// expression's value. Errors are printed, not returned.
func (r *repl) runChunk(src string) {
	r.record(strings.TrimRight(src, "\n"))
	r.chunk++
	v, ok, err := evalChunk(r.in, replChunkFilename(r.chunk), src)
	if err != nil {
		fmt.Fprintln(r.errOut, err.Error())
		return
	}
	if ok && v.Kind != interpreter.ValNull {
		fmt.Fprintln(r.out, v.Repr())
	}
}

func replChunkFilename(chunk int) string {
	cwd, _ := os.Getwd()
	if cwd == "" {
		cwd = "."
	}
	return filepath.Join(cwd, fmt.Sprintf("<repl:%d>", chunk))
}

func replPrompt(depth int) string {
	cwd, err := os.Getwd()
	base := "bpl"
	if err == nil && cwd != "" {
		base = filepath.Base(cwd)
	}

	if depth > 0 {
		return fmt.Sprintf("...[%s]> ", base)
	}
	return fmt.Sprintf("bpl[%s]> ", base)
}

func pastePrompt() string {
	cwd, err := os.Getwd()
	base := "bpl"
	if err == nil && cwd != "" {
		base = filepath.Base(cwd)
	}
	return fmt.Sprintf("paste[%s]> ", base)
}

// splitCommand splits ":name rest" at the first whitespace into name and
// trimmed rest.
func splitCommand(cmd string) (string, string) {
	cmd = strings.TrimSpace(cmd)
	end := strings.IndexFunc(cmd, unicode.IsSpace)
	if end < 0 {
		return cmd, ""
	}
	return cmd[:end], strings.TrimSpace(cmd[end:])
}

// command runs one ':' command line.
func (r *repl) command(cmd string) error {
	name, arg := splitCommand(cmd)
	switch name {
	case ":q", ":quit", ":exit":
		return errQuit

	case ":h", ":help":
		r.help()
		return nil

	case ":pwd":
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		fmt.Fprintln(r.out, cwd)
		return nil

	case ":cd":
		if arg == "" {
			return fmt.Errorf("usage: :cd <dir>")
		}
		return os.Chdir(arg)

	case ":load":
		if arg == "" {
			return fmt.Errorf("usage: :load <file.bpl>")
		}
		path := arg
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		// Imports resolve relative to the loaded file's directory.
		if dir := filepath.Dir(path); dir != "" {
			_ = os.Chdir(dir)
		}
		return runFile(path)

	case ":clear":
		fmt.Fprint(r.out, "\033[2J\033[H")
		return nil

	case ":vars":
		r.printVars()
		return nil

	case ":funcs":
		names := r.in.FuncNames()
		if len(names) == 0 {
			fmt.Fprintln(r.out, "(no user functions)")
			return nil
		}
		for _, n := range names {
			fmt.Fprintln(r.out, n)
		}
		return nil

	case ":modules":
		r.printModules()
		return nil

	case autoimport.DirectivePrefix:
		// Directives go to history so a rebuilt cache replays them.
		r.record(cmd)
		return r.session.Directive(arg)

	case ":load_ext":
		if arg != extName {
			return fmt.Errorf("unknown extension %q", arg)
		}
		r.session.Install()
		return nil

	case ":unload_ext":
		if arg != extName {
			return fmt.Errorf("unknown extension %q", arg)
		}
		r.session.Uninstall()
		return nil

	case ":time":
		if arg == "" {
			return fmt.Errorf("usage: :time <code>")
		}
		return r.timed(arg, 1)

	case ":timeit":
		n, code, err := parseTimeit(arg)
		if err != nil {
			return err
		}
		return r.timed(code, n)

	case ":metrics":
		return r.printMetrics()

	case ":history":
		limit := 10
		if arg != "" {
			n, err := strconv.Atoi(arg)
			if err != nil {
				return fmt.Errorf("usage: :history [n]")
			}
			limit = n
		}
		return r.printHistory(limit)

	default:
		fmt.Fprintln(r.out, "Unknown command. Try :help")
		return nil
	}
}

func (r *repl) help() {
	lines := []string{
		"Commands:",
		"  :help                    Show this help",
		"  :quit                    Exit the REPL",
		"  :pwd                     Print current directory",
		"  :cd <dir>                Change directory",
		"  :load <file>             Run a .bpl file (fresh interpreter, like the CLI)",
		"  :reset                   Clear buffered multi-line input",
		"  :clear                   Clear the screen",
		"  :paste                   Start paste mode (end with '.' or :endpaste)",
		"  :vars                    Show global variables",
		"  :funcs                   Show user-defined functions",
		"  :modules                 Show module load state",
		"  :history [n]             Show the last n history entries",
		"",
		"Autoimport:",
		"  :autoimport --list       Show imports run automatically this session",
		"  :autoimport --clear NAME Forget the cached imports for NAME",
		"  :load_ext autoimport     Turn autoimport on",
		"  :unload_ext autoimport   Turn autoimport off",
		"  :time <code>             Time code, with autoimport off",
		"  :timeit [-n N] <code>    Time N runs of code, with autoimport off",
		"  :metrics                 Show autoimport counters",
		"",
		"Notes:",
		"  - Multi-line blocks: if/while/for/function ... end",
		"  - REPL input shares state across runs (vars/functions/modules persist).",
	}
	for _, l := range lines {
		fmt.Fprintln(r.out, l)
	}
}

func (r *repl) printVars() {
	globs := r.in.GlobalsSnapshot()
	if len(globs) == 0 {
		fmt.Fprintln(r.out, "(no globals)")
		return
	}
	keys := make([]string, 0, len(globs))
	for k := range globs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(r.out, "%s = %s\n", k, globs[k].Repr())
	}
}

func (r *repl) printModules() {
	loading, loaded := r.in.ModulesSnapshot()
	if len(loading) == 0 && len(loaded) == 0 {
		fmt.Fprintln(r.out, "(no modules loaded)")
		return
	}
	if len(loading) > 0 {
		fmt.Fprintln(r.out, "loading:")
		for _, p := range loading {
			fmt.Fprintln(r.out, "  "+p)
		}
	}
	if len(loaded) > 0 {
		fmt.Fprintln(r.out, "loaded:")
		for _, p := range loaded {
			fmt.Fprintln(r.out, "  "+p)
		}
	}
}

// parseTimeit splits "[-n N] code".
func parseTimeit(arg string) (int, string, error) {
	n := 1
	if rest, ok := strings.CutPrefix(arg, "-n"); ok {
		rest = strings.TrimSpace(rest)
		count, code, _ := strings.Cut(rest, " ")
		v, err := strconv.Atoi(count)
		if err != nil || v < 1 {
			return 0, "", fmt.Errorf("usage: :timeit [-n N] <code>")
		}
		n = v
		arg = strings.TrimSpace(code)
	}
	if arg == "" {
		return 0, "", fmt.Errorf("usage: :timeit [-n N] <code>")
	}
	return n, arg, nil
}

// timed runs code n times with autoimport suspended, so timings never
// include an import.
func (r *repl) timed(code string, n int) error {
	var elapsed time.Duration
	err := r.session.Suspend(func() error {
		for k := 0; k < n; k++ {
			r.chunk++
			start := time.Now()
			_, _, err := evalChunk(r.in, replChunkFilename(r.chunk), code)
			elapsed += time.Since(start)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if n == 1 {
		fmt.Fprintf(r.out, "Wall time: %s\n", elapsed)
	} else {
		fmt.Fprintf(r.out, "%d loops, %s per loop\n", n, elapsed/time.Duration(n))
	}
	return nil
}

func (r *repl) printMetrics() error {
	families, err := r.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			fmt.Fprintf(r.out, "%s %s\n", mf.GetName(), formatMetric(mf.GetType(), m))
		}
	}
	return nil
}

func formatMetric(t dto.MetricType, m *dto.Metric) string {
	switch t {
	case dto.MetricType_COUNTER:
		return strconv.FormatFloat(m.GetCounter().GetValue(), 'g', -1, 64)
	case dto.MetricType_GAUGE:
		return strconv.FormatFloat(m.GetGauge().GetValue(), 'g', -1, 64)
	default:
		return m.String()
	}
}

func (r *repl) printHistory(limit int) error {
	if r.history == nil {
		fmt.Fprintln(r.out, "(history disabled)")
		return nil
	}
	entries, err := r.history.TailEntries(limit)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Fprintf(r.out, "%s  %s\n", e.CreatedAt.Local().Format(time.DateTime), e.Source)
	}
	return nil
}

func updateDepth(depth int, trimmed string) int {
	if trimmed == "" {
		return depth
	}

	low := strings.ToLower(trimmed)

	if strings.HasPrefix(low, "#") {
		return depth
	}

	if isBlockOpener(low) {
		return depth + 1
	}

	if low == "end" {
		if depth > 0 {
			return depth - 1
		}
		return 0
	}

	return depth
}

func isBlockOpener(low string) bool {
	return strings.HasPrefix(low, "if ") ||
		strings.HasPrefix(low, "while ") ||
		strings.HasPrefix(low, "for ") ||
		strings.HasPrefix(low, "function ")
}
