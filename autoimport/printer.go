package autoimport

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

const tagText = "Autoimport:"

// tagColor is bright cyan, the colour the REPL uses for numbers.
var tagColor = lipgloss.Color("14")

// Printer writes report lines prefixed by a coloured "Autoimport:" tag.
// Write errors are dropped: reporting never fails the caller.
type Printer struct {
	mu  sync.Mutex
	w   io.Writer
	tag string

	// term is where auto mode looks for colour support. It defaults to w.
	term    io.Writer
	profile *termenv.Profile
}

type PrinterOption func(*Printer)

// WithTerminal makes auto mode detect colour support on term instead of the
// output writer. The REPL writes through readline, whose writer is not a file.
func WithTerminal(term io.Writer) PrinterOption {
	return func(p *Printer) {
		if term != nil {
			p.term = term
		}
	}
}

// WithProfile makes auto mode use profile without detection.
func WithProfile(profile termenv.Profile) PrinterOption {
	return func(p *Printer) { p.profile = &profile }
}

// NewPrinter returns a Printer for w. color is auto, always or never; auto
// colours only when the terminal supports it.
func NewPrinter(w io.Writer, color string, opts ...PrinterOption) *Printer {
	p := &Printer{w: w, term: w}
	for _, opt := range opts {
		opt(p)
	}
	p.SetColor(color)
	return p
}

// SetColor changes the colour mode. Safe to call while reporting.
func (p *Printer) SetColor(color string) {
	tag := tagText
	switch color {
	case "never":
	case "always":
		r := lipgloss.NewRenderer(p.w)
		r.SetColorProfile(termenv.ANSI256)
		tag = r.NewStyle().Foreground(tagColor).Render(tagText)
	default:
		r := lipgloss.NewRenderer(p.term)
		if p.profile != nil {
			r.SetColorProfile(*p.profile)
		}
		tag = r.NewStyle().Foreground(tagColor).Render(tagText)
	}
	p.mu.Lock()
	p.tag = tag
	p.mu.Unlock()
}

func (p *Printer) Report(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintf(p.w, "%s %s\n", p.tag, msg)
}
