package autoimport

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"
)

// DirectivePrefix introduces an autoimport directive at the REPL and in history.
const DirectivePrefix = ":autoimport"

// Directive is a parsed ":autoimport" command line.
type Directive struct {
	// Clear names a symbol to drop from the cache.
	Clear string
	// List asks for the statements auto-imported this session.
	List bool
}

func directiveFlags(d *Directive) *pflag.FlagSet {
	fs := pflag.NewFlagSet(DirectivePrefix, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVarP(&d.Clear, "clear", "c", "", "clear cache for this symbol")
	fs.BoolVarP(&d.List, "list", "l", false, "show autoimports from this session")
	return fs
}

// ParseDirective parses the arguments following ":autoimport".
func ParseDirective(args string) (Directive, error) {
	var d Directive
	fs := directiveFlags(&d)
	if err := fs.Parse(strings.Fields(args)); err != nil {
		return Directive{}, fmt.Errorf("%s: %w", DirectivePrefix, err)
	}
	if fs.NArg() > 0 {
		return Directive{}, fmt.Errorf("%s: unexpected arguments: %s", DirectivePrefix, strings.Join(fs.Args(), " "))
	}
	return d, nil
}

// DirectiveUsage is the help text for ":autoimport".
func DirectiveUsage() string {
	var d Directive
	return "Usage: " + DirectivePrefix + " [-c NAME] [-l]\n" + directiveFlags(&d).FlagUsages()
}
