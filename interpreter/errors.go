package interpreter

import (
	"fmt"
	"strings"

	"github.com/edwardcox/bplplus-autoimport/ast"
)

type ReturnSignal struct{ Val Value }

func (r ReturnSignal) Error() string { return "return" }

type BreakSignal struct{}

func (b BreakSignal) Error() string { return "break" }

type ContinueSignal struct{}

func (c ContinueSignal) Error() string { return "continue" }

// NameError reports a name that is not bound anywhere visible.
type NameError struct {
	Name string
}

func (e *NameError) Error() string { return fmt.Sprintf("name %q is not defined", e.Name) }

// AttributeError reports a missing attribute on an object.
type AttributeError struct {
	Type string
	Name string
}

func (e *AttributeError) Error() string {
	return fmt.Sprintf("%s has no attribute %q", e.Type, e.Name)
}

// ImportError reports a module that could not be imported.
type ImportError struct {
	Module string
	Tried  []string
	Err    error
}

func (e *ImportError) Error() string {
	var b strings.Builder
	if e.Err != nil {
		b.WriteString(fmt.Sprintf("import of %q failed: %v", e.Module, e.Err))
	} else {
		b.WriteString(fmt.Sprintf("no module named %q", e.Module))
	}
	if len(e.Tried) > 0 {
		b.WriteString("\nTried:")
		for _, c := range e.Tried {
			b.WriteString("\n  ")
			b.WriteString(c)
		}
	}
	return b.String()
}

func (e *ImportError) Unwrap() error { return e.Err }

type RuntimeError struct {
	File  string
	Span  ast.Span
	Msg   string
	Line  string
	Stack []string
	Cause error
}

func (e RuntimeError) Error() string {
	loc := "unknown:0:0"
	if e.File != "" && e.Span.Known() {
		loc = e.File + ":" + e.Span.String()
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Runtime error at %s\n", loc))
	b.WriteString(fmt.Sprintf("  %s\n", e.Msg))

	if e.Line != "" && e.Span.Line > 0 {
		b.WriteString(fmt.Sprintf("  %d | %s\n", e.Span.Line, e.Line))

		prefix := fmt.Sprintf("  %d | ", e.Span.Line)
		caretSpaces := len(prefix) + (e.Span.Col - 1)
		if caretSpaces < 0 {
			caretSpaces = 0
		}
		b.WriteString(strings.Repeat(" ", caretSpaces))
		b.WriteString("^\n")
	}

	if len(e.Stack) > 0 {
		b.WriteString("Stack:\n")
		for _, fn := range e.Stack {
			b.WriteString(fmt.Sprintf("  at %s()\n", fn))
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func (e RuntimeError) Unwrap() error { return e.Cause }

func (i *Interpreter) runtimeErr(span ast.Span, msg string) error {
	return i.runtimeErrCause(span, msg, nil)
}

// wrapErr attaches source context to a typed error. Errors that already carry
// a location pass through unchanged.
func (i *Interpreter) wrapErr(span ast.Span, err error) error {
	switch err.(type) {
	case RuntimeError, ReturnSignal, BreakSignal, ContinueSignal:
		return err
	}
	return i.runtimeErrCause(span, err.Error(), err)
}

func (i *Interpreter) runtimeErrCause(span ast.Span, msg string, cause error) error {
	stack := make([]string, 0, len(i.callStack))
	for idx := len(i.callStack) - 1; idx >= 0; idx-- {
		stack = append(stack, i.callStack[idx])
	}

	return RuntimeError{
		File:  i.filename,
		Span:  span,
		Msg:   msg,
		Line:  i.sourceLine(span.Line),
		Stack: stack,
		Cause: cause,
	}
}
