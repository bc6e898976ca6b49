package interpreter

import "strings"

// SetSource sets the file name and text runtime errors are rendered against.
// The REPL calls it once per chunk.
func (i *Interpreter) SetSource(filename string, source string) {
	i.filename = filename
	i.lines = splitLines(source)
}

// withSource runs fn with file and src as the active source, restoring the
// previous one afterwards.
func (i *Interpreter) withSource(file, src string, fn func() error) error {
	prevFile, prevLines := i.filename, i.lines
	i.filename, i.lines = file, splitLines(src)
	defer func() { i.filename, i.lines = prevFile, prevLines }()
	return fn()
}

// sourceLine returns line n (1-based) of the active source, or "".
func (i *Interpreter) sourceLine(n int) string {
	if n < 1 || n > len(i.lines) {
		return ""
	}
	return i.lines[n-1]
}

func splitLines(src string) []string {
	if src == "" {
		return []string{}
	}
	src = strings.ReplaceAll(src, "\r\n", "\n")
	src = strings.ReplaceAll(src, "\r", "\n")
	return strings.Split(src, "\n")
}
