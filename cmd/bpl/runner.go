package main

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/edwardcox/bplplus-autoimport/interpreter"
	"github.com/edwardcox/bplplus-autoimport/parser"
)

// interpreterOptions derives interpreter options from the loaded config.
func interpreterOptions() []interpreter.Option {
	var opts []interpreter.Option
	if cfg != nil {
		opts = append(opts, interpreter.WithSearchPath(cfg.SearchPath...))
	}
	if logger != nil {
		opts = append(opts, interpreter.WithLogger(logger.Named("interp")))
	}
	return opts
}

// runFile runs a program in a fresh interpreter.
func runFile(filename string) error {
	if !strings.HasSuffix(filename, ".bpl") {
		return fmt.Errorf("expected a .bpl file, got %q", filename)
	}
	src, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read %s: %w", filename, err)
	}
	if logger != nil {
		logger.Debug("running file", zap.String("path", filename))
	}
	// Includes resolve against the file's own directory.
	in := interpreter.NewWithSource(filename, string(src), interpreterOptions()...)
	return compileAndRunWith(in, filename, string(src))
}

// compileAndRunWith parses src and runs it in an existing interpreter.
func compileAndRunWith(in *interpreter.Interpreter, filename, src string) error {
	stmts, err := parser.Parse(src)
	if err != nil {
		return err
	}
	in.SetSource(filename, src)
	return in.Run(stmts)
}

// evalChunk is compileAndRunWith for REPL input: a trailing expression's
// value is returned for echoing.
func evalChunk(in *interpreter.Interpreter, filename, src string) (interpreter.Value, bool, error) {
	stmts, err := parser.Parse(src)
	if err != nil {
		return interpreter.Value{}, false, err
	}
	in.SetSource(filename, src)
	return in.RunChunk(stmts)
}
