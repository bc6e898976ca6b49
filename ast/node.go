package ast

import "fmt"

type Node interface {
	NodeKind() string
}

// Span is a 1-based source position. The zero Span means unknown.
type Span struct {
	Line int
	Col  int
}

func (s Span) Known() bool { return s.Line > 0 && s.Col > 0 }

func (s Span) String() string { return fmt.Sprintf("%d:%d", s.Line, s.Col) }
