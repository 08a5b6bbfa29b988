// Package diag carries semantic diagnostics from the checker to whoever
// is listening. Diagnostics never stop analysis.
package diag

import (
	"fmt"
	"io"
	"sync"
)

// Message templates. Each takes at most one argument: the offending name
// or operator.
const (
	Redefinition     = "redefinition of '%s'"
	Redeclaration    = "redeclaration of '%s'"
	Conflicting      = "conflicting types for '%s'"
	Undeclared       = "'%s' undeclared"
	VoidObject       = "'%s' has type void"
	InvalidReturn    = "invalid return type"
	InvalidTest      = "invalid type for test expression"
	LvalueRequired   = "lvalue required in expression"
	InvalidBinary    = "invalid operands to binary %s"
	InvalidUnary     = "invalid operand to unary %s"
	NotAFunction     = "called object is not a function"
	InvalidArguments = "invalid arguments to called function"
	BreakOutsideLoop = "break statement not within loop"
)

// Diagnostic is one reported problem.
type Diagnostic struct {
	Line int
	Msg  string
}

func (d Diagnostic) Error() string  { return d.String() }
func (d Diagnostic) String() string { return fmt.Sprintf("line %d: %s", d.Line, d.Msg) }

// Reporter is the sink the checker writes to.
type Reporter interface {
	Report(line int, format string, args ...any)
}

// List collects diagnostics in report order.
type List struct {
	mu    sync.Mutex
	items []Diagnostic
}

func (l *List) Report(line int, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, Diagnostic{Line: line, Msg: fmt.Sprintf(format, args...)})
}

// Items returns a copy of everything reported so far.
func (l *List) Items() []Diagnostic {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Diagnostic(nil), l.items...)
}

func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Writer prints each diagnostic as it arrives, prefixed with a file name
// when one is set.
type Writer struct {
	W    io.Writer
	File string
}

func (w Writer) Report(line int, format string, args ...any) {
	d := Diagnostic{Line: line, Msg: fmt.Sprintf(format, args...)}
	if w.File != "" {
		fmt.Fprintf(w.W, "%s:%d: %s\n", w.File, d.Line, d.Msg)
		return
	}
	fmt.Fprintln(w.W, d)
}

// Tee forwards every report to each of rs.
type Tee []Reporter

func (t Tee) Report(line int, format string, args ...any) {
	for _, r := range t {
		r.Report(line, format, args...)
	}
}
