package compiler

import (
	"fmt"
	"strings"
)

// SyntaxError is the only fatal error of a compilation: the lexer or the
// parser could not recognize the input, and nothing after it is checked.
type SyntaxError struct {
	Line    int
	Msg     string
	Snippet string // trimmed source line, if known
}

func syntaxErrorf(line int, format string, args ...any) *SyntaxError {
	return &SyntaxError{Line: line, Msg: fmt.Sprintf(format, args...)}
}

func (e *SyntaxError) Error() string {
	if e.Snippet == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("line %d: %s\n  |> %s", e.Line, e.Msg, e.Snippet)
}

// withSnippet attaches the offending source line to e.
func (e *SyntaxError) withSnippet(lines []string) *SyntaxError {
	if i := e.Line - 1; i >= 0 && i < len(lines) {
		e.Snippet = strings.TrimSpace(lines[i])
	}
	return e
}
