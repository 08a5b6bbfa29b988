// Package symbols holds declared names and the lexical scopes that own them.
package symbols

import (
	"fmt"
	"strings"

	"simplec/pkg/types"
)

// State tracks how far a function symbol has progressed.
type State int

const (
	Undefined State = iota
	Declared
	Defined
)

// Symbol is a declared name. Offset is assigned by the generator:
// positive for incoming parameters, negative for locals, and zero for
// globals, which are addressed by name.
type Symbol struct {
	Name   string
	Type   types.Type
	Offset int
	State  State
}

func New(name string, t types.Type) *Symbol {
	return &Symbol{Name: name, Type: t}
}

func (s *Symbol) String() string {
	return fmt.Sprintf("%s: %s", s.Name, s.Type)
}

// Scope is one table in a chain of tables. Symbols are kept in
// declaration order; the generator lays out frames in that order.
type Scope struct {
	enclosing *Scope
	symbols   []*Symbol
}

// NewScope returns an empty scope nested inside enclosing, which may be nil
// for the outermost scope.
func NewScope(enclosing *Scope) *Scope {
	return &Scope{enclosing: enclosing}
}

func (s *Scope) Enclosing() *Scope { return s.enclosing }

// Symbols returns the symbols declared directly in s, in order.
func (s *Scope) Symbols() []*Symbol { return s.symbols }

// Insert appends sym without checking for duplicates.
func (s *Scope) Insert(sym *Symbol) {
	s.symbols = append(s.symbols, sym)
}

// Find returns the symbol declared directly in s, or nil.
func (s *Scope) Find(name string) *Symbol {
	for _, sym := range s.symbols {
		if sym.Name == name {
			return sym
		}
	}
	return nil
}

// Lookup searches s and then every enclosing scope; the closest
// declaration wins.
func (s *Scope) Lookup(name string) *Symbol {
	for cur := s; cur != nil; cur = cur.enclosing {
		if sym := cur.Find(name); sym != nil {
			return sym
		}
	}
	return nil
}

// Depth is 0 for the outermost scope.
func (s *Scope) Depth() int {
	d := 0
	for cur := s.enclosing; cur != nil; cur = cur.enclosing {
		d++
	}
	return d
}

// String dumps the chain from s outward, innermost first.
func (s *Scope) String() string {
	var sb strings.Builder
	for cur := s; cur != nil; cur = cur.enclosing {
		fmt.Fprintf(&sb, "Scope %d:\n", cur.Depth())
		if len(cur.symbols) == 0 {
			sb.WriteString("  (empty)\n")
		}
		for _, sym := range cur.symbols {
			fmt.Fprintf(&sb, "  %-20s  Offset: %d  Type: %s\n", sym.Name, sym.Offset, sym.Type)
		}
	}
	return sb.String()
}
