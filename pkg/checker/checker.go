// Package checker implements the semantic rules of Simple C.
//
// A Checker is one analysis context: it owns the scope chain, the loop
// nesting counter and the function currently being defined. The front end
// calls it as it recognizes each production, declarations in pre-order and
// expressions in post-order, and builds AST nodes from what it returns.
// Every rule reports at most one diagnostic and answers with a usable type,
// types.Error on failure, so analysis never stops.
package checker

import (
	"simplec/pkg/diag"
	"simplec/pkg/symbols"
	"simplec/pkg/types"
)

type Checker struct {
	outermost *symbols.Scope
	toplevel  *symbols.Scope

	loops    int
	function *symbols.Symbol
	result   types.Type

	reporter diag.Reporter
	line     func() int
}

// New returns a checker with the global scope already open. line supplies
// the source line that diagnostics are attributed to; it may be nil.
func New(r diag.Reporter, line func() int) *Checker {
	c := &Checker{reporter: r, line: line}
	c.OpenScope()
	return c
}

func (c *Checker) report(format string, args ...any) {
	if c.reporter == nil {
		return
	}
	n := 0
	if c.line != nil {
		n = c.line()
	}
	c.reporter.Report(n, format, args...)
}

// OpenScope pushes a new scope enclosed by the current one.
func (c *Checker) OpenScope() *symbols.Scope {
	c.toplevel = symbols.NewScope(c.toplevel)
	if c.outermost == nil {
		c.outermost = c.toplevel
	}
	return c.toplevel
}

// CloseScope pops the current scope and returns it. The caller keeps the
// returned scope only if it still needs the symbol list for frame layout.
func (c *Checker) CloseScope() *symbols.Scope {
	old := c.toplevel
	if old == c.outermost {
		panic("checker: closing the global scope")
	}
	c.toplevel = old.Enclosing()
	return old
}

func (c *Checker) Outermost() *symbols.Scope { return c.outermost }
func (c *Checker) Toplevel() *symbols.Scope  { return c.toplevel }

// Global reports whether the current scope is the global one.
func (c *Checker) Global() bool { return c.toplevel == c.outermost }

// Function returns the symbol of the function being defined, or nil.
func (c *Checker) Function() *symbols.Symbol { return c.function }

// DeclareFunction declares name in the global scope regardless of the
// current nesting. A declaration with a different type is reported and
// discarded; an identical one is accepted silently.
func (c *Checker) DeclareFunction(name string, t types.Type) *symbols.Symbol {
	sym := c.outermost.Find(name)
	if sym == nil {
		sym = symbols.New(name, t)
		sym.State = symbols.Declared
		c.outermost.Insert(sym)
		return sym
	}
	if !types.Equal(t, sym.Type) {
		c.report(diag.Conflicting, name)
	}
	return sym
}

// DefineFunction declares name and marks it defined. It also makes the
// function current, so return statements are checked against t.
func (c *Checker) DefineFunction(name string, t types.Type) *symbols.Symbol {
	sym := c.DeclareFunction(name, t)
	if sym.State == symbols.Defined {
		c.report(diag.Redefinition, name)
	}
	sym.State = symbols.Defined

	c.function = sym
	c.result = returnType(t)
	return sym
}

// EndFunction forgets the current function.
func (c *Checker) EndFunction() {
	c.function = nil
	c.result = nil
}

func returnType(t types.Type) types.Type {
	if f, ok := t.(types.Function); ok {
		return types.NewScalar(f.Spec, f.Indirection)
	}
	return types.Error{}
}

// DeclareVariable declares name in the current scope. At global scope an
// identical redeclaration is accepted; inside a block any redeclaration is
// an error. The first declaration is kept either way.
func (c *Checker) DeclareVariable(name string, t types.Type) *symbols.Symbol {
	sym := c.toplevel.Find(name)
	if sym == nil {
		sym = symbols.New(name, c.checkIfVoidObject(name, t))
		c.toplevel.Insert(sym)
		return sym
	}
	if !c.Global() {
		c.report(diag.Redeclaration, name)
	} else if !types.Equal(t, sym.Type) {
		c.report(diag.Conflicting, name)
	}
	return sym
}

// checkIfVoidObject rejects a void object: a void specifier is legal only
// behind a pointer or as a function result.
func (c *Checker) checkIfVoidObject(name string, t types.Type) types.Type {
	switch x := t.(type) {
	case types.Scalar:
		if x.Spec == types.Void && x.Indirection == 0 {
			c.report(diag.VoidObject, name)
			return types.Error{}
		}
	case types.Array:
		if x.Spec == types.Void && x.Indirection == 0 {
			c.report(diag.VoidObject, name)
			return types.Error{}
		}
	}
	return t
}

// CheckIdentifier resolves a use of name. An undeclared name is reported
// once and then entered into the current scope with the error type.
func (c *Checker) CheckIdentifier(name string) *symbols.Symbol {
	sym := c.toplevel.Lookup(name)
	if sym == nil {
		c.report(diag.Undeclared, name)
		sym = symbols.New(name, types.Error{})
		c.toplevel.Insert(sym)
	}
	return sym
}

// CheckFunction resolves the name of a called function. An undeclared
// callee is implicitly declared as `int name()`, whose arguments are not
// checked.
func (c *Checker) CheckFunction(name string) *symbols.Symbol {
	sym := c.toplevel.Lookup(name)
	if sym == nil {
		sym = c.DeclareFunction(name, types.NewFunction(types.Int, 0, nil))
	}
	return sym
}

// EnterLoop and ExitLoop bracket the body of a while or for statement.
func (c *Checker) EnterLoop() { c.loops++ }
func (c *Checker) ExitLoop()  { c.loops-- }

// Loops returns the current loop nesting depth.
func (c *Checker) Loops() int { return c.loops }
