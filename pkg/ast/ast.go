// Package ast defines the checked syntax tree of a Simple C program.
// Nodes are built by the front end only after the checker has accepted
// them, so every expression already carries its resolved type.
package ast

import (
	"fmt"
	"strings"

	"simplec/pkg/symbols"
	"simplec/pkg/types"
)

// Node is implemented by every expression and statement.
type Node interface {
	String() string
}

// Expr is implemented by every node that produces a value.
type Expr interface {
	Node
	Type() types.Type
	exprNode()
}

// Stmt is implemented by every node that does not produce a value.
type Stmt interface {
	Node
	stmtNode()
}

// Op is a unary or binary operator.
type Op int

const (
	Add Op = iota
	Sub
	Mul
	Div
	Rem
	Lt
	Gt
	Le
	Ge
	Eq
	Ne
	And
	Or
	Neg
	Not
	Addr
	Deref
	Sizeof
)

var opNames = [...]string{
	Add: "+", Sub: "-", Mul: "*", Div: "/", Rem: "%",
	Lt: "<", Gt: ">", Le: "<=", Ge: ">=", Eq: "==", Ne: "!=",
	And: "&&", Or: "||",
	Neg: "-", Not: "!", Addr: "&", Deref: "*", Sizeof: "sizeof",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// Relational reports whether o compares its operands.
func (o Op) Relational() bool { return o >= Lt && o <= Ne }

//  Expression nodes

// Identifier is a use of a declared name.
type Identifier struct {
	Symbol *symbols.Symbol
}

func (*Identifier) exprNode()          {}
func (i *Identifier) Type() types.Type { return i.Symbol.Type }
func (i *Identifier) String() string   { return i.Symbol.Name }

// Number is an integer literal.
type Number struct {
	Value int
}

func (*Number) exprNode()        {}
func (*Number) Type() types.Type { return types.Integer }
func (n *Number) String() string { return fmt.Sprintf("%d", n.Value) }

// Character is a character literal; its type is char.
//
//	'A'   Character{Value: 65}
type Character struct {
	Value byte
}

func (*Character) exprNode()        {}
func (*Character) Type() types.Type { return types.NewScalar(types.Char, 0) }
func (c *Character) String() string { return fmt.Sprintf("%q", rune(c.Value)) }

// String is a string literal. Its type is a char array that includes the
// terminating NUL.
type String struct {
	Value string
}

func (*String) exprNode() {}
func (s *String) Type() types.Type {
	return types.NewArray(types.Char, 0, len(s.Value)+1)
}
func (s *String) String() string { return fmt.Sprintf("%q", s.Value) }

// Call is a function call. Args are already promoted.
type Call struct {
	Id   *symbols.Symbol
	Args []Expr
	T    types.Type
}

func (*Call) exprNode()          {}
func (c *Call) Type() types.Type { return c.T }
func (c *Call) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", c.Id.Name, strings.Join(args, ", "))
}

// Unary is Op Expr for -, !, &, * and sizeof.
type Unary struct {
	Op   Op
	Expr Expr
	T    types.Type
}

func (*Unary) exprNode()          {}
func (u *Unary) Type() types.Type { return u.T }
func (u *Unary) String() string {
	if u.Op == Sizeof {
		return fmt.Sprintf("(sizeof %s)", u.Expr)
	}
	return fmt.Sprintf("(%s%s)", u.Op, u.Expr)
}

// Binary is an arithmetic, relational or equality operation.
//
//	x + 1
//	^ ^ ^
//	| | Right
//	| Op
//	Left
type Binary struct {
	Op    Op
	Left  Expr
	Right Expr
	T     types.Type
}

func (*Binary) exprNode()          {}
func (b *Binary) Type() types.Type { return b.T }
func (b *Binary) String() string   { return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right) }

// Logical is && or ||. It is separate from Binary because the right
// operand is evaluated only when the left one does not decide the result.
type Logical struct {
	Op    Op
	Left  Expr
	Right Expr
	T     types.Type
}

func (*Logical) exprNode()          {}
func (l *Logical) Type() types.Type { return l.T }
func (l *Logical) String() string   { return fmt.Sprintf("(%s %s %s)", l.Left, l.Op, l.Right) }

// Promote converts a char to an int or an array to a pointer to its first
// element.
type Promote struct {
	Expr Expr
}

func (*Promote) exprNode()          {}
func (p *Promote) Type() types.Type { return types.Promote(p.Expr.Type()) }
func (p *Promote) String() string   { return fmt.Sprintf("promote(%s)", p.Expr) }

// Index is Base[Index].
type Index struct {
	Base  Expr
	Index Expr
	T     types.Type
}

func (*Index) exprNode()          {}
func (x *Index) Type() types.Type { return x.T }
func (x *Index) String() string   { return fmt.Sprintf("%s[%s]", x.Base, x.Index) }

// Promoted wraps e in a Promote node when it is used as a value and its
// type changes under promotion.
func Promoted(e Expr) Expr {
	switch t := e.Type().(type) {
	case types.Array:
		return &Promote{Expr: e}
	case types.Scalar:
		if t.Spec == types.Char && t.Indirection == 0 {
			return &Promote{Expr: e}
		}
	}
	return e
}

// Addressable reports whether e denotes a storage location: a scalar
// variable, a dereference or an index.
func Addressable(e Expr) bool {
	switch x := e.(type) {
	case *Identifier:
		_, ok := x.Symbol.Type.(types.Scalar)
		return ok
	case *Unary:
		return x.Op == Deref
	case *Index:
		return true
	}
	return false
}

//  Statement nodes

// Block is { declarations statements }. Decls are the symbols declared
// directly in the block, in order.
type Block struct {
	Decls []*symbols.Symbol
	Stmts []Stmt
}

func (*Block) stmtNode() {}
func (b *Block) String() string {
	return fmt.Sprintf("Block(decls=%d, stmts=%d)", len(b.Decls), len(b.Stmts))
}

// Assignment is Left = Right. Right is already promoted.
type Assignment struct {
	Left  Expr
	Right Expr
}

func (*Assignment) stmtNode() {}
func (a *Assignment) String() string {
	return fmt.Sprintf("Assignment(%s = %s)", a.Left, a.Right)
}

// ExprStmt is an expression evaluated for its side effects.
type ExprStmt struct {
	Expr Expr
}

func (*ExprStmt) stmtNode()        {}
func (e *ExprStmt) String() string { return fmt.Sprintf("ExprStmt(%s)", e.Expr) }

// If is if (Cond) Then [else Else].
type If struct {
	Cond Expr
	Then Stmt
	Else Stmt // may be nil
}

func (*If) stmtNode() {}
func (i *If) String() string {
	if i.Else != nil {
		return fmt.Sprintf("If(%s then %s else %s)", i.Cond, i.Then, i.Else)
	}
	return fmt.Sprintf("If(%s then %s)", i.Cond, i.Then)
}

type While struct {
	Cond Expr
	Body Stmt
}

func (*While) stmtNode()        {}
func (w *While) String() string { return fmt.Sprintf("While(%s do %s)", w.Cond, w.Body) }

// For is for (Init; Cond; Incr) Body.
type For struct {
	Init Stmt
	Cond Expr
	Incr Stmt
	Body Stmt
}

func (*For) stmtNode() {}
func (f *For) String() string {
	return fmt.Sprintf("For(init=%s, cond=%s, incr=%s, body=%s)", f.Init, f.Cond, f.Incr, f.Body)
}

type Break struct{}

func (*Break) stmtNode()      {}
func (*Break) String() string { return "Break" }

type Return struct {
	Expr Expr
}

func (*Return) stmtNode()        {}
func (r *Return) String() string { return fmt.Sprintf("Return(%s)", r.Expr) }

//  Top level

// Function is a function definition. Params are the parameter symbols in
// declaration order; Body.Decls holds the locals declared at the top of
// the body, which share the parameter scope.
type Function struct {
	Id     *symbols.Symbol
	Params []*symbols.Symbol
	Body   *Block
}

func (f *Function) String() string {
	names := make([]string, len(f.Params))
	for i, p := range f.Params {
		names[i] = p.Name
	}
	return fmt.Sprintf("Function(%s(%s), %s)", f.Id.Name, strings.Join(names, ", "), f.Body)
}

// Program is a checked translation unit. Globals is every symbol of the
// global scope, functions included, in declaration order.
type Program struct {
	Functions []*Function
	Globals   []*symbols.Symbol
}
