package codegen

import (
	"fmt"

	"simplec/pkg/ast"
	"simplec/pkg/symbols"
	"simplec/pkg/types"
)

// operand is an AT&T source or destination: an immediate, a frame slot,
// a global name or a literal label.
type operand string

func immediate(n int) operand { return operand(fmt.Sprintf("$%d", n)) }

// temp returns a fresh slot below everything allocated so far in the
// current function. Slots are never reused.
func (g *Generator) temp() operand {
	g.tempOffset -= argSize
	g.temps++
	return operand(fmt.Sprintf("%d(%%ebp)", g.tempOffset))
}

func (g *Generator) symbol(sym *symbols.Symbol) operand {
	if sym.Offset != 0 {
		return operand(fmt.Sprintf("%d(%%ebp)", sym.Offset))
	}
	return operand(g.global(sym.Name))
}

func isByte(t types.Type) bool {
	s, ok := t.(types.Scalar)
	return ok && s.Indirection == 0 && s.Spec == types.Char
}

// scale returns the factor an integer must be multiplied by before being
// added to a value of pointer type t.
func scale(t types.Type) int {
	if !types.IsPointer(t) {
		return 1
	}
	return types.ElementSize(t)
}

// load emits the instruction that loads the object at (%eax) into %eax.
func (g *Generator) load(t types.Type) {
	if isByte(t) {
		g.instr("movsbl", "(%eax)", "%eax")
	} else {
		g.instr("movl", "(%eax)", "%eax")
	}
}

// result stores %eax into a fresh temporary and returns it.
func (g *Generator) result() operand {
	t := g.temp()
	g.instr("movl", "%eax", t)
	return t
}

// expr emits code computing the value of e and returns where it is.
// Identifiers and literal numbers need no code.
func (g *Generator) expr(e ast.Expr) operand {
	switch n := e.(type) {
	case *ast.Identifier:
		return g.symbol(n.Symbol)

	case *ast.Number:
		return immediate(n.Value)

	case *ast.Character:
		return immediate(int(n.Value))

	case *ast.String:
		l := g.newLabel()
		g.strings = append(g.strings, literal{label: l, value: n.Value})
		return operand(l)

	case *ast.Promote:
		return g.promote(n)

	case *ast.Call:
		return g.call(n)

	case *ast.Unary:
		return g.unary(n)

	case *ast.Binary:
		return g.binary(n)

	case *ast.Logical:
		return g.logical(n)

	case *ast.Index:
		g.elementAddress(n)
		g.load(n.T)
		return g.result()
	}
	panic(fmt.Sprintf("codegen: unexpected expression %T", e))
}

// addr emits code for e used as a location. When indirect is true the
// returned operand holds the address of the location rather than being
// the location itself.
func (g *Generator) addr(e ast.Expr) (op operand, indirect bool) {
	switch n := e.(type) {
	case *ast.Identifier:
		return g.symbol(n.Symbol), false
	case *ast.Unary:
		if n.Op == ast.Deref {
			return g.expr(n.Expr), true
		}
	case *ast.Index:
		g.elementAddress(n)
		return g.result(), true
	}
	return g.expr(e), false
}

// elementAddress leaves the address of n's element in %eax.
func (g *Generator) elementAddress(n *ast.Index) {
	base := g.expr(n.Base)
	index := g.expr(n.Index)
	g.instr("movl", index, "%eax")
	if k := scale(n.Base.Type()); k != 1 {
		g.instr("imull", immediate(k), "%eax")
	}
	g.instr("addl", base, "%eax")
}

func (g *Generator) promote(n *ast.Promote) operand {
	if c, ok := n.Expr.(*ast.Character); ok {
		return g.expr(c)
	}
	if _, ok := n.Expr.Type().(types.Array); ok {
		op, indirect := g.addr(n.Expr)
		if indirect {
			return op
		}
		g.instr("leal", op, "%eax")
		return g.result()
	}
	op := g.expr(n.Expr)
	g.instr("movsbl", op, "%eax")
	return g.result()
}

func (g *Generator) unary(n *ast.Unary) operand {
	switch n.Op {
	case ast.Neg:
		op := g.expr(n.Expr)
		g.instr("movl", op, "%eax")
		g.instr("negl", "%eax")
		return g.result()

	case ast.Not:
		op := g.expr(n.Expr)
		g.instr("movl", op, "%eax")
		g.instr("cmpl", "$0", "%eax")
		g.instr("sete", "%al")
		g.instr("movzbl", "%al", "%eax")
		return g.result()

	case ast.Addr:
		op, indirect := g.addr(n.Expr)
		if indirect {
			return op
		}
		g.instr("leal", op, "%eax")
		return g.result()

	case ast.Deref:
		op := g.expr(n.Expr)
		g.instr("movl", op, "%eax")
		g.load(n.T)
		return g.result()

	case ast.Sizeof:
		t := g.temp()
		g.instr("movl", immediate(types.Size(n.Expr.Type())), t)
		return t
	}
	panic(fmt.Sprintf("codegen: unexpected unary operator %s", n.Op))
}

var setcc = map[ast.Op]string{
	ast.Lt: "setl",
	ast.Gt: "setg",
	ast.Le: "setle",
	ast.Ge: "setge",
	ast.Eq: "sete",
	ast.Ne: "setne",
}

func (g *Generator) binary(n *ast.Binary) operand {
	left := g.expr(n.Left)
	right := g.expr(n.Right)
	lt, rt := n.Left.Type(), n.Right.Type()

	switch op := n.Op; {
	case op.Relational():
		g.instr("movl", left, "%eax")
		g.instr("cmpl", right, "%eax")
		g.instr(setcc[op], "%al")
		g.instr("movzbl", "%al", "%eax")
		return g.result()

	case op == ast.Add:
		switch {
		case types.IsPointer(lt) && !types.IsPointer(rt):
			g.scaled(right, scale(lt))
			g.instr("addl", left, "%eax")
		case types.IsPointer(rt) && !types.IsPointer(lt):
			g.scaled(left, scale(rt))
			g.instr("addl", right, "%eax")
		default:
			g.instr("movl", left, "%eax")
			g.instr("addl", right, "%eax")
		}
		return g.result()

	case op == ast.Sub:
		switch {
		case types.IsPointer(lt) && types.IsPointer(rt):
			g.instr("movl", left, "%eax")
			g.instr("subl", right, "%eax")
			if k := scale(lt); k != 1 {
				g.instr("movl", immediate(k), "%ecx")
				g.instr("cltd")
				g.instr("idivl", "%ecx")
			}
		case types.IsPointer(lt):
			g.scaled(right, scale(lt))
			g.instr("movl", "%eax", "%ecx")
			g.instr("movl", left, "%eax")
			g.instr("subl", "%ecx", "%eax")
		default:
			g.instr("movl", left, "%eax")
			g.instr("subl", right, "%eax")
		}
		return g.result()

	case op == ast.Mul:
		g.instr("movl", left, "%eax")
		g.instr("imull", right, "%eax")
		return g.result()

	case op == ast.Div, op == ast.Rem:
		g.instr("movl", left, "%eax")
		g.instr("movl", right, "%ecx")
		g.instr("cltd")
		g.instr("idivl", "%ecx")
		t := g.temp()
		if op == ast.Rem {
			g.instr("movl", "%edx", t)
		} else {
			g.instr("movl", "%eax", t)
		}
		return t
	}
	panic(fmt.Sprintf("codegen: unexpected binary operator %s", n.Op))
}

// scaled leaves op multiplied by k in %eax.
func (g *Generator) scaled(op operand, k int) {
	g.instr("movl", op, "%eax")
	if k != 1 {
		g.instr("imull", immediate(k), "%eax")
	}
}

// logical short-circuits && and ||: the right operand is skipped when the
// left one already decides the result, which is then normalized to 0 or 1.
func (g *Generator) logical(n *ast.Logical) operand {
	skip := g.newLabel()
	jump := "jne"
	if n.Op == ast.And {
		jump = "je"
	}

	left := g.expr(n.Left)
	g.instr("movl", left, "%eax")
	g.instr("cmpl", "$0", "%eax")
	g.instr(jump, skip)

	right := g.expr(n.Right)
	g.instr("movl", right, "%eax")
	g.instr("cmpl", "$0", "%eax")

	g.label(skip)
	g.instr("setne", "%al")
	g.instr("movzbl", "%al", "%eax")
	return g.result()
}

// call evaluates the arguments right to left. When pushing, each argument
// is pushed as soon as it is computed and popped after the call. Otherwise
// all arguments are computed first, because a nested call would overwrite
// the outgoing area, and then stored at the bottom of the frame.
func (g *Generator) call(n *ast.Call) operand {
	name := g.global(n.Id.Name)

	if g.target.pushes() {
		for i := len(n.Args) - 1; i >= 0; i-- {
			g.instr("pushl", g.expr(n.Args[i]))
		}
		g.instr("call", name)
		if bytes := len(n.Args) * argSize; bytes > 0 {
			g.instr("addl", immediate(bytes), "%esp")
		}
		return g.result()
	}

	args := make([]operand, len(n.Args))
	for i := len(n.Args) - 1; i >= 0; i-- {
		args[i] = g.expr(n.Args[i])
	}
	for i := len(args) - 1; i >= 0; i-- {
		g.instr("movl", args[i], "%eax")
		g.instr("movl", "%eax", operand(fmt.Sprintf("%d(%%esp)", i*argSize)))
	}
	g.instr("call", name)
	return g.result()
}
