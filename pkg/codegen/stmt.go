package codegen

import (
	"fmt"

	"simplec/pkg/ast"
)

// test emits a comparison of cond against zero and a jump to target when
// it is false.
func (g *Generator) test(cond ast.Expr, target string) {
	op := g.expr(cond)
	g.instr("movl", op, "%eax")
	g.instr("cmpl", "$0", "%eax")
	g.instr("je", target)
}

func (g *Generator) stmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.Block:
		for _, child := range n.Stmts {
			g.stmt(child)
		}

	case *ast.ExprStmt:
		g.expr(n.Expr)

	case *ast.Assignment:
		g.assign(n)

	case *ast.Return:
		op := g.expr(n.Expr)
		g.instr("movl", op, "%eax")
		g.instr("jmp", g.retLabel)

	case *ast.If:
		elseLabel, endLabel := g.newLabel(), g.newLabel()
		g.test(n.Cond, elseLabel)
		g.stmt(n.Then)
		if n.Else == nil {
			g.label(elseLabel)
			return
		}
		g.instr("jmp", endLabel)
		g.label(elseLabel)
		g.stmt(n.Else)
		g.label(endLabel)

	case *ast.While:
		top, exit := g.newLabel(), g.newLabel()
		g.label(top)
		g.test(n.Cond, exit)
		g.loop(exit, n.Body)
		g.instr("jmp", top)
		g.label(exit)

	case *ast.For:
		top, exit := g.newLabel(), g.newLabel()
		g.stmt(n.Init)
		g.label(top)
		g.test(n.Cond, exit)
		g.loop(exit, n.Body)
		g.stmt(n.Incr)
		g.instr("jmp", top)
		g.label(exit)

	case *ast.Break:
		if len(g.loopStack) > 0 {
			g.instr("jmp", g.loopStack[len(g.loopStack)-1])
		}

	default:
		panic(fmt.Sprintf("codegen: unexpected statement %T", s))
	}
}

// loop emits body with exit as the target of any break inside it.
func (g *Generator) loop(exit string, body ast.Stmt) {
	g.loopStack = append(g.loopStack, exit)
	g.stmt(body)
	g.loopStack = g.loopStack[:len(g.loopStack)-1]
}

// assign stores the right side into the location named by the left side,
// going through one extra indirection when the location is only known by
// its address.
func (g *Generator) assign(n *ast.Assignment) {
	dst, indirect := g.addr(n.Left)
	src := g.expr(n.Right)

	mov, reg := "movl", "%eax"
	if isByte(n.Left.Type()) {
		mov, reg = "movb", "%al"
	}

	if indirect {
		g.instr("movl", dst, "%ecx")
		g.instr("movl", src, "%eax")
		g.instr(mov, reg, "(%ecx)")
		return
	}
	g.instr("movl", src, "%eax")
	g.instr(mov, reg, dst)
}
