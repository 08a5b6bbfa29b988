package codegen

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/nalgeon/be"

	"simplec/pkg/ast"
	"simplec/pkg/symbols"
	"simplec/pkg/types"
)

// assertContains checks if the generated code contains the expected substring.
func assertContains(t *testing.T, code, expected string) {
	t.Helper()
	if !strings.Contains(code, expected) {
		t.Errorf("Expected code to contain %q, but it didn't.\nCode:\n%s", expected, code)
	}
}

func sym(name string, t types.Type) *symbols.Symbol { return symbols.New(name, t) }

func id(s *symbols.Symbol) *ast.Identifier { return &ast.Identifier{Symbol: s} }

func fnSym(name string, params ...types.Type) *symbols.Symbol {
	return sym(name, types.NewFunction(types.Int, 0, &types.Parameters{Types: params}))
}

func TestAllocate(t *testing.T) {
	t.Run("ParamsAndLocal", func(t *testing.T) {
		a, b := sym("a", types.Integer), sym("b", types.Integer)
		c := sym("c", types.Integer)
		fn := &ast.Function{
			Id:     fnSym("f", types.Integer, types.Integer),
			Params: []*symbols.Symbol{a, b},
			Body:   &ast.Block{Decls: []*symbols.Symbol{c}},
		}

		size := Allocate(fn)
		be.Equal(t, a.Offset, 8)
		be.Equal(t, b.Offset, 12)
		be.Equal(t, c.Offset, -4)
		be.Equal(t, size, -4)
	})

	t.Run("ArraysAndNestedBlocks", func(t *testing.T) {
		p := sym("p", types.NewScalar(types.Char, 0))
		x := sym("x", types.Integer)
		buf := sym("buf", types.NewArray(types.Char, 0, 3))
		y := sym("y", types.Integer)
		z := sym("z", types.NewArray(types.Int, 0, 2))
		fn := &ast.Function{
			Id:     fnSym("g", types.NewScalar(types.Char, 0)),
			Params: []*symbols.Symbol{p},
			Body: &ast.Block{
				Decls: []*symbols.Symbol{x, buf},
				Stmts: []ast.Stmt{
					&ast.Block{Decls: []*symbols.Symbol{y}},
					&ast.While{
						Cond: &ast.Number{Value: 1},
						Body: &ast.Block{Decls: []*symbols.Symbol{z}},
					},
				},
			},
		}

		size := Allocate(fn)
		be.Equal(t, p.Offset, 8)
		be.Equal(t, x.Offset, -4)
		be.Equal(t, buf.Offset, -16)
		be.Equal(t, y.Offset, -20)
		be.Equal(t, z.Offset, -28)
		be.Equal(t, size, -28)
	}
	t.Run("UndeclaredPlaceholders", func(t *testing.T) {
		x := sym("x", types.Integer)
		undeclared := sym("u", types.Error{})
		y := sym("y", types.Integer)
		inner := sym("w", types.Error{})
		fn := &ast.Function{
			Id: fnSym("h"),
			Body: &ast.Block{
				Decls: []*symbols.Symbol{x, undeclared, y},
				Stmts: []ast.Stmt{&ast.Block{Decls: []*symbols.Symbol{inner}}},
			},
		}

		size := Allocate(fn)
		be.Equal(t, x.Offset, -4)
		be.Equal(t, y.Offset, -8)
		be.Equal(t, undeclared.Offset, 0)
		be.Equal(t, inner.Offset, 0)
		be.Equal(t, size, -8)
	})
}

func TestFrameSize(t *testing.T) {
	tests := []struct {
		offset, maxargs, align, want int
	}{
		{0, 0, 4, 0},
		{-4, 0, 4, 4},
		{-12, 0, 16, 24},
		{-12, 2, 16, 24},
		{-8, 0, 16, 8},
		{-9, 3, 16, 24},
	}
	for _, tc := range tests {
		got := frameSize(tc.offset, tc.maxargs, tc.align)
		be.Equal(t, got, tc.want)
		be.Equal(t, (-got-paramOffset)%tc.align, 0)
	}
}

func TestTarget(t *testing.T) {
	be.Err(t, Linux.Validate(), nil)
	be.Err(t, Darwin.Validate(), nil)
	be.Err(t, Target{StackAlignment: 6}.Validate(), "not a positive multiple")
	be.Err(t, Target{}.Validate(), "not a positive multiple")

	_, err := Generate(&ast.Program{}, Options{Target: Target{StackAlignment: 3}})
	be.Err(t, err)
}

func TestReturnZero(t *testing.T) {
	main := &ast.Function{
		Id:   fnSym("main"),
		Body: &ast.Block{Stmts: []ast.Stmt{&ast.Return{Expr: &ast.Number{Value: 0}}}},
	}
	code, err := Generate(&ast.Program{Functions: []*ast.Function{main}}, Options{Target: Linux})
	be.Err(t, err, nil)

	assertContains(t, code, "main:\n\tpushl\t%ebp\n\tmovl\t%esp, %ebp\n\tsubl\t$main.size, %esp\n")
	assertContains(t, code, "\tmovl\t$0, %eax\n\tjmp\t.L0\n.L0:\n")
	assertContains(t, code, "\tmovl\t%ebp, %esp\n\tpopl\t%ebp\n\tret\n")
	assertContains(t, code, "\t.globl\tmain\n")
	assertContains(t, code, "\t.set\tmain.size, 0\n")
}

func TestExpressions(t *testing.T) {
	x := sym("x", types.Integer)
	p := sym("p", types.NewScalar(types.Int, 1))
	c := sym("c", types.NewScalar(types.Char, 0))
	arr := sym("arr", types.NewArray(types.Int, 0, 4))
	main := &ast.Function{
		Id: fnSym("main"),
		Body: &ast.Block{
			Decls: []*symbols.Symbol{x, p, c, arr},
			Stmts: []ast.Stmt{
				// p = &x;
				&ast.Assignment{Left: id(p), Right: &ast.Unary{Op: ast.Addr, Expr: id(x), T: p.Type}},
				// *p = p - &x;  pointer difference
				&ast.Assignment{
					Left: &ast.Unary{Op: ast.Deref, Expr: id(p), T: types.Integer},
					Right: &ast.Binary{Op: ast.Sub, Left: id(p),
						Right: &ast.Unary{Op: ast.Addr, Expr: id(x), T: p.Type}, T: types.Integer},
				},
				// c = 'A';
				&ast.Assignment{Left: id(c), Right: ast.Promoted(&ast.Character{Value: 'A'})},
				// arr[x] = c;
				&ast.Assignment{
					Left:  &ast.Index{Base: ast.Promoted(id(arr)), Index: id(x), T: types.Integer},
					Right: ast.Promoted(id(c)),
				},
				// x = sizeof arr;
				&ast.Assignment{Left: id(x), Right: &ast.Unary{Op: ast.Sizeof, Expr: id(arr), T: types.Integer}},
				// x = &*p == p;
				&ast.Assignment{Left: id(x), Right: &ast.Binary{Op: ast.Eq,
					Left: &ast.Unary{Op: ast.Addr, Expr: &ast.Unary{Op: ast.Deref, Expr: id(p), T: types.Integer}, T: p.Type},
					Right: id(p), T: types.Integer}},
			},
		},
	}
	code, err := Generate(&ast.Program{Functions: []*ast.Function{main}}, Options{Target: Linux})
	be.Err(t, err, nil)

	// p = &x
	assertContains(t, code, "\tleal\t-4(%ebp), %eax\n\tmovl\t%eax, -32(%ebp)\n\tmovl\t-32(%ebp), %eax\n\tmovl\t%eax, -8(%ebp)\n")
	// pointer difference divides by the element size
	assertContains(t, code, "\tsubl\t-36(%ebp), %eax\n\tmovl\t$4, %ecx\n\tcltd\n\tidivl\t%ecx\n")
	// store through a pointer
	assertContains(t, code, "\tmovl\t-8(%ebp), %ecx\n\tmovl\t-40(%ebp), %eax\n\tmovl\t%eax, (%ecx)\n")
	// char store is a byte store of the literal
	assertContains(t, code, "\tmovl\t$65, %eax\n\tmovb\t%al, -12(%ebp)\n")
	// array decays with leal and the index is scaled
	assertContains(t, code, "\tleal\t-28(%ebp), %eax\n")
	assertContains(t, code, "\timull\t$4, %eax\n")
	// char promotion sign-extends
	assertContains(t, code, "\tmovsbl\t-12(%ebp), %eax\n")
	// sizeof needs no operand code
	assertContains(t, code, "\tmovl\t$16, ")
	// &*p is p itself
	assertContains(t, code, "\tmovl\t-8(%ebp), %eax\n\tcmpl\t-8(%ebp), %eax\n\tsete\t%al\n")
}

func TestLogicalShortCircuit(t *testing.T) {
	f, g := fnSym("f"), fnSym("g")
	call := func(s *symbols.Symbol) *ast.Call { return &ast.Call{Id: s, T: types.Integer} }
	x := sym("x", types.Integer)
	body := &ast.Block{
		Decls: []*symbols.Symbol{x},
		Stmts: []ast.Stmt{
			&ast.Assignment{Left: id(x), Right: &ast.Logical{Op: ast.Or, Left: call(f), Right: call(g)}},
			&ast.Assignment{Left: id(x), Right: &ast.Logical{Op: ast.And, Left: call(f), Right: call(g)}},
		},
	}
	code, err := Generate(&ast.Program{Functions: []*ast.Function{{Id: fnSym("main"), Body: body}}}, Options{Target: Linux})
	be.Err(t, err, nil)

	assertContains(t, code, "\tcall\tf\n\tmovl\t%eax, -8(%ebp)\n\tmovl\t-8(%ebp), %eax\n\tcmpl\t$0, %eax\n\tjne\t.L1\n\tcall\tg\n")
	assertContains(t, code, ".L1:\n\tsetne\t%al\n\tmovzbl\t%al, %eax\n")
	assertContains(t, code, "\tje\t.L2\n\tcall\tg\n")
}

func TestControlFlow(t *testing.T) {
	i := sym("i", types.Integer)
	cond := &ast.Binary{Op: ast.Lt, Left: id(i), Right: &ast.Number{Value: 10}, T: types.Integer}
	body := &ast.Block{
		Decls: []*symbols.Symbol{i},
		Stmts: []ast.Stmt{
			&ast.While{Cond: cond, Body: &ast.Block{Stmts: []ast.Stmt{
				&ast.If{Cond: id(i), Then: &ast.Break{}, Else: &ast.Assignment{Left: id(i), Right: &ast.Number{Value: 1}}},
			}}},
			&ast.For{
				Init: &ast.Assignment{Left: id(i), Right: &ast.Number{Value: 0}},
				Cond: id(i),
				Incr: &ast.Assignment{Left: id(i), Right: &ast.Number{Value: 0}},
				Body: &ast.Break{},
			},
			&ast.Return{Expr: id(i)},
		},
	}
	code, err := Generate(&ast.Program{Functions: []*ast.Function{{Id: fnSym("main"), Body: body}}}, Options{Target: Linux})
	be.Err(t, err, nil)

	// while: .L1 top, .L2 exit; if: .L3 else, .L4 end; for: .L5 top, .L6 exit
	assertContains(t, code, ".L1:\n\tmovl\t-4(%ebp), %eax\n\tcmpl\t$10, %eax\n\tsetl\t%al\n")
	assertContains(t, code, "\tje\t.L2\n")
	assertContains(t, code, "\tje\t.L3\n\tjmp\t.L2\n\tjmp\t.L4\n.L3:\n")
	assertContains(t, code, ".L4:\n\tjmp\t.L1\n.L2:\n")
	assertContains(t, code, "\tmovl\t%eax, -4(%ebp)\n.L5:\n\tmovl\t-4(%ebp), %eax\n\tcmpl\t$0, %eax\n\tje\t.L6\n\tjmp\t.L6\n")
	assertContains(t, code, "\tjmp\t.L5\n.L6:\n\tmovl\t-4(%ebp), %eax\n\tjmp\t.L0\n")
}

func TestCalls(t *testing.T) {
	put := fnSym("put", types.Integer, types.NewScalar(types.Char, 1))
	mkCall := func() *ast.Call {
		return &ast.Call{Id: put, T: types.Integer, Args: []ast.Expr{
			&ast.Number{Value: 7},
			ast.Promoted(&ast.String{Value: "hi\n"}),
		}}
	}

	t.Run("Push", func(t *testing.T) {
		main := &ast.Function{Id: fnSym("main"), Body: &ast.Block{Stmts: []ast.Stmt{&ast.Return{Expr: mkCall()}}}}
		code, err := Generate(&ast.Program{Functions: []*ast.Function{main}}, Options{Target: Linux})
		be.Err(t, err, nil)

		assertContains(t, code, "\tleal\t.L1, %eax\n\tmovl\t%eax, -4(%ebp)\n\tpushl\t-4(%ebp)\n\tpushl\t$7\n\tcall\tput\n\taddl\t$8, %esp\n")
		assertContains(t, code, "\t.section .rodata\n.L1:\t.asciz\t\"hi\\n\"\n")
		assertContains(t, code, "\t.set\tmain.size, 8\n")
	})

	t.Run("Store", func(t *testing.T) {
		main := &ast.Function{Id: fnSym("main"), Body: &ast.Block{Stmts: []ast.Stmt{&ast.Return{Expr: mkCall()}}}}
		code, err := Generate(&ast.Program{Functions: []*ast.Function{main}}, Options{Target: Darwin})
		be.Err(t, err, nil)

		assertContains(t, code, "_main:\n")
		assertContains(t, code, "\tmovl\t-4(%ebp), %eax\n\tmovl\t%eax, 4(%esp)\n\tmovl\t$7, %eax\n\tmovl\t%eax, 0(%esp)\n\tcall\t_put\n")
		assertContains(t, code, "\t.globl\t_main\n")
		// 2 temporaries and 2 outgoing slots, padded so that size+8 is a multiple of 16
		assertContains(t, code, "\t.set\tmain.size, 24\n")
		assertContains(t, code, "\t.cstring\n")
	})
}

func TestGlobals(t *testing.T) {
	prog := &ast.Program{Globals: []*symbols.Symbol{
		sym("count", types.Integer),
		sym("main", types.NewFunction(types.Int, 0, &types.Parameters{})),
		sym("buf", types.NewArray(types.Char, 0, 10)),
		sym("bad", types.Error{}),
		sym("ptrs", types.NewArray(types.Int, 1, 3)),
	}}
	code, err := Generate(prog, Options{Target: Darwin})
	be.Err(t, err, nil)

	assertContains(t, code, "\t.data\n\t.comm\t_count, 4, 4\n\t.comm\t_buf, 10, 1\n\t.comm\t_ptrs, 12, 4\n")
	be.True(t, !strings.Contains(code, "_main"))
	be.True(t, !strings.Contains(code, "bad"))

	empty, err := Generate(&ast.Program{}, Options{Target: Linux})
	be.Err(t, err, nil)
	be.Equal(t, empty, "")
}

func TestTrace(t *testing.T) {
	var buf bytes.Buffer
	main := &ast.Function{
		Id:   fnSym("main"),
		Body: &ast.Block{Stmts: []ast.Stmt{&ast.Return{Expr: &ast.Number{Value: 0}}}},
	}
	_, err := Generate(&ast.Program{Functions: []*ast.Function{main}}, Options{Target: Linux, Trace: log.New(&buf, "", 0)})
	be.Err(t, err, nil)
	be.Equal(t, buf.String(), "function main: 0 params, locals 0, 0 temporaries, frame 0 bytes\n")
}

func TestQuote(t *testing.T) {
	be.Equal(t, Quote("hello"), `"hello"`)
	be.Equal(t, Quote("a\"b\\c"), `"a\"b\\c"`)
	be.Equal(t, Quote("x\n\t"), `"x\n\t"`)
	be.Equal(t, Quote("\x00\x7f\xff"), `"\000\177\377"`)
}
