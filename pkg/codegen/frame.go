package codegen

import (
	"modernc.org/mathutil"

	"simplec/pkg/ast"
	"simplec/pkg/symbols"
	"simplec/pkg/types"
)

const (
	// paramOffset is the frame offset of the first parameter, above the
	// saved %ebp and the return address.
	paramOffset = 8

	// argSize is the slot size of one argument, parameter or local.
	argSize = types.Word
)

// Allocate assigns frame offsets to the parameters and locals of fn and
// returns the lowest offset used, which is the size of the locals region
// as a non-positive number. Parameters get one slot each starting at +8;
// locals get one slot each, or one per element for arrays, going down
// from 0. Locals of nested blocks are laid out after those of their
// enclosing block and never share storage.
func Allocate(fn *ast.Function) int {
	offset := paramOffset
	for _, p := range fn.Params {
		p.Offset = offset
		offset += argSize
	}

	offset = allocateSymbols(fn.Body.Decls, 0)
	for _, s := range fn.Body.Stmts {
		ast.Inspect(s, func(n ast.Node) bool {
			if b, ok := n.(*ast.Block); ok {
				offset = allocateSymbols(b.Decls, offset)
			}
			return true
		})
	}
	return offset
}

// allocateSymbols gives each local a slot below offset. Placeholders the
// checker entered for undeclared names get none.
func allocateSymbols(syms []*symbols.Symbol, offset int) int {
	for _, sym := range syms {
		if types.IsError(sym.Type) {
			continue
		}
		n := 1
		if a, ok := sym.Type.(types.Array); ok {
			n = mathutil.Max(1, a.Length)
		}
		offset -= argSize * n
		sym.Offset = offset
	}
	return offset
}

// frameSize pads the lowest frame offset so that %esp is aligned at every
// call made by the function, and returns the size to reserve.
func frameSize(offset, maxargs, alignment int) int {
	offset -= maxargs * argSize
	for (offset-paramOffset)%alignment != 0 {
		offset--
	}
	return -offset
}

// maxArgs returns the largest argument count of any call in fn.
func maxArgs(fn *ast.Function) int {
	n := 0
	ast.Inspect(fn.Body, func(node ast.Node) bool {
		if c, ok := node.(*ast.Call); ok {
			n = mathutil.Max(n, len(c.Args))
		}
		return true
	})
	return n
}
