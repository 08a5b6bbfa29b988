// Package codegen emits 32-bit x86 AT&T assembly for a checked program.
//
// The generator is deliberately naive: every intermediate value lives in
// its own stack slot below the locals, and %eax, %ecx and %edx are only
// scratch registers within a single node. It trusts the checker and never
// re-validates types; a program with diagnostics still produces output.
package codegen

import (
	"fmt"
	"log"
	"strings"

	"simplec/pkg/ast"
	"simplec/pkg/symbols"
	"simplec/pkg/types"
)

// Options configures a Generator.
type Options struct {
	Target Target

	// Trace, when set, receives one line per function and per data
	// section emitted.
	Trace *log.Logger
}

type literal struct {
	label string
	value string
}

// Generator turns functions and globals into assembly text. Labels are
// numbered across everything one Generator emits.
type Generator struct {
	target Target
	trace  *log.Logger
	out    strings.Builder

	nextLabel int
	strings   []literal

	// per function
	tempOffset int
	temps      int
	maxargs    int
	retLabel   string
	loopStack  []string
}

func New(opts Options) *Generator {
	return &Generator{target: opts.Target, trace: opts.Trace}
}

// Generate emits every function of prog followed by its globals and
// string literals.
func Generate(prog *ast.Program, opts Options) (string, error) {
	if err := opts.Target.Validate(); err != nil {
		return "", err
	}
	g := New(opts)
	for _, fn := range prog.Functions {
		g.Function(fn)
	}
	g.Globals(prog.Globals)
	g.Strings()
	return g.String(), nil
}

// String returns everything emitted so far.
func (g *Generator) String() string { return g.out.String() }

func (g *Generator) line(format string, args ...any) {
	fmt.Fprintf(&g.out, format+"\n", args...)
}

func (g *Generator) instr(op string, operands ...any) {
	if len(operands) == 0 {
		g.line("\t%s", op)
		return
	}
	strs := make([]string, len(operands))
	for i, o := range operands {
		strs[i] = fmt.Sprint(o)
	}
	g.line("\t%s\t%s", op, strings.Join(strs, ", "))
}

func (g *Generator) label(l string) { g.line("%s:", l) }

func (g *Generator) newLabel() string {
	l := fmt.Sprintf(".L%d", g.nextLabel)
	g.nextLabel++
	return l
}

func (g *Generator) global(name string) string {
	return g.target.GlobalPrefix + name
}

func (g *Generator) tracef(format string, args ...any) {
	if g.trace != nil {
		g.trace.Printf(format, args...)
	}
}

// Function emits the prologue, body and epilogue of fn. The frame size is
// only known after the body has been emitted, so the prologue refers to it
// through the symbolic constant name.size defined after the epilogue.
func (g *Generator) Function(fn *ast.Function) {
	name := fn.Id.Name
	offset := Allocate(fn)

	g.tempOffset = offset
	g.temps = 0
	g.maxargs = 0
	if !g.target.pushes() {
		g.maxargs = maxArgs(fn)
	}
	g.retLabel = g.newLabel()
	g.loopStack = g.loopStack[:0]

	g.label(g.global(name))
	g.instr("pushl", "%ebp")
	g.instr("movl", "%esp", "%ebp")
	g.instr("subl", "$"+name+".size", "%esp")

	g.stmt(fn.Body)

	size := frameSize(g.tempOffset, g.maxargs, g.target.StackAlignment)

	g.label(g.retLabel)
	g.instr("movl", "%ebp", "%esp")
	g.instr("popl", "%ebp")
	g.instr("ret")
	g.line("")
	g.instr(".globl", g.global(name))
	g.instr(".set", name+".size", size)
	g.line("")

	g.tracef("function %s: %d params, locals %d, %d temporaries, frame %d bytes",
		name, len(fn.Params), -offset, g.temps, size)
}

// Globals reserves common storage for every global variable in syms.
// Functions and names that only ever had the error type are skipped.
func (g *Generator) Globals(syms []*symbols.Symbol) {
	var vars []*symbols.Symbol
	for _, sym := range syms {
		switch sym.Type.(type) {
		case types.Function, types.Error:
			continue
		}
		vars = append(vars, sym)
	}
	if len(vars) == 0 {
		return
	}
	g.instr(".data")
	for _, sym := range vars {
		g.instr(".comm", g.global(sym.Name), types.Size(sym.Type), types.Alignment(sym.Type))
	}
	g.tracef("globals: %d variables", len(vars))
}

// Strings emits every string literal used so far as read-only data.
func (g *Generator) Strings() {
	if len(g.strings) == 0 {
		return
	}
	g.line("\t%s", g.target.rodata())
	for _, s := range g.strings {
		g.line("%s:\t.asciz\t%s", s.label, Quote(s.value))
	}
	g.tracef("literals: %d strings", len(g.strings))
}

// Quote returns s as a GNU assembler string, escaping quotes, backslashes
// and every byte outside printable ASCII.
func Quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			if c < 0x20 || c >= 0x7f {
				fmt.Fprintf(&sb, `\%03o`, c)
			} else {
				sb.WriteByte(c)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
