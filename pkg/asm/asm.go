// Package asm reads the AT&T listing produced by the code generator back
// into instructions and data, so it can be inspected or executed.
package asm

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

// Kind classifies an Operand.
type Kind int

const (
	Imm Kind = iota // $42 or $name.size
	Reg             // %eax, %al
	Mem             // -4(%ebp), (%ecx), name, .L3
)

// Operand is one parsed instruction operand. A Mem operand addresses
// Disp(Base) when Base is set and Sym+Disp when Sym is set. Jump and call
// targets are Mem operands with only Sym.
type Operand struct {
	Kind  Kind
	Value int    // Imm
	Reg   string // Reg, without the %
	Base  string // Mem base register, without the %
	Disp  int
	Sym   string
}

func (o Operand) String() string {
	switch o.Kind {
	case Imm:
		return fmt.Sprintf("$%d", o.Value)
	case Reg:
		return "%" + o.Reg
	}
	switch {
	case o.Sym != "" && o.Disp != 0:
		return fmt.Sprintf("%s+%d", o.Sym, o.Disp)
	case o.Sym != "":
		return o.Sym
	case o.Disp != 0:
		return fmt.Sprintf("%d(%%%s)", o.Disp, o.Base)
	}
	return fmt.Sprintf("(%%%s)", o.Base)
}

// Instr is one instruction of the text section.
type Instr struct {
	Line     int
	Mnemonic string
	Args     []Operand
}

func (in Instr) String() string {
	if len(in.Args) == 0 {
		return in.Mnemonic
	}
	args := make([]string, len(in.Args))
	for i, a := range in.Args {
		args[i] = a.String()
	}
	return in.Mnemonic + " " + strings.Join(args, ", ")
}

// Common is storage reserved with .comm.
type Common struct {
	Name  string
	Size  int
	Align int
}

// Literal is a NUL-terminated string placed with .asciz.
type Literal struct {
	Label string
	Value string
}

// Listing is a whole parsed assembly file.
type Listing struct {
	Instrs   []Instr
	Labels   map[string]int // code label → index into Instrs
	Consts   map[string]int // .set
	Commons  []Common
	Literals []Literal
	Globl    []string
}

type parsedLine struct {
	lineNo    int
	labels    []string
	directive string
	mnemonic  string
	operands  []string
	raw       string // text after the directive, unsplit
}

// reader holds the state of the first pass.
type reader struct {
	l     *Listing
	text  bool // in the text section
	count int  // instructions seen so far
}

// Parse reads a listing in two passes: the first collects labels and
// constants, the second parses operands and resolves $name constants.
func Parse(code string) (*Listing, error) {
	r := &reader{l: &Listing{Labels: map[string]int{}, Consts: map[string]int{}}, text: true}

	var parsed []parsedLine
	for i, raw := range strings.Split(code, "\n") {
		p, err := parseLine(raw, i+1)
		if err != nil {
			return nil, err
		}
		if err := r.pass1(p); err != nil {
			return nil, err
		}
		if p.mnemonic != "" {
			parsed = append(parsed, p)
		}
	}

	l := r.l
	for _, p := range parsed {
		in := Instr{Line: p.lineNo, Mnemonic: p.mnemonic}
		for _, tok := range p.operands {
			op, err := l.parseOperand(tok, p.lineNo)
			if err != nil {
				return nil, err
			}
			in.Args = append(in.Args, op)
		}
		l.Instrs = append(l.Instrs, in)
	}
	return l, nil
}

// pass1 records the labels and directives of p. Labels in the text
// section name the next instruction; elsewhere they name data.
func (r *reader) pass1(p parsedLine) error {
	l := r.l
	for _, lbl := range p.labels {
		if _, exists := l.Labels[lbl]; exists {
			return errors.Errorf("asm: duplicate label '%s' on line %d", lbl, p.lineNo)
		}
		if r.text {
			l.Labels[lbl] = r.count
		}
	}

	switch p.directive {
	case "":
		if p.mnemonic == "" {
			return nil
		}
		if !r.text {
			return errors.Errorf("asm: instruction %s outside the text section on line %d", p.mnemonic, p.lineNo)
		}
		r.count++
	case ".text":
		r.text = true
	case ".data", ".section", ".cstring", ".bss":
		r.text = false
	case ".globl":
		l.Globl = append(l.Globl, strings.TrimSpace(p.raw))
	case ".set":
		name, value, ok := strings.Cut(p.raw, ",")
		if !ok {
			return errors.Errorf("asm: .set expects name, value on line %d", p.lineNo)
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return errors.Errorf("asm: invalid .set value on line %d: %s", p.lineNo, value)
		}
		l.Consts[strings.TrimSpace(name)] = n
	case ".comm":
		fields := splitOperands(p.raw)
		if len(fields) < 2 || len(fields) > 3 {
			return errors.Errorf("asm: .comm expects name, size[, align] on line %d", p.lineNo)
		}
		c := Common{Name: fields[0], Align: 1}
		var err error
		if c.Size, err = strconv.Atoi(fields[1]); err != nil {
			return errors.Errorf("asm: invalid .comm size on line %d: %s", p.lineNo, fields[1])
		}
		if len(fields) == 3 {
			if c.Align, err = strconv.Atoi(fields[2]); err != nil {
				return errors.Errorf("asm: invalid .comm alignment on line %d: %s", p.lineNo, fields[2])
			}
		}
		l.Commons = append(l.Commons, c)
	case ".asciz":
		if len(p.labels) != 1 {
			return errors.Errorf("asm: .asciz needs exactly one label on line %d", p.lineNo)
		}
		s, err := strconv.Unquote(strings.TrimSpace(p.raw))
		if err != nil {
			return errors.Errorf("asm: invalid string literal on line %d", p.lineNo)
		}
		l.Literals = append(l.Literals, Literal{Label: p.labels[0], Value: s})
	default:
		return errors.Errorf("asm: unknown directive %s on line %d", p.directive, p.lineNo)
	}
	return nil
}

func parseLine(raw string, lineNo int) (parsedLine, error) {
	p := parsedLine{lineNo: lineNo}
	line := strings.TrimSpace(stripComment(raw))

	for line != "" {
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			break
		}
		before := line[:colon]
		if strings.ContainsAny(before, " \t\"") {
			break
		}
		if !isIdentifier(before) {
			return p, errors.Errorf("asm: invalid label '%s' on line %d", before, lineNo)
		}
		p.labels = append(p.labels, before)
		line = strings.TrimSpace(line[colon+1:])
	}
	if line == "" {
		return p, nil
	}

	word, rest := line, ""
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		word, rest = line[:i], strings.TrimSpace(line[i+1:])
	}

	if strings.HasPrefix(word, ".") {
		p.directive = word
		p.raw = rest
		return p, nil
	}
	p.mnemonic = word
	p.operands = splitOperands(rest)
	return p, nil
}

// splitOperands splits on commas outside parentheses.
func splitOperands(s string) []string {
	var out []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if last := strings.TrimSpace(s[start:]); last != "" {
		out = append(out, last)
	}
	return out
}

// stripComment drops a # comment outside string literals.
func stripComment(line string) string {
	quoted := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '\\':
			i++
		case '"':
			quoted = !quoted
		case '#':
			if !quoted {
				return line[:i]
			}
		}
	}
	return line
}

func (l *Listing) parseOperand(tok string, lineNo int) (Operand, error) {
	switch {
	case strings.HasPrefix(tok, "$"):
		v := tok[1:]
		if n, err := strconv.Atoi(v); err == nil {
			return Operand{Kind: Imm, Value: n}, nil
		}
		if n, ok := l.Consts[v]; ok {
			return Operand{Kind: Imm, Value: n}, nil
		}
		return Operand{}, errors.Errorf("asm: undefined constant '%s' on line %d", v, lineNo)

	case strings.HasPrefix(tok, "%"):
		return Operand{Kind: Reg, Reg: tok[1:]}, nil

	case strings.HasSuffix(tok, ")"):
		open := strings.IndexByte(tok, '(')
		if open < 0 || !strings.HasPrefix(tok[open+1:], "%") {
			return Operand{}, errors.Errorf("asm: invalid memory operand '%s' on line %d", tok, lineNo)
		}
		op := Operand{Kind: Mem, Base: tok[open+2 : len(tok)-1]}
		if disp := tok[:open]; disp != "" {
			n, err := strconv.Atoi(disp)
			if err != nil {
				return Operand{}, errors.Errorf("asm: invalid displacement '%s' on line %d", disp, lineNo)
			}
			op.Disp = n
		}
		return op, nil

	case isIdentifier(tok):
		return Operand{Kind: Mem, Sym: tok}, nil
	}
	return Operand{}, errors.Errorf("asm: invalid operand '%s' on line %d", tok, lineNo)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || r == '.' || unicode.IsLetter(r) {
			continue
		}
		if i > 0 && unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return true
}
