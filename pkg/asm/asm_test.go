package asm

import (
	"reflect"
	"strings"
	"testing"
)

const sample = `main:
	pushl	%ebp
	movl	%esp, %ebp
	subl	$main.size, %esp
	movl	x, %eax
	cmpl	$0, %eax
	jne	.L1
	leal	.L2, %eax
	movl	%eax, -4(%ebp)
	movsbl	(%eax), %eax
.L1:
	movl	%eax, 8(%esp)
.L0:
	movl	%ebp, %esp
	popl	%ebp
	ret

	.globl	main
	.set	main.size, 12

	.data
	.comm	x, 4, 4
	.comm	buf, 10, 1
	.section .rodata
.L2:	.asciz	"a: \"b\"\n\001"
`

func TestHelperFunctions(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"abc", true},
		{"_abc", true},
		{".L12", true},
		{"main.size", true},
		{"1abc", false},
		{"", false},
		{"ab-c", false},
	}
	for _, tc := range tests {
		if got := isIdentifier(tc.input); got != tc.want {
			t.Errorf("isIdentifier(%q) = %v; want %v", tc.input, got, tc.want)
		}
	}

	split := splitOperands("-4(%ebp), %eax")
	if !reflect.DeepEqual(split, []string{"-4(%ebp)", "%eax"}) {
		t.Errorf("splitOperands = %q", split)
	}
	if got := stripComment(`.asciz "a#b" # note`); got != `.asciz "a#b" ` {
		t.Errorf("stripComment = %q", got)
	}
}

func TestParse(t *testing.T) {
	l, err := Parse(sample)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(l.Instrs) != 13 {
		t.Fatalf("got %d instructions, want 13", len(l.Instrs))
	}
	wantLabels := map[string]int{"main": 0, ".L1": 9, ".L0": 10}
	if !reflect.DeepEqual(l.Labels, wantLabels) {
		t.Errorf("Labels = %v, want %v", l.Labels, wantLabels)
	}
	if l.Consts["main.size"] != 12 {
		t.Errorf("main.size = %d, want 12", l.Consts["main.size"])
	}
	if !reflect.DeepEqual(l.Globl, []string{"main"}) {
		t.Errorf("Globl = %v", l.Globl)
	}

	wantCommons := []Common{{"x", 4, 4}, {"buf", 10, 1}}
	if !reflect.DeepEqual(l.Commons, wantCommons) {
		t.Errorf("Commons = %v, want %v", l.Commons, wantCommons)
	}
	wantLiterals := []Literal{{".L2", "a: \"b\"\n\x01"}}
	if !reflect.DeepEqual(l.Literals, wantLiterals) {
		t.Errorf("Literals = %q, want %q", l.Literals, wantLiterals)
	}
}

func TestOperands(t *testing.T) {
	l, err := Parse(sample)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	tests := []struct {
		index int
		want  []Operand
	}{
		{0, []Operand{{Kind: Reg, Reg: "ebp"}}},
		{2, []Operand{{Kind: Imm, Value: 12}, {Kind: Reg, Reg: "esp"}}},
		{3, []Operand{{Kind: Mem, Sym: "x"}, {Kind: Reg, Reg: "eax"}}},
		{6, []Operand{{Kind: Mem, Sym: ".L2"}, {Kind: Reg, Reg: "eax"}}},
		{7, []Operand{{Kind: Reg, Reg: "eax"}, {Kind: Mem, Base: "ebp", Disp: -4}}},
		{8, []Operand{{Kind: Mem, Base: "eax"}, {Kind: Reg, Reg: "eax"}}},
		{9, []Operand{{Kind: Reg, Reg: "eax"}, {Kind: Mem, Base: "esp", Disp: 8}}},
	}
	for _, tc := range tests {
		if got := l.Instrs[tc.index].Args; !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Instrs[%d] (%s) args = %+v, want %+v", tc.index, l.Instrs[tc.index], got, tc.want)
		}
	}

	if got := l.Instrs[7].String(); got != "movl %eax, -4(%ebp)" {
		t.Errorf("String() = %q", got)
	}
	if l.Instrs[4].Line != 6 {
		t.Errorf("Instrs[4].Line = %d, want 6", l.Instrs[4].Line)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{"Duplicate Label", "a:\n\tret\na:\n\tret", "duplicate label 'a' on line 3"},
		{"Undefined Constant", "\tsubl\t$f.size, %esp", "undefined constant 'f.size' on line 1"},
		{"Bad Set", "\t.set\tf.size", ".set expects name, value on line 1"},
		{"Bad Comm", "\t.data\n\t.comm\tx, big, 4", "invalid .comm size on line 2"},
		{"Unknown Directive", "\t.quad\t1", "unknown directive .quad on line 1"},
		{"Instruction In Data", "\t.data\n\tret", "instruction ret outside the text section on line 2"},
		{"Bad Operand", "\tmovl\t4(ebp), %eax", "invalid memory operand '4(ebp)' on line 1"},
		{"Bad String", "\t.data\ns:\t.asciz\t\"open", "invalid string literal on line 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.code)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Parse() error = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestControlFlow(t *testing.T) {
	l, err := Parse(sample)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	jne := l.Find(0, "jne .L1")
	if jne != 5 {
		t.Fatalf("Find(jne .L1) = %d, want 5", jne)
	}
	if got := l.Target(jne); got != 9 {
		t.Errorf("Target = %d, want 9", got)
	}
	if got := l.Successors(jne); !reflect.DeepEqual(got, []int{9, 6}) {
		t.Errorf("Successors(jne) = %v", got)
	}
	if got := l.Successors(12); got != nil {
		t.Errorf("Successors(ret) = %v, want none", got)
	}

	// Taking the branch skips the leal block entirely.
	taken := l.Reachable(l.Target(jne))
	for i := 6; i < 9; i++ {
		if taken[i] {
			t.Errorf("instruction %d (%s) reachable from the branch target", i, l.Instrs[i])
		}
	}
	if !l.Reachable(jne + 1)[12] {
		t.Errorf("ret not reachable from the fall-through path")
	}
	if got := len(l.Reachable(0)); got != 13 {
		t.Errorf("Reachable(0) has %d instructions, want 13", got)
	}
}
