package compiler_test

import (
	"bytes"
	"testing"

	"simplec/pkg/asm"
	"simplec/pkg/codegen"
	"simplec/pkg/compiler"
	"simplec/pkg/vm"
)

var targets = []struct {
	name   string
	target codegen.Target
}{
	{"Linux", codegen.Linux},
	{"Darwin", codegen.Darwin},
}

// compileAndRun compiles src for target, runs main on the VM and returns
// its result and everything the program printed.
func compileAndRun(t *testing.T, src string, target codegen.Target) (int32, string) {
	t.Helper()
	res, err := compiler.Compile(src, compiler.Options{Target: target})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if len(res.Diagnostics) > 0 {
		t.Fatalf("unexpected diagnostics: %v", res.Diagnostics)
	}

	listing, err := asm.Parse(res.Assembly)
	if err != nil {
		t.Fatalf("asm.Parse failed: %v\nAssembly:\n%s", err, res.Assembly)
	}
	var out bytes.Buffer
	m, err := vm.New(listing, vm.Options{Prefix: target.GlobalPrefix, Output: &out})
	if err != nil {
		t.Fatalf("vm.New failed: %v", err)
	}
	got, err := m.Run("main")
	if err != nil {
		t.Fatalf("Run failed: %v\nAssembly:\n%s", err, res.Assembly)
	}
	return got, out.String()
}

func TestPrograms(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		want   int32
		output string
	}{
		{
			name: "Return Zero",
			src:  "int main(void) { return 0; }",
			want: 0,
		},
		{
			name: "Arithmetic",
			src: `int main(void) {
				int a; int b;
				a = 7; b = 3;
				return a * b - a / b + a % b;
			}`,
			want: 20,
		},
		{
			name: "Negative Division",
			src: `int main(void) {
				int a;
				a = -7;
				return (a / 2) * 10 + a % 2;
			}`,
			want: -31,
		},
		{
			name: "Recursion",
			src: `int fib(int n) {
				if (n < 2) return n;
				return fib(n - 1) + fib(n - 2);
			}
			int main(void) { return fib(10); }`,
			want: 55,
		},
		{
			name: "Arrays And Pointers",
			src: `int main(void) {
				int a[5]; int i; int *p; int s;
				for (i = 0; i < 5; i = i + 1) a[i] = i * i;
				p = a;
				s = 0;
				while (p < a + 5) {
					s = s + *p;
					p = p + 1;
				}
				return s;
			}`,
			want: 30,
		},
		{
			name: "Pointer Difference",
			src: `int main(void) {
				int a[10]; int *p; int *q;
				p = &a[2];
				q = &a[7];
				*q = 3;
				return (q - p) * 10 + a[7];
			}`,
			want: 53,
		},
		{
			name: "Strings And Chars",
			src: `int strlen(char *s) {
				int n;
				n = 0;
				while (s[n]) n = n + 1;
				return n;
			}
			int main(void) {
				char buf[4];
				buf[0] = 'h'; buf[1] = 'i'; buf[2] = 0;
				return strlen("hello") * 10 + strlen(buf);
			}`,
			want: 52,
		},
		{
			name: "Char Sign Extension",
			src: `int main(void) {
				char c;
				c = 200;
				return c;
			}`,
			want: -56,
		},
		{
			name: "Char Pointer Store",
			src: `int main(void) {
				char s[3]; char *p;
				p = s;
				*p = 'a';
				*(p + 1) = *p + 1;
				return s[1];
			}`,
			want: 'b',
		},
		{
			name: "Globals",
			src: `int counter;
			char tag;
			int bump(void) {
				counter = counter + 1;
				return counter;
			}
			int main(void) {
				tag = 'x';
				bump(); bump();
				return bump() * 1000 + tag;
			}`,
			want: 3120,
		},
		{
			name: "Or Short Circuits",
			src: `int calls;
			int f(void) { calls = calls + 1; return 1; }
			int g(void) { calls = calls + 10; return 0; }
			int main(void) {
				int r;
				r = f() || g();
				return r * 100 + calls;
			}`,
			want: 101,
		},
		{
			name: "And Short Circuits",
			src: `int calls;
			int f(void) { calls = calls + 1; return 0; }
			int g(void) { calls = calls + 10; return 1; }
			int main(void) {
				int r;
				r = f() && g();
				return r * 100 + calls;
			}`,
			want: 1,
		},
		{
			name: "Logical Values",
			src: `int main(void) {
				int a; int b;
				a = 5; b = 0;
				return (a && 3) * 1000 + (b || a) * 100 + (a && b) * 10 + (b || b);
			}`,
			want: 1100,
		},
		{
			name: "Break",
			src: `int main(void) {
				int i; int j; int n;
				n = 0;
				for (i = 0; i < 10; i = i + 1) {
					j = 0;
					while (1) {
						j = j + 1;
						if (j == 3) break;
					}
					n = n + j;
					if (i == 4) break;
				}
				return n;
			}`,
			want: 15,
		},
		{
			name: "Unary And Sizeof",
			src: `int main(void) {
				int x; char c; int a[3]; char *p;
				x = 5;
				return -x + !0 + !x + sizeof x + sizeof c + sizeof a + sizeof p;
			}`,
			want: 17,
		},
		{
			name: "Nested Blocks",
			src: `int main(void) {
				int x;
				x = 1;
				{
					int x;
					x = 10;
					{ int y; y = 100; x = x + y; }
				}
				return x;
			}`,
			want: 1,
		},
		{
			name: "Many Arguments",
			src: `int sum(int a, int b, int c, int d, int e) {
				return a + b * 10 + c * 100 + d * 1000 + e * 10000;
			}
			int id(int v) { return v; }
			int main(void) {
				return sum(1, id(2), 3, id(id(4)), 5);
			}`,
			want: 54321,
		},
		{
			name: "Printf",
			src: `int printf(char *fmt, ...);
			int main(void) {
				printf("%d-%s%c\n", 42, "ok", '!');
				return 0;
			}`,
			want:   0,
			output: "42-ok!\n",
		},
	}

	for _, target := range targets {
		for _, tt := range tests {
			t.Run(target.name+"/"+tt.name, func(t *testing.T) {
				got, out := compileAndRun(t, tt.src, target.target)
				if got != tt.want {
					t.Errorf("main() = %d, want %d", got, tt.want)
				}
				if out != tt.output {
					t.Errorf("output = %q, want %q", out, tt.output)
				}
			})
		}
	}
}

// TestShortCircuitReachability checks the property structurally: once
// the left operand of || is known to be true, no path reaches the call
// of the right operand.
func TestShortCircuitReachability(t *testing.T) {
	tests := []struct {
		src  string
		jump string
	}{
		{"int f(void); int g(void); int main(void) { return f() || g(); }", "jne"},
		{"int f(void); int g(void); int main(void) { return f() && g(); }", "je"},
	}

	for _, target := range targets {
		for _, tt := range tests {
			res, err := compiler.Compile(tt.src, compiler.Options{Target: target.target})
			if err != nil {
				t.Fatalf("Compile failed: %v", err)
			}
			l, err := asm.Parse(res.Assembly)
			if err != nil {
				t.Fatalf("asm.Parse failed: %v", err)
			}

			prefix := target.target.GlobalPrefix
			callF := l.Find(0, "call "+prefix+"f")
			callG := l.Find(0, "call "+prefix+"g")
			if callF < 0 || callG < 0 || callG < callF {
				t.Fatalf("calls not found in order:\n%s", res.Assembly)
			}

			branch := -1
			for i := callF; i < callG; i++ {
				if l.Instrs[i].Mnemonic == tt.jump {
					branch = i
				}
			}
			if branch < 0 {
				t.Fatalf("no %s between the calls:\n%s", tt.jump, res.Assembly)
			}

			if l.Reachable(l.Target(branch))[callG] {
				t.Errorf("%s: call of g reachable from the %s target:\n%s", target.name, tt.jump, res.Assembly)
			}
			if !l.Reachable(branch + 1)[callG] {
				t.Errorf("%s: call of g not reachable on the fall-through path", target.name)
			}
		}
	}
}
