// Command scdump prints every stage of compiling one Simple C file:
// tokens, the checked AST, the global scope, frame layouts and assembly.
package main

import (
	"fmt"
	"os"

	"simplec/pkg/ast"
	"simplec/pkg/codegen"
	"simplec/pkg/compiler"
	"simplec/pkg/diag"
)

const testSource = `int printf(char *fmt, ...);
int total;

int add(int a, int b) {
	int c;
	c = a + b;
	return c;
}

int main(void) {
	total = add(2, 3);
	printf("%d\n", total);
	return 0;
}
`

func main() {
	src := testSource
	if len(os.Args) > 1 {
		data, err := os.ReadFile(os.Args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, "read error:", err)
			os.Exit(1)
		}
		src = string(data)
	}

	fmt.Printf("Source:\n%s\n", src)

	// Lex
	tokens, err := compiler.Lex(src)
	if err != nil {
		fmt.Fprintln(os.Stderr, "lex error:", err)
		os.Exit(1)
	}

	fmt.Printf("Tokens (%d)\n", len(tokens))
	for _, tok := range tokens {
		fmt.Println(" ", tok)
	}
	fmt.Println()

	// Parse and check
	list := &diag.List{}
	p := compiler.NewParser(tokens, src, diag.Tee{list, diag.Writer{W: os.Stderr}})
	prog, err := p.Parse()
	if err != nil {
		fmt.Fprintln(os.Stderr, "parse error:", err)
		os.Exit(1)
	}

	fmt.Println("AST")
	for _, fn := range prog.Functions {
		fmt.Println(" ", fn)
		for _, s := range fn.Body.Stmts {
			ast.Inspect(s, func(n ast.Node) bool {
				if _, ok := n.(ast.Stmt); ok {
					fmt.Println("   ", n)
				}
				return true
			})
		}
	}
	fmt.Println()

	if list.Len() > 0 {
		fmt.Printf("%d diagnostics\n\n", list.Len())
	}

	// Code generation
	asm, err := codegen.Generate(prog, codegen.Options{Target: codegen.Linux})
	if err != nil {
		fmt.Fprintln(os.Stderr, "codegen error:", err)
		os.Exit(1)
	}

	fmt.Println("Frames")
	for _, fn := range prog.Functions {
		fmt.Printf("  %s\n", fn.Id.Name)
		for _, sym := range fn.Params {
			fmt.Printf("    %-20s  Offset: %d  Type: %s\n", sym.Name, sym.Offset, sym.Type)
		}
		ast.Inspect(fn.Body, func(n ast.Node) bool {
			if b, ok := n.(*ast.Block); ok {
				for _, sym := range b.Decls {
					fmt.Printf("    %-20s  Offset: %d  Type: %s\n", sym.Name, sym.Offset, sym.Type)
				}
			}
			return true
		})
	}
	fmt.Println()

	fmt.Println("Generated Assembly")
	fmt.Print(asm)
	fmt.Println()
	fmt.Print(p.Checker().Outermost())
}
