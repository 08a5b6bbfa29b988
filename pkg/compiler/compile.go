package compiler

import (
	"log"
	"os"

	"github.com/pkg/errors"

	"simplec/pkg/ast"
	"simplec/pkg/codegen"
	"simplec/pkg/diag"
)

// Options configures one compilation.
type Options struct {
	Target codegen.Target

	// Trace, when set, receives one line per generated function and section.
	Trace *log.Logger

	// Reporter, when set, also receives every diagnostic as it is reported.
	Reporter diag.Reporter
}

// Result is the outcome of a compilation that got past the recognizer.
type Result struct {
	// Assembly is generated even when diagnostics were reported; its
	// behaviour is then unspecified.
	Assembly    string
	Program     *ast.Program
	Diagnostics []diag.Diagnostic
}

// Compile checks src and generates assembly for whatever tree the
// recognizer built. Semantic errors are returned in the Result, never as
// error; the error, if any, is a *SyntaxError or a bad Target.
func Compile(src string, opts Options) (*Result, error) {
	if err := opts.Target.Validate(); err != nil {
		return nil, err
	}

	tokens, err := Lex(src)
	if err != nil {
		return nil, err
	}

	list := &diag.List{}
	var r diag.Reporter = list
	if opts.Reporter != nil {
		r = diag.Tee{list, opts.Reporter}
	}

	prog, err := Parse(tokens, src, r)
	if err != nil {
		return nil, err
	}

	res := &Result{Program: prog, Diagnostics: list.Items()}
	res.Assembly, err = codegen.Generate(prog, codegen.Options{Target: opts.Target, Trace: opts.Trace})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// CompileFile reads and compiles the file at path.
func CompileFile(path string, opts Options) (*Result, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	res, err := Compile(string(src), opts)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return res, nil
}
