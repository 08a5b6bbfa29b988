package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"simplec/pkg/asm"
	"simplec/pkg/codegen"
	"simplec/pkg/compiler"
	"simplec/pkg/diag"
	"simplec/pkg/vm"
)

// inputs collects repeated -in flags.
type inputs []string

func (in *inputs) String() string { return strings.Join(*in, ",") }

func (in *inputs) Set(v string) error {
	*in = append(*in, v)
	return nil
}

var presets = map[string]codegen.Target{
	"linux":  codegen.Linux,
	"darwin": codegen.Darwin,
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("simplec: ")

	var files inputs
	flag.Var(&files, "in", "input C file (repeatable; trailing arguments are inputs too)")
	outDir := flag.String("out", "", "output directory for .s files (default: next to each input; - for stdout)")
	preset := flag.String("target", "linux", "target preset: linux or darwin")
	align := flag.Int("align", 0, "stack alignment at calls, overriding the preset")
	prefix := flag.String("prefix", "", "global symbol prefix, overriding the preset")
	runProgram := flag.Bool("run", false, "run main of each compiled program on the VM")
	trace := flag.Bool("trace", false, "log frame layout and data sections to stderr")
	werror := flag.Bool("werror", false, "exit with status 1 when any diagnostic is reported")
	flag.Parse()
	files = append(files, flag.Args()...)

	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "nothing to do: provide -in <file.c>")
		flag.Usage()
		os.Exit(2)
	}

	target, ok := presets[*preset]
	if !ok {
		log.Fatalf("unknown target %q", *preset)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "align":
			target.StackAlignment = *align
		case "prefix":
			target.GlobalPrefix = *prefix
		}
	})
	if err := target.Validate(); err != nil {
		log.Fatal(err)
	}

	opts := compiler.Options{Target: target}
	if *trace {
		opts.Trace = log.New(os.Stderr, "simplec: trace: ", 0)
	}

	// Inputs are independent programs, each with its own checker and
	// generator.
	results := make([]*compiler.Result, len(files))
	var g errgroup.Group
	for i, path := range files {
		g.Go(func() error {
			o := opts
			o.Reporter = diag.Writer{W: os.Stderr, File: path}
			res, err := compiler.CompileFile(path, o)
			if err != nil {
				return err
			}
			results[i] = res
			if *outDir == "-" {
				return nil
			}
			return writeAssembly(*outDir, path, res.Assembly)
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}

	if *outDir == "-" {
		if err := printListings(os.Stdout, files, results); err != nil {
			log.Fatal(err)
		}
	}

	failed := false
	for i, res := range results {
		if len(res.Diagnostics) > 0 {
			log.Printf("%s: %d diagnostics", files[i], len(res.Diagnostics))
			failed = failed || *werror
			continue
		}
		if *runProgram {
			v, err := run(res.Assembly, target)
			if err != nil {
				log.Fatal(errors.Wrap(err, files[i]))
			}
			fmt.Printf("%s: main returned %d\n", files[i], v)
		}
	}
	if failed {
		os.Exit(1)
	}
}

func outputPath(dir, input string) string {
	base := strings.TrimSuffix(input, filepath.Ext(input)) + ".s"
	if dir == "" {
		return base
	}
	return filepath.Join(dir, filepath.Base(base))
}

func writeAssembly(dir, input, code string) error {
	out := outputPath(dir, input)
	if err := os.WriteFile(out, []byte(code), 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", out)
	}
	return nil
}

// printListings writes every listing to w in input order, each preceded
// by a comment naming its source file.
func printListings(w io.Writer, files []string, results []*compiler.Result) error {
	for i, res := range results {
		if _, err := fmt.Fprintf(w, "# %s\n%s", files[i], res.Assembly); err != nil {
			return errors.Wrap(err, "writing listing")
		}
	}
	return nil
}

func run(code string, target codegen.Target) (int32, error) {
	listing, err := asm.Parse(code)
	if err != nil {
		return 0, err
	}
	m, err := vm.New(listing, vm.Options{Prefix: target.GlobalPrefix})
	if err != nil {
		return 0, err
	}
	return m.Run("main")
}
