package codegen

import "github.com/pkg/errors"

// Target describes the assembler and ABI conventions of the output.
type Target struct {
	// GlobalPrefix is prepended to every global and function name.
	GlobalPrefix string

	// StackAlignment is the alignment %esp must have at each call. With 4
	// arguments are pushed; with anything larger they are stored into a
	// preallocated outgoing area at the bottom of the frame.
	StackAlignment int

	// Rodata is the section directive that precedes string literals.
	Rodata string
}

var (
	Linux  = Target{GlobalPrefix: "", StackAlignment: 4, Rodata: ".section .rodata"}
	Darwin = Target{GlobalPrefix: "_", StackAlignment: 16, Rodata: ".cstring"}
)

// Validate checks that the alignment is a positive multiple of the word size.
func (t Target) Validate() error {
	if t.StackAlignment <= 0 || t.StackAlignment%argSize != 0 {
		return errors.Errorf("codegen: stack alignment %d is not a positive multiple of %d", t.StackAlignment, argSize)
	}
	return nil
}

func (t Target) pushes() bool { return t.StackAlignment == argSize }

func (t Target) rodata() string {
	if t.Rodata == "" {
		return ".data"
	}
	return t.Rodata
}
