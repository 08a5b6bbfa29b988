// Package types models the Simple C type algebra: scalars, arrays,
// functions and the error sentinel, together with the promotion and
// compatibility rules the checker applies to every operator.
package types

import (
	"fmt"
	"strings"
)

// Specifier is the base type keyword of a declaration.
type Specifier int

const (
	Int Specifier = iota
	Char
	Void
)

func (s Specifier) String() string {
	switch s {
	case Int:
		return "int"
	case Char:
		return "char"
	case Void:
		return "void"
	}
	return fmt.Sprintf("Specifier(%d)", int(s))
}

// Kind identifies which variant a Type is.
type Kind int

const (
	KindError Kind = iota
	KindScalar
	KindArray
	KindFunction
)

// Type is implemented by Error, Scalar, Array and Function only.
type Type interface {
	Kind() Kind
	String() string
	isType()
}

// Error is the "something already went wrong" type. Every rule accepts it
// silently so one mistake produces one diagnostic.
type Error struct{}

// Scalar is a specifier with zero or more levels of pointer indirection.
//
//	int x;    Scalar{Int, 0}
//	char **p; Scalar{Char, 2}
type Scalar struct {
	Spec        Specifier
	Indirection int
}

// Array is a fixed-size array of Length elements of Scalar{Spec, Indirection}.
type Array struct {
	Spec        Specifier
	Indirection int
	Length      int
}

// Parameters is the parameter list of a function type. A nil *Parameters
// on a Function means the parameters are unspecified (implicit `int f()`).
type Parameters struct {
	Types    []Type
	Variadic bool
}

// Function returns Scalar{Spec, Indirection}.
type Function struct {
	Spec        Specifier
	Indirection int
	Params      *Parameters
}

func (Error) Kind() Kind    { return KindError }
func (Scalar) Kind() Kind   { return KindScalar }
func (Array) Kind() Kind    { return KindArray }
func (Function) Kind() Kind { return KindFunction }

func (Error) isType()    {}
func (Scalar) isType()   {}
func (Array) isType()    {}
func (Function) isType() {}

// Integer is the plain `int` type, the result of every relational,
// equality and logical operator.
var Integer Type = Scalar{Spec: Int}

// NewScalar, NewArray and NewFunction mirror the four constructors of the
// type model; Error{} is the fourth.
func NewScalar(spec Specifier, indirection int) Type {
	return Scalar{Spec: spec, Indirection: indirection}
}

func NewArray(spec Specifier, indirection, length int) Type {
	return Array{Spec: spec, Indirection: indirection, Length: length}
}

func NewFunction(spec Specifier, indirection int, params *Parameters) Type {
	return Function{Spec: spec, Indirection: indirection, Params: params}
}

func stars(n int) string {
	if n == 0 {
		return ""
	}
	return " " + strings.Repeat("*", n)
}

func (Error) String() string { return "error" }

func (t Scalar) String() string { return t.Spec.String() + stars(t.Indirection) }

func (t Array) String() string {
	return fmt.Sprintf("%s%s[%d]", t.Spec, stars(t.Indirection), t.Length)
}

func (t Function) String() string {
	var sb strings.Builder
	sb.WriteString(t.Spec.String())
	sb.WriteString(stars(t.Indirection))
	sb.WriteString("(")
	if t.Params != nil {
		if len(t.Params.Types) == 0 && !t.Params.Variadic {
			sb.WriteString("void")
		}
		for i, p := range t.Params.Types {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(p.String())
		}
		if t.Params.Variadic {
			sb.WriteString(", ...")
		}
	}
	sb.WriteString(")")
	return sb.String()
}

// Equal reports whether a and b denote the same type. Error equals only
// Error; function types compare their parameter lists element-wise.
func Equal(a, b Type) bool {
	switch x := a.(type) {
	case Error:
		_, ok := b.(Error)
		return ok
	case Scalar:
		y, ok := b.(Scalar)
		return ok && x == y
	case Array:
		y, ok := b.(Array)
		return ok && x == y
	case Function:
		y, ok := b.(Function)
		if !ok || x.Spec != y.Spec || x.Indirection != y.Indirection {
			return false
		}
		return equalParams(x.Params, y.Params)
	}
	return false
}

func equalParams(a, b *Parameters) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Variadic != b.Variadic || len(a.Types) != len(b.Types) {
		return false
	}
	for i := range a.Types {
		if !Equal(a.Types[i], b.Types[i]) {
			return false
		}
	}
	return true
}

// IsError reports whether t is the error sentinel.
func IsError(t Type) bool {
	_, ok := t.(Error)
	return ok
}
