package types

import "fmt"

// Word is the size of int, of every pointer, and of one frame slot.
const Word = 4

// SpecifierOf returns the specifier of a non-error type.
// Asking it of Error is a compiler bug.
func SpecifierOf(t Type) Specifier {
	switch x := t.(type) {
	case Scalar:
		return x.Spec
	case Array:
		return x.Spec
	case Function:
		return x.Spec
	}
	panic(fmt.Sprintf("types: specifier of %s", t))
}

// IndirectionOf returns the pointer depth of a non-error type.
func IndirectionOf(t Type) int {
	switch x := t.(type) {
	case Scalar:
		return x.Indirection
	case Array:
		return x.Indirection
	case Function:
		return x.Indirection
	}
	panic(fmt.Sprintf("types: indirection of %s", t))
}

// LengthOf returns the element count of an array type.
func LengthOf(t Type) int {
	a, ok := t.(Array)
	if !ok {
		panic(fmt.Sprintf("types: length of non-array %s", t))
	}
	return a.Length
}

// ParametersOf returns the parameter list of a function type.
func ParametersOf(t Type) *Parameters {
	f, ok := t.(Function)
	if !ok {
		panic(fmt.Sprintf("types: parameters of non-function %s", t))
	}
	return f.Params
}

// Promote applies the implicit conversions: char becomes int and an array
// decays to a pointer to its element. Everything else is returned as is.
func Promote(t Type) Type {
	switch x := t.(type) {
	case Scalar:
		if x.Spec == Char && x.Indirection == 0 {
			return Integer
		}
	case Array:
		return Scalar{Spec: x.Spec, Indirection: x.Indirection + 1}
	}
	return t
}

// IsInteger reports whether t is a non-void scalar with no indirection.
func IsInteger(t Type) bool {
	s, ok := t.(Scalar)
	return ok && s.Spec != Void && s.Indirection == 0
}

// IsPointer reports whether t, once promoted, is a pointer.
func IsPointer(t Type) bool {
	s, ok := Promote(t).(Scalar)
	return ok && s.Indirection > 0
}

// IsPredicate reports whether t can be used as a test value.
func IsPredicate(t Type) bool {
	p := Promote(t)
	return IsPointer(p) || Equal(p, Integer)
}

// IsPtrToNull reports whether t is exactly `void *`.
func IsPtrToNull(t Type) bool {
	s, ok := t.(Scalar)
	return ok && s.Spec == Void && s.Indirection == 1
}

// IsCompatible reports whether a value of type right may be used where a
// value of type left is expected. The void pointer is compatible with any
// pointer in either position; otherwise left must be a predicate type and
// both sides must promote to the same type.
func IsCompatible(left, right Type) bool {
	if IsPtrToNull(left) && IsPointer(right) {
		return true
	}
	if IsPtrToNull(right) && IsPointer(left) {
		return true
	}
	return IsPredicate(left) && Equal(Promote(left), Promote(right))
}

// Deref removes one level of indirection from a promoted pointer type.
func Deref(t Type) Type {
	p := Promote(t)
	return Scalar{Spec: SpecifierOf(p), Indirection: IndirectionOf(p) - 1}
}

// AddressOf adds one level of indirection.
func AddressOf(t Type) Type {
	return Scalar{Spec: SpecifierOf(t), Indirection: IndirectionOf(t) + 1}
}

// Size returns the storage size in bytes. Error and function types are
// given a word so that best-effort code generation never divides by zero.
func Size(t Type) int {
	switch x := t.(type) {
	case Scalar:
		if x.Indirection > 0 {
			return Word
		}
		switch x.Spec {
		case Char:
			return 1
		case Void:
			return 0
		}
		return Word
	case Array:
		return x.Length * Size(Scalar{Spec: x.Spec, Indirection: x.Indirection})
	}
	return Word
}

// Alignment returns the alignment of t in bytes.
func Alignment(t Type) int {
	switch x := t.(type) {
	case Scalar:
		if x.Indirection == 0 && x.Spec == Char {
			return 1
		}
	case Array:
		return Alignment(Scalar{Spec: x.Spec, Indirection: x.Indirection})
	}
	return Word
}

// ElementSize is the scale factor for arithmetic on the pointer type t.
// The void pointer scales by one byte.
func ElementSize(t Type) int {
	n := Size(Deref(t))
	if n == 0 {
		return 1
	}
	return n
}
