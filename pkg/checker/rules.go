package checker

import (
	"simplec/pkg/diag"
	"simplec/pkg/types"
)

func anyError(ts ...types.Type) bool {
	for _, t := range ts {
		if types.IsError(t) {
			return true
		}
	}
	return false
}

// nonNullPointer is a promoted pointer other than `void *`, the only kind
// that can be dereferenced or offset.
func nonNullPointer(t types.Type) bool {
	return types.IsPointer(t) && !types.IsPtrToNull(t)
}

func (c *Checker) invalidBinary(op string) types.Type {
	c.report(diag.InvalidBinary, op)
	return types.Error{}
}

func (c *Checker) invalidUnary(op string) types.Type {
	c.report(diag.InvalidUnary, op)
	return types.Error{}
}

// CheckLogical checks `&&` and `||`.
func (c *Checker) CheckLogical(left, right types.Type, op string) types.Type {
	if anyError(left, right) {
		return types.Error{}
	}
	if types.IsPredicate(left) && types.IsPredicate(right) {
		return types.Integer
	}
	return c.invalidBinary(op)
}

// CheckRelational checks `<`, `>`, `<=` and `>=`.
func (c *Checker) CheckRelational(left, right types.Type, op string) types.Type {
	if anyError(left, right) {
		return types.Error{}
	}
	l, r := types.Promote(left), types.Promote(right)
	if types.Equal(l, r) && types.IsPredicate(l) {
		return types.Integer
	}
	return c.invalidBinary(op)
}

// CheckEquality checks `==` and `!=`.
func (c *Checker) CheckEquality(left, right types.Type, op string) types.Type {
	if anyError(left, right) {
		return types.Error{}
	}
	if types.IsCompatible(types.Promote(left), types.Promote(right)) {
		return types.Integer
	}
	return c.invalidBinary(op)
}

// CheckAdd checks `+`. An integer may be added to a pointer on either side.
func (c *Checker) CheckAdd(left, right types.Type) types.Type {
	if anyError(left, right) {
		return types.Error{}
	}
	l, r := types.Promote(left), types.Promote(right)
	switch {
	case types.IsInteger(l) && types.IsInteger(r):
		return types.Integer
	case nonNullPointer(l) && types.IsInteger(r):
		return l
	case nonNullPointer(r) && types.IsInteger(l):
		return r
	}
	return c.invalidBinary("+")
}

// CheckSub checks `-`. Two pointers of the same type subtract to an int.
func (c *Checker) CheckSub(left, right types.Type) types.Type {
	if anyError(left, right) {
		return types.Error{}
	}
	l, r := types.Promote(left), types.Promote(right)
	switch {
	case types.IsInteger(l) && types.IsInteger(r):
		return types.Integer
	case nonNullPointer(l) && types.IsInteger(r):
		return l
	case nonNullPointer(l) && nonNullPointer(r) && types.Equal(l, r):
		return types.Integer
	}
	return c.invalidBinary("-")
}

// CheckMultiplicative checks `*`, `/` and `%`.
func (c *Checker) CheckMultiplicative(left, right types.Type, op string) types.Type {
	if anyError(left, right) {
		return types.Error{}
	}
	l, r := types.Promote(left), types.Promote(right)
	if types.Equal(l, types.Integer) && types.Equal(r, types.Integer) {
		return types.Integer
	}
	return c.invalidBinary(op)
}

// CheckNeg checks unary `-`.
func (c *Checker) CheckNeg(t types.Type) types.Type {
	if types.IsError(t) {
		return t
	}
	if types.IsInteger(t) {
		return t
	}
	return c.invalidUnary("-")
}

// CheckNot checks `!`.
func (c *Checker) CheckNot(t types.Type) types.Type {
	if types.IsError(t) {
		return t
	}
	if types.IsPredicate(t) {
		return types.Integer
	}
	return c.invalidUnary("!")
}

// CheckAddr checks `&`. Only an lvalue has an address.
func (c *Checker) CheckAddr(t types.Type, lvalue bool) types.Type {
	if types.IsError(t) {
		return t
	}
	if !lvalue {
		c.report(diag.LvalueRequired)
		return types.Error{}
	}
	return types.AddressOf(t)
}

// CheckDeref checks unary `*`.
func (c *Checker) CheckDeref(t types.Type) types.Type {
	if types.IsError(t) {
		return t
	}
	if p := types.Promote(t); nonNullPointer(p) {
		return types.Deref(p)
	}
	return c.invalidUnary("*")
}

// CheckSizeof checks `sizeof`.
func (c *Checker) CheckSizeof(t types.Type) types.Type {
	if types.IsError(t) {
		return t
	}
	if types.IsPredicate(t) {
		return types.Integer
	}
	return c.invalidUnary("sizeof")
}

// CheckIndex checks `base[index]`.
func (c *Checker) CheckIndex(base, index types.Type) types.Type {
	if anyError(base, index) {
		return types.Error{}
	}
	b, i := types.Promote(base), types.Promote(index)
	if nonNullPointer(b) && types.IsInteger(i) {
		return types.Deref(b)
	}
	return c.invalidBinary("[]")
}

// CheckAssignment checks `left = right` and reports whether it is valid.
func (c *Checker) CheckAssignment(left, right types.Type, lvalue bool) bool {
	if anyError(left, right) {
		return false
	}
	if !lvalue {
		c.report(diag.LvalueRequired)
		return false
	}
	if !types.IsCompatible(types.Promote(left), types.Promote(right)) {
		c.invalidBinary("=")
		return false
	}
	return true
}

// CheckReturn checks the expression of a return statement against the
// result type of the function being defined.
func (c *Checker) CheckReturn(t types.Type) {
	if c.result == nil || anyError(t, c.result) {
		return
	}
	if !types.IsCompatible(types.Promote(c.result), types.Promote(t)) {
		c.report(diag.InvalidReturn)
	}
}

// CheckBreak checks that a break statement is inside a loop body.
func (c *Checker) CheckBreak() {
	if c.loops <= 0 {
		c.report(diag.BreakOutsideLoop)
	}
}

// CheckTest checks the controlling expression of if, while and for.
func (c *Checker) CheckTest(t types.Type) {
	if types.IsError(t) {
		return
	}
	if !types.IsPredicate(t) {
		c.report(diag.InvalidTest)
	}
}

// CheckCall checks a call of a value of type callee with arguments of the
// given types and returns the type of the call. Unspecified parameters
// accept anything. A variadic callee needs at least its fixed parameters,
// and only those are checked.
func (c *Checker) CheckCall(callee types.Type, args []types.Type) types.Type {
	if types.IsError(callee) {
		return callee
	}
	f, ok := callee.(types.Function)
	if !ok {
		c.report(diag.NotAFunction)
		return types.Error{}
	}
	result := types.NewScalar(f.Spec, f.Indirection)
	if f.Params == nil {
		return result
	}

	params := f.Params.Types
	if len(args) < len(params) || (!f.Params.Variadic && len(args) != len(params)) {
		c.report(diag.InvalidArguments)
		return types.Error{}
	}
	for i, p := range params {
		if types.IsError(args[i]) {
			continue
		}
		if !types.IsCompatible(types.Promote(p), types.Promote(args[i])) {
			c.report(diag.InvalidArguments)
			return types.Error{}
		}
	}
	return result
}
