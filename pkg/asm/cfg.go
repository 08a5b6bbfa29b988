package asm

import "strings"

// IsJump reports whether mnemonic transfers control to its operand,
// conditionally or not.
func IsJump(mnemonic string) bool {
	return strings.HasPrefix(mnemonic, "j")
}

// Target returns the instruction index a jump at i goes to, or -1 when
// the instruction is not a jump to a known label.
func (l *Listing) Target(i int) int {
	in := l.Instrs[i]
	if !IsJump(in.Mnemonic) || len(in.Args) != 1 {
		return -1
	}
	if idx, ok := l.Labels[in.Args[0].Sym]; ok {
		return idx
	}
	return -1
}

// Successors returns the instructions control may reach directly after
// the one at i. A call falls through to the next instruction; ret has no
// successor within the listing.
func (l *Listing) Successors(i int) []int {
	in := l.Instrs[i]
	var next []int
	switch {
	case in.Mnemonic == "ret":
		return nil
	case in.Mnemonic == "jmp":
		if t := l.Target(i); t >= 0 {
			next = append(next, t)
		}
		return next
	case IsJump(in.Mnemonic):
		if t := l.Target(i); t >= 0 {
			next = append(next, t)
		}
	}
	if i+1 < len(l.Instrs) {
		next = append(next, i+1)
	}
	return next
}

// Reachable returns every instruction reachable from start, start included.
func (l *Listing) Reachable(start int) map[int]bool {
	seen := map[int]bool{}
	work := []int{start}
	for len(work) > 0 {
		i := work[len(work)-1]
		work = work[:len(work)-1]
		if i < 0 || i >= len(l.Instrs) || seen[i] {
			continue
		}
		seen[i] = true
		work = append(work, l.Successors(i)...)
	}
	return seen
}

// Find returns the index of the first instruction at or after from whose
// text, as printed by Instr.String, equals text, or -1.
func (l *Listing) Find(from int, text string) int {
	for i := from; i < len(l.Instrs); i++ {
		if l.Instrs[i].String() == text {
			return i
		}
	}
	return -1
}
