package vm

import (
	"math"
	"strings"

	"github.com/pkg/errors"

	"simplec/pkg/asm"
)

// conditions maps a condition code suffix to its test on the flags.
var conditions = map[string]func(m *Machine) bool{
	"e":  func(m *Machine) bool { return m.ZF },
	"z":  func(m *Machine) bool { return m.ZF },
	"ne": func(m *Machine) bool { return !m.ZF },
	"nz": func(m *Machine) bool { return !m.ZF },
	"l":  func(m *Machine) bool { return m.SF != m.OF },
	"ge": func(m *Machine) bool { return m.SF == m.OF },
	"le": func(m *Machine) bool { return m.ZF || m.SF != m.OF },
	"g":  func(m *Machine) bool { return !m.ZF && m.SF == m.OF },
	"b":  func(m *Machine) bool { return m.CF },
	"ae": func(m *Machine) bool { return !m.CF },
	"be": func(m *Machine) bool { return m.CF || m.ZF },
	"a":  func(m *Machine) bool { return !m.CF && !m.ZF },
}

func (m *Machine) address(o asm.Operand) (uint32, error) {
	if o.Kind != asm.Mem {
		return 0, errors.Errorf("operand %s is not a memory reference", o)
	}
	if o.Sym != "" {
		a, ok := m.symbols[o.Sym]
		if !ok {
			return 0, errors.Errorf("undefined data symbol %s", o.Sym)
		}
		return a + uint32(o.Disp), nil
	}
	r, ok := registers[o.Base]
	if !ok || r.low {
		return 0, errors.Errorf("invalid base register %%%s", o.Base)
	}
	return m.Regs[r.index] + uint32(o.Disp), nil
}

func (m *Machine) read(o asm.Operand, size int) (uint32, error) {
	switch o.Kind {
	case asm.Imm:
		return uint32(o.Value), nil
	case asm.Reg:
		r, ok := registers[o.Reg]
		if !ok {
			return 0, errors.Errorf("unknown register %%%s", o.Reg)
		}
		if r.low || size == 1 {
			return m.Regs[r.index] & 0xFF, nil
		}
		return m.Regs[r.index], nil
	}
	a, err := m.address(o)
	if err != nil {
		return 0, err
	}
	return m.load(a, size)
}

func (m *Machine) write(o asm.Operand, size int, v uint32) error {
	switch o.Kind {
	case asm.Imm:
		return errors.Errorf("cannot write to immediate %s", o)
	case asm.Reg:
		r, ok := registers[o.Reg]
		if !ok {
			return errors.Errorf("unknown register %%%s", o.Reg)
		}
		if r.low || size == 1 {
			m.Regs[r.index] = m.Regs[r.index]&^0xFF | v&0xFF
		} else {
			m.Regs[r.index] = v
		}
		return nil
	}
	a, err := m.address(o)
	if err != nil {
		return err
	}
	return m.store(a, size, v)
}

func (m *Machine) setSub(a, b uint32) uint32 {
	r := a - b
	m.ZF = r == 0
	m.SF = int32(r) < 0
	m.CF = a < b
	m.OF = ((a^b)&(a^r))>>31 == 1
	return r
}

func (m *Machine) setAdd(a, b uint32) uint32 {
	r := a + b
	m.ZF = r == 0
	m.SF = int32(r) < 0
	m.CF = r < a
	m.OF = (^(a^b)&(a^r))>>31 == 1
	return r
}

func (m *Machine) jumpTarget(o asm.Operand) (int, error) {
	idx, ok := m.listing.Labels[o.Sym]
	if o.Kind != asm.Mem || o.Sym == "" || !ok {
		return 0, errors.Errorf("undefined label %s", o)
	}
	return idx, nil
}

func arity(in asm.Instr, n int) error {
	if len(in.Args) != n {
		return errors.Errorf("%s expects %d operands", in.Mnemonic, n)
	}
	return nil
}

// exec executes in and advances the program counter.
func (m *Machine) exec(in asm.Instr) error {
	next := m.PC + 1
	args := in.Args

	switch op := in.Mnemonic; op {
	case "movl", "movb", "movsbl", "movzbl":
		if err := arity(in, 2); err != nil {
			return err
		}
		size := 4
		if op != "movl" {
			size = 1
		}
		v, err := m.read(args[0], size)
		if err != nil {
			return err
		}
		if op == "movsbl" {
			v = uint32(int32(int8(v)))
		}
		if op == "movb" {
			return m.advance(next, m.write(args[1], 1, v))
		}
		return m.advance(next, m.write(args[1], 4, v))

	case "leal":
		if err := arity(in, 2); err != nil {
			return err
		}
		a, err := m.address(args[0])
		if err != nil {
			return err
		}
		return m.advance(next, m.write(args[1], 4, a))

	case "addl", "subl", "imull", "cmpl":
		if err := arity(in, 2); err != nil {
			return err
		}
		src, err := m.read(args[0], 4)
		if err != nil {
			return err
		}
		dst, err := m.read(args[1], 4)
		if err != nil {
			return err
		}
		var r uint32
		switch op {
		case "addl":
			r = m.setAdd(dst, src)
		case "subl", "cmpl":
			r = m.setSub(dst, src)
		case "imull":
			p := int64(int32(dst)) * int64(int32(src))
			r = uint32(p)
			m.OF = p != int64(int32(r))
			m.CF = m.OF
		}
		if op == "cmpl" {
			return m.advance(next, nil)
		}
		return m.advance(next, m.write(args[1], 4, r))

	case "negl":
		if err := arity(in, 1); err != nil {
			return err
		}
		v, err := m.read(args[0], 4)
		if err != nil {
			return err
		}
		return m.advance(next, m.write(args[0], 4, m.setSub(0, v)))

	case "cltd":
		if int32(m.Regs[RegEAX]) < 0 {
			m.Regs[RegEDX] = math.MaxUint32
		} else {
			m.Regs[RegEDX] = 0
		}
		return m.advance(next, nil)

	case "idivl":
		if err := arity(in, 1); err != nil {
			return err
		}
		v, err := m.read(args[0], 4)
		if err != nil {
			return err
		}
		d := int64(int32(v))
		if d == 0 {
			return errors.New("division by zero")
		}
		n := int64(uint64(m.Regs[RegEDX])<<32 | uint64(m.Regs[RegEAX]))
		q := n / d
		if q > math.MaxInt32 || q < math.MinInt32 {
			return errors.New("division overflow")
		}
		m.Regs[RegEAX] = uint32(int32(q))
		m.Regs[RegEDX] = uint32(int32(n % d))
		return m.advance(next, nil)

	case "pushl":
		if err := arity(in, 1); err != nil {
			return err
		}
		v, err := m.read(args[0], 4)
		if err != nil {
			return err
		}
		return m.advance(next, m.push(v))

	case "popl":
		if err := arity(in, 1); err != nil {
			return err
		}
		v, err := m.pop()
		if err != nil {
			return err
		}
		return m.advance(next, m.write(args[0], 4, v))

	case "jmp":
		if err := arity(in, 1); err != nil {
			return err
		}
		target, err := m.jumpTarget(args[0])
		if err != nil {
			return err
		}
		return m.advance(target, nil)

	case "call":
		if err := arity(in, 1); err != nil {
			return err
		}
		return m.call(args[0].Sym, next)

	case "ret":
		v, err := m.pop()
		if err != nil {
			return err
		}
		if v == haltAddr {
			m.Halted = true
			return nil
		}
		if v < codeBase || int(v-codeBase) > len(m.listing.Instrs) {
			return errors.Errorf("return to invalid address %#x", v)
		}
		return m.advance(int(v-codeBase), nil)
	}

	if cc, ok := strings.CutPrefix(in.Mnemonic, "set"); ok {
		test, ok := conditions[cc]
		if !ok {
			return errors.Errorf("unknown instruction %s", in.Mnemonic)
		}
		if err := arity(in, 1); err != nil {
			return err
		}
		var v uint32
		if test(m) {
			v = 1
		}
		return m.advance(next, m.write(args[0], 1, v))
	}

	if cc, ok := strings.CutPrefix(in.Mnemonic, "j"); ok {
		test, ok := conditions[cc]
		if !ok {
			return errors.Errorf("unknown instruction %s", in.Mnemonic)
		}
		if err := arity(in, 1); err != nil {
			return err
		}
		target, err := m.jumpTarget(args[0])
		if err != nil {
			return err
		}
		if test(m) {
			next = target
		}
		return m.advance(next, nil)
	}

	return errors.Errorf("unknown instruction %s", in.Mnemonic)
}

// advance moves to pc unless err is set.
func (m *Machine) advance(pc int, err error) error {
	if err != nil {
		return err
	}
	m.PC = pc
	return nil
}

// call transfers control to a function of the listing, or runs a builtin
// in place of one that is not defined there.
func (m *Machine) call(name string, next int) error {
	if target, ok := m.listing.Labels[name]; ok {
		if err := m.push(codeBase + uint32(next)); err != nil {
			return err
		}
		m.PC = target
		return nil
	}

	b, ok := m.Builtins[strings.TrimPrefix(name, m.prefix)]
	if !ok {
		return errors.Errorf("call to undefined function %s", name)
	}
	v, err := b(m)
	if err != nil {
		return errors.Wrap(err, name)
	}
	m.Regs[RegEAX] = uint32(v)
	m.PC = next
	return nil
}
