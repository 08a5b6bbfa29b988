// Package vm executes a parsed listing of the i386 subset the code
// generator emits, over a flat little-endian memory.
package vm

import (
	"encoding/binary"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"simplec/pkg/asm"
)

const (
	RegEAX = iota
	RegECX
	RegEDX
	RegEBX
	RegESP
	RegEBP
	RegESI
	RegEDI
)

var registers = map[string]struct {
	index int
	low   bool // the low byte of index
}{
	"eax": {RegEAX, false}, "ecx": {RegECX, false}, "edx": {RegEDX, false}, "ebx": {RegEBX, false},
	"esp": {RegESP, false}, "ebp": {RegEBP, false}, "esi": {RegESI, false}, "edi": {RegEDI, false},
	"al": {RegEAX, true}, "cl": {RegECX, true}, "dl": {RegEDX, true}, "bl": {RegEBX, true},
}

const (
	// dataBase is where the first global is placed; lower addresses stay
	// unmapped so null pointer accesses fail.
	dataBase = 0x1000

	// codeBase tags return addresses pushed by call.
	codeBase uint32 = 0xC0000000

	// haltAddr is the return address of the entry function.
	haltAddr uint32 = 0xFFFFFFF0

	DefaultMemorySize = 1 << 20
	DefaultStepLimit  = 10_000_000
)

// Builtin implements an external function. Its arguments are at Arg(0),
// Arg(1) and so on; the returned value ends up in %eax.
type Builtin func(m *Machine) (int32, error)

// Options configures a Machine.
type Options struct {
	// Prefix is the global name prefix used by the listing.
	Prefix string

	MemorySize int
	StepLimit  int

	// Output is where builtins write. If nil, os.Stdout is used.
	Output io.Writer
}

// Machine is the state of one execution.
type Machine struct {
	Regs [8]uint32
	PC   int

	ZF, SF, OF, CF bool

	Memory []byte
	Halted bool
	Steps  int

	Output   io.Writer
	Builtins map[string]Builtin

	listing   *asm.Listing
	symbols   map[string]uint32 // data label → address
	prefix    string
	stepLimit int
}

// New lays out the data of l in memory and returns a machine ready to Run.
func New(l *asm.Listing, opts Options) (*Machine, error) {
	if opts.MemorySize == 0 {
		opts.MemorySize = DefaultMemorySize
	}
	if opts.StepLimit == 0 {
		opts.StepLimit = DefaultStepLimit
	}
	m := &Machine{
		Memory:    make([]byte, opts.MemorySize),
		Output:    opts.Output,
		Builtins:  DefaultBuiltins(),
		listing:   l,
		symbols:   map[string]uint32{},
		prefix:    opts.Prefix,
		stepLimit: opts.StepLimit,
	}

	addr := uint32(dataBase)
	for _, c := range l.Commons {
		addr = align(addr, uint32(c.Align))
		m.symbols[c.Name] = addr
		addr += uint32(c.Size)
	}
	for _, lit := range l.Literals {
		m.symbols[lit.Label] = addr
		addr += uint32(len(lit.Value)) + 1
	}
	if int(addr)+4096 > len(m.Memory) {
		return nil, errors.Errorf("vm: %d bytes of data do not fit in %d bytes of memory", addr-dataBase, len(m.Memory))
	}
	for _, lit := range l.Literals {
		copy(m.Memory[m.symbols[lit.Label]:], lit.Value)
	}
	return m, nil
}

func align(addr, n uint32) uint32 {
	if n <= 1 {
		return addr
	}
	return (addr + n - 1) / n * n
}

func (m *Machine) outputSink() io.Writer {
	if m.Output != nil {
		return m.Output
	}
	return os.Stdout
}

// Symbol returns the address of a global or literal.
func (m *Machine) Symbol(name string) (uint32, bool) {
	a, ok := m.symbols[name]
	return a, ok
}

// Run calls the function entry, named without the global prefix, and
// returns its result once it returns or a builtin halts the machine.
func (m *Machine) Run(entry string) (int32, error) {
	pc, ok := m.listing.Labels[m.prefix+entry]
	if !ok {
		return 0, errors.Errorf("vm: entry point %s not found", m.prefix+entry)
	}
	m.PC = pc
	m.Halted = false
	m.Regs[RegESP] = uint32(len(m.Memory)) &^ 15
	if err := m.push(haltAddr); err != nil {
		return 0, err
	}

	for !m.Halted {
		if m.Steps >= m.stepLimit {
			return 0, errors.Errorf("vm: step limit of %d exceeded", m.stepLimit)
		}
		if err := m.Step(); err != nil {
			return 0, err
		}
	}
	return int32(m.Regs[RegEAX]), nil
}

// Step executes one instruction.
func (m *Machine) Step() error {
	if m.Halted {
		return nil
	}
	if m.PC < 0 || m.PC >= len(m.listing.Instrs) {
		return errors.Errorf("vm: pc %d outside the listing", m.PC)
	}
	in := m.listing.Instrs[m.PC]
	m.Steps++
	if err := m.exec(in); err != nil {
		return errors.Wrapf(err, "vm: line %d: %s", in.Line, in)
	}
	return nil
}

// Arg returns the i-th argument of a builtin being called.
func (m *Machine) Arg(i int) (uint32, error) {
	return m.load(m.Regs[RegESP]+uint32(4*i), 4)
}

// CString reads the NUL-terminated string at addr.
func (m *Machine) CString(addr uint32) (string, error) {
	var sb strings.Builder
	for {
		b, err := m.load(addr, 1)
		if err != nil {
			return "", err
		}
		if b == 0 {
			return sb.String(), nil
		}
		sb.WriteByte(byte(b))
		addr++
	}
}

func (m *Machine) check(addr uint32, size int) error {
	if addr < dataBase || uint64(addr)+uint64(size) > uint64(len(m.Memory)) {
		return errors.Errorf("memory access out of range at %#x", addr)
	}
	return nil
}

func (m *Machine) load(addr uint32, size int) (uint32, error) {
	if err := m.check(addr, size); err != nil {
		return 0, err
	}
	if size == 1 {
		return uint32(m.Memory[addr]), nil
	}
	return binary.LittleEndian.Uint32(m.Memory[addr:]), nil
}

func (m *Machine) store(addr uint32, size int, v uint32) error {
	if err := m.check(addr, size); err != nil {
		return err
	}
	if size == 1 {
		m.Memory[addr] = byte(v)
		return nil
	}
	binary.LittleEndian.PutUint32(m.Memory[addr:], v)
	return nil
}

func (m *Machine) push(v uint32) error {
	m.Regs[RegESP] -= 4
	return m.store(m.Regs[RegESP], 4, v)
}

func (m *Machine) pop() (uint32, error) {
	v, err := m.load(m.Regs[RegESP], 4)
	m.Regs[RegESP] += 4
	return v, err
}
