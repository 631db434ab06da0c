// Package memory implements the segmented memory model: an instruction
// region, a data region (with a memory-mapped keyboard cell and a video
// memory range), and the label table the loader populates.
package memory

import (
	"github.com/pkg/errors"
)

// Sentinel errors. Compare with errors.Is; wrapped instances carry the
// offending address/index as context via errors.Wrapf.
var (
	ErrInvalidMemorySize   = errors.New("invalid memory size")
	ErrInvalidDataAddress  = errors.New("invalid data address")
	ErrInvalidInstrAddress = errors.New("invalid instruction address")
	ErrInstructionOverflow = errors.New("instruction memory overflow")
	ErrUnknownLabel        = errors.New("unknown label")
)

const (
	minSize = 1024
	maxSize = 65536
)

// OperandKind tags the variant carried by an Operand.
type OperandKind int

const (
	KindReg OperandKind = iota
	KindImm
	KindMemConst
	KindMemReg
	KindLabelRef
)

// Operand is a tagged-union instruction operand.
type Operand struct {
	Kind  OperandKind
	Reg   int    // valid for KindReg, KindMemReg: 0..7
	Imm   int16  // valid for KindImm
	Addr  int    // valid for KindMemConst
	Label string // valid for KindLabelRef
}

func Reg(i int) Operand      { return Operand{Kind: KindReg, Reg: i} }
func Imm(n int16) Operand    { return Operand{Kind: KindImm, Imm: n} }
func MemConst(a int) Operand { return Operand{Kind: KindMemConst, Addr: a} }
func MemReg(i int) Operand   { return Operand{Kind: KindMemReg, Reg: i} }
func LabelRef(name string) Operand {
	return Operand{Kind: KindLabelRef, Label: name}
}

// InstrKind tags whether an Instruction record is a no-effect label
// placeholder or a real operation.
type InstrKind int

const (
	KindLabel InstrKind = iota
	KindOp
)

// Instruction is the stored form of one assembled line.
type Instruction struct {
	Kind     InstrKind
	Opcode   string // valid for KindOp
	Operands []Operand
	// Text is the original source line, retained for error messages and
	// the debug/trace views.
	Text string
}

// Memory is the segmented store: an instruction region, a data region
// with a memory-mapped keyboard cell and video range, and a label
// table.
type Memory struct {
	instr []Instruction
	is    int

	data []int16
	ds   int

	kbAddr int
	vs, ve int

	kbPtr interface{} // host-only back-channel; see SetKeyboardPointer

	labels map[string]int
}

// New constructs a Memory with the given region sizes and peripheral
// addresses. Fails with ErrInvalidMemorySize if is/ds are not positive
// multiples of 1024 up to 65536, or with ErrInvalidDataAddress if the
// keyboard/video addresses overlap or fall outside the data region.
func New(is, ds, kbAddr, vs, ve int) (*Memory, error) {
	if err := validateSize(is); err != nil {
		return nil, errors.Wrap(err, "instruction memory size")
	}
	if err := validateSize(ds); err != nil {
		return nil, errors.Wrap(err, "data memory size")
	}

	if kbAddr < 0 || kbAddr >= ds {
		return nil, errors.Wrapf(ErrInvalidDataAddress, "keyboard address %d out of bounds", kbAddr)
	}
	if vs < 0 || ve >= ds || ve < vs {
		return nil, errors.Wrapf(ErrInvalidDataAddress, "video range [%d..%d] out of bounds", vs, ve)
	}
	if kbAddr >= vs && kbAddr <= ve {
		return nil, errors.Wrapf(ErrInvalidDataAddress, "keyboard address %d overlaps video range", kbAddr)
	}

	return &Memory{
		instr:  make([]Instruction, 0, is),
		is:     is,
		data:   make([]int16, ds),
		ds:     ds,
		kbAddr: kbAddr,
		vs:     vs,
		ve:     ve,
		labels: make(map[string]int),
	}, nil
}

func validateSize(n int) error {
	if n <= 0 || n%minSize != 0 || n > maxSize {
		return errors.Wrapf(ErrInvalidMemorySize, "size %d must be a positive multiple of %d up to %d", n, minSize, maxSize)
	}
	return nil
}

// AddInstruction appends a Label or Op record to Instr. If label is
// non-empty it binds that name to the index just appended.
func (m *Memory) AddInstruction(instr Instruction, label string) (int, error) {
	if len(m.instr) == m.is {
		return 0, ErrInstructionOverflow
	}

	idx := len(m.instr)
	m.instr = append(m.instr, instr)
	if label != "" {
		m.labels[label] = idx
	}
	return idx, nil
}

// GetInstruction returns the record at i, or ErrInvalidInstrAddress if
// i falls outside the written prefix.
func (m *Memory) GetInstruction(i int) (Instruction, error) {
	if !m.IsValidInstrAddr(i) {
		return Instruction{}, errors.Wrapf(ErrInvalidInstrAddress, "address %d", i)
	}
	return m.instr[i], nil
}

// IsValidInstrAddr reports whether i indexes a written instruction.
func (m *Memory) IsValidInstrAddr(i int) bool {
	return i >= 0 && i < len(m.instr)
}

// InstrLen returns the number of instructions written so far.
func (m *Memory) InstrLen() int { return len(m.instr) }

// SetData writes v into data cell a, masking to 8 bits inside the video
// range and storing the 16-bit signed v unchanged elsewhere. Fails if a is out of
// bounds or is the keyboard cell (read-only to program instructions).
func (m *Memory) SetData(a int, v int16) error {
	if err := m.checkDataAddr(a); err != nil {
		return err
	}
	if a == m.kbAddr {
		return errors.Wrapf(ErrInvalidDataAddress, "address %d is the read-only keyboard cell", a)
	}

	if a >= m.vs && a <= m.ve {
		m.data[a] = int16(uint16(v) & 0xFF)
	} else {
		m.data[a] = v
	}
	return nil
}

// GetData reads data cell a. Uninitialised cells read as 0.
func (m *Memory) GetData(a int) (int16, error) {
	if err := m.checkDataAddr(a); err != nil {
		return 0, err
	}
	return m.data[a], nil
}

func (m *Memory) checkDataAddr(a int) error {
	if a < 0 || a >= m.ds {
		return errors.Wrapf(ErrInvalidDataAddress, "address %d", a)
	}
	return nil
}

// IsKeyboardAddr reports whether a is the memory-mapped keyboard cell.
func (m *Memory) IsKeyboardAddr(a int) bool { return a == m.kbAddr }

// KeyboardAddr returns the configured keyboard-mapped address.
func (m *Memory) KeyboardAddr() int { return m.kbAddr }

// VideoRange returns the inclusive [start, end] video address range.
func (m *Memory) VideoRange() (int, int) { return m.vs, m.ve }

// SetKeyboardPointer installs the live Keyboard FIFO handle. This is a
// host-only back-channel: it is modeled as a side field rather than a
// value literally stored in a data cell.
func (m *Memory) SetKeyboardPointer(kb interface{}) { m.kbPtr = kb }

// GetKeyboardPointer returns the installed Keyboard FIFO handle, or nil.
func (m *Memory) GetKeyboardPointer() interface{} { return m.kbPtr }

// ReadVideoMemory returns the current video window, length ve-vs+1.
func (m *Memory) ReadVideoMemory() []int16 {
	out := make([]int16, m.ve-m.vs+1)
	copy(out, m.data[m.vs:m.ve+1])
	return out
}

// BindLabel binds name directly to instruction index idx, overwriting
// any prior binding; callers surface a redefinition as a load-time
// warning rather than treating it as fatal. Used by the loader to
// attach multiple consecutive label lines to the same following
// instruction.
func (m *Memory) BindLabel(name string, idx int) {
	m.labels[name] = idx
}

// ResolveLabel returns the instruction index bound to name.
func (m *Memory) ResolveLabel(name string) (int, error) {
	idx, ok := m.labels[name]
	if !ok {
		return 0, errors.Wrapf(ErrUnknownLabel, "label %q", name)
	}
	return idx, nil
}

// InstructionText returns the original source text for instruction i,
// used by debug tooling and trace logs. Returns "" if i is out of
// range or the instruction carries no recorded text.
func (m *Memory) InstructionText(i int) string {
	if !m.IsValidInstrAddr(i) {
		return ""
	}
	return m.instr[i].Text
}
