// Package cpu implements the fetch-decode-execute interpreter: 8
// general-purpose registers, flags, program counter, call stack, and
// the blocking-keyboard-read state machine.
package cpu

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/KTStephano/gvm16/internal/keyboard"
	"github.com/KTStephano/gvm16/internal/memory"
)

// Sentinel errors, wrapped with context at the call site via
// errors.Wrapf.
var (
	ErrDivisionByZero = errors.New("division by zero")
	ErrStackUnderflow = errors.New("stack underflow")
)

const numRegisters = 8

// Flags is the CPU condition record. A parity flag is deliberately
// omitted: nothing in this instruction set ever consults it.
type Flags struct {
	ZF, SF, CF, OF bool
}

type state int

const (
	stateRunning state = iota
	stateReading
)

// CPU is the single owner of all interpreter-mutable state: registers,
// flags, PC, call stack, and the blocking-read state machine.
type CPU struct {
	mem *memory.Memory

	registers [numRegisters]int16
	flags     Flags

	pcSet bool
	pc    int

	// stack holds both PUSH/POP-evaluated 16-bit values (sign-extended)
	// and CALL/RET return addresses (full instruction indices, which
	// can exceed the 16-bit range when IS is large) on one unified
	// call/data stack, matching classical assembly stack semantics.
	stack []int32

	st         state
	readDest   memory.Operand
	readBuffer []byte

	trace *Trace
}

// New constructs a CPU bound to mem, with registers/flags/PC/stack at
// their zeroed/unset initial state.
func New(mem *memory.Memory) *CPU {
	return &CPU{mem: mem, trace: NewTrace(32)}
}

// Registers returns a copy of the register file for read-only host inspection.
func (c *CPU) Registers() [numRegisters]int16 { return c.registers }

// Flags returns the current flags word.
func (c *CPU) Flags() Flags { return c.flags }

// PC returns the current program counter and whether it has been set.
func (c *CPU) PC() (int, bool) { return c.pc, c.pcSet }

// ResetPC returns the CPU to its initial state: PC unset, registers,
// flags and stack cleared, and any blocking read abandoned. It does not
// re-assemble the program; nothing in this module calls it.
func (c *CPU) ResetPC() {
	c.pcSet = false
	c.pc = 0
	c.stack = nil
	c.registers = [numRegisters]int16{}
	c.flags = Flags{}
	c.st = stateRunning
	c.readBuffer = nil
}

// Stack returns a copy of the call stack (bottom to top).
func (c *CPU) Stack() []int32 {
	out := make([]int32, len(c.stack))
	copy(out, c.stack)
	return out
}

// Trace returns the ring buffer of recently executed instructions.
func (c *CPU) Trace() *Trace { return c.trace }

// IsReading reports whether the CPU is mid blocking-keyboard-read.
func (c *CPU) IsReading() bool { return c.st == stateReading }

// Dump renders registers, flags, PC, stack, and the next instruction as
// text. Used by the debug CLI.
func (c *CPU) Dump() string {
	next := "<halted>"
	if c.pcSet && c.mem.IsValidInstrAddr(c.pc) {
		next = fmt.Sprintf("%d: %s", c.pc, c.mem.InstructionText(c.pc))
	}
	return fmt.Sprintf(
		"next> %s\nregisters> %v\nflags> %+v\nstack> %v\n",
		next, c.registers, c.flags, c.stack,
	)
}

// Tick performs at most one instruction, or one keyboard-drain step. A
// non-nil error is fatal to the tick; PC is left pointing at the
// faulting instruction so a retry resumes there.
func (c *CPU) Tick(kb *keyboard.FIFO) error {
	if c.st == stateReading {
		return c.serviceRead(kb)
	}

	if !c.pcSet {
		c.pc = 0
		c.pcSet = true
	}

	if !c.mem.IsValidInstrAddr(c.pc) {
		return nil // program has halted; no-op tick
	}

	instr, err := c.mem.GetInstruction(c.pc)
	if err != nil {
		return err
	}

	if instr.Kind == memory.KindLabel {
		c.pc++
		return nil
	}

	return c.execute(instr, kb)
}

func clamp16(n int32) int16 {
	if n > 32767 {
		return 32767
	}
	if n < -32768 {
		return -32768
	}
	return int16(n)
}

// shiftCount clamps a SHL/SHR operand to [0, 16]: a count at or beyond
// the register width shifts every bit out, matching plain << / >>
// semantics rather than wrapping the count modulo the width.
func shiftCount(n int32) uint {
	if n < 0 {
		return 0
	}
	if n > 16 {
		return 16
	}
	return uint(n)
}

// eval evaluates a non-LabelRef operand to its current 16-bit value.
// When op reads the keyboard-mapped data address, the caller (execute)
// is responsible for diverting into the blocking-read state machine
// before calling eval; eval itself always returns a definite value.
func (c *CPU) eval(op memory.Operand) (int16, error) {
	switch op.Kind {
	case memory.KindReg:
		return c.registers[op.Reg], nil
	case memory.KindImm:
		return op.Imm, nil
	case memory.KindMemConst:
		return c.mem.GetData(op.Addr)
	case memory.KindMemReg:
		return c.mem.GetData(int(c.registers[op.Reg]))
	default:
		return 0, errors.Errorf("operand kind %v cannot be evaluated", op.Kind)
	}
}

func (c *CPU) store(dst memory.Operand, v int16) error {
	switch dst.Kind {
	case memory.KindReg:
		c.registers[dst.Reg] = v
		return nil
	case memory.KindMemConst:
		return c.mem.SetData(dst.Addr, v)
	case memory.KindMemReg:
		return c.mem.SetData(int(c.registers[dst.Reg]), v)
	default:
		return errors.Errorf("operand kind %v is not a valid store destination", dst.Kind)
	}
}

// readsKeyboard reports whether evaluating op would read the
// memory-mapped keyboard cell, which triggers a blocking read.
func (c *CPU) readsKeyboard(op memory.Operand) bool {
	switch op.Kind {
	case memory.KindMemConst:
		return c.mem.IsKeyboardAddr(op.Addr)
	case memory.KindMemReg:
		return c.mem.IsKeyboardAddr(int(c.registers[op.Reg]))
	default:
		return false
	}
}

func (c *CPU) execute(instr memory.Instruction, kb *keyboard.FIFO) error {
	c.trace.Record(c.pc, instr.Opcode, instr.Text)

	ops := instr.Operands
	advance := true
	var err error

	switch instr.Opcode {
	case "MOV":
		if c.readsKeyboard(ops[1]) {
			c.beginRead(ops[0])
			return nil
		}
		err = c.binaryStore(ops, func(_, b int16) int16 { return b })

	case "ADD":
		err = c.arith(ops, func(a, b int32) int32 { return a + b })
	case "SUB":
		err = c.arith(ops, func(a, b int32) int32 { return a - b })
	case "MUL":
		err = c.arith(ops, func(a, b int32) int32 { return a * b })
	case "DIV":
		b, e := c.eval(ops[1])
		if e != nil {
			err = e
			break
		}
		if b == 0 {
			err = errors.Wrapf(ErrDivisionByZero, "at instruction %d", c.pc)
			break
		}
		a, e := c.eval(ops[0])
		if e != nil {
			err = e
			break
		}
		err = c.store(ops[0], clamp16(int32(a)/int32(b)))

	case "CMP":
		err = c.cmp(ops)

	case "JMP":
		advance = false
		err = c.jumpTo(ops[0])
	case "JE":
		advance = false
		err = c.jumpIf(c.flags.ZF, ops[0])
	case "JNE":
		advance = false
		err = c.jumpIf(!c.flags.ZF, ops[0])
	case "JG":
		advance = false
		err = c.jumpIf(!c.flags.ZF && c.flags.SF == c.flags.OF, ops[0])
	case "JL":
		advance = false
		err = c.jumpIf(c.flags.SF && !c.flags.ZF, ops[0])
	case "JGE":
		advance = false
		err = c.jumpIf(c.flags.SF == c.flags.OF, ops[0])
	case "JLE":
		advance = false
		err = c.jumpIf(c.flags.ZF || c.flags.SF != c.flags.OF, ops[0])

	case "PUSH":
		var v int16
		v, err = c.eval(ops[0])
		if err == nil {
			c.stack = append(c.stack, int32(v))
		}

	case "POP":
		if len(c.stack) == 0 {
			err = errors.Wrapf(ErrStackUnderflow, "at instruction %d", c.pc)
			break
		}
		v := c.stack[len(c.stack)-1]
		c.stack = c.stack[:len(c.stack)-1]
		err = c.store(ops[0], clamp16(v))

	case "CALL":
		advance = false
		target, e := c.mem.ResolveLabel(ops[0].Label)
		if e != nil {
			err = e
			break
		}
		c.stack = append(c.stack, int32(c.pc+1))
		c.pc = target

	case "RET":
		advance = false
		if len(c.stack) == 0 {
			err = errors.Wrapf(ErrStackUnderflow, "at instruction %d", c.pc)
			break
		}
		v := c.stack[len(c.stack)-1]
		c.stack = c.stack[:len(c.stack)-1]
		c.pc = int(v)

	case "NOT":
		var v int16
		v, err = c.eval(ops[0])
		if err == nil {
			err = c.store(ops[0], int16(^uint16(v)&0xFFFF))
		}

	case "AND":
		err = c.bitwise(ops, func(a, b int32) int32 { return int32(uint16(a) & uint16(b)) })
	case "OR":
		err = c.bitwise(ops, func(a, b int32) int32 { return int32(uint16(a) | uint16(b)) })
	case "XOR":
		err = c.bitwise(ops, func(a, b int32) int32 { return int32(uint16(a) ^ uint16(b)) })
	case "SHL":
		err = c.bitwise(ops, func(a, b int32) int32 { return int32(uint16(a) << shiftCount(b)) })
	case "SHR":
		// logical shift over the 16-bit unsigned view, not arithmetic.
		err = c.bitwise(ops, func(a, b int32) int32 { return int32(uint16(a) >> shiftCount(b)) })

	default:
		err = errors.Errorf("internal error: unreachable opcode %q survived load", instr.Opcode)
	}

	if err != nil {
		return err
	}
	if advance {
		c.pc++
	}
	return nil
}

func (c *CPU) binaryStore(ops []memory.Operand, f func(a, b int16) int16) error {
	a, err := c.eval(ops[0])
	if err != nil {
		return err
	}
	b, err := c.eval(ops[1])
	if err != nil {
		return err
	}
	return c.store(ops[0], f(a, b))
}

func (c *CPU) arith(ops []memory.Operand, f func(a, b int32) int32) error {
	a, err := c.eval(ops[0])
	if err != nil {
		return err
	}
	b, err := c.eval(ops[1])
	if err != nil {
		return err
	}
	result := clamp16(f(int32(a), int32(b)))
	if err := c.store(ops[0], result); err != nil {
		return err
	}
	c.flags.ZF = result == 0
	c.flags.SF = result < 0
	return nil
}

// bitwise applies f to dst/src and stores the result without touching
// flags: only CMP and the arithmetic instructions update flags.
func (c *CPU) bitwise(ops []memory.Operand, f func(a, b int32) int32) error {
	a, err := c.eval(ops[0])
	if err != nil {
		return err
	}
	b, err := c.eval(ops[1])
	if err != nil {
		return err
	}
	return c.store(ops[0], clamp16(f(int32(a), int32(b))))
}

func (c *CPU) cmp(ops []memory.Operand) error {
	a, err := c.eval(ops[0])
	if err != nil {
		return err
	}
	b, err := c.eval(ops[1])
	if err != nil {
		return err
	}

	d := int32(a) - int32(b)
	c.flags.ZF = a == b
	c.flags.SF = d < 0
	c.flags.CF = a < b
	c.flags.OF = d > 32767 || d < -32768
	return nil
}

func (c *CPU) jumpTo(label memory.Operand) error {
	target, err := c.mem.ResolveLabel(label.Label)
	if err != nil {
		return err
	}
	c.pc = target
	return nil
}

func (c *CPU) jumpIf(cond bool, label memory.Operand) error {
	if !cond {
		c.pc++
		return nil
	}
	return c.jumpTo(label)
}

func (c *CPU) beginRead(dest memory.Operand) {
	c.st = stateReading
	c.readDest = dest
	c.readBuffer = c.readBuffer[:0]
}

// serviceRead drains the keyboard FIFO, accumulating characters until a
// carriage return (13) completes a line, then converts and stores the
// result. PC does not advance until the read completes.
func (c *CPU) serviceRead(kb *keyboard.FIFO) error {
	for {
		code, ok := kb.Pop()
		if !ok {
			return nil
		}
		if code == 13 {
			v := convertKeyboardInput(c.readBuffer)
			// A fault storing the converted value (the destination is not
			// validated when the blocking read begins) is surfaced like
			// any other instruction fault rather than silently swallowed.
			if err := c.store(c.readDest, v); err != nil {
				return err
			}
			c.st = stateRunning
			c.readBuffer = nil
			c.pc++
			return nil
		}
		c.readBuffer = append(c.readBuffer, code)
	}
}

// convertKeyboardInput converts an accumulated line buffer: pure
// decimal digits map to their integer value, a single non-digit
// character maps to its code point, anything else maps to -1.
func convertKeyboardInput(buf []byte) int16 {
	if len(buf) == 0 {
		return -1
	}

	allDigits := true
	for _, b := range buf {
		if b < '0' || b > '9' {
			allDigits = false
			break
		}
	}
	if allDigits {
		n := 0
		for _, b := range buf {
			n = n*10 + int(b-'0')
		}
		return clamp16(int32(n))
	}

	if len(buf) == 1 {
		return int16(buf[0])
	}

	return -1
}
