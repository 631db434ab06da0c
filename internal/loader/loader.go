// Package loader implements a two-phase assembler: a lexer for the
// textual source, followed by instruction emission into memory.Memory
// with label binding.
package loader

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/KTStephano/gvm16/internal/memory"
)

// ErrUnknownOpcode and ErrBadOperandArity are load-time errors.
var (
	ErrUnknownOpcode   = errors.New("unknown opcode")
	ErrBadOperandArity = errors.New("bad operand arity")
)

// arity maps each recognised opcode to its operand count. RET accepts
// either 0 or 1 and is checked specially.
var arity = map[string]int{
	"MOV": 2, "ADD": 2, "SUB": 2, "MUL": 2, "DIV": 2, "CMP": 2,
	"JMP": 1, "JE": 1, "JNE": 1, "JG": 1, "JL": 1, "JGE": 1, "JLE": 1,
	"PUSH": 1, "POP": 1, "CALL": 1, "RET": -1,
	"NOT": 1, "AND": 2, "OR": 2, "XOR": 2, "SHL": 2, "SHR": 2,
}

// labelOnlyOpcodes are the opcodes whose operand may be a LabelRef.
var labelOnlyOpcodes = map[string]bool{
	"JMP": true, "JE": true, "JNE": true, "JG": true, "JL": true,
	"JGE": true, "JLE": true, "CALL": true,
}

// LoadWarning records a non-fatal condition found during a load, such
// as a label redefinition. Load returns the warnings gathered so far
// even when it also returns a fatal error.
type LoadWarning struct {
	Line    int
	Message string
}

type rawLine struct {
	lineNo int
	text   string
	label  string // non-empty if this line is a standalone label
	opcode string
	args   []string
}

// Load reads source from r line by line and emits instructions and
// labels into mem. Returns any non-fatal load warnings alongside a
// fatal error (UnknownOpcode, BadOperandArity, or a memory error).
func Load(r io.Reader, mem *memory.Memory) ([]LoadWarning, error) {
	lines, err := tokenize(r)
	if err != nil {
		return nil, err
	}

	var warnings []LoadWarning
	seenLabels := make(map[string]bool)
	var pendingLabels []string

	for _, ln := range lines {
		if ln.label != "" {
			if seenLabels[ln.label] {
				warnings = append(warnings, LoadWarning{
					Line:    ln.lineNo,
					Message: "label redefined: " + ln.label,
				})
			}
			seenLabels[ln.label] = true
			pendingLabels = append(pendingLabels, ln.label)
			continue
		}

		operands, err := parseOperands(ln.opcode, ln.args)
		if err != nil {
			return warnings, errors.Wrapf(err, "line %d: %s", ln.lineNo, ln.text)
		}

		instr := memory.Instruction{
			Kind:     memory.KindOp,
			Opcode:   ln.opcode,
			Operands: operands,
			Text:     ln.text,
		}

		idx, err := mem.AddInstruction(instr, "")
		if err != nil {
			return warnings, errors.Wrapf(err, "line %d", ln.lineNo)
		}

		// Multiple consecutive labels all bind to the same following
		// instruction.
		for _, label := range pendingLabels {
			mem.BindLabel(label, idx)
		}
		pendingLabels = nil
	}

	// Labels after the last instruction bind to the index just past it;
	// jumping there halts the program.
	for _, label := range pendingLabels {
		mem.BindLabel(label, mem.InstrLen())
	}

	return warnings, nil
}

func tokenize(r io.Reader) ([]rawLine, error) {
	scanner := bufio.NewScanner(r)
	var out []rawLine

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()

		line := raw
		if idx := strings.IndexByte(line, ';'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if isLabelLine(line) {
			label := strings.TrimSuffix(strings.Fields(line)[0], ":")
			out = append(out, rawLine{lineNo: lineNo, text: raw, label: label})
			continue
		}

		fields := tokenizeInstruction(line)
		// Opcode matching is case-sensitive.
		opcode := fields[0]
		if _, ok := arity[opcode]; !ok {
			return nil, errors.Wrapf(ErrUnknownOpcode, "line %d: %q", lineNo, opcode)
		}

		out = append(out, rawLine{
			lineNo: lineNo,
			text:   raw,
			opcode: opcode,
			args:   fields[1:],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func isLabelLine(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	return strings.HasSuffix(fields[0], ":") && len(fields[0]) > 1
}

// tokenizeInstruction splits a non-label line into opcode + operand
// tokens, treating commas as token separators.
func tokenizeInstruction(line string) []string {
	line = strings.ReplaceAll(line, ",", " ")
	return strings.Fields(line)
}

func parseOperands(opcode string, args []string) ([]memory.Operand, error) {
	want, ok := arity[opcode]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownOpcode, "%q", opcode)
	}

	if want == -1 { // RET: 0 or 1
		if len(args) > 1 {
			return nil, errors.Wrapf(ErrBadOperandArity, "%s takes 0 or 1 operands, got %d", opcode, len(args))
		}
	} else if len(args) != want {
		return nil, errors.Wrapf(ErrBadOperandArity, "%s requires %d operand(s), got %d", opcode, want, len(args))
	}

	operands := make([]memory.Operand, 0, len(args))
	for _, a := range args {
		op, err := parseOperand(opcode, a)
		if err != nil {
			return nil, err
		}
		operands = append(operands, op)
	}
	return operands, nil
}

func parseOperand(opcode, tok string) (memory.Operand, error) {
	switch {
	case strings.HasPrefix(tok, "MR"):
		i, err := strconv.Atoi(tok[2:])
		if err != nil || i < 0 || i > 7 {
			return memory.Operand{}, errors.Wrapf(ErrBadOperandArity, "invalid register-indirect operand %q", tok)
		}
		return memory.MemReg(i), nil

	case strings.HasPrefix(tok, "M"):
		a, err := strconv.Atoi(tok[1:])
		if err != nil || a < 0 {
			return memory.Operand{}, errors.Wrapf(ErrBadOperandArity, "invalid memory operand %q", tok)
		}
		return memory.MemConst(a), nil

	case strings.HasPrefix(tok, "R"):
		i, err := strconv.Atoi(tok[1:])
		if err != nil || i < 0 || i > 7 {
			return memory.Operand{}, errors.Wrapf(ErrBadOperandArity, "invalid register operand %q", tok)
		}
		return memory.Reg(i), nil

	case strings.HasPrefix(tok, "#"):
		n, err := strconv.ParseInt(tok[1:], 10, 32)
		if err != nil {
			return memory.Operand{}, errors.Wrapf(ErrBadOperandArity, "invalid immediate %q", tok)
		}
		return memory.Imm(clamp16(n)), nil

	default:
		if !labelOnlyOpcodes[opcode] {
			return memory.Operand{}, errors.Wrapf(ErrBadOperandArity, "%s does not accept a label operand %q", opcode, tok)
		}
		return memory.LabelRef(tok), nil
	}
}

func clamp16(n int64) int16 {
	if n > 32767 {
		return 32767
	}
	if n < -32768 {
		return -32768
	}
	return int16(n)
}
