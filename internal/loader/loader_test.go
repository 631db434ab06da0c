package loader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/KTStephano/gvm16/internal/memory"
)

func loadSource(t *testing.T, source string) (*memory.Memory, []LoadWarning) {
	m, err := memory.New(1024, 1024, 0, 1, 10)
	require.NoError(t, err)

	warnings, err := Load(strings.NewReader(source), m)
	require.NoError(t, err)
	return m, warnings
}

func TestLoadSimpleProgram(t *testing.T) {
	m, warnings := loadSource(t, `
		MOV R0, #5
		ADD R0, #1
	`)
	require.Empty(t, warnings)
	require.Equal(t, 2, m.InstrLen())

	instr, err := m.GetInstruction(0)
	require.NoError(t, err)
	require.Equal(t, "MOV", instr.Opcode)
	require.Equal(t, memory.KindReg, instr.Operands[0].Kind)
	require.Equal(t, memory.KindImm, instr.Operands[1].Kind)
}

func TestLoadResolvesLabels(t *testing.T) {
	m, _ := loadSource(t, `
	loop:
		ADD R0, #1
		JMP loop
	`)

	idx, err := m.ResolveLabel("loop")
	require.NoError(t, err)
	require.Equal(t, 0, idx)

	instr, err := m.GetInstruction(1)
	require.NoError(t, err)
	require.Equal(t, "JMP", instr.Opcode)
	require.Equal(t, memory.KindLabelRef, instr.Operands[0].Kind)
	require.Equal(t, "loop", instr.Operands[0].Label)
}

func TestLoadMultipleConsecutiveLabelsBindSameInstruction(t *testing.T) {
	m, _ := loadSource(t, `
	first:
	second:
		NOT R0
	`)

	a, err := m.ResolveLabel("first")
	require.NoError(t, err)
	b, err := m.ResolveLabel("second")
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestLoadWarnsOnLabelRedefinition(t *testing.T) {
	_, warnings := loadSource(t, `
	again:
		NOT R0
	again:
		NOT R0
	`)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Message, "again")
}

func TestLoadRejectsUnknownOpcode(t *testing.T) {
	m, err := memory.New(1024, 1024, 0, 1, 10)
	require.NoError(t, err)

	_, err = Load(strings.NewReader("FOO R0, R1\n"), m)
	require.ErrorIs(t, err, ErrUnknownOpcode)
}

func TestLoadRejectsBadArity(t *testing.T) {
	m, err := memory.New(1024, 1024, 0, 1, 10)
	require.NoError(t, err)

	_, err = Load(strings.NewReader("ADD R0\n"), m)
	require.ErrorIs(t, err, ErrBadOperandArity)
}

func TestParseOperandKinds(t *testing.T) {
	op, err := parseOperand("MOV", "R3")
	require.NoError(t, err)
	require.Equal(t, memory.Reg(3), op)

	op, err = parseOperand("MOV", "MR2")
	require.NoError(t, err)
	require.Equal(t, memory.MemReg(2), op)

	op, err = parseOperand("MOV", "M100")
	require.NoError(t, err)
	require.Equal(t, memory.MemConst(100), op)

	op, err = parseOperand("MOV", "#-5")
	require.NoError(t, err)
	require.Equal(t, memory.Imm(-5), op)
}

func TestParseOperandClampsLargeImmediate(t *testing.T) {
	op, err := parseOperand("MOV", "#999999")
	require.NoError(t, err)
	require.Equal(t, int16(32767), op.Imm)
}
