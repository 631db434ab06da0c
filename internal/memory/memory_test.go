package memory

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestMemory(t *testing.T) *Memory {
	m, err := New(1024, 1024, 0, 1, 10)
	require.NoError(t, err)
	return m
}

func TestNewRejectsBadSizes(t *testing.T) {
	_, err := New(1000, 1024, 0, 1, 10)
	require.ErrorIs(t, err, ErrInvalidMemorySize)

	_, err = New(1024, 1024, 0, 1, 1024)
	require.ErrorIs(t, err, ErrInvalidDataAddress)
}

func TestNewRejectsOverlappingKeyboardAndVideo(t *testing.T) {
	_, err := New(1024, 1024, 5, 1, 10)
	require.ErrorIs(t, err, ErrInvalidDataAddress)
}

func TestSetDataStoresAndMasksVideo(t *testing.T) {
	m := newTestMemory(t)

	require.NoError(t, m.SetData(20, 300))
	v, err := m.GetData(20)
	require.NoError(t, err)
	require.Equal(t, int16(300), v)

	require.NoError(t, m.SetData(5, 300))
	v, err = m.GetData(5)
	require.NoError(t, err)
	require.Equal(t, int16(300&0xFF), v)
}

func TestSetDataRejectsKeyboardWrite(t *testing.T) {
	m := newTestMemory(t)
	err := m.SetData(0, 1)
	require.ErrorIs(t, err, ErrInvalidDataAddress)
}

func TestInstructionOverflow(t *testing.T) {
	m, err := New(1024, 1024, 0, 1, 10)
	require.NoError(t, err)

	for i := 0; i < m.is; i++ {
		_, err := m.AddInstruction(Instruction{Kind: KindOp, Opcode: "NOT"}, "")
		require.NoError(t, err)
	}

	_, err = m.AddInstruction(Instruction{Kind: KindOp, Opcode: "NOT"}, "")
	require.ErrorIs(t, err, ErrInstructionOverflow)
}

func TestLabelBindAndResolve(t *testing.T) {
	m := newTestMemory(t)
	idx, err := m.AddInstruction(Instruction{Kind: KindOp, Opcode: "NOT"}, "")
	require.NoError(t, err)

	m.BindLabel("loop", idx)
	resolved, err := m.ResolveLabel("loop")
	require.NoError(t, err)
	require.Equal(t, idx, resolved)

	_, err = m.ResolveLabel("missing")
	require.ErrorIs(t, err, ErrUnknownLabel)
}

func TestReadVideoMemory(t *testing.T) {
	m := newTestMemory(t)
	require.NoError(t, m.SetData(1, 'A'))
	require.NoError(t, m.SetData(2, 'B'))

	cells := m.ReadVideoMemory()
	require.Len(t, cells, 10)
	require.Equal(t, int16('A'), cells[0])
	require.Equal(t, int16('B'), cells[1])
}
