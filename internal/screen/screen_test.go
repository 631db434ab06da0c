package screen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/KTStephano/gvm16/internal/memory"
)

func TestViewRendersWrittenCells(t *testing.T) {
	mem, err := memory.New(1024, 1024, 0, 1, 1+10*2-1)
	require.NoError(t, err)

	require.NoError(t, mem.SetData(1, 'H'))
	require.NoError(t, mem.SetData(2, 'i'))

	view := NewView(mem, 10, 2)
	require.Equal(t, 10, view.Width())
	require.Equal(t, 2, view.Height())
	require.Equal(t, 'H', view.Rune(0, 0))
	require.Equal(t, 'i', view.Rune(0, 1))
	require.Equal(t, ' ', view.Rune(0, 2))
}

func TestViewOutOfRangeRendersSpace(t *testing.T) {
	mem, err := memory.New(1024, 1024, 0, 1, 1+10*2-1)
	require.NoError(t, err)

	view := NewView(mem, 10, 2)
	require.Equal(t, ' ', view.Rune(-1, 0))
	require.Equal(t, ' ', view.Rune(0, 99))
}

func TestViewStringRendersGridWithNewlines(t *testing.T) {
	mem, err := memory.New(1024, 1024, 0, 1, 1+3*1-1)
	require.NoError(t, err)
	require.NoError(t, mem.SetData(1, 'a'))
	require.NoError(t, mem.SetData(2, 'b'))
	require.NoError(t, mem.SetData(3, 'c'))

	view := NewView(mem, 3, 1)
	require.Equal(t, "abc\n", view.String())
}
