package keyboard

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFIFOPushPopOrder(t *testing.T) {
	f := New()
	require.False(t, f.HasAny())

	f.Push('h')
	f.Push('i')
	require.True(t, f.HasAny())

	code, ok := f.Pop()
	require.True(t, ok)
	require.Equal(t, uint8('h'), code)

	code, ok = f.Pop()
	require.True(t, ok)
	require.Equal(t, uint8('i'), code)

	_, ok = f.Pop()
	require.False(t, ok)
	require.False(t, f.HasAny())
}

func TestFIFOConcurrentPushPop(t *testing.T) {
	f := New()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f.Push(uint8(i))
		}(i)
	}
	wg.Wait()

	count := 0
	for {
		if _, ok := f.Pop(); !ok {
			break
		}
		count++
	}
	require.Equal(t, 100, count)
}
