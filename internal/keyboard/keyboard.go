// Package keyboard implements the FIFO input peripheral shared between
// the host UI (producer) and the interpreter (consumer).
package keyboard

import "sync"

// FIFO is an ordered queue of 8-bit input code points. Push is called
// from the UI goroutine; Pop and HasAny are called from the
// interpreter's tick goroutine. Safe for concurrent single-producer,
// single-consumer use.
type FIFO struct {
	mu    sync.Mutex
	codes []uint8
}

// New returns an empty keyboard FIFO.
func New() *FIFO {
	return &FIFO{codes: make([]uint8, 0, 16)}
}

// Push appends a code point to the tail of the queue.
func (f *FIFO) Push(code uint8) {
	f.mu.Lock()
	f.codes = append(f.codes, code)
	f.mu.Unlock()
}

// Pop removes and returns the head of the queue. ok is false if the
// queue is empty.
func (f *FIFO) Pop() (code uint8, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.codes) == 0 {
		return 0, false
	}

	code = f.codes[0]
	f.codes = f.codes[1:]
	return code, true
}

// HasAny reports whether the queue currently holds any characters.
func (f *FIFO) HasAny() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.codes) > 0
}
