package audio

import (
	"fmt"
	"sync"
)

// pcmArena is the fixed-size byte region behind every Buffer
// implementation. A producer (driver callback, generator, file replay)
// writes frames at a monotonically advancing write cursor; the poller
// reads through Lock/Unlock. The region is allocated once and never grows.
type pcmArena struct {
	mu      sync.RWMutex
	data    []byte
	written int64 // Total bytes ever written; cursor is written % len(data).

	lockMu sync.Mutex
	held   bool
}

func newPCMArena(size int) *pcmArena {
	return &pcmArena{data: make([]byte, size)}
}

// Size returns the arena length in bytes.
func (a *pcmArena) Size() int {
	return len(a.data)
}

// Write appends p at the write cursor, wrapping at the end of the region.
// Writes larger than the arena keep only the trailing Size() bytes.
func (a *pcmArena) Write(p []byte) {
	size := len(a.data)
	if size == 0 || len(p) == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	total := int64(len(p))
	if len(p) > size {
		p = p[len(p)-size:]
	}
	pos := int((a.written + total - int64(len(p))) % int64(size))
	n := copy(a.data[pos:], p)
	copy(a.data, p[n:])
	a.written += total
}

// Cursor returns the current write offset in [0, Size()).
func (a *pcmArena) Cursor() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if len(a.data) == 0 {
		return 0
	}
	return int(a.written % int64(len(a.data)))
}

// Written returns the total number of bytes written so far.
func (a *pcmArena) Written() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.written
}

// Lock exposes n bytes from offset as one or two views into the region and
// blocks producers until Unlock.
func (a *pcmArena) Lock(offset, n int) (first, second []byte, err error) {
	size := len(a.data)
	if offset < 0 || offset >= size || n < 0 || n > size {
		return nil, nil, fmt.Errorf("lock range [%d,+%d) outside %d byte buffer", offset, n, size)
	}

	a.lockMu.Lock()
	defer a.lockMu.Unlock()
	if a.held {
		return nil, nil, fmt.Errorf("buffer already locked")
	}
	a.mu.RLock()
	a.held = true

	end := offset + n
	if end <= size {
		return a.data[offset:end], nil, nil
	}
	return a.data[offset:], a.data[:end-size], nil
}

// Unlock releases the views returned by Lock.
func (a *pcmArena) Unlock() error {
	a.lockMu.Lock()
	defer a.lockMu.Unlock()
	if !a.held {
		return fmt.Errorf("buffer not locked")
	}
	a.held = false
	a.mu.RUnlock()
	return nil
}

// Skip advances the write cursor by n bytes without touching the data,
// standing in for audio that would have been overwritten anyway.
func (a *pcmArena) Skip(n int64) {
	if n <= 0 {
		return
	}
	a.mu.Lock()
	a.written += n
	a.mu.Unlock()
}
