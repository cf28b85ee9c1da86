package audio

import (
	"fmt"
	"sync"
	"time"
)

// scratchFrames bounds how many frames a clocked buffer renders per write.
const scratchFrames = 4096

// frameSource renders interleaved 16-bit PCM for a sample position.
type frameSource interface {
	// Render fills dst, a whole number of frames, starting at frame index
	// start counted from the beginning of the stream.
	Render(dst []byte, start int64)
}

// clockedBuffer is a Buffer whose producer is driven by wall time instead
// of a driver thread: every Position call first renders the frames that
// became due since the previous call. This makes capture behave like a
// real device while staying deterministic under an injected clock.
type clockedBuffer struct {
	arena    *pcmArena
	format   CaptureFormat
	source   frameSource
	now      func() time.Time
	readyLag int // Frames the ready cursor trails the capture cursor.

	mu       sync.Mutex
	running  bool
	started  time.Time
	base     int64 // Frames produced before the current run.
	produced int64
	scratch  []byte
}

func newClockedBuffer(format CaptureFormat, bufferBytes int, source frameSource, now func() time.Time, readyLag int) (*clockedBuffer, error) {
	if bufferBytes < format.BlockAlign || bufferBytes%format.BlockAlign != 0 {
		return nil, fmt.Errorf("buffer of %d bytes does not hold whole %d byte frames", bufferBytes, format.BlockAlign)
	}
	if now == nil {
		now = time.Now
	}
	return &clockedBuffer{
		arena:    newPCMArena(bufferBytes),
		format:   format,
		source:   source,
		now:      now,
		readyLag: max(readyLag, 0),
		scratch:  make([]byte, scratchFrames*format.BlockAlign),
	}, nil
}

func (b *clockedBuffer) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return nil
	}
	b.running = true
	b.started = b.now()
	b.base = b.produced
	return nil
}

func (b *clockedBuffer) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		b.advance()
		b.running = false
	}
	return nil
}

func (b *clockedBuffer) Position() (int, int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		b.advance()
	}

	size := int64(b.arena.Size())
	written := b.arena.Written()
	ready := max(written-int64(b.readyLag*b.format.BlockAlign), 0)
	return int(written % size), int(ready % size), nil
}

func (b *clockedBuffer) Lock(offset, n int) ([]byte, []byte, error) {
	return b.arena.Lock(offset, n)
}

func (b *clockedBuffer) Unlock() error {
	return b.arena.Unlock()
}

func (b *clockedBuffer) Close() error {
	return b.Stop()
}

// advance renders every frame due at the current clock reading. Callers
// hold b.mu.
func (b *clockedBuffer) advance() {
	elapsed := b.now().Sub(b.started)
	if elapsed <= 0 {
		return
	}
	due := b.base + framesIn(elapsed, b.format.SampleRate)
	missing := due - b.produced
	if missing <= 0 {
		return
	}

	// Anything older than one full ring would be overwritten anyway.
	if capacity := int64(b.arena.Size() / b.format.BlockAlign); missing > capacity {
		b.arena.Skip((missing - capacity) * int64(b.format.BlockAlign))
		b.produced = due - capacity
		missing = capacity
	}

	for missing > 0 {
		frames := min(missing, scratchFrames)
		chunk := b.scratch[:frames*int64(b.format.BlockAlign)]
		b.source.Render(chunk, b.produced)
		b.arena.Write(chunk)
		b.produced += frames
		missing -= frames
	}
}

// framesIn converts a duration to whole frames at rate without
// overflowing for long sessions.
func framesIn(d time.Duration, rate int) int64 {
	secs := int64(d / time.Second)
	rem := int64(d % time.Second)
	return secs*int64(rate) + rem*int64(rate)/int64(time.Second)
}
