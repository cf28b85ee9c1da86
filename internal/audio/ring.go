// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"

	applog "scope/internal/log"
	"scope/pkg/bitint"
)

// bufferSeconds is how much audio the device ring holds.
const bufferSeconds = 2

// RingCursor tracks the read position inside a device ring of BufferBytes.
type RingCursor struct {
	ReadPos     int
	BufferBytes int
}

// Available is the modulo distance from the read cursor to writePos.
func (c RingCursor) Available(writePos int) int {
	if c.BufferBytes <= 0 {
		return 0
	}
	return ((writePos-c.ReadPos)%c.BufferBytes + c.BufferBytes) % c.BufferBytes
}

// Advance moves the read cursor forward by n bytes, wrapping at the end.
func (c *RingCursor) Advance(n int) {
	if c.BufferBytes <= 0 {
		return
	}
	c.ReadPos = (c.ReadPos + n) % c.BufferBytes
}

// Ring owns an open capture device and its circular buffer, and turns
// cursor polling into a continuous byte stream.
type Ring struct {
	device     Device
	buffer     Buffer
	format     CaptureFormat
	cursor     RingCursor
	maxSamples int
	started    bool
}

// RingBufferBytes sizes a ring for bufferSeconds of audio in format,
// rounded down to whole frames.
func RingBufferBytes(format CaptureFormat) int {
	return bitint.FloorMultiple(format.BytesPerSecond()*bufferSeconds, format.BlockAlign)
}

// OpenRing opens device on backend and negotiates the first candidate
// format the device accepts. maxSamples bounds how many frames a single
// Poll reads. On any error nothing stays acquired.
func OpenRing(backend Backend, device DeviceDescriptor, candidates []FormatCandidate, maxSamples int) (*Ring, error) {
	if maxSamples <= 0 {
		return nil, fmt.Errorf("max samples must be positive, got %d", maxSamples)
	}

	dev, err := backend.Open(device)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDeviceOpenFailed, device.Name, err)
	}

	for _, c := range candidates {
		format := NewCaptureFormat(c.SampleRate, c.Channels)
		if err := format.Validate(); err != nil {
			applog.Debugf("Ring: skipping candidate %+v: %v", c, err)
			continue
		}

		size := RingBufferBytes(format)
		buf, err := dev.CreateBuffer(format, size)
		if err != nil {
			applog.Debugf("Ring: %s rejected %s: %v", device.Name, format, err)
			continue
		}

		applog.Infof("Ring: %s opened at %s (%d byte ring)", device.Name, format, size)
		return &Ring{
			device:     dev,
			buffer:     buf,
			format:     format,
			cursor:     RingCursor{BufferBytes: size},
			maxSamples: maxSamples,
		}, nil
	}

	if cerr := dev.Close(); cerr != nil {
		applog.Warnf("Ring: closing %s after failed negotiation: %v", device.Name, cerr)
	}
	return nil, fmt.Errorf("%w: %s", ErrNoDeviceFormat, device.Name)
}

// Format returns the negotiated capture format.
func (r *Ring) Format() CaptureFormat {
	return r.format
}

// Cursor returns the current read cursor.
func (r *Ring) Cursor() RingCursor {
	return r.cursor
}

// Start begins device capture.
func (r *Ring) Start() error {
	if r.buffer == nil {
		return ErrReadFailed
	}
	if err := r.buffer.Start(); err != nil {
		return err
	}
	r.started = true
	return nil
}

// Poll reads the bytes the device produced since the previous call and
// hands them to consume as one or two contiguous ranges. It returns the
// number of bytes consumed; zero with a nil error means the device had
// less than one frame ready. The read cursor advances after every
// successful lock, whatever consume does with the data.
func (r *Ring) Poll(consume func(first, second []byte)) (int, error) {
	if r.buffer == nil {
		return 0, ErrReadFailed
	}

	capturePos, readyPos, err := r.buffer.Position()
	if err != nil {
		return 0, fmt.Errorf("%w: %w: %w", ErrReadFailed, ErrPositionQueryFailed, err)
	}

	// Some drivers update the ready cursor late; use the capture cursor
	// when only that one moved.
	writePos := readyPos
	if writePos == r.cursor.ReadPos && capturePos != r.cursor.ReadPos {
		writePos = capturePos
	}

	blockAlign := r.format.BlockAlign
	available := r.cursor.Available(writePos)
	if available < blockAlign {
		return 0, nil
	}

	toRead := min(available, r.maxSamples*blockAlign)
	toRead = bitint.FloorMultiple(toRead, blockAlign)

	first, second, err := r.buffer.Lock(r.cursor.ReadPos, toRead)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrLockFailed, err)
	}
	consume(first, second)
	if err := r.buffer.Unlock(); err != nil {
		applog.Warnf("Ring: unlock failed: %v", err)
	}

	r.cursor.Advance(toRead)
	return toRead, nil
}

// Close stops capture and releases the buffer and device. It is safe to
// call more than once.
func (r *Ring) Close() error {
	var errs []error
	if r.buffer != nil {
		if r.started {
			if err := r.buffer.Stop(); err != nil {
				errs = append(errs, err)
			}
			r.started = false
		}
		if err := r.buffer.Close(); err != nil {
			errs = append(errs, err)
		}
		r.buffer = nil
	}
	if r.device != nil {
		if err := r.device.Close(); err != nil {
			errs = append(errs, err)
		}
		r.device = nil
	}
	r.cursor = RingCursor{}
	return errors.Join(errs...)
}
