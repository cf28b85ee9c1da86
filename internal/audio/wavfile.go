// SPDX-License-Identifier: MIT
package audio

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	applog "scope/internal/log"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WavBackend replays a WAV file in real time as if it were a capture
// device, looping at the end. The device only accepts the file's own
// sample rate and channel layout, so format negotiation behaves as it
// does against hardware.
type WavBackend struct {
	Path string
	// Now replaces time.Now.
	Now func() time.Time
}

// NewWavBackend returns a backend replaying path.
func NewWavBackend(path string) *WavBackend {
	return &WavBackend{Path: path}
}

func (b *WavBackend) Name() string { return "wav" }

func (b *WavBackend) Devices() ([]DeviceDescriptor, error) {
	if b.Path == "" {
		return []DeviceDescriptor{}, nil
	}
	if _, err := os.Stat(b.Path); err != nil {
		return nil, fmt.Errorf("wav source: %w", err)
	}
	return []DeviceDescriptor{{Name: filepath.Base(b.Path)}}, nil
}

func (b *WavBackend) Open(device DeviceDescriptor) (Device, error) {
	path := b.Path
	if p, ok := device.Identity.(string); ok && p != "" {
		path = p
	}

	buf, err := decodeWav(path)
	if err != nil {
		return nil, err
	}
	applog.Infof("WavBackend: loaded %s (%d Hz, %d ch, %d-bit, %d frames)",
		path, buf.Format.SampleRate, buf.Format.NumChannels, buf.SourceBitDepth, buf.NumFrames())

	return &wavDevice{
		buf: buf,
		now: b.Now,
	}, nil
}

// decodeWav reads the whole file into an IntBuffer.
func decodeWav(path string) (*audio.IntBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open wav source: %w", err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%s: not a valid wav file", path)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if buf.Format == nil || buf.Format.NumChannels < 1 || buf.NumFrames() == 0 {
		return nil, fmt.Errorf("%s: no audio frames", path)
	}
	if buf.SourceBitDepth == 0 {
		buf.SourceBitDepth = int(d.BitDepth)
	}
	return buf, nil
}

type wavDevice struct {
	buf *audio.IntBuffer
	now func() time.Time
}

func (d *wavDevice) CreateBuffer(format CaptureFormat, bufferBytes int) (Buffer, error) {
	if format.SampleRate != d.buf.Format.SampleRate {
		return nil, fmt.Errorf("file is %d Hz", d.buf.Format.SampleRate)
	}
	if format.Channels != d.buf.Format.NumChannels {
		return nil, fmt.Errorf("file has %d channels", d.buf.Format.NumChannels)
	}

	src, err := newWavSource(d.buf)
	if err != nil {
		return nil, err
	}
	buf, err := newClockedBuffer(format, bufferBytes, src, d.now, 0)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func (d *wavDevice) Close() error { return nil }

// wavSource loops over the decoded file reduced to 16-bit samples.
type wavSource struct {
	samples  []int16
	channels int
	frames   int64
}

func newWavSource(buf *audio.IntBuffer) (*wavSource, error) {
	shift := buf.SourceBitDepth - 16
	if buf.SourceBitDepth != 8 && shift < 0 || shift > 16 {
		return nil, fmt.Errorf("unsupported bit depth %d", buf.SourceBitDepth)
	}

	samples := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		switch {
		case buf.SourceBitDepth == 8:
			// 8-bit wav is unsigned; go-audio hands it back as 0..255.
			samples[i] = int16((v - 128) << 8)
		default:
			samples[i] = int16(v >> shift)
		}
	}

	return &wavSource{
		samples:  samples,
		channels: buf.Format.NumChannels,
		frames:   int64(len(samples) / buf.Format.NumChannels),
	}, nil
}

func (s *wavSource) Render(dst []byte, start int64) {
	frameBytes := s.channels * 2
	for i := 0; i+frameBytes <= len(dst); i += frameBytes {
		frame := (start + int64(i/frameBytes)) % s.frames
		base := int(frame) * s.channels
		for ch := range s.channels {
			binary.LittleEndian.PutUint16(dst[i+ch*2:], uint16(s.samples[base+ch]))
		}
	}
}
