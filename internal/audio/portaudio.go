// SPDX-License-Identifier: MIT
package audio

import (
	"encoding/binary"
	"fmt"
	"sync"

	applog "scope/internal/log"

	"github.com/gordonklaus/portaudio"
)

// PortAudioBackend captures from host devices through PortAudio.
// Initialize must have been called first.
type PortAudioBackend struct {
	// LowLatency selects the device's low input latency instead of the
	// high one.
	LowLatency bool
}

func (b *PortAudioBackend) Name() string { return "portaudio" }

func (b *PortAudioBackend) Devices() ([]DeviceDescriptor, error) {
	devices, err := inputDevices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate PortAudio devices: %w", err)
	}
	return devices, nil
}

func (b *PortAudioBackend) Open(device DeviceDescriptor) (Device, error) {
	var info *portaudio.DeviceInfo
	switch id := device.Identity.(type) {
	case nil:
		d, err := paDefaultInput()
		if err != nil {
			return nil, err
		}
		info = d
	case *portaudio.DeviceInfo:
		info = id
	default:
		return nil, fmt.Errorf("%w: unexpected device identity %T", ErrNoDevice, device.Identity)
	}
	if info == nil || info.MaxInputChannels <= 0 {
		return nil, fmt.Errorf("%w: %s has no inputs", ErrNoDevice, device.Name)
	}

	return &paDevice{info: info, lowLatency: b.LowLatency}, nil
}

type paDevice struct {
	info       *portaudio.DeviceInfo
	lowLatency bool
}

// CreateBuffer opens an input stream in the requested format. A format the
// device cannot run fails here, which is what negotiation relies on.
func (d *paDevice) CreateBuffer(format CaptureFormat, bufferBytes int) (Buffer, error) {
	if format.Channels > d.info.MaxInputChannels {
		return nil, fmt.Errorf("%s has %d input channels", d.info.Name, d.info.MaxInputChannels)
	}

	latency := d.info.DefaultHighInputLatency
	if d.lowLatency {
		latency = d.info.DefaultLowInputLatency
	}

	buf := &paBuffer{arena: newPCMArena(bufferBytes)}
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: format.Channels,
			Device:   d.info,
			Latency:  latency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // Capture only
			Device:   nil,
		},
		FramesPerBuffer: portaudio.FramesPerBufferUnspecified,
		SampleRate:      float64(format.SampleRate),
	}

	stream, err := portaudio.OpenStream(params, buf.processInputStream)
	if err != nil {
		return nil, err
	}
	buf.stream = stream
	return buf, nil
}

func (d *paDevice) Close() error { return nil }

// paBuffer mirrors the PortAudio callback into a pcmArena that the poller
// reads through Position and Lock.
type paBuffer struct {
	arena  *pcmArena
	stream *portaudio.Stream

	mu      sync.Mutex
	scratch []byte // Callback-owned conversion buffer.
}

// processInputStream runs on the PortAudio thread for every hardware
// period and must not block for long.
func (b *paBuffer) processInputStream(in []int16) {
	need := len(in) * 2
	if cap(b.scratch) < need {
		b.scratch = make([]byte, need)
	}
	out := b.scratch[:need]
	for i, s := range in {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	b.arena.Write(out)
}

func (b *paBuffer) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stream == nil {
		return fmt.Errorf("stream closed")
	}
	return b.stream.Start()
}

func (b *paBuffer) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stream == nil {
		return nil
	}
	return b.stream.Stop()
}

// Position reports the arena write cursor for both cursors; PortAudio
// hands over complete periods, so everything written is ready.
func (b *paBuffer) Position() (int, int, error) {
	pos := b.arena.Cursor()
	return pos, pos, nil
}

func (b *paBuffer) Lock(offset, n int) ([]byte, []byte, error) {
	return b.arena.Lock(offset, n)
}

func (b *paBuffer) Unlock() error {
	return b.arena.Unlock()
}

func (b *paBuffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stream == nil {
		return nil
	}
	err := b.stream.Close()
	b.stream = nil
	if err != nil {
		applog.Warnf("PortAudio: closing stream: %v", err)
	}
	return err
}
