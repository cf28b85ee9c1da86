package audio

import (
	"errors"
	"fmt"
)

// fakeBuffer is a Buffer with scripted cursors.
type fakeBuffer struct {
	data     []byte
	capture  int
	ready    int
	posErr   error
	lockErr  error
	startErr error

	locks   [][2]int
	locked  bool
	started bool
	stopped bool
	closed  bool
}

func (b *fakeBuffer) Start() error {
	if b.startErr != nil {
		return b.startErr
	}
	b.started = true
	return nil
}

func (b *fakeBuffer) Stop() error {
	b.stopped = true
	return nil
}

func (b *fakeBuffer) Position() (int, int, error) {
	if b.posErr != nil {
		return 0, 0, b.posErr
	}
	return b.capture, b.ready, nil
}

func (b *fakeBuffer) Lock(offset, n int) ([]byte, []byte, error) {
	if b.lockErr != nil {
		return nil, nil, b.lockErr
	}
	b.locks = append(b.locks, [2]int{offset, n})
	b.locked = true
	if offset+n <= len(b.data) {
		return b.data[offset : offset+n], nil, nil
	}
	return b.data[offset:], b.data[:offset+n-len(b.data)], nil
}

func (b *fakeBuffer) Unlock() error {
	if !b.locked {
		return errors.New("not locked")
	}
	b.locked = false
	return nil
}

func (b *fakeBuffer) Close() error {
	b.closed = true
	return nil
}

// fakeDevice accepts the formats its accept func allows.
type fakeDevice struct {
	accept func(CaptureFormat) bool
	buf    *fakeBuffer
	tried  []FormatCandidate
	sizes  []int
	closed bool
}

func (d *fakeDevice) CreateBuffer(format CaptureFormat, bufferBytes int) (Buffer, error) {
	d.tried = append(d.tried, FormatCandidate{format.SampleRate, format.Channels})
	d.sizes = append(d.sizes, bufferBytes)
	if d.accept != nil && !d.accept(format) {
		return nil, fmt.Errorf("format %s rejected", format)
	}
	if d.buf == nil {
		d.buf = &fakeBuffer{}
	}
	d.buf.data = make([]byte, bufferBytes)
	return d.buf, nil
}

func (d *fakeDevice) Close() error {
	d.closed = true
	return nil
}

type fakeBackend struct {
	devices []DeviceDescriptor
	device  *fakeDevice
	openErr error
	listErr error
	opened  []DeviceDescriptor
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) Devices() ([]DeviceDescriptor, error) {
	if b.listErr != nil {
		return nil, b.listErr
	}
	return b.devices, nil
}

func (b *fakeBackend) Open(device DeviceDescriptor) (Device, error) {
	b.opened = append(b.opened, device)
	if b.openErr != nil {
		return nil, b.openErr
	}
	return b.device, nil
}
