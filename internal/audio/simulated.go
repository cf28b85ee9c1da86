package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"slices"
	"time"
)

const (
	// DefaultToneHz is the frequency of the simulated input.
	DefaultToneHz = 440.0
	// DefaultToneAmplitude is the simulated peak level relative to full scale.
	DefaultToneAmplitude = 0.8
)

// SimulatedBackend is a capture backend without hardware. It exposes a
// single default device producing a sine tone in real time, which keeps
// the whole pipeline runnable on headless machines and in tests.
type SimulatedBackend struct {
	ToneHz    float64
	Amplitude float64
	// SampleRates and Channels restrict the formats the device accepts.
	// Empty means any.
	SampleRates []int
	Channels    []int
	// ReadyLagFrames makes the ready cursor trail the capture cursor.
	ReadyLagFrames int
	// Now replaces time.Now.
	Now func() time.Time
	// NoDevices makes Devices report an empty list.
	NoDevices bool
}

// NewSimulatedBackend returns a backend producing a tone at hz.
func NewSimulatedBackend(hz float64) *SimulatedBackend {
	return &SimulatedBackend{ToneHz: hz, Amplitude: DefaultToneAmplitude}
}

func (b *SimulatedBackend) Name() string { return "simulate" }

func (b *SimulatedBackend) Devices() ([]DeviceDescriptor, error) {
	if b.NoDevices {
		return []DeviceDescriptor{}, nil
	}
	return []DeviceDescriptor{{Name: fmt.Sprintf("Tone generator (%g Hz)", b.tone())}}, nil
}

func (b *SimulatedBackend) Open(device DeviceDescriptor) (Device, error) {
	if device.Identity != nil {
		return nil, fmt.Errorf("%w: unknown simulated device %v", ErrNoDevice, device.Identity)
	}
	return &simulatedDevice{backend: b}, nil
}

func (b *SimulatedBackend) tone() float64 {
	if b.ToneHz <= 0 {
		return DefaultToneHz
	}
	return b.ToneHz
}

type simulatedDevice struct {
	backend *SimulatedBackend
}

func (d *simulatedDevice) CreateBuffer(format CaptureFormat, bufferBytes int) (Buffer, error) {
	b := d.backend
	if len(b.SampleRates) > 0 && !slices.Contains(b.SampleRates, format.SampleRate) {
		return nil, fmt.Errorf("sample rate %d not supported", format.SampleRate)
	}
	if len(b.Channels) > 0 && !slices.Contains(b.Channels, format.Channels) {
		return nil, fmt.Errorf("%d channels not supported", format.Channels)
	}

	amp := b.Amplitude
	if amp == 0 {
		amp = DefaultToneAmplitude
	}
	src := &toneSource{
		step:     2 * math.Pi * b.tone() / float64(format.SampleRate),
		level:    math.Min(amp, 1) * math.MaxInt16,
		channels: format.Channels,
	}
	buf, err := newClockedBuffer(format, bufferBytes, src, b.Now, b.ReadyLagFrames)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func (d *simulatedDevice) Close() error { return nil }

// toneSource renders the same sine on every channel.
type toneSource struct {
	step     float64 // Phase increment per frame.
	level    float64
	channels int
}

func (s *toneSource) Render(dst []byte, start int64) {
	frameBytes := s.channels * 2
	for i := 0; i+frameBytes <= len(dst); i += frameBytes {
		n := start + int64(i/frameBytes)
		v := int16(math.Round(s.level * math.Sin(s.step*float64(n))))
		for ch := range s.channels {
			binary.LittleEndian.PutUint16(dst[i+ch*2:], uint16(v))
		}
	}
}
