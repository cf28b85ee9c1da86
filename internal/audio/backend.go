package audio

import (
	"fmt"

	"scope/internal/config"
)

// DeviceDescriptor names one capture device. Identity is backend specific;
// nil means the backend's default device.
type DeviceDescriptor struct {
	Name     string
	Identity any
}

// Backend is a host audio API that can enumerate and open capture devices.
type Backend interface {
	// Name identifies the backend in status text and logs.
	Name() string
	// Devices returns the capture devices in a stable order. An empty list
	// is valid.
	Devices() ([]DeviceDescriptor, error)
	// Open acquires a device handle.
	Open(device DeviceDescriptor) (Device, error)
}

// Device is an open capture device handle.
type Device interface {
	// CreateBuffer allocates a circular capture buffer of bufferBytes for
	// the format, or fails if the device does not support it.
	CreateBuffer(format CaptureFormat, bufferBytes int) (Buffer, error)
	Close() error
}

// Buffer is a device-owned circular capture region, written by the device
// and read by polling.
type Buffer interface {
	Start() error
	Stop() error
	// Position reports the capture cursor (where the device is writing)
	// and the ready cursor (up to which data is safe to read). Both are
	// byte offsets in [0, bufferBytes).
	Position() (capturePos, readyPos int, err error)
	// Lock returns n bytes starting at offset as at most two contiguous
	// ranges, the second one non-empty only when the region wraps. The
	// ranges stay valid until Unlock.
	Lock(offset, n int) (first, second []byte, err error)
	Unlock() error
	Close() error
}

// NewBackend returns the backend named by cfg.Audio.Backend.
func NewBackend(cfg *config.Config) (Backend, error) {
	switch cfg.Audio.Backend {
	case "portaudio", "":
		return &PortAudioBackend{LowLatency: cfg.Audio.LowLatency}, nil
	case "simulate":
		return NewSimulatedBackend(cfg.Audio.ToneHz), nil
	case "wav":
		if cfg.Audio.WavFile == "" {
			return nil, fmt.Errorf("wav backend requires audio.wav_file")
		}
		return NewWavBackend(cfg.Audio.WavFile), nil
	default:
		return nil, fmt.Errorf("unknown audio backend: '%s'", cfg.Audio.Backend)
	}
}
