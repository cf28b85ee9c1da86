// Package utils holds signal generators and fakes shared by the tests of
// the capture, analysis and transport packages.
package utils

import (
	"encoding/binary"
	"math"
	"sync"
)

// MockTransport records everything sent to it instead of transmitting.
type MockTransport struct {
	mu       sync.Mutex
	Messages []any
	Closed   bool
}

// Send stores the message for later inspection.
func (m *MockTransport) Send(data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, data)
	return nil
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// Sent returns a copy of the recorded messages.
func (m *MockTransport) Sent() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]any, len(m.Messages))
	copy(out, m.Messages)
	return out
}

// GenerateSineWave returns size samples of a sine at frequency Hz with a
// peak amplitude of 0.9.
func GenerateSineWave(size int, sampleRate, frequency float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = math.Sin(2*math.Pi*frequency*t) * 0.9
	}
	return buffer
}

// GenerateSinePCM returns frames of interleaved 16-bit little-endian PCM
// carrying the same sine on every channel, starting at sample offset start.
func GenerateSinePCM(start, frames, channels int, sampleRate, frequency, amplitude float64) []byte {
	out := make([]byte, frames*channels*2)
	for i := range frames {
		t := float64(start+i) / sampleRate
		v := int16(math.Round(math.Sin(2*math.Pi*frequency*t) * amplitude * math.MaxInt16))
		for ch := range channels {
			binary.LittleEndian.PutUint16(out[(i*channels+ch)*2:], uint16(v))
		}
	}
	return out
}

// PCMFrames packs interleaved int16 samples as little-endian bytes.
func PCMFrames(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// FindPeakBin returns the index of the largest magnitude in
// magnitudes[startBin:endBin+1], clamping the range to the slice.
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}

	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}

	return peakBin
}
