// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// writeWavFixture writes interleaved samples to a temporary wav file.
func writeWavFixture(t *testing.T, rate, bitDepth, channels int, data []int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, rate, bitDepth, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	return path
}

func TestWavBackendReplaysAndLoops(t *testing.T) {
	data := make([]int, 100)
	for i := range data {
		data[i] = (i - 50) * 300
	}
	path := writeWavFixture(t, 22050, 16, 1, data)

	clock := newFakeClock()
	backend := &WavBackend{Path: path, Now: clock.Now}
	ring := openStartedRing(t, backend, 4096)

	if got := ring.Format(); got != NewCaptureFormat(22050, 1) {
		t.Fatalf("format = %s, want 22050 Hz mono", got)
	}

	clock.Advance(10 * time.Millisecond)
	samples := pollSamples(t, ring)
	if len(samples) != 220 {
		t.Fatalf("got %d samples, want 220", len(samples))
	}
	for i, s := range samples {
		if want := float64(data[i%len(data)]) / 32768; s != want {
			t.Fatalf("sample %d = %g, want %g", i, s, want)
		}
	}
}

func TestWavBackendReducesBitDepth(t *testing.T) {
	path := writeWavFixture(t, 22050, 24, 2, []int{0x123456, -0x100000, 0x7fffff, -0x800000})

	clock := newFakeClock()
	ring := openStartedRing(t, &WavBackend{Path: path, Now: clock.Now}, 16)
	if got := ring.Format(); got != NewCaptureFormat(22050, 2) {
		t.Fatalf("format = %s, want 22050 Hz stereo", got)
	}

	clock.Advance(time.Second)
	samples := pollSamples(t, ring)
	if len(samples) != 16 {
		t.Fatalf("got %d samples, want 16", len(samples))
	}
	want := []float64{
		(float64(0x1234) + float64(-0x1000)) / 65536,
		(float64(0x7fff) + float64(-0x8000)) / 65536,
	}
	for i, s := range samples {
		if s != want[i%2] {
			t.Fatalf("sample %d = %g, want %g", i, s, want[i%2])
		}
	}
}

func TestWavBackendErrors(t *testing.T) {
	if _, err := NewWavBackend(filepath.Join(t.TempDir(), "missing.wav")).Devices(); err == nil {
		t.Error("Devices for a missing file returned nil error")
	}

	junk := filepath.Join(t.TempDir(), "junk.wav")
	os.WriteFile(junk, []byte("not a wav file at all"), 0o644)
	if _, err := NewWavBackend(junk).Open(DeviceDescriptor{}); err == nil {
		t.Error("Open of an invalid file returned nil error")
	}

	// A 3-channel file cannot be captured as mono or stereo.
	path := writeWavFixture(t, 8000, 16, 3, make([]int, 30))
	_, err := OpenRing(NewWavBackend(path), DeviceDescriptor{}, DefaultCandidates(), 64)
	if !errors.Is(err, ErrNoDeviceFormat) {
		t.Errorf("OpenRing(3 channels) err = %v, want ErrNoDeviceFormat", err)
	}
}
