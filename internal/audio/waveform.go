// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"math"
)

const (
	// DefaultMaxSamples is the default waveform history length.
	DefaultMaxSamples = 2048
	// DefaultDecay is the per-append envelope decay factor.
	DefaultDecay = 0.95
	// initialPeak keeps the auto-scaler from dividing by zero on silence.
	initialPeak = 0.05
)

// WaveformConfig configures a WaveformBuffer.
type WaveformConfig struct {
	Capacity int     // Maximum number of samples kept.
	Decay    float64 // Envelope decay in (0,1], applied once per Append.
	Signed   bool    // Store signed samples instead of magnitudes.
}

// WaveformBuffer is a bounded rolling history of mono samples with a
// peak-hold envelope for display scaling. By default it stores magnitudes
// (|x|), which is what the scope display draws. Samples live in a fixed
// circular slice so Append costs O(len(batch)).
type WaveformBuffer struct {
	data   []float64
	head   int // Index of the oldest sample.
	length int
	signed bool
	decay  float64
	peak   float64
}

// NewWaveformBuffer allocates a buffer. Zero values in cfg select the
// defaults.
func NewWaveformBuffer(cfg WaveformConfig) (*WaveformBuffer, error) {
	if cfg.Capacity == 0 {
		cfg.Capacity = DefaultMaxSamples
	}
	if cfg.Decay == 0 {
		cfg.Decay = DefaultDecay
	}
	if cfg.Capacity < 0 {
		return nil, fmt.Errorf("waveform capacity must be positive, got %d", cfg.Capacity)
	}
	if cfg.Decay < 0 || cfg.Decay > 1 {
		return nil, fmt.Errorf("envelope decay must be in (0,1], got %g", cfg.Decay)
	}

	return &WaveformBuffer{
		data:   make([]float64, cfg.Capacity),
		signed: cfg.Signed,
		decay:  cfg.Decay,
		peak:   initialPeak,
	}, nil
}

// Append adds a batch in chronological order, evicting the oldest samples
// beyond capacity, and updates the envelope as
// max(max|batch|, peak*decay).
func (w *WaveformBuffer) Append(samples []float64) {
	if len(samples) == 0 {
		return
	}

	var batchMax float64
	for _, s := range samples {
		batchMax = max(batchMax, math.Abs(s))
	}
	w.peak = max(batchMax, w.peak*w.decay)

	capacity := len(w.data)
	if len(samples) >= capacity {
		w.head = 0
		w.length = capacity
		for i, s := range samples[len(samples)-capacity:] {
			w.data[i] = w.store(s)
		}
		return
	}

	// Evict exactly what does not fit, then write behind the newest sample.
	if overflow := w.length + len(samples) - capacity; overflow > 0 {
		w.head = (w.head + overflow) % capacity
		w.length -= overflow
	}
	tail := (w.head + w.length) % capacity
	for _, s := range samples {
		w.data[tail] = w.store(s)
		tail++
		if tail == capacity {
			tail = 0
		}
	}
	w.length += len(samples)
}

func (w *WaveformBuffer) store(s float64) float64 {
	if w.signed {
		return s
	}
	return math.Abs(s)
}

// Snapshot returns a copy of the samples, oldest first.
func (w *WaveformBuffer) Snapshot() []float64 {
	out := make([]float64, w.length)
	n := copy(out, w.data[w.head:min(w.head+w.length, len(w.data))])
	copy(out[n:], w.data[:w.length-n])
	return out
}

// Peak returns the current envelope value.
func (w *WaveformBuffer) Peak() float64 {
	return w.peak
}

// Len returns the number of samples held.
func (w *WaveformBuffer) Len() int {
	return w.length
}

// Cap returns the buffer capacity.
func (w *WaveformBuffer) Cap() int {
	return len(w.data)
}

// Reset drops all samples and restores the initial envelope.
func (w *WaveformBuffer) Reset() {
	w.head = 0
	w.length = 0
	w.peak = initialPeak
}
