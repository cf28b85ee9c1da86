package transport

import (
	"math"
	"time"

	"scope/internal/analysis"
	"scope/internal/audio"
)

// maxWaveformPoints caps the waveform carried by a frame message.
const maxWaveformPoints = 512

// Message types as they appear in the "type" field.
const (
	TypeStatus = "status"
	TypeFrame  = "frame"
)

// StatusMessage reports a capture status change.
type StatusMessage struct {
	Type   string `json:"type"`
	Status string `json:"status"`
}

// NewStatusMessage wraps a status text.
func NewStatusMessage(status string) *StatusMessage {
	return &StatusMessage{Type: TypeStatus, Status: status}
}

// FrameMessage is the wire form of one engine frame.
type FrameMessage struct {
	Type        string          `json:"type"`
	Seq         uint64          `json:"seq"`
	Timestamp   int64           `json:"timestamp"` // Unix nanoseconds.
	SampleRate  int             `json:"sample_rate"`
	Mode        string          `json:"mode"`
	TimeScaleMs int             `json:"time_scale_ms"`
	Peak        float64         `json:"peak"`
	FFTSize     int             `json:"fft_size"`
	Spectrum    []float64       `json:"spectrum"`
	Waveform    []float64       `json:"waveform"`
	Bands       []analysis.Band `json:"bands"`
}

// NewFrameMessage converts a frame. The waveform is reduced to at most
// maxWaveformPoints by keeping the largest value of each bucket, which
// preserves the envelope a scope draws.
func NewFrameMessage(seq uint64, frame *audio.Frame, now time.Time) *FrameMessage {
	spectrum := analysis.NewSpectrum(frame.Spectrum, frame.FFTSize, float64(frame.SampleRate))
	return &FrameMessage{
		Type:        TypeFrame,
		Seq:         seq,
		Timestamp:   now.UnixNano(),
		SampleRate:  frame.SampleRate,
		Mode:        frame.Mode.String(),
		TimeScaleMs: frame.TimeScaleMs,
		Peak:        frame.Peak,
		FFTSize:     frame.FFTSize,
		Spectrum:    frame.Spectrum,
		Waveform:    decimate(frame.Waveform, maxWaveformPoints),
		Bands:       analysis.Bands(spectrum),
	}
}

func decimate(samples []float64, points int) []float64 {
	if len(samples) <= points {
		return samples
	}
	out := make([]float64, points)
	for i := range out {
		lo := i * len(samples) / points
		hi := (i + 1) * len(samples) / points
		v := math.Inf(-1)
		for _, s := range samples[lo:hi] {
			v = math.Max(v, s)
		}
		out[i] = v
	}
	return out
}
