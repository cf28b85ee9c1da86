// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"strings"
)

// BitsPerSample is the only sample width the capture path supports.
const BitsPerSample = 16

// CaptureFormat describes the interleaved PCM layout of a capture buffer.
type CaptureFormat struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
	BlockAlign    int // Bytes per frame: Channels * BitsPerSample / 8
}

// NewCaptureFormat returns the 16-bit format for rate and channels.
func NewCaptureFormat(sampleRate, channels int) CaptureFormat {
	return CaptureFormat{
		SampleRate:    sampleRate,
		Channels:      channels,
		BitsPerSample: BitsPerSample,
		BlockAlign:    channels * BitsPerSample / 8,
	}
}

// Validate checks the invariants every negotiated format must hold.
func (f CaptureFormat) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", f.SampleRate)
	}
	if f.Channels != 1 && f.Channels != 2 {
		return fmt.Errorf("invalid channel count %d", f.Channels)
	}
	if f.BitsPerSample != BitsPerSample {
		return fmt.Errorf("unsupported bit depth %d", f.BitsPerSample)
	}
	if f.BlockAlign != f.Channels*f.BitsPerSample/8 || f.BlockAlign <= 0 {
		return fmt.Errorf("invalid block align %d", f.BlockAlign)
	}
	return nil
}

// BytesPerSecond is the data rate of the format.
func (f CaptureFormat) BytesPerSecond() int {
	return f.SampleRate * f.BlockAlign
}

func (f CaptureFormat) String() string {
	layout := "mono"
	if f.Channels == 2 {
		layout = "stereo"
	}
	return fmt.Sprintf("%d Hz, %d-bit, %s", f.SampleRate, f.BitsPerSample, layout)
}

// FormatCandidate is one (rate, channels) pair tried during negotiation.
type FormatCandidate struct {
	SampleRate int
	Channels   int
}

// CandidatesFor expands sample rates into the negotiation order: each rate
// is tried in stereo, then mono, before moving to the next rate.
func CandidatesFor(rates []int) []FormatCandidate {
	out := make([]FormatCandidate, 0, len(rates)*2)
	for _, rate := range rates {
		out = append(out, FormatCandidate{rate, 2}, FormatCandidate{rate, 1})
	}
	return out
}

// DefaultCandidates is 48000, 44100, 32000 then 22050 Hz, stereo first.
func DefaultCandidates() []FormatCandidate {
	return CandidatesFor([]int{48000, 44100, 32000, 22050})
}

// ChannelMode selects how a stereo frame is reduced to one sample.
type ChannelMode int32

const (
	ChannelLeft ChannelMode = iota
	ChannelRight
	ChannelStereo
)

func (m ChannelMode) String() string {
	switch m {
	case ChannelLeft:
		return "left"
	case ChannelRight:
		return "right"
	default:
		return "stereo"
	}
}

// Next cycles stereo -> left -> right -> stereo.
func (m ChannelMode) Next() ChannelMode {
	switch m {
	case ChannelStereo:
		return ChannelLeft
	case ChannelLeft:
		return ChannelRight
	default:
		return ChannelStereo
	}
}

// ParseChannelMode converts a name (case-insensitive) to a ChannelMode.
func ParseChannelMode(name string) (ChannelMode, error) {
	switch strings.ToLower(name) {
	case "left", "l":
		return ChannelLeft, nil
	case "right", "r":
		return ChannelRight, nil
	case "stereo", "both", "":
		return ChannelStereo, nil
	default:
		return ChannelStereo, fmt.Errorf("unknown channel mode: '%s'", name)
	}
}
