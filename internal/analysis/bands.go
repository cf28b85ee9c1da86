package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// bandScale maps RMS bin magnitude onto a 0..1 meter.
const bandScale = 50.0

// Band is a named frequency range and its level for one frame.
type Band struct {
	Name   string  `json:"name"`
	LowHz  float64 `json:"low_hz"`
	HighHz float64 `json:"high_hz"`
	Level  float64 `json:"level"`
}

// DefaultBands returns the band layout used by the meters. The top band
// runs up to Nyquist.
func DefaultBands(sampleRate float64) []Band {
	return []Band{
		{Name: "sub", LowHz: 20, HighHz: 60},
		{Name: "bass", LowHz: 60, HighHz: 250},
		{Name: "lowMid", LowHz: 250, HighHz: 500},
		{Name: "mid", LowHz: 500, HighHz: 2000},
		{Name: "highMid", LowHz: 2000, HighHz: 4000},
		{Name: "treble", LowHz: 4000, HighHz: sampleRate / 2},
	}
}

// Bands aggregates the spectrum into DefaultBands. Each level is the RMS
// of the bins whose centre frequency falls in [LowHz, HighHz), scaled and
// clamped to 1. Bands without bins read 0.
func Bands(s SpectrumProvider) []Band {
	bands := DefaultBands(s.SampleRate())
	mags := s.Magnitudes()
	if len(mags) == 0 || s.FFTSize() == 0 {
		return bands
	}

	for i := range bands {
		lo, hi := binRange(bands[i], s)
		if hi <= lo {
			continue
		}
		sel := mags[lo:hi]
		energy := floats.Dot(sel, sel) / float64(len(sel))
		bands[i].Level = math.Min(1, math.Sqrt(energy)*bandScale)
	}
	return bands
}

// binRange returns the half-open bin index range covering band b.
func binRange(b Band, s SpectrumProvider) (int, int) {
	n := len(s.Magnitudes())
	lo := n
	for k := range n {
		if s.FrequencyForBin(k) >= b.LowHz {
			lo = k
			break
		}
	}
	hi := lo
	for hi < n && s.FrequencyForBin(hi) < b.HighHz {
		hi++
	}
	return lo, hi
}
