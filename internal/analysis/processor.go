// SPDX-License-Identifier: MIT
package analysis

// SpectrumProvider is the read side of one analyzed frame. Consumers such
// as band aggregation take this instead of raw slices so they never need
// to know the transform size or sample rate up front.
type SpectrumProvider interface {
	Magnitudes() []float64                // Magnitudes returns the N/2 magnitude bins.
	FrequencyForBin(binIndex int) float64 // FrequencyForBin returns the centre frequency (Hz) of a bin.
	FFTSize() int                         // FFTSize returns the transform size N.
	SampleRate() float64                  // SampleRate returns the rate the waveform was captured at.
}

// Spectrum is a SpectrumProvider over a computed bin slice.
type Spectrum struct {
	Bins []float64
	Size int
	Rate float64
}

// NewSpectrum wraps bins computed from an n-point transform.
func NewSpectrum(bins []float64, n int, sampleRate float64) Spectrum {
	return Spectrum{Bins: bins, Size: n, Rate: sampleRate}
}

func (s Spectrum) Magnitudes() []float64 { return s.Bins }

func (s Spectrum) FrequencyForBin(binIndex int) float64 {
	return BinFrequency(binIndex, s.Size, s.Rate)
}

func (s Spectrum) FFTSize() int { return s.Size }

func (s Spectrum) SampleRate() float64 { return s.Rate }

// PeakBin returns the index and magnitude of the strongest bin, or -1 for
// an empty spectrum.
func (s Spectrum) PeakBin() (int, float64) {
	idx, peak := -1, 0.0
	for i, m := range s.Bins {
		if idx < 0 || m > peak {
			idx, peak = i, m
		}
	}
	return idx, peak
}
