// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math/cmplx"
	"strings"

	applog "scope/internal/log"
	"scope/pkg/bitint"

	"gonum.org/v1/gonum/dsp/window"
)

// MinFFTSize is the smallest transform the analyzer runs.
const MinFFTSize = 8

// WindowFunc defines the type for selecting an FFT window function.
type WindowFunc int

// Enum for available window functions.
const (
	Hann WindowFunc = iota
	Hamming
	Blackman
	BlackmanNuttall
	BartlettHann
	Lanczos
	Nuttall
	Rectangular
)

func (w WindowFunc) String() string {
	switch w {
	case Hann:
		return "hann"
	case Hamming:
		return "hamming"
	case Blackman:
		return "blackman"
	case BlackmanNuttall:
		return "blackmannuttall"
	case BartlettHann:
		return "bartletthann"
	case Lanczos:
		return "lanczos"
	case Nuttall:
		return "nuttall"
	case Rectangular:
		return "rectangular"
	default:
		return fmt.Sprintf("window(%d)", int(w))
	}
}

// ParseWindowFunc converts a string name (case-insensitive) to a WindowFunc,
// returning Hann and an error if the name is unknown.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(name) {
	case "hann", "hanning", "":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "bartletthann":
		return BartlettHann, nil
	case "lanczos":
		return Lanczos, nil
	case "nuttall":
		return Nuttall, nil
	case "rectangular", "none":
		return Rectangular, nil
	default:
		return Hann, fmt.Errorf("unknown FFT window function name: '%s'", name)
	}
}

// applyWindow multiplies seq in place by the selected window over its full
// length. gonum's Hann is 0.5*(1-cos(2πi/(N-1))).
func applyWindow(seq []float64, w WindowFunc) {
	switch w {
	case Hann:
		window.Hann(seq)
	case Hamming:
		window.Hamming(seq)
	case Blackman:
		window.Blackman(seq)
	case BlackmanNuttall:
		window.BlackmanNuttall(seq)
	case BartlettHann:
		window.BartlettHann(seq)
	case Lanczos:
		window.Lanczos(seq)
	case Nuttall:
		window.Nuttall(seq)
	case Rectangular:
	default:
		applog.Warnf("Analysis: unknown window function %d, defaulting to Hann", w)
		window.Hann(seq)
	}
}

// Analyzer turns a waveform into magnitude bins. It holds no per-frame
// state: every Compute call allocates its own transform buffer, so equal
// input always gives bit-identical output.
type Analyzer struct {
	window WindowFunc
}

// NewAnalyzer returns an analyzer using window w.
func NewAnalyzer(w WindowFunc) *Analyzer {
	return &Analyzer{window: w}
}

// Window returns the configured window function.
func (a *Analyzer) Window() WindowFunc {
	return a.window
}

// FFTSize returns the transform size Compute uses for n input samples, or
// 0 when n is too short to analyze.
func FFTSize(n int) int {
	if n < MinFFTSize {
		return 0
	}
	size := bitint.NextPowerOfTwo(n)
	if size < MinFFTSize {
		return 0
	}
	return size
}

// Compute zero-pads waveform to the next power of two N, applies the
// window across [0,N), transforms it and returns the first N/2 bins as
// |X[k]|/N. Fewer than MinFFTSize samples give an empty result.
func (a *Analyzer) Compute(waveform []float64) []float64 {
	n := FFTSize(len(waveform))
	if n == 0 {
		return []float64{}
	}

	real := make([]float64, n)
	copy(real, waveform)
	applyWindow(real, a.window)

	data := make([]complex128, n)
	for i, v := range real {
		data[i] = complex(v, 0)
	}
	if err := Transform(data); err != nil {
		// n is a power of two by construction.
		panic(err)
	}

	bins := make([]float64, n/2)
	scale := 1 / float64(n)
	for k := range bins {
		bins[k] = cmplx.Abs(data[k]) * scale
	}
	return bins
}

// BinFrequency returns the centre frequency in Hz of bin k for an
// n-point transform at sampleRate.
func BinFrequency(k, n int, sampleRate float64) float64 {
	if n <= 0 || k < 0 {
		return 0
	}
	return float64(k) * sampleRate / float64(n)
}
