/*
Package bitint provides the small integer helpers shared by the capture
and analysis paths: power-of-two sizing for the FFT and frame-aligned
rounding for ring buffer arithmetic.

Usage:

	// Pad a waveform of 1440 samples to the FFT size
	n := bitint.NextPowerOfTwo(1440) // Returns 2048

	// Size a two second ring for 48 kHz stereo (4 bytes per frame)
	size := bitint.FloorMultiple(2*48000*4, 4)

NextPowerOfTwo works on size-1 so that exact powers of two are preserved:
for 8, bits.Len(7) = 3 and 1<<3 = 8, where bits.Len(8) would give 16.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size.
//
//	Input  Output
//	1      1
//	5      8
//	8      8
//	0      1
//	-1     1
func NextPowerOfTwo(size int) int {
	if size <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2.
//
//	8  true    1000 & 0111 = 0000
//	7  false   0111 & 0110 = 0110
//	0  false
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// FloorMultiple rounds n down to a multiple of m. A non-positive m
// returns n unchanged.
func FloorMultiple(n, m int) int {
	if m <= 0 {
		return n
	}
	return (n / m) * m
}
