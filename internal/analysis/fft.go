// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"

	"scope/pkg/bitint"
)

// Transform computes the forward DFT of data in place using a bit-reversal
// permutation followed by iterative radix-2 Cooley-Tukey butterflies with
// twiddle factors e^(-2πi/len). len(data) must be a power of two.
func Transform(data []complex128) error {
	n := len(data)
	if !bitint.IsPowerOfTwo(n) {
		return fmt.Errorf("fft size must be a power of 2, got %d", n)
	}

	// Bit-reversal permutation.
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j ^= bit
		if i < j {
			data[i], data[j] = data[j], data[i]
		}
	}

	for size := 2; size <= n; size <<= 1 {
		angle := -2 * math.Pi / float64(size)
		wlen := complex(math.Cos(angle), math.Sin(angle))
		half := size / 2
		for start := 0; start < n; start += size {
			w := complex(1, 0)
			for k := range half {
				u := data[start+k]
				v := data[start+k+half] * w
				data[start+k] = u + v
				data[start+k+half] = u - v
				w *= wlen
			}
		}
	}

	return nil
}
