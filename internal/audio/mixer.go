package audio

import "encoding/binary"

// pcmScale normalizes int16 samples. Dividing by 32768 rather than 32767
// maps -32768 to exactly -1 and leaves +32767 slightly below +1.
const pcmScale = 32768.0

// Convert reduces interleaved little-endian 16-bit PCM to one float sample
// per frame according to mode. A format that fails Validate yields an
// empty result. Trailing bytes that do not fill a frame are ignored.
func Convert(pcm []byte, format CaptureFormat, mode ChannelMode) []float64 {
	return AppendConverted(nil, pcm, format, mode)
}

// AppendConverted is Convert appending to dst, so both halves of a
// wrapped ring read land in one slice.
func AppendConverted(dst []float64, pcm []byte, format CaptureFormat, mode ChannelMode) []float64 {
	if format.Validate() != nil {
		return dst
	}

	frames := len(pcm) / format.BlockAlign
	dst = growFloats(dst, frames)

	for i := range frames {
		frame := pcm[i*format.BlockAlign:]
		left := float64(int16(binary.LittleEndian.Uint16(frame)))
		right := left
		if format.Channels > 1 {
			right = float64(int16(binary.LittleEndian.Uint16(frame[2:])))
		}

		var value float64
		switch mode {
		case ChannelLeft:
			value = left / pcmScale
		case ChannelRight:
			value = right / pcmScale
		default:
			value = (left + right) / (2 * pcmScale)
		}
		dst = append(dst, value)
	}

	return dst
}

func growFloats(s []float64, n int) []float64 {
	if cap(s)-len(s) >= n {
		return s
	}
	grown := make([]float64, len(s), len(s)+n)
	copy(grown, s)
	return grown
}
