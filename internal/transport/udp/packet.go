package udp

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

/*
Spectrum packet layout (big endian)

+-----------------------------------------------------------------------------+
| Field             | Data Type      | Size (Bytes) | Description             |
|-------------------|----------------|--------------|-------------------------|
| Sequence Number   | uint32         | 4            | Monotonically increasing|
| Timestamp         | int64          | 8            | Nanoseconds since epoch |
| Magnitude Count   | uint16         | 2            | Number of floats (N)    |
| Magnitudes        | []float32      | N * 4        | Spectrum bins |X[k]|/N  |
+-----------------------------------------------------------------------------+
*/

const (
	packetHeaderSize = 4 + 8 + 2
	// maxMagnitudes is the most bins a packet can announce in its count.
	maxMagnitudes = math.MaxUint16
)

// SpectrumPacket is one datagram of magnitude bins.
type SpectrumPacket struct {
	Seq        uint32
	Timestamp  time.Time
	Magnitudes []float32
}

// Size is the encoded length of p in bytes.
func (p *SpectrumPacket) Size() int {
	return packetHeaderSize + 4*min(len(p.Magnitudes), maxMagnitudes)
}

// AppendBinary appends the wire form of p to dst. Magnitudes beyond
// maxMagnitudes are dropped.
func (p *SpectrumPacket) AppendBinary(dst []byte) []byte {
	mags := p.Magnitudes[:min(len(p.Magnitudes), maxMagnitudes)]

	dst = binary.BigEndian.AppendUint32(dst, p.Seq)
	dst = binary.BigEndian.AppendUint64(dst, uint64(p.Timestamp.UnixNano()))
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(mags)))
	for _, m := range mags {
		dst = binary.BigEndian.AppendUint32(dst, math.Float32bits(m))
	}
	return dst
}

// ParseSpectrumPacket decodes one datagram.
func ParseSpectrumPacket(data []byte) (SpectrumPacket, error) {
	if len(data) < packetHeaderSize {
		return SpectrumPacket{}, fmt.Errorf("spectrum packet too short: %d bytes", len(data))
	}

	count := int(binary.BigEndian.Uint16(data[12:]))
	if want := packetHeaderSize + 4*count; len(data) != want {
		return SpectrumPacket{}, fmt.Errorf("spectrum packet is %d bytes, header announces %d", len(data), want)
	}

	p := SpectrumPacket{
		Seq:        binary.BigEndian.Uint32(data),
		Timestamp:  time.Unix(0, int64(binary.BigEndian.Uint64(data[4:]))),
		Magnitudes: make([]float32, count),
	}
	for i := range p.Magnitudes {
		p.Magnitudes[i] = math.Float32frombits(binary.BigEndian.Uint32(data[packetHeaderSize+4*i:]))
	}
	return p, nil
}
