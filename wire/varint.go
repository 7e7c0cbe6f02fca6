// SPDX-License-Identifier: GPL-3.0-or-later

package wire

import "fmt"

// MaxVarintLen32 is the maximum number of bytes a 32-bit varint can occupy
// using the 7-bits-per-byte, continuation-bit encoding used throughout this
// package (see spec §4.3: "standard 7-bits-per-byte with continuation bit,
// little-endian, max 5 bytes for 32-bit values").
const MaxVarintLen32 = 5

// PutUvarint32 appends the varint encoding of v (truncated to 32 bits) to
// dst and returns the extended slice. This is the exact framing the
// Serializer (§4.3) and the trace queue files (§6) use for their
// length-prefixed record streams.
func PutUvarint32(dst []byte, v uint32) []byte {
	x := v
	for x >= 0x80 {
		dst = append(dst, byte(x)|0x80)
		x >>= 7
	}
	return append(dst, byte(x))
}

// ReadUvarint32 decodes a 32-bit varint from src, returning the value and
// the number of bytes consumed. It returns an error if src is exhausted
// before a terminating byte is found or if the encoding would need more
// than [MaxVarintLen32] bytes.
func ReadUvarint32(src []byte) (uint32, int, error) {
	var x uint32
	for i := 0; i < MaxVarintLen32; i++ {
		if i >= len(src) {
			return 0, 0, fmt.Errorf("wire: truncated varint")
		}
		b := src[i]
		x |= uint32(b&0x7f) << (7 * uint(i))
		if b < 0x80 {
			return x, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("wire: varint exceeds %d bytes", MaxVarintLen32)
}
