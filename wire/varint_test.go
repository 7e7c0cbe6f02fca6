// SPDX-License-Identifier: GPL-3.0-or-later

package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVarintRoundTrip(t *testing.T) {
	values := []uint32{0, 1, 127, 128, 16384, 1<<21 - 1, 1 << 21, 1<<28 - 1, 0xffffffff}
	for _, v := range values {
		b := PutUvarint32(nil, v)
		assert.LessOrEqual(t, len(b), MaxVarintLen32)

		got, n, err := ReadUvarint32(b)
		require.NoError(t, err)
		assert.Equal(t, len(b), n)
		assert.Equal(t, v, got)
	}
}

func TestVarintTruncated(t *testing.T) {
	b := PutUvarint32(nil, 1<<21)
	_, _, err := ReadUvarint32(b[:len(b)-1])
	assert.Error(t, err)
}

func TestVarintTooLong(t *testing.T) {
	// Five continuation bytes followed by no terminator: exceeds MaxVarintLen32.
	b := []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80}
	_, _, err := ReadUvarint32(b)
	assert.Error(t, err)
}

func TestVarintAppendsToExisting(t *testing.T) {
	dst := []byte{0xff, 0xff}
	b := PutUvarint32(dst, 42)
	assert.Equal(t, []byte{0xff, 0xff, 42}, b)
}
