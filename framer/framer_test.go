// SPDX-License-Identifier: GPL-3.0-or-later

package framer

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/bassosimone/octf/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// WritePacket followed by ReadPacket round-trips every packet variant.
func TestFramerRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		pkt  *wire.Packet
	}{
		{
			name: "request",
			pkt: &wire.Packet{Request: &wire.MethodRequest{
				NodePath:         []string{"root", "cache"},
				InterfaceName:    "octf.Identity",
				InterfaceVersion: 1,
				MethodIndex:      2,
				SequenceID:       7,
				Request:          []byte("payload"),
			}},
		},
		{
			name: "response",
			pkt: &wire.Packet{Response: &wire.MethodResponse{
				SequenceID: 7,
				Success:    true,
				Response:   []byte("reply"),
			}},
		},
		{
			name: "cancel",
			pkt:  &wire.Packet{Cancel: &wire.Cancel{SequenceID: 7}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			f := New(&buf)

			require.NoError(t, f.WritePacket(tt.pkt))

			got, err := f.ReadPacket()
			require.NoError(t, err)
			assert.Equal(t, tt.pkt, got)
		})
	}
}

// ReadPacket returns multiple frames written back-to-back, in order.
func TestFramerMultipleFrames(t *testing.T) {
	var buf bytes.Buffer
	f := New(&buf)

	for i := uint64(0); i < 3; i++ {
		require.NoError(t, f.WritePacket(&wire.Packet{Cancel: &wire.Cancel{SequenceID: i}}))
	}

	for i := uint64(0); i < 3; i++ {
		got, err := f.ReadPacket()
		require.NoError(t, err)
		require.NotNil(t, got.Cancel)
		assert.Equal(t, i, got.Cancel.SequenceID)
	}
}

// ReadPacket fails with ErrHeaderParse on a malformed header.
func TestFramerMalformedHeader(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{name: "missing prefix", line: "BAD:5\n"},
		{name: "non-numeric length", line: "PKT:abc\n"},
		{name: "negative length", line: "PKT:-1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(strings.NewReader(tt.line))
			_, err := f.ReadPacket()
			require.ErrorIs(t, err, ErrHeaderParse)
		})
	}
}

// ReadPacket rejects a header announcing a payload over MaxPayloadSize.
func TestFramerHeaderTooLarge(t *testing.T) {
	f := New(strings.NewReader("PKT:33554433\n"))
	_, err := f.ReadPacket()
	require.ErrorIs(t, err, ErrPayloadTooLarge)
}

// WritePacket rejects a payload over MaxPayloadSize before writing anything.
func TestFramerWriteTooLarge(t *testing.T) {
	var buf bytes.Buffer
	f := New(&buf)

	big := &wire.Packet{Response: &wire.MethodResponse{
		SequenceID: 1,
		Success:    true,
		Response:   make([]byte, MaxPayloadSize+1),
	}}

	err := f.WritePacket(big)
	require.ErrorIs(t, err, ErrPayloadTooLarge)
	assert.Zero(t, buf.Len())
}

// ReadPacket surfaces io.ErrUnexpectedEOF when the peer closes before a full frame.
func TestFramerTruncatedPayload(t *testing.T) {
	f := New(strings.NewReader("PKT:10\nshort"))
	_, err := f.ReadPacket()
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

// ReadPacket surfaces io.EOF when nothing at all has been written.
func TestFramerEmptyStream(t *testing.T) {
	f := New(strings.NewReader(""))
	_, err := f.ReadPacket()
	require.ErrorIs(t, err, io.EOF)
}
