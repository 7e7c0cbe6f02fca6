// SPDX-License-Identifier: GPL-3.0-or-later

package extstore

import (
	"bufio"
	"fmt"
	"io"

	"github.com/bassosimone/octf/wire"
)

// writeFramed appends blob to w prefixed by its 32-bit varint length,
// the same framing [wire.PutUvarint32] gives the trace queue files
// (spec §6).
func writeFramed(w io.Writer, blob []byte) error {
	var lenBuf [wire.MaxVarintLen32]byte
	encoded := wire.PutUvarint32(lenBuf[:0], uint32(len(blob)))
	if _, err := w.Write(encoded); err != nil {
		return fmt.Errorf("extstore: write length prefix: %w", err)
	}
	if _, err := w.Write(blob); err != nil {
		return fmt.Errorf("extstore: write record: %w", err)
	}
	return nil
}

// readFramed reads one length-prefixed record from r, or returns
// [io.EOF] if the stream ends exactly on a record boundary.
func readFramed(r *bufio.Reader) ([]byte, error) {
	n, err := readUvarint32(r)
	if err != nil {
		return nil, err
	}
	blob := make([]byte, n)
	if _, err := io.ReadFull(r, blob); err != nil {
		return nil, fmt.Errorf("extstore: read record: %w", err)
	}
	return blob, nil
}

// readUvarint32 decodes a 32-bit varint one byte at a time, mirroring
// [wire.ReadUvarint32]'s algorithm for a streaming reader rather than
// a fixed slice.
func readUvarint32(r io.ByteReader) (uint32, error) {
	var x uint32
	for i := 0; i < wire.MaxVarintLen32; i++ {
		b, err := r.ReadByte()
		if err != nil {
			if i == 0 && err == io.EOF {
				return 0, io.EOF
			}
			return 0, fmt.Errorf("extstore: truncated varint: %w", err)
		}
		x |= uint32(b&0x7f) << (7 * uint(i))
		if b < 0x80 {
			return x, nil
		}
	}
	return 0, fmt.Errorf("extstore: varint exceeds %d bytes", wire.MaxVarintLen32)
}
