// SPDX-License-Identifier: GPL-3.0-or-later

package parsedio

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/bassosimone/octf/wire"
)

// eventReader reads back the varint-length-delimited [wire.Event] stream
// a queue file holds (spec §6: "octf.trace.<queue_id>"), the same framing
// [tracepipe.Serializer] writes.
type eventReader struct {
	f *os.File
	r *bufio.Reader
}

// openEventReader opens path for sequential [wire.Event] reads.
func openEventReader(path string) (*eventReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &eventReader{f: f, r: bufio.NewReader(f)}, nil
}

// next returns the next event in the stream, or [io.EOF] once exhausted.
func (r *eventReader) next() (*wire.Event, error) {
	length, err := readUvarint32(r.r)
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, err
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return nil, fmt.Errorf("parsedio: truncated record: %w", err)
	}
	return wire.UnmarshalEvent(buf)
}

func (r *eventReader) close() error {
	return r.f.Close()
}

// readUvarint32 decodes one [wire.PutUvarint32]-encoded length prefix from
// a byte stream, mirroring [wire.ReadUvarint32]'s slice-based decoding.
func readUvarint32(r io.ByteReader) (uint32, error) {
	var x uint32
	for i := 0; i < wire.MaxVarintLen32; i++ {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF && i == 0 {
				return 0, io.EOF
			}
			return 0, fmt.Errorf("parsedio: truncated varint: %w", err)
		}
		x |= uint32(b&0x7f) << (7 * uint(i))
		if b < 0x80 {
			return x, nil
		}
	}
	return 0, fmt.Errorf("parsedio: varint exceeds %d bytes", wire.MaxVarintLen32)
}
