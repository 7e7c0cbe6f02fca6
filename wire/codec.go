// SPDX-License-Identifier: GPL-3.0-or-later

package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// consumeMessage consumes one length-delimited embedded message from b,
// returning its payload and the number of bytes consumed from b.
func consumeMessage(b []byte) ([]byte, int, error) {
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, fmt.Errorf("wire: bad embedded message: %w", protowire.ParseError(n))
	}
	return v, n, nil
}

// unmarshalFields walks the tag-delimited fields of an embedded message,
// dispatching each field number to the setter in fields and skipping
// unknown fields. Each setter receives the field's remaining bytes
// (tag already consumed) and returns the number of bytes it consumed.
func unmarshalFields(b []byte, fields map[uint32]func([]byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("wire: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		if setter, ok := fields[uint32(num)]; ok {
			consumed, err := setter(b)
			if err != nil {
				return err
			}
			b = b[consumed:]
			continue
		}
		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return fmt.Errorf("wire: skip field %d: %w", num, protowire.ParseError(n))
		}
		b = b[n:]
	}
	return nil
}

// varintInto returns an unmarshalFields setter that decodes a varint field
// and passes it to set.
func varintInto(set func(uint64)) func([]byte) (int, error) {
	return func(b []byte) (int, error) {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return 0, fmt.Errorf("wire: bad varint: %w", protowire.ParseError(n))
		}
		set(v)
		return n, nil
	}
}

// stringInto returns an unmarshalFields setter that decodes a string field
// and passes it to set.
func stringInto(set func(string)) func([]byte) (int, error) {
	return func(b []byte) (int, error) {
		v, n := protowire.ConsumeString(b)
		if n < 0 {
			return 0, fmt.Errorf("wire: bad string: %w", protowire.ParseError(n))
		}
		set(v)
		return n, nil
	}
}

// bytesInto returns an unmarshalFields setter that decodes a bytes field
// and passes a copy of it to set.
func bytesInto(set func([]byte)) func([]byte) (int, error) {
	return func(b []byte) (int, error) {
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return 0, fmt.Errorf("wire: bad bytes: %w", protowire.ParseError(n))
		}
		set(append([]byte(nil), v...))
		return n, nil
	}
}

// boolInto returns an unmarshalFields setter that decodes a varint field as
// a bool and passes it to set.
func boolInto(set func(bool)) func([]byte) (int, error) {
	return func(b []byte) (int, error) {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return 0, fmt.Errorf("wire: bad bool: %w", protowire.ParseError(n))
		}
		set(v != 0)
		return n, nil
	}
}
