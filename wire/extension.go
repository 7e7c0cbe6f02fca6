// SPDX-License-Identifier: GPL-3.0-or-later

package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// ExtensionHeader is the small header at the start of an
// "octf.ext.<name>" side-car file (spec §6): name, the sid range it
// covers, and the entry count.
type ExtensionHeader struct {
	Name     string
	MinSid   uint64
	MaxSid   uint64
	Count    uint64
}

// Marshal encodes h into protobuf wire format.
func (h *ExtensionHeader) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, h.Name)
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, h.MinSid)
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, h.MaxSid)
	b = protowire.AppendTag(b, 4, protowire.VarintType)
	b = protowire.AppendVarint(b, h.Count)
	return b
}

// UnmarshalExtensionHeader decodes an [ExtensionHeader] from protobuf wire format bytes.
func UnmarshalExtensionHeader(b []byte) (*ExtensionHeader, error) {
	h := &ExtensionHeader{}
	if err := unmarshalFields(b, map[uint32]func([]byte) (int, error){
		1: stringInto(func(v string) { h.Name = v }),
		2: varintInto(func(v uint64) { h.MinSid = v }),
		3: varintInto(func(v uint64) { h.MaxSid = v }),
		4: varintInto(func(v uint64) { h.Count = v }),
	}); err != nil {
		return nil, fmt.Errorf("wire: ExtensionHeader: %w", err)
	}
	return h, nil
}

// ExtensionRecord is one (sid, annotation) row of an extension side-car
// stream (spec §3, §4.11).
type ExtensionRecord struct {
	Sid        uint64
	Annotation *Any
}

// Marshal encodes r into protobuf wire format.
func (r *ExtensionRecord) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, r.Sid)
	if r.Annotation != nil {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, r.Annotation.Marshal())
	}
	return b
}

// UnmarshalExtensionRecord decodes an [ExtensionRecord] from protobuf wire format bytes.
func UnmarshalExtensionRecord(b []byte) (*ExtensionRecord, error) {
	r := &ExtensionRecord{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("wire: ExtensionRecord: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("wire: ExtensionRecord.sid: %w", protowire.ParseError(n))
			}
			r.Sid = v
			b = b[n:]
		case 2:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("wire: ExtensionRecord.annotation: %w", protowire.ParseError(n))
			}
			a, err := UnmarshalAny(v)
			if err != nil {
				return nil, err
			}
			r.Annotation = a
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("wire: ExtensionRecord: skip field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return r, nil
}
