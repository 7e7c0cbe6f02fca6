// SPDX-License-Identifier: GPL-3.0-or-later

package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// MethodRequest is a request to invoke a method on a node's interface
// (spec §3, §4.5).
type MethodRequest struct {
	NodePath         []string
	InterfaceName    string
	InterfaceVersion uint32
	MethodIndex      uint32
	SequenceID       uint64
	Request          []byte
}

// MethodResponse is the reply to a [MethodRequest] (spec §3, §4.5).
type MethodResponse struct {
	SequenceID uint64
	Success    bool
	Error      string
	Response   []byte
}

// Cancel asks the peer to abort the in-flight call identified by SequenceID
// (spec §3, §4.5).
type Cancel struct {
	SequenceID uint64
}

// Packet is the tagged envelope carried by the [framer] wire format
// (spec §3, §4.4): exactly one of Request, Response, Cancel is non-nil.
type Packet struct {
	Request  *MethodRequest
	Response *MethodResponse
	Cancel   *Cancel
}

// Marshal encodes p into protobuf wire format.
func (p *Packet) Marshal() []byte {
	var b []byte
	switch {
	case p.Request != nil:
		r := p.Request
		var m []byte
		for _, id := range r.NodePath {
			m = protowire.AppendTag(m, 1, protowire.BytesType)
			m = protowire.AppendString(m, id)
		}
		if r.InterfaceName != "" {
			m = protowire.AppendTag(m, 2, protowire.BytesType)
			m = protowire.AppendString(m, r.InterfaceName)
		}
		m = protowire.AppendTag(m, 3, protowire.VarintType)
		m = protowire.AppendVarint(m, uint64(r.InterfaceVersion))
		m = protowire.AppendTag(m, 4, protowire.VarintType)
		m = protowire.AppendVarint(m, uint64(r.MethodIndex))
		m = protowire.AppendTag(m, 5, protowire.VarintType)
		m = protowire.AppendVarint(m, r.SequenceID)
		if len(r.Request) > 0 {
			m = protowire.AppendTag(m, 6, protowire.BytesType)
			m = protowire.AppendBytes(m, r.Request)
		}
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, m)

	case p.Response != nil:
		r := p.Response
		var m []byte
		m = protowire.AppendTag(m, 1, protowire.VarintType)
		m = protowire.AppendVarint(m, r.SequenceID)
		m = protowire.AppendTag(m, 2, protowire.VarintType)
		if r.Success {
			m = protowire.AppendVarint(m, 1)
		} else {
			m = protowire.AppendVarint(m, 0)
		}
		if r.Error != "" {
			m = protowire.AppendTag(m, 3, protowire.BytesType)
			m = protowire.AppendString(m, r.Error)
		}
		if len(r.Response) > 0 {
			m = protowire.AppendTag(m, 4, protowire.BytesType)
			m = protowire.AppendBytes(m, r.Response)
		}
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, m)

	case p.Cancel != nil:
		var m []byte
		m = protowire.AppendTag(m, 1, protowire.VarintType)
		m = protowire.AppendVarint(m, p.Cancel.SequenceID)
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendBytes(b, m)
	}
	return b
}

// UnmarshalPacket decodes a [Packet] from protobuf wire format bytes.
func UnmarshalPacket(b []byte) (*Packet, error) {
	p := &Packet{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("wire: Packet: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case 1:
			m, n, err := consumeMessage(b)
			if err != nil {
				return nil, err
			}
			r := &MethodRequest{}
			if err := unmarshalFields(m, map[uint32]func([]byte) (int, error){
				1: stringInto(func(v string) { r.NodePath = append(r.NodePath, v) }),
				2: stringInto(func(v string) { r.InterfaceName = v }),
				3: varintInto(func(v uint64) { r.InterfaceVersion = uint32(v) }),
				4: varintInto(func(v uint64) { r.MethodIndex = uint32(v) }),
				5: varintInto(func(v uint64) { r.SequenceID = v }),
				6: bytesInto(func(v []byte) { r.Request = v }),
			}); err != nil {
				return nil, err
			}
			p.Request = r
			b = b[n:]
		case 2:
			m, n, err := consumeMessage(b)
			if err != nil {
				return nil, err
			}
			r := &MethodResponse{}
			if err := unmarshalFields(m, map[uint32]func([]byte) (int, error){
				1: varintInto(func(v uint64) { r.SequenceID = v }),
				2: boolInto(func(v bool) { r.Success = v }),
				3: stringInto(func(v string) { r.Error = v }),
				4: bytesInto(func(v []byte) { r.Response = v }),
			}); err != nil {
				return nil, err
			}
			p.Response = r
			b = b[n:]
		case 3:
			m, n, err := consumeMessage(b)
			if err != nil {
				return nil, err
			}
			c := &Cancel{}
			if err := unmarshalFields(m, map[uint32]func([]byte) (int, error){
				1: varintInto(func(v uint64) { c.SequenceID = v }),
			}); err != nil {
				return nil, err
			}
			p.Cancel = c
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("wire: Packet: skip field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return p, nil
}
