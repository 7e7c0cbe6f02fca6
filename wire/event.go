// SPDX-License-Identifier: GPL-3.0-or-later

package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Direction is an I/O direction (spec §3, Trace Event).
type Direction uint32

// Known directions.
const (
	DirectionRead  Direction = 0
	DirectionWrite Direction = 1
	DirectionFlush Direction = 2
	DirectionTrim  Direction = 3
)

// FsEventType is the kind of filesystem file event carried by an
// [FsFileEvent].
type FsEventType uint32

// Known filesystem event types.
const (
	FsEventCreate FsEventType = 0
	FsEventDelete FsEventType = 1
	FsEventMove   FsEventType = 2
)

// DeviceDescription describes one traced device/queue source.
type DeviceDescription struct {
	DeviceID uint32
	Name     string
}

// IoRequest is the submission half of a logical I/O (spec §3, §4.9).
type IoRequest struct {
	DeviceID  uint32
	RequestID uint64
	Lba       uint64
	Len       uint32
	Direction Direction
}

// IoCompletion is the completion half of a logical I/O.
type IoCompletion struct {
	DeviceID  uint32
	RequestID uint64
	ErrorCode int32
}

// FsMeta correlates an I/O request with the file id it targets.
type FsMeta struct {
	RequestID uint64
	FileID    uint64
}

// FsFileName maps a file id to its base name, as observed by the traced
// filesystem.
type FsFileName struct {
	FileID uint64
	Name   string
}

// FsFileEvent records a filesystem namespace change (create/delete/move).
type FsFileEvent struct {
	FileID       uint64
	ParentFileID uint64
	Type         FsEventType
}

// Event is the typed protobuf envelope a [Converter] (§3) produces from
// opaque producer bytes. Exactly one of the payload fields is non-nil.
type Event struct {
	Sid         uint64
	TimestampNs uint64

	DeviceDescription *DeviceDescription
	IoRequest         *IoRequest
	IoCompletion      *IoCompletion
	FsMeta            *FsMeta
	FsFileName        *FsFileName
	FsFileEvent       *FsFileEvent
}

// Marshal encodes e into protobuf wire format.
func (e *Event) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, e.Sid)
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, e.TimestampNs)

	switch {
	case e.DeviceDescription != nil:
		d := e.DeviceDescription
		var p []byte
		p = protowire.AppendTag(p, 1, protowire.VarintType)
		p = protowire.AppendVarint(p, uint64(d.DeviceID))
		p = protowire.AppendTag(p, 2, protowire.BytesType)
		p = protowire.AppendString(p, d.Name)
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendBytes(b, p)

	case e.IoRequest != nil:
		r := e.IoRequest
		var p []byte
		p = protowire.AppendTag(p, 1, protowire.VarintType)
		p = protowire.AppendVarint(p, uint64(r.DeviceID))
		p = protowire.AppendTag(p, 2, protowire.VarintType)
		p = protowire.AppendVarint(p, r.RequestID)
		p = protowire.AppendTag(p, 3, protowire.VarintType)
		p = protowire.AppendVarint(p, r.Lba)
		p = protowire.AppendTag(p, 4, protowire.VarintType)
		p = protowire.AppendVarint(p, uint64(r.Len))
		p = protowire.AppendTag(p, 5, protowire.VarintType)
		p = protowire.AppendVarint(p, uint64(r.Direction))
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendBytes(b, p)

	case e.IoCompletion != nil:
		c := e.IoCompletion
		var p []byte
		p = protowire.AppendTag(p, 1, protowire.VarintType)
		p = protowire.AppendVarint(p, uint64(c.DeviceID))
		p = protowire.AppendTag(p, 2, protowire.VarintType)
		p = protowire.AppendVarint(p, c.RequestID)
		p = protowire.AppendTag(p, 3, protowire.VarintType)
		p = protowire.AppendVarint(p, uint64(uint32(c.ErrorCode)))
		b = protowire.AppendTag(b, 5, protowire.BytesType)
		b = protowire.AppendBytes(b, p)

	case e.FsMeta != nil:
		m := e.FsMeta
		var p []byte
		p = protowire.AppendTag(p, 1, protowire.VarintType)
		p = protowire.AppendVarint(p, m.RequestID)
		p = protowire.AppendTag(p, 2, protowire.VarintType)
		p = protowire.AppendVarint(p, m.FileID)
		b = protowire.AppendTag(b, 6, protowire.BytesType)
		b = protowire.AppendBytes(b, p)

	case e.FsFileName != nil:
		n := e.FsFileName
		var p []byte
		p = protowire.AppendTag(p, 1, protowire.VarintType)
		p = protowire.AppendVarint(p, n.FileID)
		p = protowire.AppendTag(p, 2, protowire.BytesType)
		p = protowire.AppendString(p, n.Name)
		b = protowire.AppendTag(b, 7, protowire.BytesType)
		b = protowire.AppendBytes(b, p)

	case e.FsFileEvent != nil:
		fe := e.FsFileEvent
		var p []byte
		p = protowire.AppendTag(p, 1, protowire.VarintType)
		p = protowire.AppendVarint(p, fe.FileID)
		p = protowire.AppendTag(p, 2, protowire.VarintType)
		p = protowire.AppendVarint(p, fe.ParentFileID)
		p = protowire.AppendTag(p, 3, protowire.VarintType)
		p = protowire.AppendVarint(p, uint64(fe.Type))
		b = protowire.AppendTag(b, 8, protowire.BytesType)
		b = protowire.AppendBytes(b, p)
	}
	return b
}

// UnmarshalEvent decodes an [Event] from protobuf wire format bytes.
func UnmarshalEvent(b []byte) (*Event, error) {
	e := &Event{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("wire: Event: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("wire: Event.sid: %w", protowire.ParseError(n))
			}
			e.Sid = v
			b = b[n:]
		case 2:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("wire: Event.timestamp_ns: %w", protowire.ParseError(n))
			}
			e.TimestampNs = v
			b = b[n:]
		case 3:
			p, n, err := consumeMessage(b)
			if err != nil {
				return nil, err
			}
			d := &DeviceDescription{}
			if err := unmarshalFields(p, map[uint32]func([]byte) (int, error){
				1: varintInto(func(v uint64) { d.DeviceID = uint32(v) }),
				2: stringInto(func(v string) { d.Name = v }),
			}); err != nil {
				return nil, err
			}
			e.DeviceDescription = d
			b = b[n:]
		case 4:
			p, n, err := consumeMessage(b)
			if err != nil {
				return nil, err
			}
			r := &IoRequest{}
			if err := unmarshalFields(p, map[uint32]func([]byte) (int, error){
				1: varintInto(func(v uint64) { r.DeviceID = uint32(v) }),
				2: varintInto(func(v uint64) { r.RequestID = v }),
				3: varintInto(func(v uint64) { r.Lba = v }),
				4: varintInto(func(v uint64) { r.Len = uint32(v) }),
				5: varintInto(func(v uint64) { r.Direction = Direction(v) }),
			}); err != nil {
				return nil, err
			}
			e.IoRequest = r
			b = b[n:]
		case 5:
			p, n, err := consumeMessage(b)
			if err != nil {
				return nil, err
			}
			c := &IoCompletion{}
			if err := unmarshalFields(p, map[uint32]func([]byte) (int, error){
				1: varintInto(func(v uint64) { c.DeviceID = uint32(v) }),
				2: varintInto(func(v uint64) { c.RequestID = v }),
				3: varintInto(func(v uint64) { c.ErrorCode = int32(uint32(v)) }),
			}); err != nil {
				return nil, err
			}
			e.IoCompletion = c
			b = b[n:]
		case 6:
			p, n, err := consumeMessage(b)
			if err != nil {
				return nil, err
			}
			m := &FsMeta{}
			if err := unmarshalFields(p, map[uint32]func([]byte) (int, error){
				1: varintInto(func(v uint64) { m.RequestID = v }),
				2: varintInto(func(v uint64) { m.FileID = v }),
			}); err != nil {
				return nil, err
			}
			e.FsMeta = m
			b = b[n:]
		case 7:
			p, n, err := consumeMessage(b)
			if err != nil {
				return nil, err
			}
			fn := &FsFileName{}
			if err := unmarshalFields(p, map[uint32]func([]byte) (int, error){
				1: varintInto(func(v uint64) { fn.FileID = v }),
				2: stringInto(func(v string) { fn.Name = v }),
			}); err != nil {
				return nil, err
			}
			e.FsFileName = fn
			b = b[n:]
		case 8:
			p, n, err := consumeMessage(b)
			if err != nil {
				return nil, err
			}
			fe := &FsFileEvent{}
			if err := unmarshalFields(p, map[uint32]func([]byte) (int, error){
				1: varintInto(func(v uint64) { fe.FileID = v }),
				2: varintInto(func(v uint64) { fe.ParentFileID = v }),
				3: varintInto(func(v uint64) { fe.Type = FsEventType(v) }),
			}); err != nil {
				return nil, err
			}
			e.FsFileEvent = fe
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("wire: Event: skip field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return e, nil
}
