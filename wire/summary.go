// SPDX-License-Identifier: GPL-3.0-or-later

package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// TraceState is the lifecycle state of a trace session (spec §3).
type TraceState uint32

// Known trace states.
const (
	TraceStateRunning  TraceState = 0
	TraceStateComplete TraceState = 1
	TraceStateError    TraceState = 2
)

func (s TraceState) String() string {
	switch s {
	case TraceStateRunning:
		return "running"
	case TraceStateComplete:
		return "complete"
	case TraceStateError:
		return "error"
	default:
		return "unknown"
	}
}

// TraceSummary is the "summary" file persisted alongside every trace
// directory (spec §3, §6). SourceNodePath is root-first, joined with ":"
// on disk exactly like node settings paths (§4.7).
type TraceSummary struct {
	SourceNodePath []string
	QueueCount     uint32
	DurationMs     uint64
	WallClockStart string
	State          TraceState
	Major          uint32
}

// Valid reports whether s satisfies the repository's validity invariant
// (§4.10): non-empty source path, at least one queue, a non-negative
// duration (trivially true for an unsigned field), and a non-empty start
// date.
func (s *TraceSummary) Valid() bool {
	return len(s.SourceNodePath) > 0 && s.QueueCount >= 1 && s.WallClockStart != ""
}

// Marshal encodes s into protobuf wire format.
func (s *TraceSummary) Marshal() []byte {
	var b []byte
	for _, id := range s.SourceNodePath {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendString(b, id)
	}
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(s.QueueCount))
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, s.DurationMs)
	if s.WallClockStart != "" {
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendString(b, s.WallClockStart)
	}
	b = protowire.AppendTag(b, 5, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(s.State))
	b = protowire.AppendTag(b, 6, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(s.Major))
	return b
}

// UnmarshalTraceSummary decodes a [TraceSummary] from protobuf wire format bytes.
func UnmarshalTraceSummary(b []byte) (*TraceSummary, error) {
	s := &TraceSummary{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("wire: TraceSummary: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, fmt.Errorf("wire: TraceSummary.source_node_path: %w", protowire.ParseError(n))
			}
			s.SourceNodePath = append(s.SourceNodePath, v)
			b = b[n:]
		case 2:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("wire: TraceSummary.queue_count: %w", protowire.ParseError(n))
			}
			s.QueueCount = uint32(v)
			b = b[n:]
		case 3:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("wire: TraceSummary.duration_ms: %w", protowire.ParseError(n))
			}
			s.DurationMs = v
			b = b[n:]
		case 4:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, fmt.Errorf("wire: TraceSummary.wall_clock_start: %w", protowire.ParseError(n))
			}
			s.WallClockStart = v
			b = b[n:]
		case 5:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("wire: TraceSummary.state: %w", protowire.ParseError(n))
			}
			s.State = TraceState(v)
			b = b[n:]
		case 6:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("wire: TraceSummary.major: %w", protowire.ParseError(n))
			}
			s.Major = uint32(v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("wire: TraceSummary: skip field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return s, nil
}
