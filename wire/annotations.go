// SPDX-License-Identifier: GPL-3.0-or-later

package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// LatencyBucket is one histogram-builder annotation: the bucket a
// parsed I/O's latency fell into, plus the I/O's own latency for
// exact re-aggregation (spec §3 "Analytics interfaces": a histogram
// builder over parsed I/O latency).
type LatencyBucket struct {
	BucketIndex uint32
	LatencyNs   uint64
}

// PackAny packs b as an [Any] with type URL "octf.LatencyBucket".
func (b *LatencyBucket) PackAny() *Any {
	var buf []byte
	buf = protowire.AppendTag(buf, 1, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(b.BucketIndex))
	buf = protowire.AppendTag(buf, 2, protowire.VarintType)
	buf = protowire.AppendVarint(buf, b.LatencyNs)
	return &Any{TypeURL: "octf.LatencyBucket", Value: buf}
}

// UnpackLatencyBucket unpacks a [LatencyBucket] previously packed by
// [LatencyBucket.PackAny].
func UnpackLatencyBucket(a *Any) (*LatencyBucket, error) {
	out := &LatencyBucket{}
	if err := unmarshalFields(a.Value, map[uint32]func([]byte) (int, error){
		1: varintInto(func(v uint64) { out.BucketIndex = uint32(v) }),
		2: varintInto(func(v uint64) { out.LatencyNs = v }),
	}); err != nil {
		return nil, fmt.Errorf("wire: LatencyBucket: %w", err)
	}
	return out, nil
}

// FsBreakdownEntry is one filesystem-breakdown-builder annotation: the
// file a parsed I/O was attributed to, its extension (without the
// leading dot), and the number of sectors it moved, which the
// fs-breakdown builder computes as the I/O length in bytes rounded up
// to whole sectors (spec §3).
type FsBreakdownEntry struct {
	FileID    uint64
	Extension string
	Sectors   uint64
}

// PackAny packs e as an [Any] with type URL "octf.FsBreakdownEntry".
func (e *FsBreakdownEntry) PackAny() *Any {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, e.FileID)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendString(b, e.Extension)
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, e.Sectors)
	return &Any{TypeURL: "octf.FsBreakdownEntry", Value: b}
}

// UnpackFsBreakdownEntry unpacks an [FsBreakdownEntry] previously
// packed by [FsBreakdownEntry.PackAny].
func UnpackFsBreakdownEntry(a *Any) (*FsBreakdownEntry, error) {
	out := &FsBreakdownEntry{}
	if err := unmarshalFields(a.Value, map[uint32]func([]byte) (int, error){
		1: varintInto(func(v uint64) { out.FileID = v }),
		2: stringInto(func(v string) { out.Extension = v }),
		3: varintInto(func(v uint64) { out.Sectors = v }),
	}); err != nil {
		return nil, fmt.Errorf("wire: FsBreakdownEntry: %w", err)
	}
	return out, nil
}

// WorksetHit is one working-set/LRU-calculator annotation: whether the
// I/O's LBA range was already resident in the simulated cache (spec
// §3 "Analytics interfaces": a working-set/LRU hit-ratio calculator).
type WorksetHit struct {
	Hit bool
}

// PackAny packs h as an [Any] with type URL "octf.WorksetHit".
func (h *WorksetHit) PackAny() *Any {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, boolToVarint(h.Hit))
	return &Any{TypeURL: "octf.WorksetHit", Value: b}
}

// UnpackWorksetHit unpacks a [WorksetHit] previously packed by
// [WorksetHit.PackAny].
func UnpackWorksetHit(a *Any) (*WorksetHit, error) {
	out := &WorksetHit{}
	if err := unmarshalFields(a.Value, map[uint32]func([]byte) (int, error){
		1: boolInto(func(v bool) { out.Hit = v }),
	}); err != nil {
		return nil, fmt.Errorf("wire: WorksetHit: %w", err)
	}
	return out, nil
}

func boolToVarint(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}
