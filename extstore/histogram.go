// SPDX-License-Identifier: GPL-3.0-or-later

package extstore

import (
	"github.com/bassosimone/octf/parsedio"
	"github.com/bassosimone/octf/wire"
)

// DefaultHistogramEdges are the latency histogram's default bucket
// upper bounds, in nanoseconds (1us, 10us, 100us, 1ms, 10ms, 100ms,
// 1s); anything at or above the last edge falls into the final,
// unbounded bucket.
var DefaultHistogramEdges = []uint64{
	1_000, 10_000, 100_000, 1_000_000, 10_000_000, 100_000_000, 1_000_000_000,
}

type histogramState struct {
	edges []uint64
}

func bucketFor(edges []uint64, latencyNs uint64) uint32 {
	for i, edge := range edges {
		if latencyNs < edge {
			return uint32(i)
		}
	}
	return uint32(len(edges))
}

// NewHistogramBuilder returns a [*Builder] that annotates every
// completed parsed I/O with its latency histogram bucket (spec §3
// "Analytics interfaces": a histogram builder over parsed I/O
// latency). A nil edges uses [DefaultHistogramEdges].
func NewHistogramBuilder(w *Writer, edges []uint64) *Builder {
	if edges == nil {
		edges = DefaultHistogramEdges
	}
	b := NewBuilder(w, &histogramState{edges: edges})
	b.Step(func(b *Builder, ev *parsedio.ParsedEvent) bool {
		if !ev.HasLatency {
			return false
		}
		st := b.State().(*histogramState)
		bucket := bucketFor(st.edges, ev.LatencyNs)
		if err := b.Emit(ev.Sid, &wire.LatencyBucket{BucketIndex: bucket, LatencyNs: ev.LatencyNs}); err != nil {
			return false
		}
		return true
	})
	return b
}

// HistogramCounts aggregates a committed latency-histogram extension's
// per-event entries into per-bucket occurrence counts.
func HistogramCounts(r *Reader, bucketCount int) ([]uint64, error) {
	counts := make([]uint64, bucketCount)
	for r.HasNext() {
		_, a, err := r.Read()
		if err != nil {
			return nil, err
		}
		bucket, err := wire.UnpackLatencyBucket(a)
		if err != nil {
			return nil, err
		}
		if int(bucket.BucketIndex) < len(counts) {
			counts[bucket.BucketIndex]++
		}
	}
	return counts, nil
}
