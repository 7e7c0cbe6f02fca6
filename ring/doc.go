// SPDX-License-Identifier: GPL-3.0-or-later

// Package ring implements a bounded, lossy, multi-producer/single-consumer
// byte ring used to hand raw trace records off from instrumented producer
// goroutines to one consumer worker without blocking the producers.
//
// A [Ring] owns a single contiguous byte buffer and three logical,
// ever-increasing sequence counters that play the role of the original
// header's "producer head offset" / "consumer tail offset" (reduced mod
// capacity to find the physical slot): reserveSeq (claimed by producers via
// compare-and-swap), commitSeq (advanced once a producer's write is fully
// visible, in reservation order), and tailSeq (advanced by the single
// consumer). Using unbounded counters instead of wrapped offsets avoids the
// ABA problem a literal wrapped head/tail pair would have under
// compare-and-swap, at the cost of 64 bits of header state instead of 32;
// this package isn't shared across process boundaries, so there is no
// on-disk or wire format to keep compact.
//
// Each record is length-prefixed with [wire.PutUvarint32], the same 32-bit
// varint encoding the tracepipe Serializer uses, so the ring's
// producer-side framing and the on-disk stream share one varint
// implementation.
package ring
