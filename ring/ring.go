// SPDX-License-Identifier: GPL-3.0-or-later

package ring

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/bassosimone/octf/wire"
	"github.com/bassosimone/runtimex"
)

// Mode selects whether a [Handle] may push or pop.
type Mode int

// Known modes.
const (
	ModeProducer Mode = iota
	ModeConsumer
)

// Ring is a fixed-capacity byte ring shared by any number of producer
// handles and exactly one consumer handle (§4.1).
type Ring struct {
	capacity        uint32
	wakeupThreshold uint32
	data            []byte

	reserveSeq atomic.Uint64
	commitSeq  atomic.Uint64
	tailSeq    atomic.Uint64

	closed       atomic.Bool
	consumerOpen atomic.Bool

	notify chan struct{}
}

// New creates a [Ring] with the given capacity in bytes. wakeupThreshold is
// the free-space level, in bytes, below which a push signals the consumer;
// zero selects the default of 75% of capacity, matching the design's
// "default 75% of capacity remaining" wakeup point.
func New(capacity uint32, wakeupThreshold uint32) *Ring {
	runtimex.Assert(capacity > 0)
	if wakeupThreshold == 0 || wakeupThreshold > capacity {
		wakeupThreshold = capacity - capacity/4
	}
	return &Ring{
		capacity:        capacity,
		wakeupThreshold: wakeupThreshold,
		data:            make([]byte, capacity),
		notify:          make(chan struct{}, 1),
	}
}

// Open returns a new [Handle] in the given mode. Only one consumer handle
// may be open at a time; opening a second returns [ErrConsumerTaken].
// An unrecognized mode returns [ErrInvalid].
func (r *Ring) Open(mode Mode) (*Handle, error) {
	if mode != ModeProducer && mode != ModeConsumer {
		return nil, ErrInvalid
	}
	if mode == ModeConsumer {
		if !r.consumerOpen.CompareAndSwap(false, true) {
			return nil, ErrConsumerTaken
		}
	}
	return &Handle{ring: r, mode: mode}, nil
}

// Notify returns the channel a consumer worker selects on to wake up: it
// receives a value when a push drops free space below the wakeup
// threshold, and when the ring is closed.
func (r *Ring) Notify() <-chan struct{} {
	return r.notify
}

// Close marks the ring closed: subsequent pushes fail with [ErrClosed] and
// the consumer is signalled so it can drain the remainder and stop
// waiting.
func (r *Ring) Close() error {
	r.closed.Store(true)
	r.signal()
	return nil
}

func (r *Ring) signal() {
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// freeSpace returns the bytes currently unused, computed from the
// published commit point (what the consumer is allowed to see) and the
// consumer's tail, so producers never race ahead of what pop can safely
// read.
func (r *Ring) freeSpace() uint32 {
	commit := r.commitSeq.Load()
	tail := r.tailSeq.Load()
	return r.capacity - uint32(commit-tail)
}

// Handle is a producer or consumer's view of a [Ring].
type Handle struct {
	ring *Ring
	mode Mode
}

// Push encodes payload as a varint-length-prefixed record and appends it
// to the ring. An empty payload is a no-op that returns nil without
// touching the ring (spec §8 boundary behavior). It returns
// [ErrPermission] on a consumer handle, [ErrClosed] if the ring is
// closed, and [ErrNoSpace] if free space is less than the record's total
// size — including a record whose encoded size exceeds the ring's whole
// capacity, which spec §8 also routes through ENOSPC rather than a
// separate "too big" error.
func (h *Handle) Push(payload []byte) error {
	if h.mode != ModeProducer {
		return ErrPermission
	}
	if len(payload) == 0 {
		return nil
	}
	if h.ring.closed.Load() {
		return ErrClosed
	}

	var lenBuf [wire.MaxVarintLen32]byte
	encoded := wire.PutUvarint32(lenBuf[:0], uint32(len(payload)))
	total := uint64(len(encoded) + len(payload))

	for {
		if h.ring.closed.Load() {
			return ErrClosed
		}
		tail := h.ring.tailSeq.Load()
		reserved := h.ring.reserveSeq.Load()
		used := reserved - tail
		free := uint64(h.ring.capacity) - used
		if free < total {
			return ErrNoSpace
		}
		if !h.ring.reserveSeq.CompareAndSwap(reserved, reserved+total) {
			continue
		}

		h.ring.writeAt(reserved, encoded)
		h.ring.writeAt(reserved+uint64(len(encoded)), payload)

		// Publish in reservation order: spin until every earlier
		// reservation has been committed, then advance commitSeq past
		// ours. This is the "release fence" the design calls for:
		// payload bytes are written before commitSeq makes them
		// visible to the consumer.
		for h.ring.commitSeq.Load() != reserved {
			runtime.Gosched()
		}
		h.ring.commitSeq.Store(reserved + total)
		break
	}

	if h.ring.freeSpace() < h.ring.wakeupThreshold {
		h.ring.signal()
	}
	return nil
}

// Pop reads the next record into dst, returning the number of bytes
// written (0 if the ring is empty). It returns [ErrPermission] on a
// producer handle and [ErrShortBuffer] if dst is too small for the next
// record.
func (h *Handle) Pop(dst []byte) (int, error) {
	if h.mode != ModeConsumer {
		return 0, ErrPermission
	}

	tail := h.ring.tailSeq.Load()
	commit := h.ring.commitSeq.Load()
	if commit == tail {
		return 0, nil
	}

	peekLen := wire.MaxVarintLen32
	if avail := commit - tail; avail < uint64(peekLen) {
		peekLen = int(avail)
	}
	peek := h.ring.readAt(tail, peekLen)
	n, consumed, err := wire.ReadUvarint32(peek)
	if err != nil {
		return 0, fmt.Errorf("ring: corrupt record header: %w", err)
	}
	if int(n) > len(dst) {
		return 0, ErrShortBuffer
	}

	payloadStart := tail + uint64(consumed)
	copy(dst, h.ring.readAt(payloadStart, int(n)))
	h.ring.tailSeq.Store(payloadStart + uint64(n))
	return int(n), nil
}

// FreeSpace returns the bytes currently free, monotone up to the ring's
// capacity.
func (h *Handle) FreeSpace() uint32 {
	return h.ring.freeSpace()
}

// Close releases the handle. Closing a consumer handle allows a future
// Open(ModeConsumer) to succeed; it does not close the underlying ring.
func (h *Handle) Close() error {
	if h.mode == ModeConsumer {
		h.ring.consumerOpen.Store(false)
	}
	return nil
}

// writeAt writes b at logical position pos, wrapping around the physical
// buffer as needed.
func (r *Ring) writeAt(pos uint64, b []byte) {
	off := int(pos % uint64(r.capacity))
	n := copy(r.data[off:], b)
	if n < len(b) {
		copy(r.data[:], b[n:])
	}
}

// readAt returns n bytes starting at logical position pos, copying into a
// fresh slice when the read wraps around the physical buffer.
func (r *Ring) readAt(pos uint64, n int) []byte {
	off := int(pos % uint64(r.capacity))
	if off+n <= len(r.data) {
		return r.data[off : off+n]
	}
	out := make([]byte, n)
	k := copy(out, r.data[off:])
	copy(out[k:], r.data[:n-k])
	return out
}
