// SPDX-License-Identifier: GPL-3.0-or-later

package tracepipe

import (
	"os"
	"sync"

	"github.com/bassosimone/octf/wire"
	"golang.org/x/sys/unix"
)

// windowPages is the number of OS pages mapped per window growth step
// (spec §4.3: "ftruncate/remap to the next aligned window (page-size
// multiple)").
const windowPages = 64

// marshaler is satisfied by every wire message type ([wire.Event],
// [wire.TraceSummary], ...).
type marshaler interface {
	Marshal() []byte
}

// OpenSerializer creates (truncating any existing file) an append-only
// protobuf stream at path, backed by an mmap'ed window (spec §4.3).
func OpenSerializer(path string) (*Serializer, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	s := &Serializer{f: f, windowSize: uint64(os.Getpagesize() * windowPages)}
	if err := s.growTo(s.windowSize); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

// Serializer is an append-only protobuf record stream backed by an
// mmap'ed file window that grows as records are written (spec §4.3).
type Serializer struct {
	mu         sync.Mutex
	f          *os.File
	mapping    []byte
	windowSize uint64
	capacity   uint64
	written    uint64
	closed     bool
}

// WriteMessage encodes msg and appends it as a length-prefixed record.
func (s *Serializer) WriteMessage(msg marshaler) error {
	return s.WriteBytes(msg.Marshal())
}

// WriteBytes appends blob as a length-prefixed record: a 32-bit varint of
// len(blob), then blob itself (spec §4.3).
func (s *Serializer) WriteBytes(blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return os.ErrClosed
	}

	var lenBuf [wire.MaxVarintLen32]byte
	encoded := wire.PutUvarint32(lenBuf[:0], uint32(len(blob)))
	total := uint64(len(encoded) + len(blob))

	if err := s.ensureCapacityLocked(total); err != nil {
		return err
	}
	n := copy(s.mapping[s.written:], encoded)
	copy(s.mapping[s.written+uint64(n):], blob)
	s.written += total
	return nil
}

// BytesWritten returns the number of record bytes appended so far
// (header+payload), not counting unused mapped window space.
func (s *Serializer) BytesWritten() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

// Close truncates the file to the exact number of bytes written and
// releases the mapping. Close is idempotent.
func (s *Serializer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var err error
	if s.mapping != nil {
		err = unix.Munmap(s.mapping)
		s.mapping = nil
	}
	if terr := s.f.Truncate(int64(s.written)); err == nil {
		err = terr
	}
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// ensureCapacityLocked grows the mapped window, in windowSize-aligned
// steps, until it can hold s.written+extra bytes. Called with s.mu held.
func (s *Serializer) ensureCapacityLocked(extra uint64) error {
	need := s.written + extra
	if need <= s.capacity {
		return nil
	}
	newCap := s.capacity
	for newCap < need {
		newCap += s.windowSize
	}
	return s.growTo(newCap)
}

// growTo remaps the file at the new capacity, ftruncate-ing it first
// (spec §4.3: "on window exhaustion, ftruncate/remap to the next aligned
// window"). Called with s.mu held.
func (s *Serializer) growTo(capacity uint64) error {
	if s.mapping != nil {
		if err := unix.Munmap(s.mapping); err != nil {
			return err
		}
		s.mapping = nil
	}
	if err := unix.Ftruncate(int(s.f.Fd()), int64(capacity)); err != nil {
		return err
	}
	m, err := unix.Mmap(int(s.f.Fd()), 0, int(capacity), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return err
	}
	s.mapping = m
	s.capacity = capacity
	return nil
}
