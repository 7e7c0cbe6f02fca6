// SPDX-License-Identifier: GPL-3.0-or-later

package ring

import "errors"

// Sentinel errors returned by [Ring.Open], [Handle.Push] and [Handle.Pop], named after
// the POSIX errno a C producer would see from the original ring.
var (
	// ErrInvalid is returned by [Ring.Open] for a malformed (unrecognized)
	// [Mode] value.
	ErrInvalid = errors.New("ring: EINVAL")

	// ErrPermission is returned when a consumer handle attempts to push,
	// or a producer handle attempts to pop.
	ErrPermission = errors.New("ring: EPERM")

	// ErrNoSpace is returned when free space is less than the record
	// being pushed.
	ErrNoSpace = errors.New("ring: ENOSPC")

	// ErrClosed is returned by Push once the ring has been closed.
	ErrClosed = errors.New("ring: closed")

	// ErrShortBuffer is returned by Pop when the caller-provided buffer
	// is too small to hold the next record.
	ErrShortBuffer = errors.New("ring: short buffer")

	// ErrConsumerTaken is returned by Open when a consumer handle is
	// already open; a ring has exactly one consumer by contract.
	ErrConsumerTaken = errors.New("ring: consumer handle already open")
)
