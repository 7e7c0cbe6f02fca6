// SPDX-License-Identifier: GPL-3.0-or-later

package tracepipe

import "github.com/bassosimone/octf/wire"

// TraceExecutor is the external collaborator a [Session] consults for
// queue topology, the record [Converter] to use, and per-queue CPU
// affinity (spec §4.2: "ask the TraceExecutor for queue count and a
// Converter").
type TraceExecutor interface {
	// QueueCount returns the number of queues to trace, used when
	// [Session.StartTrace] is called with queueCount == 0.
	QueueCount() (uint32, error)

	// Converter returns the record converter shared by every queue
	// worker in the session.
	Converter() Converter

	// CPUAffinity returns the CPU indices a queue's worker should be
	// pinned to (round-robin assigned if more queues than CPUs), or nil
	// for no affinity.
	CPUAffinity(queueID uint32) []int
}

// Converter turns one opaque producer record into a typed [wire.Event].
// A conversion failure drops the record; it never aborts the pipeline
// (spec §4.2: "a converter error on a single record is logged and that
// record is dropped").
type Converter interface {
	Convert(raw []byte) (*wire.Event, error)
}

// ConverterFunc adapts a function to [Converter].
type ConverterFunc func(raw []byte) (*wire.Event, error)

// Convert implements [Converter].
func (f ConverterFunc) Convert(raw []byte) (*wire.Event, error) {
	return f(raw)
}
