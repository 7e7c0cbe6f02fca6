// SPDX-License-Identifier: GPL-3.0-or-later

package extstore

import (
	"github.com/bassosimone/octf/parsedio"
)

// StepFunc is one pipeline step an extension builder registers (spec
// §4.11: "an extension builder declares one or more pipeline steps,
// each a function (ParsedEvent) -> bool"). The engine runs each
// registered step as its own independent full pass over the events; a
// step decides whether ev is of interest and, when it is, stages the
// annotation to write via [Builder.Emit] before returning true.
type StepFunc func(b *Builder, ev *parsedio.ParsedEvent) bool

// Builder drives one extension's compute pass (spec §4.11 "build
// driver"). The builder owns whatever accumulation state a concrete
// extension needs; every step registered on it sees that same state
// through the *Builder receiver across all of its passes (decided
// Open Question: extension build-step state sharing).
type Builder struct {
	writer  *Writer
	state   any
	steps   []StepFunc
	emitted uint64
}

// NewBuilder returns a [*Builder] writing into w, carrying state as
// its shared, builder-owned accumulation state (e.g. a histogram's
// bucket edges, a working set's LRU list).
func NewBuilder(w *Writer, state any) *Builder {
	return &Builder{writer: w, state: state}
}

// State returns the builder's shared state, as supplied to
// [NewBuilder]. Concrete builders type-assert it back to their own
// state type.
func (b *Builder) State() any { return b.state }

// Step registers one pipeline step.
func (b *Builder) Step(fn StepFunc) {
	b.steps = append(b.steps, fn)
}

// Emit stages one (sid, annotation) record for the underlying
// extension. Steps call this when they decide an event is of
// interest, immediately before returning true.
func (b *Builder) Emit(sid uint64, annotation packable) error {
	if err := b.writer.Write(sid, annotation); err != nil {
		return err
	}
	b.emitted++
	return nil
}

// Emitted returns the number of records staged so far.
func (b *Builder) Emitted() uint64 { return b.emitted }

// Run executes every registered step, in registration order, as an
// independent full pass over events, then commits the underlying
// extension (spec §4.11: "on finish it calls commit").
func (b *Builder) Run(events []*parsedio.ParsedEvent) error {
	for _, step := range b.steps {
		for _, ev := range events {
			step(b, ev)
		}
	}
	return b.writer.Commit()
}
