// SPDX-License-Identifier: GPL-3.0-or-later

package rpc

import (
	"context"
	"sync"

	"github.com/bassosimone/octf/wire"
)

// Dispatcher resolves an inbound [wire.MethodRequest] to a node/interface/
// method and invokes it (spec §4.5: "Resolve target Node by walking the
// NodePath... Look up interface by id... Deserialize request... Invoke the
// interface's method").
//
// Implementations live in the node tree package, kept decoupled from rpc
// so ConnectionContext does not import the node tree directly; a
// ConnectionContext is handed a Dispatcher at construction time.
type Dispatcher interface {
	// Dispatch invokes the method named by req and returns its result.
	// success is false, and errText set, for any of "No such node",
	// "No such interface", "Cannot parse input", or a method-level
	// failure. ctl lets the implementation observe cancellation of the
	// call at its own safe points.
	Dispatch(ctx context.Context, req *wire.MethodRequest, ctl *CallController) (response []byte, success bool, errText string)
}

// CallController is the server-side handle for one inflight request,
// keyed by sequence id in a [ConnectionContext]'s inflight table (spec
// §4.5). An inbound Cancel packet sets Cancelled; the dispatched method is
// expected to poll [CallController.IsCanceled] at its own safe points.
type CallController struct {
	SequenceID uint64

	mu        sync.Mutex
	cancelled bool
}

// newCallController returns a [*CallController] for the given sequence id.
func newCallController(sid uint64) *CallController {
	return &CallController{SequenceID: sid}
}

// cancel marks the controller cancelled. Idempotent.
func (c *CallController) cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelled = true
}

// IsCanceled reports whether the peer has requested cancellation of this
// call. Method implementations should check this at safe points and
// return early when true.
func (c *CallController) IsCanceled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}
