// SPDX-License-Identifier: GPL-3.0-or-later

package rpc

import (
	"context"
	"sync"
)

// PendingCall tracks one outstanding client method call on a
// [ConnectionContext] (spec §4.5: "client-side pending-call table maps
// sequence id → pending call").
//
// A PendingCall completes exactly once, either by a matching
// MethodResponse arriving over the wire, by [PendingCall.StartCancel], or
// by its owning connection expiring (spec §8 scenario 2: "done invoked
// exactly once"). [PendingCall.Wait] may be called at most once; a second
// call returns [ErrWaitAlreadyConsumed] (see that error's doc for why).
type PendingCall struct {
	// SequenceID is the sequence id this call was assigned when sent.
	SequenceID uint64

	mu       sync.Mutex
	waited   bool
	done     chan struct{}
	response []byte
	failed   bool
	errText  string
	canceled bool
}

// newPendingCall returns a [*PendingCall] for the given sequence id.
func newPendingCall(sid uint64) *PendingCall {
	return &PendingCall{SequenceID: sid, done: make(chan struct{})}
}

// complete records a MethodResponse outcome. It is a no-op if the call
// has already completed (by an earlier response, cancellation, or
// connection expiry).
func (c *PendingCall) complete(response []byte, failed bool, errText string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.done:
		return
	default:
	}
	c.response = response
	c.failed = failed
	c.errText = errText
	close(c.done)
}

// StartCancel fails the call immediately with IsCanceled=true. Per spec
// §4.5/§5, this takes effect locally right away regardless of whether the
// peer has already replied or will reply later; a subsequent matching
// MethodResponse is simply dropped by the connection's dispatch table.
// Calling StartCancel on an already-completed call is a no-op (spec §5:
// "start_cancel on a call that has already completed is a no-op").
func (c *PendingCall) StartCancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.done:
		return
	default:
	}
	c.failed = true
	c.errText = "cancelled"
	c.canceled = true
	close(c.done)
}

// Wait blocks until the call completes or ctx is done, whichever happens
// first. On success it returns the raw response bytes. On a call-level
// failure (remote error, cancellation, or connection loss) it returns
// failed=true with errText and canceled set accordingly, and a nil error.
// If ctx is done before the call completes, it returns a nil response and
// ctx.Err(); per spec §5 this does NOT cancel the remote call — callers
// that want that must invoke [PendingCall.StartCancel] explicitly.
//
// Wait may be called only once per PendingCall; a second call returns
// [ErrWaitAlreadyConsumed] without blocking.
func (c *PendingCall) Wait(ctx context.Context) (response []byte, failed bool, errText string, canceled bool, err error) {
	c.mu.Lock()
	if c.waited {
		c.mu.Unlock()
		return nil, false, "", false, ErrWaitAlreadyConsumed
	}
	c.waited = true
	c.mu.Unlock()

	select {
	case <-c.done:
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.response, c.failed, c.errText, c.canceled, nil
	case <-ctx.Done():
		return nil, false, "", false, ctx.Err()
	}
}

// IsCanceled reports whether the call was cancelled locally via
// [PendingCall.StartCancel]. It is safe to call at any time.
func (c *PendingCall) IsCanceled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canceled
}
