// SPDX-License-Identifier: GPL-3.0-or-later

package rpc

import "errors"

// ErrWaitAlreadyConsumed is returned by [PendingCall.Wait] when called a
// second time on the same call. Per spec §8 scenario 2 and the "wait_for"
// semantics of §5, a timed-out wait does not cancel the remote call; after
// it, [PendingCall.StartCancel] still cancels the call and
// [PendingCall.IsCanceled] still reports cancellation, but the outcome
// cannot be read again. Re-waiting is disallowed rather than silently
// re-blocking on the same completion.
var ErrWaitAlreadyConsumed = errors.New("rpc: pending call result already consumed")

// ErrNoConnection is the failure text/error used when a send is attempted
// with no active [ConnectionContext] (spec §4.6, §8 scenario 2).
var ErrNoConnection = errors.New("rpc: no connection")

// ErrNoSuchNode names the failure of an inbound request whose NodePath does
// not resolve to a registered node (spec §4.5). No function in this
// package returns it: dispatch failures reach the peer as MethodResponse
// error text.
var ErrNoSuchNode = errors.New("rpc: no such node")

// ErrNoSuchInterface names the failure of an inbound request for an
// interface the resolved node does not expose (spec §4.5). No function in
// this package returns it.
var ErrNoSuchInterface = errors.New("rpc: no such interface")

// ErrCannotParseInput names the failure of an inbound request whose
// payload does not decode into the method's expected prototype (spec
// §4.5). No function in this package returns it.
var ErrCannotParseInput = errors.New("rpc: cannot parse input")

// ErrConnectionExpired is returned by send operations issued against a
// [ConnectionContext] that has already transitioned to expired.
var ErrConnectionExpired = errors.New("rpc: connection expired")
