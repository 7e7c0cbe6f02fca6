// SPDX-License-Identifier: GPL-3.0-or-later

package tracepipe

import "errors"

// ErrAlreadyActive is returned by [Session.StartTrace] when a trace
// session is already running.
var ErrAlreadyActive = errors.New("tracepipe: session already active")

// ErrNoActiveSession is returned by [Session.StopTrace] when no trace
// session is currently running.
var ErrNoActiveSession = errors.New("tracepipe: no active session")

// ErrNoSuchQueue is returned by [Session.PushTrace] for a queue id outside
// the range configured by [Session.StartTrace], or when no trace session
// is currently running.
var ErrNoSuchQueue = errors.New("tracepipe: no such queue")
