// SPDX-License-Identifier: GPL-3.0-or-later

package repository

import "errors"

// ErrInvalidSummary is returned by [Repository.Get] when a trace's
// summary file fails [wire.TraceSummary.Valid] (spec §4.10).
var ErrInvalidSummary = errors.New("repository: invalid trace summary")

// ErrNotTerminal is returned by [Repository.Remove] when the trace's
// state is not complete/error and force was not set.
var ErrNotTerminal = errors.New("repository: trace is not in a terminal state")

// ErrInvalidPath is returned when a trace path argument escapes the
// traces root or is otherwise malformed.
var ErrInvalidPath = errors.New("repository: invalid trace path")

// ErrKeyNotFound is returned by [TraceCache.Read] when no entry matches
// the given key.
var ErrKeyNotFound = errors.New("repository: cache key not found")
