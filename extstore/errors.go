// SPDX-License-Identifier: GPL-3.0-or-later

package extstore

import "errors"

// ErrNonDecreasingSid is returned by [Writer.Write] when the caller
// supplies a sid smaller than one already written, violating spec
// §4.11's writer invariant.
var ErrNonDecreasingSid = errors.New("extstore: sid must be non-decreasing")

// ErrWriterClosed is returned by [Writer.Write] after [Writer.Commit]
// or [Writer.Abandon] has already run.
var ErrWriterClosed = errors.New("extstore: writer already committed or abandoned")
