// SPDX-License-Identifier: GPL-3.0-or-later

// Package extstore implements the Extension Store (spec §4.11):
// compute-once, read-many side-car streams of per-event annotations
// produced by extension builders. Each extension is a single
// "octf.ext.<name>" file holding a small header followed by a
// varint-length-delimited stream of (sid, annotation) records, the
// same framing idiom the trace queue files use.
package extstore
