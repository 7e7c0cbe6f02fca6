// SPDX-License-Identifier: GPL-3.0-or-later

// Package framer implements the length-prefixed packet framing used by the
// RPC transport (spec §4.4): one bidirectional stream carries discrete
// [wire.Packet] messages, each announced by a fixed-grammar ASCII header
// "PKT:<decimal-length>\n" followed by exactly that many payload bytes.
//
// The header grammar lets a reader detect desynchronization immediately —
// any header that doesn't parse is a protocol error and the connection
// must be closed, never resynchronized. [Framer] itself holds no lock:
// the owning connection is the unit of send atomicity (spec §4.4), so
// callers that share a [Framer] across goroutines must serialize writes
// themselves, exactly as [rpc.ConnectionContext] does with its own mutex.
package framer
