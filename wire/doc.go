// SPDX-License-Identifier: GPL-3.0-or-later

// Package wire implements the protobuf-wire-compatible message types and
// codec primitives shared by the rest of the octf module: trace [Event]s,
// the [TraceSummary] descriptor, the RPC [Packet] envelope, trace-cache
// entries, and extension side-car records.
//
// Messages are encoded directly against the protobuf wire format using
// [google.golang.org/protobuf/encoding/protowire] rather than generated
// proto.Message types, since this environment has no protoc toolchain to
// verify generated code against. Every Marshal/Unmarshal pair round-trips
// through the same tag/varint/length-delimited primitives a protoc-gen-go
// output would use, so the bytes on disk and on the wire remain standard
// protobuf.
package wire
