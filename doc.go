// SPDX-License-Identifier: GPL-3.0-or-later

// Package octf implements the Open CAS Tracing Framework: a lock-free
// trace ring and pipeline, a node/interface RPC fabric over a local
// AF_UNIX socket, and a trace repository with an extension/cache layer
// for post-processing recorded I/O traces.
//
// # Core Abstraction
//
// The package is built around a single composition interface, kept from
// earlier single-purpose pipeline packages this framework descends from:
//
//	type Func[A, B any] interface {
//		Call(ctx context.Context, input A) (B, error)
//	}
//
// Each Func represents an atomic step with exactly one success mode and
// one failure mode. [Compose2] through [Compose8] chain Funcs into
// pipelines where the compiler verifies that outputs match inputs across
// stages. The rpc package builds its socket pipelines (connect, observe,
// cancel-watch) from this abstraction.
//
// # Package Layout
//
//   - [octf] (this package): [Config], [SLogger], [ErrClassifier],
//     [SpanID], and the Func composition primitives.
//   - wire: protobuf-wire-compatible message encode/decode.
//   - ring: the lock-free MPSC trace ring.
//   - tracepipe: the per-queue trace pipeline and serializer.
//   - framer: length-prefixed packet framing over a stream connection.
//   - rpc: the connection context, pending-call table, RPC proxy, and
//     socket manager that implement the node RPC fabric's transport.
//   - node: node/interface addressing, the node tree, and settings
//     persistence.
//   - repository: the on-disk trace layout and trace cache.
//   - parsedio: the parsed-IO assembler and filesystem viewer.
//   - extstore: the extension store writer/reader/merge-reader and
//     build driver.
//
// # Observability
//
// All components support structured logging via [SLogger] (compatible
// with [log/slog]). By default, logging is disabled. Set a component's
// Logger field to a real [*slog.Logger] to enable it. Error
// classification is configurable via [ErrClassifier]; by default, a
// no-op classifier is used.
//
// Components emit two kinds of structured log events:
//
//   - Span events (*Start/*Done pairs): record operation lifecycle,
//     including timing and success/failure, e.g. socketConnectStart/
//     socketConnectDone, readStart/readDone.
//   - State observations (e.g. connectionExpired, dispatchRequest,
//     convertError): capture internal state transitions for debugging.
//
// Use [NewSpanID] to generate a unique, time-ordered identifier (UUIDv7)
// for each logical operation (a trace session, an RPC call), then attach
// it to the logger with [*slog.Logger.With] so every log entry from that
// operation can be correlated.
//
// # Configuration
//
// [Config] carries directory roots (SocketDir, TracesDir, SettingsDir),
// the [ErrClassifier], [Config.TimeNow], and ring tuning knobs shared
// across components. [NewConfig] returns one with sensible non-path
// defaults; callers must set the directory roots explicitly.
package octf
