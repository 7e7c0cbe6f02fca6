// SPDX-License-Identifier: GPL-3.0-or-later

// Package repository enumerates, opens, and removes traces on disk
// (spec §4.10) and provides the per-trace key/value [TraceCache]
// side-car file. A trace is a directory under the configured traces
// root holding a "summary" file plus per-queue event streams written by
// package tracepipe.
package repository
