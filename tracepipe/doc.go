// SPDX-License-Identifier: GPL-3.0-or-later

// Package tracepipe implements the per-queue trace pipeline and the
// append-only Serializer that backs it (spec §4.2, §4.3): one Session
// owns one Ring per traced queue, a worker per queue converts raw
// producer bytes into typed events, stamps them with a global sequence
// id, and serializes them to disk.
package tracepipe
