// SPDX-License-Identifier: GPL-3.0-or-later

// Package parsedio reconstructs logical I/Os from the raw per-queue event
// streams a trace session writes to disk (spec §4.9): a k-way merge by
// sequence id feeds an assembler that pairs I/O requests with their
// completions, attributes filesystem metadata, and tracks queue depth.
package parsedio
