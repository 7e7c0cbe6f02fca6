// SPDX-License-Identifier: GPL-3.0-or-later

package parsedio

import "errors"

// ErrUnsupportedVersion is returned by [NewAssembler] when the trace
// summary's major version is not in the supported set (spec §4.9:
// "reject trace at assembler construction if summary.major is not in
// the supported set").
var ErrUnsupportedVersion = errors.New("parsedio: unsupported trace major version")
