// SPDX-License-Identifier: GPL-3.0-or-later

package framer

import "errors"

// ErrHeaderParse indicates a packet header did not match the "PKT:<len>\n"
// grammar. The connection must be closed; there is no way to resynchronize.
var ErrHeaderParse = errors.New("framer: malformed packet header")

// ErrPayloadTooLarge indicates a packet header or an outgoing payload
// exceeds [MaxPayloadSize].
var ErrPayloadTooLarge = errors.New("framer: payload exceeds maximum size")
