// SPDX-License-Identifier: GPL-3.0-or-later

package framer

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bassosimone/octf/wire"
)

// MaxPayloadSize is the hard limit on a single packet's payload, per
// spec §4.4/§6: a request exceeding this is a protocol error.
const MaxPayloadSize = 32 * 1024 * 1024

// headerPrefix is the fixed prefix of the header every packet is announced with.
const headerPrefix = "PKT:"

// Framer reads and writes [wire.Packet] values framed with the
// "PKT:<decimal-length>\n" header grammar over an [io.ReadWriter].
//
// Framer holds no internal lock: per spec §4.4, the connection — not the
// framer — is the unit of send atomicity. Callers sharing one Framer
// across goroutines must serialize WritePacket calls themselves.
type Framer struct {
	r *bufio.Reader
	w io.Writer
}

// New returns a [*Framer] reading and writing through rw.
func New(rw io.ReadWriter) *Framer {
	return &Framer{r: bufio.NewReader(rw), w: rw}
}

// ReadPacket blocks until it has read one full header-plus-payload frame
// and decoded it into a [wire.Packet]. It returns [ErrHeaderParse] if the
// header doesn't match the expected grammar, and [ErrPayloadTooLarge] if
// the announced length exceeds [MaxPayloadSize]. Any returned error other
// than a normal EOF is a protocol error: the caller must close the
// connection rather than attempt to resynchronize.
func (f *Framer) ReadPacket() (*wire.Packet, error) {
	line, err := f.r.ReadString('\n')
	if err != nil {
		return nil, err
	}
	length, err := parseHeader(line)
	if err != nil {
		return nil, err
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(f.r, payload); err != nil {
		return nil, err
	}
	p, err := wire.UnmarshalPacket(payload)
	if err != nil {
		return nil, fmt.Errorf("framer: decode payload: %w", err)
	}
	return p, nil
}

// WritePacket marshals p and writes the header and payload as a single
// Write call. It returns [ErrPayloadTooLarge] if the marshaled payload
// exceeds [MaxPayloadSize].
func (f *Framer) WritePacket(p *wire.Packet) error {
	payload := p.Marshal()
	if len(payload) > MaxPayloadSize {
		return ErrPayloadTooLarge
	}
	header := fmt.Sprintf("%s%d\n", headerPrefix, len(payload))
	buf := make([]byte, 0, len(header)+len(payload))
	buf = append(buf, header...)
	buf = append(buf, payload...)
	_, err := f.w.Write(buf)
	return err
}

// parseHeader parses a "PKT:<decimal-length>\n" line into its length.
func parseHeader(line string) (int, error) {
	if !strings.HasSuffix(line, "\n") {
		return 0, ErrHeaderParse
	}
	line = strings.TrimSuffix(line, "\n")
	rest, ok := strings.CutPrefix(line, headerPrefix)
	if !ok {
		return 0, ErrHeaderParse
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, ErrHeaderParse
	}
	if n > MaxPayloadSize {
		return 0, ErrPayloadTooLarge
	}
	return n, nil
}
