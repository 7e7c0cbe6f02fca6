// SPDX-License-Identifier: GPL-3.0-or-later

package extstore

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bassosimone/octf/wire"
)

// Reader is the read-many side of one extension file (spec §4.11
// reader contract): [Reader.HasNext], [Reader.PeekNextSid],
// [Reader.Read], strictly increasing sid.
type Reader struct {
	name   string
	header *wire.ExtensionHeader
	f      *os.File
	r      *bufio.Reader
	next   *wire.ExtensionRecord
	atEOF  bool
}

// OpenReader opens the extension named name under dir for reading.
func OpenReader(dir, name string) (*Reader, error) {
	path := filepath.Join(dir, extFileName(name))
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := bufio.NewReader(f)
	hdrBlob, err := readFramed(r)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("extstore: read header: %w", err)
	}
	hdr, err := wire.UnmarshalExtensionHeader(hdrBlob)
	if err != nil {
		f.Close()
		return nil, err
	}
	rd := &Reader{name: name, header: hdr, f: f, r: r}
	if err := rd.advance(); err != nil && err != io.EOF {
		f.Close()
		return nil, err
	}
	return rd, nil
}

// Name returns the extension's name.
func (rd *Reader) Name() string { return rd.name }

// Header returns the extension's header (sid range, entry count).
func (rd *Reader) Header() *wire.ExtensionHeader { return rd.header }

// HasNext reports whether [Reader.Read] has another record to return.
func (rd *Reader) HasNext() bool { return rd.next != nil }

// PeekNextSid returns the sid of the next unread record without
// consuming it, and false if the stream is exhausted.
func (rd *Reader) PeekNextSid() (uint64, bool) {
	if rd.next == nil {
		return 0, false
	}
	return rd.next.Sid, true
}

// Read returns the next (sid, annotation) record, or [io.EOF] once
// exhausted.
func (rd *Reader) Read() (uint64, *wire.Any, error) {
	if rd.next == nil {
		return 0, nil, io.EOF
	}
	rec := rd.next
	if err := rd.advance(); err != nil && err != io.EOF {
		return 0, nil, err
	}
	return rec.Sid, rec.Annotation, nil
}

func (rd *Reader) advance() error {
	blob, err := readFramed(rd.r)
	if err == io.EOF {
		rd.next = nil
		return io.EOF
	}
	if err != nil {
		return err
	}
	rec, err := wire.UnmarshalExtensionRecord(blob)
	if err != nil {
		return err
	}
	rd.next = rec
	return nil
}

// Close releases the underlying file handle.
func (rd *Reader) Close() error {
	return rd.f.Close()
}
