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

func extFileName(name string) string {
	return "octf.ext." + name
}

// packable is any annotation message that can pack itself into a
// [wire.Any] for storage in an extension record.
type packable interface {
	PackAny() *wire.Any
}

// readHeader returns the [wire.ExtensionHeader] at the start of the
// extension file at path, or an error satisfying [os.IsNotExist] if no
// such file exists yet.
func readHeader(path string) (*wire.ExtensionHeader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	blob, err := readFramed(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("extstore: read header: %w", err)
	}
	return wire.UnmarshalExtensionHeader(blob)
}

// Open returns a fresh [*Writer] for the extension name under dir,
// unless an existing, non-stale extension already covers the trace
// (spec §4.11: "if the extension already exists and is not stale,
// skip the compute"). Staleness is "does the existing extension's
// recorded max sid already reach the trace's current max sid" — when
// it does, skip is true and the returned writer is nil.
func Open(dir, name string, traceMaxSid uint64) (w *Writer, skip bool, err error) {
	finalPath := filepath.Join(dir, extFileName(name))
	if hdr, err := readHeader(finalPath); err == nil {
		if hdr.MaxSid >= traceMaxSid {
			return nil, true, nil
		}
	} else if !os.IsNotExist(err) {
		return nil, false, err
	}

	body, err := os.CreateTemp(dir, ".octf.ext-"+name+"-body-*")
	if err != nil {
		return nil, false, fmt.Errorf("extstore: create body temp file: %w", err)
	}
	return &Writer{finalPath: finalPath, bodyPath: body.Name(), body: body, name: name}, false, nil
}

// Writer is a one-shot extension builder output stream: [Writer.Write]
// appends records to a temp body file; [Writer.Commit] finalizes the
// header and renames into place; [Writer.Abandon] discards everything
// written so far (spec §4.11 writer contract).
type Writer struct {
	finalPath string
	bodyPath  string
	body      *os.File
	name      string

	minSid, maxSid uint64
	hasAny         bool
	count          uint64
	closed         bool
}

// Write appends one (sid, annotation) record. sid must be
// non-decreasing across calls (spec §4.11 writer invariant).
func (w *Writer) Write(sid uint64, annotation packable) error {
	if w.closed {
		return ErrWriterClosed
	}
	if w.hasAny && sid < w.maxSid {
		return fmt.Errorf("%w: got %d after %d", ErrNonDecreasingSid, sid, w.maxSid)
	}
	rec := &wire.ExtensionRecord{Sid: sid, Annotation: annotation.PackAny()}
	if err := writeFramed(w.body, rec.Marshal()); err != nil {
		return err
	}
	if !w.hasAny {
		w.minSid = sid
		w.hasAny = true
	}
	w.maxSid = sid
	w.count++
	return nil
}

// Commit finalizes the extension: writes the header, appends the
// buffered body, and atomically renames into place.
func (w *Writer) Commit() error {
	if w.closed {
		return ErrWriterClosed
	}
	w.closed = true
	if err := w.body.Close(); err != nil {
		return fmt.Errorf("extstore: close body file: %w", err)
	}
	defer os.Remove(w.bodyPath)

	tmp, err := os.CreateTemp(filepath.Dir(w.finalPath), ".octf.ext-"+w.name+"-final-*")
	if err != nil {
		return fmt.Errorf("extstore: create final temp file: %w", err)
	}
	tmpPath := tmp.Name()

	hdr := &wire.ExtensionHeader{Name: w.name, MinSid: w.minSid, MaxSid: w.maxSid, Count: w.count}
	if err := writeFramed(tmp, hdr.Marshal()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}

	body, err := os.Open(w.bodyPath)
	if err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("extstore: reopen body file: %w", err)
	}
	_, copyErr := io.Copy(tmp, body)
	body.Close()
	if copyErr != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("extstore: copy body into final file: %w", copyErr)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("extstore: close final temp file: %w", err)
	}
	if err := os.Rename(tmpPath, w.finalPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("extstore: rename final file: %w", err)
	}
	return nil
}

// Abandon discards the writer's buffered body without producing an
// extension file.
func (w *Writer) Abandon() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.body.Close()
	return os.Remove(w.bodyPath)
}
