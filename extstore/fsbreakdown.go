// SPDX-License-Identifier: GPL-3.0-or-later

package extstore

import (
	"github.com/bassosimone/octf/parsedio"
	"github.com/bassosimone/octf/wire"
)

const defaultSectorSize = 512

type fsBreakdownState struct {
	viewer     *parsedio.FilesystemViewer
	sectorSize uint64
}

// NewFsBreakdownBuilder returns a [*Builder] that annotates every
// parsed I/O attributed to a file with its extension and sector count
// (spec §3 "Analytics interfaces", grounded on the original
// `FilesystemStatistics`/`FilesystemStatisticsEntry`; see spec §8
// scenario 5). A zero sectorSize uses 512-byte sectors.
func NewFsBreakdownBuilder(w *Writer, viewer *parsedio.FilesystemViewer, sectorSize uint64) *Builder {
	if sectorSize == 0 {
		sectorSize = defaultSectorSize
	}
	b := NewBuilder(w, &fsBreakdownState{viewer: viewer, sectorSize: sectorSize})
	b.Step(func(b *Builder, ev *parsedio.ParsedEvent) bool {
		if ev.FileID == 0 {
			return false
		}
		st := b.State().(*fsBreakdownState)
		sectors := (uint64(ev.Len) + st.sectorSize - 1) / st.sectorSize
		entry := &wire.FsBreakdownEntry{
			FileID:    ev.FileID,
			Extension: st.viewer.Extension(ev.FileID),
			Sectors:   sectors,
		}
		if err := b.Emit(ev.Sid, entry); err != nil {
			return false
		}
		return true
	})
	return b
}

// FsBreakdownTotals aggregates a committed fs-breakdown extension's
// per-event entries into per-extension sector totals. Keys are extensions
// without the leading dot ("log"). Each entry's sector count is its I/O
// length taken as bytes and rounded up to whole sectors, so two writes of
// length 8 to ".log" files total 2 sectors with 512-byte sectors; the
// length is not read as a sector count.
func FsBreakdownTotals(r *Reader) (map[string]uint64, error) {
	totals := make(map[string]uint64)
	for r.HasNext() {
		_, a, err := r.Read()
		if err != nil {
			return nil, err
		}
		entry, err := wire.UnpackFsBreakdownEntry(a)
		if err != nil {
			return nil, err
		}
		totals[entry.Extension] += entry.Sectors
	}
	return totals, nil
}
