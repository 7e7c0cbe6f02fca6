// SPDX-License-Identifier: GPL-3.0-or-later

package extstore

import (
	"container/heap"
	"io"

	"github.com/bassosimone/octf/wire"
)

// mergeItem is one reader's current unread head, ordered by sid with
// ties broken by extension name (spec §4.11: "a min-heap keyed by next
// sid, breaking ties by extension name").
type mergeItem struct {
	reader *Reader
	sid    uint64
}

type mergeHeap []*mergeItem

func (h mergeHeap) Len() int { return len(h) }
func (h mergeHeap) Less(i, j int) bool {
	if h[i].sid != h[j].sid {
		return h[i].sid < h[j].sid
	}
	return h[i].reader.Name() < h[j].reader.Name()
}
func (h mergeHeap) Swap(i, j int)   { h[i], h[j] = h[j], h[i] }
func (h *mergeHeap) Push(x any)     { *h = append(*h, x.(*mergeItem)) }
func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// MergeReader merges several extensions' record streams into one,
// ordered by sid (spec §4.11: "multi-extension read is provided by a
// merging reader").
type MergeReader struct {
	readers []*Reader
	h       mergeHeap
}

// NewMergeReader builds a [*MergeReader] over readers. It takes
// ownership of readers; [MergeReader.Close] closes all of them.
func NewMergeReader(readers []*Reader) *MergeReader {
	m := &MergeReader{readers: readers}
	for _, r := range readers {
		if sid, ok := r.PeekNextSid(); ok {
			m.h = append(m.h, &mergeItem{reader: r, sid: sid})
		}
	}
	heap.Init(&m.h)
	return m
}

// MergedRecord is one record yielded by [MergeReader.Next], tagged
// with the extension it came from.
type MergedRecord struct {
	Extension string
	Sid       uint64
	Value     *wire.Any
}

// Next returns the globally next record in (sid, name) order across
// every merged extension, or [io.EOF] once all are exhausted.
func (m *MergeReader) Next() (*MergedRecord, error) {
	if m.h.Len() == 0 {
		return nil, io.EOF
	}
	item := heap.Pop(&m.h).(*mergeItem)
	sid, value, err := item.reader.Read()
	if err != nil {
		return nil, err
	}
	if nextSid, ok := item.reader.PeekNextSid(); ok {
		heap.Push(&m.h, &mergeItem{reader: item.reader, sid: nextSid})
	}
	return &MergedRecord{Extension: item.reader.Name(), Sid: sid, Value: value}, nil
}

// Close closes every underlying reader.
func (m *MergeReader) Close() error {
	var first error
	for _, r := range m.readers {
		if err := r.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
