// SPDX-License-Identifier: GPL-3.0-or-later

package parsedio

import (
	"container/heap"
	"io"

	"github.com/bassosimone/octf/wire"
)

// mergeItem is one queue's current head event, ordered by sequence id for
// the k-way merge (spec §4.9: "a k-way merge on event-header sequence id
// produces a globally ordered stream").
type mergeItem struct {
	event     *wire.Event
	readerIdx int
}

type mergeHeap []*mergeItem

func (h mergeHeap) Len() int { return len(h) }
func (h mergeHeap) Less(i, j int) bool {
	if h[i].event.Sid != h[j].event.Sid {
		return h[i].event.Sid < h[j].event.Sid
	}
	return h[i].readerIdx < h[j].readerIdx
}
func (h mergeHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *mergeHeap) Push(x any)        { *h = append(*h, x.(*mergeItem)) }
func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// merger performs the k-way merge across one [eventReader] per queue.
type merger struct {
	readers []*eventReader
	h       mergeHeap
}

func newMerger(readers []*eventReader) (*merger, error) {
	m := &merger{readers: readers}
	for i, r := range readers {
		ev, err := r.next()
		if err == io.EOF {
			continue
		}
		if err != nil {
			return nil, err
		}
		heap.Push(&m.h, &mergeItem{event: ev, readerIdx: i})
	}
	heap.Init(&m.h)
	return m, nil
}

// next returns the globally next event in sequence-id order, or [io.EOF]
// once every queue is exhausted.
func (m *merger) next() (*wire.Event, error) {
	if m.h.Len() == 0 {
		return nil, io.EOF
	}
	item := heap.Pop(&m.h).(*mergeItem)
	ev := item.event

	nextEv, err := m.readers[item.readerIdx].next()
	switch err {
	case nil:
		heap.Push(&m.h, &mergeItem{event: nextEv, readerIdx: item.readerIdx})
	case io.EOF:
	default:
		return nil, err
	}
	return ev, nil
}

func (m *merger) close() error {
	var first error
	for _, r := range m.readers {
		if err := r.close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
