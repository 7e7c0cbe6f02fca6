// SPDX-License-Identifier: GPL-3.0-or-later

package extstore

import (
	"container/list"

	"github.com/bassosimone/octf/parsedio"
	"github.com/bassosimone/octf/wire"
)

const defaultWorksetBlockSize = 4096

// worksetState simulates an LRU cache over block-aligned LBA ranges,
// grounded on the original `WorksetCalculatorDevices`'s working-set
// sizing approach: touch a block on every access, evict the least
// recently used block once the simulated cache is full.
type worksetState struct {
	capacity  int
	blockSize uint64
	order     *list.List
	present   map[uint64]*list.Element
}

func newWorksetState(capacity int, blockSize uint64) *worksetState {
	return &worksetState{
		capacity:  capacity,
		blockSize: blockSize,
		order:     list.New(),
		present:   make(map[uint64]*list.Element),
	}
}

// touch records an access to block and returns whether it was already
// resident (a cache hit).
func (st *worksetState) touch(block uint64) bool {
	if el, ok := st.present[block]; ok {
		st.order.MoveToFront(el)
		return true
	}
	el := st.order.PushFront(block)
	st.present[block] = el
	if st.order.Len() > st.capacity {
		back := st.order.Back()
		st.order.Remove(back)
		delete(st.present, back.Value.(uint64))
	}
	return false
}

// NewWorksetBuilder returns a [*Builder] that annotates every parsed
// I/O with whether its LBA range was already resident in a simulated
// LRU cache of capacity blocks of blockSize bytes each (spec §3
// "Analytics interfaces": a working-set/LRU hit-ratio calculator). A
// zero blockSize uses 4 KiB blocks.
func NewWorksetBuilder(w *Writer, capacity int, blockSize uint64) *Builder {
	if blockSize == 0 {
		blockSize = defaultWorksetBlockSize
	}
	b := NewBuilder(w, newWorksetState(capacity, blockSize))
	b.Step(func(b *Builder, ev *parsedio.ParsedEvent) bool {
		st := b.State().(*worksetState)
		hit := true
		end := ev.Lba + uint64(ev.Len)
		if end > ev.Lba {
			end-- // last byte of the range, so a block-aligned end stays in its block
		}
		for off := ev.Lba / st.blockSize; off <= end/st.blockSize; off++ {
			if !st.touch(off) {
				hit = false
			}
		}
		if err := b.Emit(ev.Sid, &wire.WorksetHit{Hit: hit}); err != nil {
			return false
		}
		return true
	})
	return b
}

// WorksetHitRatio aggregates a committed workset extension's
// per-event entries into a hit ratio in [0, 1].
func WorksetHitRatio(r *Reader) (float64, error) {
	var hits, total uint64
	for r.HasNext() {
		_, a, err := r.Read()
		if err != nil {
			return 0, err
		}
		entry, err := wire.UnpackWorksetHit(a)
		if err != nil {
			return 0, err
		}
		total++
		if entry.Hit {
			hits++
		}
	}
	if total == 0 {
		return 0, nil
	}
	return float64(hits) / float64(total), nil
}
