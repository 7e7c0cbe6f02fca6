// SPDX-License-Identifier: GPL-3.0-or-later

package parsedio

import (
	"fmt"
	"io"

	"github.com/bassosimone/octf/wire"
)

// defaultReorderWindow bounds how many in-flight requests the assembler
// holds before force-emitting the oldest one (spec §4.9: "a bounded
// reorder window holds completions whose request is still pending").
const defaultReorderWindow = 4096

// supportedMajor is the only trace format major version this assembler
// understands; major=0 is accepted as an alias for it (SPEC_FULL §4,
// decision 3).
const supportedMajor = 4

// ParsedEvent is one reconstructed logical I/O (spec §3, §4.9).
type ParsedEvent struct {
	// Sid is the sequence id extension builders key annotations on: the
	// completion's sid once the I/O completes, otherwise the request's.
	Sid          uint64
	DeviceID     uint32
	RequestID    uint64
	Lba          uint64
	Len          uint32
	Direction    wire.Direction
	ArrivalNs    uint64
	QueueDepth   uint32
	LatencyNs    uint64
	HasLatency   bool
	NoCompletion bool
	FileID       uint64
}

// Config configures one [Assembler].
type Config struct {
	// HasSubrange enables the exclusive LBA subrange filter.
	HasSubrange bool
	// SubrangeStart, SubrangeEnd bound [start, end); I/Os that do not
	// overlap are dropped. Queue depth is meaningless when this is set
	// (spec §4.9).
	SubrangeStart, SubrangeEnd uint64
	// TimeOffsetNs normalizes timestamps to start-of-trace.
	TimeOffsetNs uint64
	// ReorderWindow bounds in-flight request buffering. Zero uses
	// [defaultReorderWindow].
	ReorderWindow int
}

type ioKey struct {
	deviceID  uint32
	requestID uint64
}

type inflight struct {
	key        ioKey
	sid        uint64
	arrivalNs  uint64
	lba        uint64
	len        uint32
	direction  wire.Direction
	queueDepth uint32
	fileID     uint64
	completed  bool
	latencyNs  uint64
}

// Assembler reconstructs logical I/Os from one trace's per-queue event
// streams (spec §4.9).
type Assembler struct {
	cfg    Config
	merger *merger
	viewer *FilesystemViewer

	queueDepth    map[uint32]uint32
	pendingByKey  map[ioKey]*inflight
	pendingByReq  map[uint64]*inflight
	order         []*inflight
	ready         []*ParsedEvent
	droppedCompls uint64
	eof           bool
}

// NewAssembler opens an assembler over the given queue-file paths.
// traceMajor is the trace summary's major version (spec §4.9 version
// check).
func NewAssembler(paths []string, traceMajor uint32, cfg Config) (*Assembler, error) {
	effectiveMajor := traceMajor
	if effectiveMajor == 0 {
		effectiveMajor = supportedMajor
	}
	if effectiveMajor != supportedMajor {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, traceMajor)
	}
	if cfg.ReorderWindow <= 0 {
		cfg.ReorderWindow = defaultReorderWindow
	}

	readers := make([]*eventReader, 0, len(paths))
	for _, p := range paths {
		r, err := openEventReader(p)
		if err != nil {
			for _, opened := range readers {
				opened.close()
			}
			return nil, err
		}
		readers = append(readers, r)
	}
	m, err := newMerger(readers)
	if err != nil {
		for _, opened := range readers {
			opened.close()
		}
		return nil, err
	}

	return &Assembler{
		cfg:          cfg,
		merger:       m,
		viewer:       newFilesystemViewer(),
		queueDepth:   make(map[uint32]uint32),
		pendingByKey: make(map[ioKey]*inflight),
		pendingByReq: make(map[uint64]*inflight),
	}, nil
}

// Close releases the underlying queue file handles.
func (a *Assembler) Close() error {
	return a.merger.close()
}

// FilesystemViewer returns the namespace tree built so far from observed
// filesystem events.
func (a *Assembler) FilesystemViewer() *FilesystemViewer {
	return a.viewer
}

// DroppedCompletions returns the count of completions seen with no
// matching in-flight request (spec §4.9 edge case).
func (a *Assembler) DroppedCompletions() uint64 {
	return a.droppedCompls
}

// Next returns the next reconstructed I/O in request-arrival order, or
// [io.EOF] once the stream and every pending request have been drained.
func (a *Assembler) Next() (*ParsedEvent, error) {
	for {
		if len(a.ready) > 0 {
			ev := a.ready[0]
			a.ready = a.ready[1:]
			return ev, nil
		}
		if a.eof {
			return nil, io.EOF
		}
		if err := a.step(); err != nil {
			return nil, err
		}
	}
}

// step consumes one merged event (or, once the stream is exhausted,
// flushes the remaining in-flight requests) and drains whatever becomes
// ready to emit.
func (a *Assembler) step() error {
	ev, err := a.merger.next()
	if err == io.EOF {
		a.flushAll()
		a.eof = true
		return nil
	}
	if err != nil {
		return err
	}

	switch {
	case ev.IoRequest != nil:
		a.handleRequest(ev)
	case ev.IoCompletion != nil:
		a.handleCompletion(ev)
	case ev.FsMeta != nil:
		a.handleFsMeta(ev.FsMeta)
	case ev.FsFileName != nil:
		a.viewer.observeName(ev.FsFileName.FileID, ev.FsFileName.Name)
	case ev.FsFileEvent != nil:
		a.viewer.observeEvent(ev.FsFileEvent.FileID, ev.FsFileEvent.ParentFileID)
	}

	a.drainReady()
	return nil
}

func (a *Assembler) overlapsSubrange(lba uint64, length uint32) bool {
	if !a.cfg.HasSubrange {
		return true
	}
	end := lba + uint64(length)
	return lba < a.cfg.SubrangeEnd && end > a.cfg.SubrangeStart
}

func (a *Assembler) handleRequest(ev *wire.Event) {
	r := ev.IoRequest
	if !a.overlapsSubrange(r.Lba, r.Len) {
		return
	}
	a.queueDepth[r.DeviceID]++
	key := ioKey{deviceID: r.DeviceID, requestID: r.RequestID}
	in := &inflight{
		key:        key,
		sid:        ev.Sid,
		arrivalNs:  normalize(ev.TimestampNs, a.cfg.TimeOffsetNs),
		lba:        r.Lba,
		len:        r.Len,
		direction:  r.Direction,
		queueDepth: a.queueDepth[r.DeviceID],
	}
	if fileID, ok := a.pendingByReq[r.RequestID]; ok {
		in.fileID = fileID.fileID
	}
	a.pendingByKey[key] = in
	a.pendingByReq[r.RequestID] = in
	a.order = append(a.order, in)
}

func (a *Assembler) handleCompletion(ev *wire.Event) {
	c := ev.IoCompletion
	key := ioKey{deviceID: c.DeviceID, requestID: c.RequestID}
	in, ok := a.pendingByKey[key]
	if !ok {
		a.droppedCompls++
		return
	}
	delete(a.pendingByKey, key)
	delete(a.pendingByReq, c.RequestID)
	if a.queueDepth[c.DeviceID] > 0 {
		a.queueDepth[c.DeviceID]--
	}
	in.completed = true
	in.sid = ev.Sid
	in.latencyNs = normalize(ev.TimestampNs, a.cfg.TimeOffsetNs) - in.arrivalNs
}

func (a *Assembler) handleFsMeta(m *wire.FsMeta) {
	if in, ok := a.pendingByReq[m.RequestID]; ok {
		in.fileID = m.FileID
		return
	}
	// Record it anyway: a request for the same id may still arrive
	// (spec §4.9: "merge FS attribution from any intervening FsMeta...
	// events keyed by the same I/O"), using a placeholder entry purely
	// to carry the file id forward.
	a.pendingByReq[m.RequestID] = &inflight{fileID: m.FileID}
}

// drainReady moves completed requests at the front of the arrival queue
// into the ready buffer, then enforces the reorder window bound by
// force-flushing the oldest pending request if it has grown too large.
func (a *Assembler) drainReady() {
	for len(a.order) > 0 && a.order[0].completed {
		a.emit(a.popFront(), false)
	}
	for len(a.order) > a.cfg.ReorderWindow {
		a.emit(a.popFront(), true)
	}
}

// flushAll drains every remaining in-flight request once the merged
// stream is exhausted (spec §4.9 edge case: "End-of-stream with live
// requests → emit each with latency = undefined and a no-completion
// flag").
func (a *Assembler) flushAll() {
	for len(a.order) > 0 {
		front := a.order[0]
		a.emit(a.popFront(), !front.completed)
	}
}

func (a *Assembler) popFront() *inflight {
	front := a.order[0]
	a.order = a.order[1:]
	delete(a.pendingByKey, front.key)
	delete(a.pendingByReq, front.key.requestID)
	return front
}

func (a *Assembler) emit(in *inflight, noCompletion bool) {
	a.ready = append(a.ready, &ParsedEvent{
		Sid:          in.sid,
		DeviceID:     in.key.deviceID,
		RequestID:    in.key.requestID,
		Lba:          in.lba,
		Len:          in.len,
		Direction:    in.direction,
		ArrivalNs:    in.arrivalNs,
		QueueDepth:   in.queueDepth,
		LatencyNs:    in.latencyNs,
		HasLatency:   in.completed,
		NoCompletion: noCompletion,
		FileID:       in.fileID,
	})
}

func normalize(ts, offset uint64) uint64 {
	if ts < offset {
		return 0
	}
	return ts - offset
}
