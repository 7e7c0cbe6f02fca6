// SPDX-License-Identifier: GPL-3.0-or-later

package tracepipe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bassosimone/octf"
	"github.com/bassosimone/octf/ring"
	"github.com/bassosimone/octf/wire"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

// maxRecordBytes bounds the size of a single producer record the worker
// loop will accept off a ring in one Pop. Records larger than this would
// need a bigger scratch buffer; none of this framework's event kinds
// (spec §3) come close.
const maxRecordBytes = 1 << 20

// defaultRingCapacity is used when [Session.StartTrace]'s maxBuffers
// argument is zero.
const defaultRingCapacity = 1 << 20

// NewSession returns a [*Session] bound to sourceNodePath (the node whose
// trace this session records, spec §3's TraceSummary.source_node_path)
// and driven by executor.
func NewSession(cfg *octf.Config, logger octf.SLogger, sourceNodePath []string, executor TraceExecutor) *Session {
	return &Session{cfg: cfg, logger: logger, sourceNodePath: sourceNodePath, executor: executor}
}

// Session is the per-queue trace pipeline: it moves events from one Ring
// per queue to one Serializer per queue, driving the TraceExecutor
// collaborator (spec §4.2). Session also implements the Pusher interface
// named in spec.md §1 ("the core exposes the ring push API").
type Session struct {
	cfg            *octf.Config
	logger         octf.SLogger
	sourceNodePath []string
	executor       TraceExecutor

	mu          sync.Mutex
	active      bool
	summary     *wire.TraceSummary
	sourcePath  string
	maxSize     uint64
	rings       []*ring.Ring
	producers   []*ring.Handle
	serializers []*Serializer
	cancel      context.CancelFunc
	group       *errgroup.Group
	done        chan struct{}
	startMono   time.Time
	sequence    atomic.Uint64
}

// StartTrace configures and begins a session (spec §4.2). If queueCount
// is zero, the executor is asked for the queue count. maxDuration == 0
// means no wall-clock limit; maxSize == 0 means no size limit; maxBuffers
// == 0 selects [defaultRingCapacity] bytes per queue ring.
func (s *Session) StartTrace(sourcePath string, queueCount uint32, maxDuration time.Duration, maxSize uint64, maxBuffers uint32) error {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return ErrAlreadyActive
	}

	if queueCount == 0 {
		n, err := s.executor.QueueCount()
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("tracepipe: query queue count: %w", err)
		}
		queueCount = n
	}
	if maxBuffers == 0 {
		maxBuffers = defaultRingCapacity
	}
	converter := s.executor.Converter()

	rings := make([]*ring.Ring, queueCount)
	producers := make([]*ring.Handle, queueCount)
	serializers := make([]*Serializer, queueCount)
	for i := uint32(0); i < queueCount; i++ {
		rings[i] = ring.New(maxBuffers, s.cfg.WakeupThreshold)
		p, err := rings[i].Open(ring.ModeProducer)
		if err != nil {
			closeSerializers(serializers)
			s.mu.Unlock()
			return fmt.Errorf("tracepipe: queue %d: %w", i, err)
		}
		producers[i] = p

		path := filepath.Join(sourcePath, fmt.Sprintf("octf.trace.%d", i))
		ser, err := OpenSerializer(path)
		if err != nil {
			closeSerializers(serializers)
			s.mu.Unlock()
			return fmt.Errorf("tracepipe: queue %d: %w", i, err)
		}
		serializers[i] = ser
	}

	startWall := s.cfg.TimeNow()
	ctx, cancel := context.WithCancel(context.Background())
	if maxDuration > 0 {
		ctx, cancel = context.WithDeadline(ctx, startWall.Add(maxDuration))
	}
	g, gctx := errgroup.WithContext(ctx)

	s.summary = &wire.TraceSummary{
		SourceNodePath: s.sourceNodePath,
		QueueCount:     queueCount,
		WallClockStart: startWall.Format(time.RFC3339Nano),
		State:          wire.TraceStateRunning,
		Major:          4,
	}
	s.sourcePath = sourcePath
	s.maxSize = maxSize
	s.rings = rings
	s.producers = producers
	s.serializers = serializers
	s.cancel = cancel
	s.group = g
	s.done = make(chan struct{})
	s.startMono = time.Now()
	s.sequence.Store(0)
	s.active = true
	s.mu.Unlock()

	for i := uint32(0); i < queueCount; i++ {
		queueID, rng, ser := i, rings[i], serializers[i]
		g.Go(func() error {
			return s.runWorker(gctx, queueID, rng, ser, converter)
		})
	}

	go s.awaitCompletion()
	return nil
}

// StopTrace requests the session stop and blocks until every worker has
// drained, summarized, and the summary has been persisted (spec §4.2:
// "on stop or terminal condition: ... persist summary").
func (s *Session) StopTrace() (*wire.TraceSummary, error) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return nil, ErrNoActiveSession
	}
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
	return s.GetSummary(), nil
}

// GetSummary returns a snapshot of the session's current summary.
func (s *Session) GetSummary() *wire.TraceSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.summary == nil {
		return nil
	}
	cp := *s.summary
	return &cp
}

// PushTrace is the producer entry point (spec §4.2, §4.1): it pushes
// payload onto queueID's ring, returning the ring's push errors verbatim.
func (s *Session) PushTrace(queueID uint32, payload []byte) error {
	s.mu.Lock()
	if !s.active || int(queueID) >= len(s.producers) {
		s.mu.Unlock()
		return ErrNoSuchQueue
	}
	p := s.producers[queueID]
	s.mu.Unlock()
	return p.Push(payload)
}

// awaitCompletion waits for every worker to return, deactivates rings,
// closes serializers, finalizes and persists the summary, then signals
// s.done.
func (s *Session) awaitCompletion() {
	err := s.group.Wait()

	s.mu.Lock()
	for _, r := range s.rings {
		r.Close()
	}
	for _, p := range s.producers {
		_ = p.Close()
	}
	for _, ser := range s.serializers {
		_ = ser.Close()
	}

	if err != nil {
		s.summary.State = wire.TraceStateError
	} else if s.summary.State == wire.TraceStateRunning {
		s.summary.State = wire.TraceStateComplete
	}
	s.summary.DurationMs = uint64(time.Since(s.startMono).Milliseconds())
	summary := *s.summary
	sourcePath := s.sourcePath
	s.active = false
	s.mu.Unlock()

	if perr := persistSummary(sourcePath, &summary); perr != nil {
		s.logger.Info("summaryPersistFailed", slog.Any("err", perr), slog.String("errClass", s.cfg.ErrClassifier.Classify(perr)))
	}
	close(s.done)
}

// setTerminal transitions the summary's state away from running, but
// only the first time: a later fatal error always wins over an earlier
// graceful complete, via awaitCompletion overriding based on the
// errgroup's returned error, not this call.
func (s *Session) setTerminal(state wire.TraceState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.summary != nil && s.summary.State == wire.TraceStateRunning {
		s.summary.State = state
	}
}

// runWorker is one queue's worker loop (spec §4.2 Algorithm/Ordering
// guarantee: "per-queue, event order in the file equals push order").
func (s *Session) runWorker(ctx context.Context, queueID uint32, rng *ring.Ring, ser *Serializer, converter Converter) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	s.setAffinity(queueID)

	consumer, err := rng.Open(ring.ModeConsumer)
	if err != nil {
		return fmt.Errorf("tracepipe: queue %d: %w", queueID, err)
	}
	defer consumer.Close()

	buf := make([]byte, maxRecordBytes)
	for {
		select {
		case <-ctx.Done():
			s.setTerminal(wire.TraceStateComplete)
			drainRing(consumer, buf)
			return nil
		case <-rng.Notify():
		}

		for {
			n, perr := consumer.Pop(buf)
			if perr != nil {
				return fmt.Errorf("tracepipe: queue %d: %w", queueID, perr)
			}
			if n == 0 {
				break
			}
			record := append([]byte(nil), buf[:n]...)

			ev, cerr := converter.Convert(record)
			if cerr != nil {
				s.logger.Info("convertError", slog.Uint64("queueId", uint64(queueID)), slog.Any("err", cerr))
				continue
			}
			ev.Sid = s.sequence.Add(1)
			ev.TimestampNs = uint64(time.Since(s.startMono))

			if werr := ser.WriteMessage(ev); werr != nil {
				return fmt.Errorf("tracepipe: queue %d: serializer: %w", queueID, werr)
			}
			if s.maxSize > 0 && ser.BytesWritten() >= s.maxSize {
				s.setTerminal(wire.TraceStateComplete)
				s.cancel()
			}
		}

		if ctx.Err() != nil {
			drainRing(consumer, buf)
			return nil
		}
	}
}

// setAffinity pins the calling (locked) OS thread to one of the queue's
// declared CPUs, round-robin across the affinity list (spec §4.2, §5),
// matching the ublk queue runner's per-queue pinning idiom.
func (s *Session) setAffinity(queueID uint32) {
	aff := s.executor.CPUAffinity(queueID)
	if len(aff) == 0 {
		return
	}
	cpuIdx := aff[int(queueID)%len(aff)]
	var mask unix.CPUSet
	mask.Set(cpuIdx)
	if err := unix.SchedSetaffinity(0, &mask); err != nil {
		s.logger.Info("workerAffinityFailed", slog.Uint64("queueId", uint64(queueID)), slog.Any("err", err))
	}
}

// drainRing discards every remaining record on consumer's ring, letting
// blocked producers unblock once the ring is also closed (spec §4.2: "on
// stop or terminal condition: deactivate all rings ... drain remainders").
func drainRing(consumer *ring.Handle, buf []byte) {
	for {
		n, err := consumer.Pop(buf)
		if err != nil || n == 0 {
			return
		}
	}
}

func closeSerializers(sers []*Serializer) {
	for _, s := range sers {
		if s != nil {
			_ = s.Close()
		}
	}
}

// persistSummary writes summary to <sourcePath>/summary using a
// write-to-temp-then-rename, the same atomicity pattern node settings
// use (spec §4.7).
func persistSummary(sourcePath string, summary *wire.TraceSummary) error {
	if sourcePath == "" {
		return errors.New("tracepipe: empty source path")
	}
	final := filepath.Join(sourcePath, "summary")
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, summary.Marshal(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, final)
}
