// SPDX-License-Identifier: GPL-3.0-or-later

package rpc

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/bassosimone/octf"
	"github.com/bassosimone/octf/framer"
	"github.com/bassosimone/octf/wire"
	"github.com/bassosimone/safeconn"
)

// connState is a [ConnectionContext]'s lifecycle state (spec §4.5).
type connState int32

// Known states.
const (
	stateOpening connState = iota
	stateActive
	stateExpired
)

func (s connState) String() string {
	switch s {
	case stateOpening:
		return "opening"
	case stateActive:
		return "active"
	case stateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// NewConnectionContext returns a new [*ConnectionContext] wrapping conn.
// Call [ConnectionContext.Start] to begin the RX loop. dispatcher may be
// nil for a connection that never serves inbound requests (pure client
// role); any inbound MethodRequest is then failed with
// [ErrNoSuchNode]-equivalent text.
func NewConnectionContext(cfg *octf.Config, logger octf.SLogger, conn net.Conn, dispatcher Dispatcher) *ConnectionContext {
	return &ConnectionContext{
		conn:          conn,
		fr:            framer.New(conn),
		dispatcher:    dispatcher,
		ErrClassifier: cfg.ErrClassifier,
		Logger:        logger,
		TimeNow:       cfg.TimeNow,
		state:         stateOpening,
		pending:       make(map[uint64]*PendingCall),
		inflight:      make(map[uint64]*CallController),
		rxDone:        make(chan struct{}),
		laddr:         safeconn.LocalAddr(conn),
		raddr:         safeconn.RemoteAddr(conn),
		protocol:      safeconn.Network(conn),
		spanID:        octf.NewSpanID(),
	}
}

// ConnectionContext owns one live stream socket, demultiplexing packets
// to pending client calls and to a server-side [Dispatcher] (spec §4.5).
//
// A ConnectionContext has exactly two long-running tasks: the RX loop
// (started by [ConnectionContext.Start]) and a shared TX path serialized
// by an internal mutex, matching spec §4.5's "each connection has two
// long-running tasks — RX loop ... and a shared TX primitive".
type ConnectionContext struct {
	conn       net.Conn
	fr         *framer.Framer
	dispatcher Dispatcher

	ErrClassifier octf.ErrClassifier
	Logger        octf.SLogger
	TimeNow       func() time.Time

	laddr    string
	raddr    string
	protocol string
	spanID   string

	txMu sync.Mutex

	mu      sync.Mutex
	state   connState
	started bool
	nextSeq uint64

	pending  map[uint64]*PendingCall
	inflight map[uint64]*CallController

	wg     sync.WaitGroup
	rxDone chan struct{}
}

// State returns the connection's current lifecycle state.
func (c *ConnectionContext) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.String()
}

// SpanID returns the span id assigned to this connection at construction
// time (a UUIDv7 from [octf.NewSpanID]), used to correlate every log line
// this connection emits across its whole opening→active→expired lifetime.
func (c *ConnectionContext) SpanID() string {
	return c.spanID
}

// Done returns a channel closed once the RX loop has exited, which only
// happens after the connection has expired. The channel exists from
// construction; it is never closed if [ConnectionContext.Start] is not
// called.
func (c *ConnectionContext) Done() <-chan struct{} {
	return c.rxDone
}

// Start transitions the connection from opening to active and launches
// its RX loop. Calling Start more than once has no effect.
func (c *ConnectionContext) Start() {
	c.mu.Lock()
	if c.state != stateOpening {
		c.mu.Unlock()
		return
	}
	c.state = stateActive
	c.started = true
	c.mu.Unlock()
	go c.rxLoop()
}

// Call sends a MethodRequest and returns the [*PendingCall] tracking its
// outcome (spec §4.5: "Assign next sequence id... Insert into pending
// table... Build MethodRequest packet and transmit").
func (c *ConnectionContext) Call(ctx context.Context, nodePath []string, ifaceName string, ifaceVersion, methodIdx uint32, req []byte) (*PendingCall, error) {
	c.mu.Lock()
	if c.state != stateActive {
		c.mu.Unlock()
		return nil, ErrConnectionExpired
	}
	c.nextSeq++
	sid := c.nextSeq
	pc := newPendingCall(sid)
	c.pending[sid] = pc
	c.mu.Unlock()

	pkt := &wire.Packet{Request: &wire.MethodRequest{
		NodePath:         nodePath,
		InterfaceName:    ifaceName,
		InterfaceVersion: ifaceVersion,
		MethodIndex:      methodIdx,
		SequenceID:       sid,
		Request:          req,
	}}
	if err := c.send(pkt); err != nil {
		c.mu.Lock()
		delete(c.pending, sid)
		c.mu.Unlock()
		return nil, err
	}
	return pc, nil
}

// CancelCall asks the peer to abort pc (spec §4.5/§5): it completes pc
// locally right away with IsCanceled=true, then — if pc was still
// pending — sends a Cancel packet so the server can stop the remote work
// and avoid replying to a sequence id the client no longer cares about.
func (c *ConnectionContext) CancelCall(pc *PendingCall) {
	c.mu.Lock()
	_, stillPending := c.pending[pc.SequenceID]
	if stillPending {
		delete(c.pending, pc.SequenceID)
	}
	c.mu.Unlock()

	pc.StartCancel()
	if stillPending {
		c.Logger.Debug("cancelSend", slog.String("spanId", c.spanID), slog.Uint64("sequenceId", pc.SequenceID))
		_ = c.send(&wire.Packet{Cancel: &wire.Cancel{SequenceID: pc.SequenceID}})
	}
}

// Close expires the connection: it closes the underlying socket, fails
// every pending client call with "No connection", and waits for the RX
// loop and any inflight dispatched requests to finish. Close is
// idempotent.
func (c *ConnectionContext) Close() error {
	c.expire(nil)
	c.mu.Lock()
	started := c.started
	c.mu.Unlock()
	if started {
		<-c.rxDone
	}
	c.wg.Wait()
	return nil
}

// expire transitions the connection to expired exactly once, closing the
// socket and failing every pending call with "No connection" (spec §8
// scenario 2, §5 "Close expires all pending client calls").
func (c *ConnectionContext) expire(err error) {
	c.mu.Lock()
	if c.state == stateExpired {
		c.mu.Unlock()
		return
	}
	c.state = stateExpired
	pending := c.pending
	c.pending = make(map[uint64]*PendingCall)
	c.mu.Unlock()

	c.conn.Close()

	for _, pc := range pending {
		pc.complete(nil, true, "No connection")
	}

	c.Logger.Info(
		"connectionExpired",
		slog.Any("err", err),
		slog.String("errClass", c.ErrClassifier.Classify(err)),
		slog.String("localAddr", c.laddr),
		slog.String("remoteAddr", c.raddr),
		slog.String("spanId", c.spanID),
		slog.Time("t", c.TimeNow()),
	)
}

// rxLoop reads packets until the connection fails or is closed,
// dispatching each to handleRequest/handleResponse/handleCancel (spec
// §4.5). It is the connection's single RX thread (spec §5): inbound
// packets are processed strictly in wire order.
func (c *ConnectionContext) rxLoop() {
	defer close(c.rxDone)
	for {
		pkt, err := c.fr.ReadPacket()
		if err != nil {
			c.expire(err)
			return
		}
		c.Logger.Debug("packetRecv", slog.String("spanId", c.spanID), slog.Time("t", c.TimeNow()))

		switch {
		case pkt.Request != nil:
			c.handleRequest(pkt.Request)
		case pkt.Response != nil:
			c.handleResponse(pkt.Response)
		case pkt.Cancel != nil:
			c.handleCancel(pkt.Cancel)
		}
	}
}

// handleResponse matches an inbound MethodResponse to its pending call
// (spec §4.5: "Look up sequence id; if absent, drop").
func (c *ConnectionContext) handleResponse(resp *wire.MethodResponse) {
	c.mu.Lock()
	pc, ok := c.pending[resp.SequenceID]
	if ok {
		delete(c.pending, resp.SequenceID)
	}
	c.mu.Unlock()
	if !ok {
		return
	}
	pc.complete(resp.Response, !resp.Success, resp.Error)
}

// handleCancel marks the named inflight call's controller cancelled
// (spec §4.5: "The server looks it up in inflight and sets the
// controller's cancelled flag").
func (c *ConnectionContext) handleCancel(cnl *wire.Cancel) {
	c.mu.Lock()
	ctl, ok := c.inflight[cnl.SequenceID]
	c.mu.Unlock()
	if ok {
		ctl.cancel()
	}
}

// handleRequest resolves and invokes the addressed method through the
// connection's [Dispatcher] (spec §4.5). Dispatch runs on its own
// goroutine, tracked so [ConnectionContext.Close] can drain it, so the RX
// loop stays free to keep reading and dispatching further packets.
func (c *ConnectionContext) handleRequest(req *wire.MethodRequest) {
	c.Logger.Debug("dispatchRequest", slog.String("spanId", c.spanID), slog.Uint64("sequenceId", req.SequenceID))

	if c.dispatcher == nil {
		c.sendResponse(req.SequenceID, false, "no such node", nil)
		return
	}

	ctl := newCallController(req.SequenceID)
	c.mu.Lock()
	c.inflight[req.SequenceID] = ctl
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			c.mu.Lock()
			delete(c.inflight, req.SequenceID)
			c.mu.Unlock()
		}()
		resp, success, errText := c.dispatcher.Dispatch(context.Background(), req, ctl)
		c.sendResponse(req.SequenceID, success, errText, resp)
	}()
}

// sendResponse builds and transmits a MethodResponse.
func (c *ConnectionContext) sendResponse(sid uint64, success bool, errText string, resp []byte) {
	c.Logger.Debug("dispatchResponse", slog.String("spanId", c.spanID), slog.Uint64("sequenceId", sid), slog.Bool("success", success))
	pkt := &wire.Packet{Response: &wire.MethodResponse{
		SequenceID: sid,
		Success:    success,
		Error:      errText,
		Response:   resp,
	}}
	_ = c.send(pkt)
}

// send writes pkt under the connection's TX lock, expiring the
// connection on any write failure.
func (c *ConnectionContext) send(pkt *wire.Packet) error {
	c.txMu.Lock()
	defer c.txMu.Unlock()
	c.Logger.Debug("packetSend", slog.String("spanId", c.spanID), slog.Time("t", c.TimeNow()))
	if err := c.fr.WritePacket(pkt); err != nil {
		c.expire(err)
		return err
	}
	return nil
}
