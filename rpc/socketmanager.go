// SPDX-License-Identifier: GPL-3.0-or-later

package rpc

import (
	"context"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/bassosimone/octf"
)

// socketRetryDelay is how long a [SocketManager] sleeps in Idle before
// retrying Initializing (spec §4.8: "on socket error, sleep 300 ms").
const socketRetryDelay = 300 * time.Millisecond

// socketFileMode is the AF_UNIX socket file's permission bits (spec §6:
// "rw for the service user, rw for its group, no execute").
const socketFileMode = 0o660

// socketRole selects whether a [SocketManager] listens or dials.
type socketRole int

// Known roles.
const (
	roleServer socketRole = iota
	roleClient
)

// socketState is a [SocketManager]'s lifecycle state (spec §4.8).
type socketState int32

// Known states.
const (
	stateInitializing socketState = iota
	stateWorking
	stateIdle
)

func (s socketState) String() string {
	switch s {
	case stateInitializing:
		return "initializing"
	case stateWorking:
		return "working"
	case stateIdle:
		return "idle"
	default:
		return "unknown"
	}
}

// ConnectionHandler is invoked for every [*ConnectionContext] a
// [SocketManager] establishes, whether accepted (server role) or dialed
// (client role).
type ConnectionHandler func(conn *ConnectionContext)

// NewServerSocketManager returns a [*SocketManager] that listens on an
// AF_UNIX socket at path, handing each accepted connection to onConnect
// (spec §4.8: Server state machine).
//
// Every accepted [net.Conn] is wrapped with [ObserveConnFunc] (per-I/O
// structured logging) and [CancelWatchFunc] (close on context
// cancellation) before a [*ConnectionContext] is built on top of it, so
// the ambient observe/cancel idiom covers both RPC roles identically.
func NewServerSocketManager(cfg *octf.Config, logger octf.SLogger, path string, dispatcher Dispatcher, onConnect ConnectionHandler) *SocketManager {
	wrapConn := octf.Compose2[net.Conn, net.Conn, net.Conn](
		NewObserveConnFunc(cfg, logger),
		NewCancelWatchFunc(),
	)
	return &SocketManager{
		role: roleServer, path: path, cfg: cfg, logger: logger,
		dispatcher: dispatcher, onConnect: onConnect, wrapConn: wrapConn,
	}
}

// NewClientSocketManager returns a [*SocketManager] that maintains one
// dialed connection to the AF_UNIX socket at path, handing each
// (re)established connection to onConnect (spec §4.8: Client state
// machine).
//
// Dialing goes through a pipeline that chains [ConnectFunc] (dial),
// [ObserveConnFunc] (per-I/O structured logging), and [CancelWatchFunc]
// (close on context cancellation) into one [octf.Func]: the ambient
// observe/cancel idiom flows through the dialed connection the same way
// it flows through every accepted one.
func NewClientSocketManager(cfg *octf.Config, logger octf.SLogger, path string, dispatcher Dispatcher, onConnect ConnectionHandler) *SocketManager {
	pipeline := octf.Compose3[string, net.Conn, net.Conn, net.Conn](
		NewConnectFunc(cfg, logger),
		NewObserveConnFunc(cfg, logger),
		NewCancelWatchFunc(),
	)
	// path never changes across redials for a given manager, so curry it
	// once into a [Unit]-keyed pipeline rather than threading it through
	// every clientLoop iteration.
	dial := octf.Apply(pipeline, path)
	return &SocketManager{
		role: roleClient, path: path, cfg: cfg, logger: logger,
		dispatcher: dispatcher, onConnect: onConnect, dial: dial,
	}
}

// SocketManager maintains one client or server AF_UNIX endpoint through a
// state machine that reopens on error and never gives up on its own;
// teardown is driven only by an explicit [SocketManager.Deactivate]
// (spec §4.8).
type SocketManager struct {
	role       socketRole
	path       string
	cfg        *octf.Config
	logger     octf.SLogger
	dispatcher Dispatcher
	onConnect  ConnectionHandler

	// wrapConn wraps an accepted [net.Conn] (server role) with the
	// observe/cancel idiom. Nil for the client role, which wraps as part
	// of dial instead.
	wrapConn octf.Func[net.Conn, net.Conn]

	// dial dials and wraps a connection (client role) in one pipeline,
	// curried over the fixed socket path via [octf.Apply]. Nil for the
	// server role, which never dials.
	dial octf.Func[octf.Unit, net.Conn]

	mu         sync.Mutex
	state      socketState
	listener   net.Listener
	activeConn *ConnectionContext
	cancel     context.CancelFunc
	done       chan struct{}
}

// State returns the manager's current lifecycle state.
func (m *SocketManager) State() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.String()
}

// Activate starts the manager's state-machine loop. Calling Activate
// again before [SocketManager.Deactivate] has no effect.
func (m *SocketManager) Activate(ctx context.Context) {
	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		if m.role == roleServer {
			m.serverLoop(loopCtx)
		} else {
			m.clientLoop(loopCtx)
		}
	}()
}

// Deactivate stops the manager: the loop's context is cancelled, any
// listener or active connection is closed to unblock it, and Deactivate
// waits for the loop goroutine to exit before returning.
func (m *SocketManager) Deactivate() {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	m.closeListener()
	m.closeActiveConn()
	<-done

	m.mu.Lock()
	m.cancel = nil
	m.mu.Unlock()
}

func (m *SocketManager) setState(s socketState) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *SocketManager) closeListener() {
	m.mu.Lock()
	l := m.listener
	m.mu.Unlock()
	if l != nil {
		l.Close()
	}
}

func (m *SocketManager) closeActiveConn() {
	m.mu.Lock()
	c := m.activeConn
	m.mu.Unlock()
	if c != nil {
		c.Close()
	}
}

// serverLoop implements Initializing → Working → Idle → Initializing for
// the server role (spec §4.8).
func (m *SocketManager) serverLoop(ctx context.Context) {
	for ctx.Err() == nil {
		m.setState(stateInitializing)
		l, err := m.listen()
		if err != nil {
			m.logger.Info("socketListenFailed", slog.Any("err", err), slog.String("path", m.path))
			if !sleepOrDone(ctx, socketRetryDelay) {
				return
			}
			continue
		}

		m.mu.Lock()
		m.listener = l
		m.mu.Unlock()
		m.setState(stateWorking)

		m.acceptLoop(ctx, l)

		m.mu.Lock()
		m.listener = nil
		m.mu.Unlock()
		m.setState(stateIdle)

		if !sleepOrDone(ctx, socketRetryDelay) {
			return
		}
	}
}

// listen binds the AF_UNIX socket at m.path, removing any stale socket
// file left behind by a previous crashed run, and sets the file mode
// bits required by spec §6.
func (m *SocketManager) listen() (net.Listener, error) {
	os.Remove(m.path)
	l, err := net.Listen("unix", m.path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(m.path, socketFileMode); err != nil {
		l.Close()
		return nil, err
	}
	return l, nil
}

// acceptLoop accepts connections until the listener errors (closed by
// Deactivate, or a transport failure), handing each accepted socket to a
// new [*ConnectionContext].
func (m *SocketManager) acceptLoop(ctx context.Context, l net.Listener) {
	for {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		m.logger.Info("socketAccept", slog.Time("t", m.cfg.TimeNow()))

		wrapped, err := m.wrapConn.Call(ctx, conn)
		if err != nil {
			conn.Close()
			continue
		}

		cc := NewConnectionContext(m.cfg, m.logger, wrapped, m.dispatcher)
		cc.Start()
		if m.onConnect != nil {
			m.onConnect(cc)
		}
	}
}

// clientLoop implements Initializing → Working → Idle → Initializing for
// the client role (spec §4.8).
func (m *SocketManager) clientLoop(ctx context.Context) {
	for ctx.Err() == nil {
		m.setState(stateInitializing)

		conn, err := m.dial.Call(ctx, octf.Unit{})
		if err != nil {
			if !sleepOrDone(ctx, socketRetryDelay) {
				return
			}
			continue
		}

		cc := NewConnectionContext(m.cfg, m.logger, conn, m.dispatcher)
		cc.Start()

		m.mu.Lock()
		m.activeConn = cc
		m.mu.Unlock()
		if m.onConnect != nil {
			m.onConnect(cc)
		}
		m.setState(stateWorking)

		select {
		case <-cc.Done():
		case <-ctx.Done():
			cc.Close()
		}

		m.mu.Lock()
		m.activeConn = nil
		m.mu.Unlock()
		m.setState(stateIdle)

		if !sleepOrDone(ctx, socketRetryDelay) {
			return
		}
	}
}

// sleepOrDone sleeps for d, returning false early (without having slept
// the full duration) if ctx is done first.
func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
