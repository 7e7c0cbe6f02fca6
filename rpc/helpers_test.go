// SPDX-License-Identifier: GPL-3.0-or-later

package rpc

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/bassosimone/octf"
)

// funcConn is a minimal [net.Conn] test double whose methods forward to
// optional function fields, following the teacher's netstub.FuncConn call
// shape (the netstub module itself isn't in the retrieval pack, only the
// pattern observed in the teacher's tests, so this is reimplemented
// locally per package).
type funcConn struct {
	ReadFunc        func(b []byte) (int, error)
	WriteFunc       func(b []byte) (int, error)
	CloseFunc       func() error
	LocalAddrFunc   func() net.Addr
	RemoteAddrFunc  func() net.Addr
	SetDeadlineFunc func(t time.Time) error
	SetReadDeadFunc func(t time.Time) error
	SetWriteDeaFunc func(t time.Time) error
}

func newMinimalConn() *funcConn {
	return &funcConn{
		ReadFunc:  func(b []byte) (int, error) { return 0, nil },
		WriteFunc: func(b []byte) (int, error) { return len(b), nil },
		CloseFunc: func() error { return nil },
		LocalAddrFunc: func() net.Addr {
			return &net.UnixAddr{Name: "local.sock", Net: "unix"}
		},
		RemoteAddrFunc: func() net.Addr {
			return &net.UnixAddr{Name: "remote.sock", Net: "unix"}
		},
		SetDeadlineFunc: func(t time.Time) error { return nil },
		SetReadDeadFunc: func(t time.Time) error { return nil },
		SetWriteDeaFunc: func(t time.Time) error { return nil },
	}
}

var _ net.Conn = &funcConn{}

func (c *funcConn) Read(b []byte) (int, error)  { return c.ReadFunc(b) }
func (c *funcConn) Write(b []byte) (int, error) { return c.WriteFunc(b) }
func (c *funcConn) Close() error                { return c.CloseFunc() }
func (c *funcConn) LocalAddr() net.Addr         { return c.LocalAddrFunc() }
func (c *funcConn) RemoteAddr() net.Addr        { return c.RemoteAddrFunc() }
func (c *funcConn) SetDeadline(t time.Time) error {
	return c.SetDeadlineFunc(t)
}
func (c *funcConn) SetReadDeadline(t time.Time) error {
	return c.SetReadDeadFunc(t)
}
func (c *funcConn) SetWriteDeadline(t time.Time) error {
	return c.SetWriteDeaFunc(t)
}

// funcDialer is a minimal [Dialer] test double, mirroring the teacher's
// netstub.FuncDialer call shape.
type funcDialer struct {
	DialContextFunc func(ctx context.Context, network, address string) (net.Conn, error)
}

var _ Dialer = &funcDialer{}

func (d *funcDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	return d.DialContextFunc(ctx, network, address)
}

// logRecord captures one call to [octf.SLogger].
type logRecord struct {
	Level   string
	Message string
	Args    []any
}

// capturingLogger is a minimal [octf.SLogger] test double that records
// every call, mirroring the teacher's slogstub.FuncHandler call shape.
type capturingLogger struct {
	mu      sync.Mutex
	records *[]logRecord
}

func newCapturingLogger() (*capturingLogger, *[]logRecord) {
	records := &[]logRecord{}
	return &capturingLogger{records: records}, records
}

var _ octf.SLogger = &capturingLogger{}

func (l *capturingLogger) Debug(msg string, args ...any) {
	l.record(slog.LevelDebug, msg, args)
}

func (l *capturingLogger) Info(msg string, args ...any) {
	l.record(slog.LevelInfo, msg, args)
}

func (l *capturingLogger) record(level slog.Level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.records = append(*l.records, logRecord{Level: level.String(), Message: msg, Args: args})
}
