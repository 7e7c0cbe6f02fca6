//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/ooni/probe-cli/blob/v3.20.1/internal/netxlite/dialer.go
// Adapted from: https://github.com/rbmk-project/rbmk/blob/v0.17.0/pkg/x/netcore/dialer.go
//

package rpc

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/bassosimone/octf"
	"github.com/bassosimone/safeconn"
)

// Dialer abstracts the [*net.Dialer] behavior for AF_UNIX stream sockets.
//
// By making [*ConnectFunc] depend on an abstract implementation we allow
// for unit testing and for using alternative dialers.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// NewConnectFunc returns a new [*ConnectFunc] with a default [*net.Dialer].
//
// The cfg argument contains the common configuration for octf operations.
//
// The logger argument is the [octf.SLogger] to use for structured logging.
func NewConnectFunc(cfg *octf.Config, logger octf.SLogger) *ConnectFunc {
	return &ConnectFunc{
		Dialer:        &net.Dialer{},
		ErrClassifier: cfg.ErrClassifier,
		Logger:        logger,
		TimeNow:       cfg.TimeNow,
	}
}

// ConnectFunc dials the control socket at a given filesystem path over
// "unix" (spec §4.8, client-side Initializing state).
//
// Returns either a valid [net.Conn] or an error, never both.
//
// All fields are safe to modify after construction but before first use.
// Fields must not be mutated concurrently with calls to [Call].
type ConnectFunc struct {
	// Dialer is the [Dialer] to use.
	//
	// Set by [NewConnectFunc] to a [*net.Dialer].
	Dialer Dialer

	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewConnectFunc] from [octf.Config.ErrClassifier].
	ErrClassifier octf.ErrClassifier

	// Logger is the [octf.SLogger] to use (configurable for testing or
	// custom logging).
	//
	// Set by [NewConnectFunc] to the user-provided logger.
	Logger octf.SLogger

	// TimeNow is the function to get the current time (configurable for
	// testing).
	//
	// Set by [NewConnectFunc] from [octf.Config.TimeNow].
	TimeNow func() time.Time
}

var _ octf.Func[string, net.Conn] = &ConnectFunc{}

// Call invokes the [*ConnectFunc] to connect to the socket at path.
func (op *ConnectFunc) Call(ctx context.Context, path string) (net.Conn, error) {
	t0 := op.TimeNow()
	deadline, _ := ctx.Deadline()
	op.logSocketConnectStart(path, t0, deadline)
	conn, err := op.Dialer.DialContext(ctx, "unix", path)
	op.logSocketConnectDone(path, t0, deadline, conn, err)
	return conn, err
}

func (op *ConnectFunc) logSocketConnectStart(path string, t0 time.Time, deadline time.Time) {
	op.Logger.Info(
		"socketConnectStart",
		slog.Time("deadline", deadline),
		slog.String("protocol", "unix"),
		slog.String("remoteAddr", path),
		slog.Time("t", t0),
	)
}

func (op *ConnectFunc) logSocketConnectDone(
	path string, t0 time.Time, deadline time.Time, conn net.Conn, err error) {
	op.Logger.Info(
		"socketConnectDone",
		slog.Time("deadline", deadline),
		slog.Any("err", err),
		slog.String("errClass", op.ErrClassifier.Classify(err)),
		slog.String("localAddr", safeconn.LocalAddr(conn)),
		slog.String("protocol", "unix"),
		slog.String("remoteAddr", path),
		slog.Time("t0", t0),
		slog.Time("t", op.TimeNow()),
	)
}
