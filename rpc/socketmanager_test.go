// SPDX-License-Identifier: GPL-3.0-or-later

package rpc

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bassosimone/octf"
	"github.com/bassosimone/octf/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func socketPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "octf.sock")
}

// A server manager and a client manager dialing the same path converge on
// a working connection that can carry a round-tripped call.
func TestSocketManagerServerClientRoundTrip(t *testing.T) {
	path := socketPath(t)
	cfg := octf.NewConfig()

	dispatcher := &funcDispatcher{
		DispatchFunc: func(ctx context.Context, req *wire.MethodRequest, ctl *CallController) ([]byte, bool, string) {
			return []byte("pong"), true, ""
		},
	}

	serverConns := make(chan *ConnectionContext, 1)
	server := NewServerSocketManager(cfg, octf.DefaultSLogger(), path, dispatcher, func(c *ConnectionContext) {
		serverConns <- c
	})

	clientConns := make(chan *ConnectionContext, 1)
	client := NewClientSocketManager(cfg, octf.DefaultSLogger(), path, nil, func(c *ConnectionContext) {
		clientConns <- c
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server.Activate(ctx)
	defer server.Deactivate()
	client.Activate(ctx)
	defer client.Deactivate()

	var clientConn *ConnectionContext
	select {
	case clientConn = <-clientConns:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for client connection")
	}
	select {
	case <-serverConns:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for server connection")
	}

	pc, err := clientConn.Call(context.Background(), []string{"root"}, "iface", 1, 0, nil)
	require.NoError(t, err)

	resp, failed, _, _, err := pc.Wait(context.Background())
	require.NoError(t, err)
	assert.False(t, failed)
	assert.Equal(t, []byte("pong"), resp)
}

// Activating a server manager creates the socket file with the
// group-writable, non-executable permission bits required by spec §6.
func TestSocketManagerSocketFilePermissions(t *testing.T) {
	path := socketPath(t)
	cfg := octf.NewConfig()

	server := NewServerSocketManager(cfg, octf.DefaultSLogger(), path, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	server.Activate(ctx)
	defer server.Deactivate()

	require.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(socketFileMode), info.Mode().Perm())
}

// A stale socket file left behind by a previous run doesn't prevent the
// server manager from binding.
func TestSocketManagerRemovesStaleSocketFile(t *testing.T) {
	path := socketPath(t)
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	cfg := octf.NewConfig()
	server := NewServerSocketManager(cfg, octf.DefaultSLogger(), path, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	server.Activate(ctx)
	defer server.Deactivate()

	require.Eventually(t, func() bool {
		return server.State() == "working"
	}, 2*time.Second, 10*time.Millisecond)
}

// A client manager started before any server exists keeps retrying and
// eventually connects once the server appears.
func TestSocketManagerClientRetriesUntilServerAppears(t *testing.T) {
	path := socketPath(t)
	cfg := octf.NewConfig()

	clientConns := make(chan *ConnectionContext, 1)
	client := NewClientSocketManager(cfg, octf.DefaultSLogger(), path, nil, func(c *ConnectionContext) {
		clientConns <- c
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client.Activate(ctx)
	defer client.Deactivate()

	time.Sleep(50 * time.Millisecond)

	server := NewServerSocketManager(cfg, octf.DefaultSLogger(), path, nil, nil)
	server.Activate(ctx)
	defer server.Deactivate()

	select {
	case <-clientConns:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for client to connect after server appeared")
	}
}

// Deactivate is safe to call on a manager that was never activated, and
// safe to call twice in a row.
func TestSocketManagerDeactivateIdempotent(t *testing.T) {
	path := socketPath(t)
	cfg := octf.NewConfig()
	server := NewServerSocketManager(cfg, octf.DefaultSLogger(), path, nil, nil)

	server.Deactivate()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	server.Activate(ctx)
	require.Eventually(t, func() bool {
		return server.State() == "working"
	}, 2*time.Second, 10*time.Millisecond)

	server.Deactivate()
	server.Deactivate()
	assert.Eventually(t, func() bool {
		return server.State() != "working"
	}, time.Second, 10*time.Millisecond)
}
