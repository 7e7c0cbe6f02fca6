// SPDX-License-Identifier: GPL-3.0-or-later

package rpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/bassosimone/octf"
	"github.com/bassosimone/octf/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Send fails immediately-ish with ErrNoConnection if no connection ever
// appears within the wait window.
func TestRPCProxySendNoConnection(t *testing.T) {
	p := NewRPCProxy()

	start := time.Now()
	_, err := p.Send(context.Background(), []string{"root"}, "iface", 1, 0, nil)
	elapsed := time.Since(start)

	require.ErrorIs(t, err, ErrNoConnection)
	assert.GreaterOrEqual(t, elapsed, waitForConnectionTimeout)
}

// Send uses the connection immediately when one is already set.
func TestRPCProxySendWithConnection(t *testing.T) {
	dispatcher := &funcDispatcher{
		DispatchFunc: func(ctx context.Context, req *wire.MethodRequest, ctl *CallController) ([]byte, bool, string) {
			return []byte("pong"), true, ""
		},
	}
	a, b := net.Pipe()
	cfg := octf.NewConfig()
	client := NewConnectionContext(cfg, octf.DefaultSLogger(), a, nil)
	server := NewConnectionContext(cfg, octf.DefaultSLogger(), b, dispatcher)
	client.Start()
	server.Start()
	defer client.Close()
	defer server.Close()

	p := NewRPCProxy()
	p.SetConnection(client)

	pc, err := p.Send(context.Background(), []string{"root"}, "iface", 1, 0, nil)
	require.NoError(t, err)

	resp, failed, _, _, err := pc.Wait(context.Background())
	require.NoError(t, err)
	assert.False(t, failed)
	assert.Equal(t, []byte("pong"), resp)
}

// Send blocked on no connection succeeds once one appears mid-wait.
func TestRPCProxySendConnectionAppearsMidWait(t *testing.T) {
	dispatcher := &funcDispatcher{
		DispatchFunc: func(ctx context.Context, req *wire.MethodRequest, ctl *CallController) ([]byte, bool, string) {
			return nil, true, ""
		},
	}
	a, b := net.Pipe()
	cfg := octf.NewConfig()
	client := NewConnectionContext(cfg, octf.DefaultSLogger(), a, nil)
	server := NewConnectionContext(cfg, octf.DefaultSLogger(), b, dispatcher)
	client.Start()
	server.Start()
	defer client.Close()
	defer server.Close()

	p := NewRPCProxy()

	go func() {
		time.Sleep(20 * time.Millisecond)
		p.SetConnection(client)
	}()

	pc, err := p.Send(context.Background(), []string{"root"}, "iface", 1, 0, nil)
	require.NoError(t, err)

	_, failed, _, _, err := pc.Wait(context.Background())
	require.NoError(t, err)
	assert.False(t, failed)
}

// ClearConnection makes subsequent Send calls wait again.
func TestRPCProxyClearConnection(t *testing.T) {
	a, b := net.Pipe()
	defer b.Close()
	cfg := octf.NewConfig()
	client := NewConnectionContext(cfg, octf.DefaultSLogger(), a, nil)
	client.Start()

	p := NewRPCProxy()
	p.SetConnection(client)
	p.ClearConnection()
	client.Close()

	_, err := p.Send(context.Background(), []string{"root"}, "iface", 1, 0, nil)
	require.ErrorIs(t, err, ErrNoConnection)
}

// Cancel with no active connection completes the call locally as
// cancelled rather than panicking or blocking.
func TestRPCProxyCancelNoConnection(t *testing.T) {
	p := NewRPCProxy()
	pc := newPendingCall(1)

	p.Cancel(pc)

	assert.True(t, pc.IsCanceled())
}

// Send respects ctx cancellation while waiting for a connection.
func TestRPCProxySendContextCancelled(t *testing.T) {
	p := NewRPCProxy()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := p.Send(ctx, []string{"root"}, "iface", 1, 0, nil)
	elapsed := time.Since(start)

	require.ErrorIs(t, err, ErrNoConnection)
	assert.Less(t, elapsed, waitForConnectionTimeout)
}
