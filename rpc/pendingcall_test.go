// SPDX-License-Identifier: GPL-3.0-or-later

package rpc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wait returns the response bytes once complete fires with success.
func TestPendingCallWaitSuccess(t *testing.T) {
	pc := newPendingCall(1)
	pc.complete([]byte("reply"), false, "")

	resp, failed, errText, canceled, err := pc.Wait(context.Background())
	require.NoError(t, err)
	assert.False(t, failed)
	assert.Empty(t, errText)
	assert.False(t, canceled)
	assert.Equal(t, []byte("reply"), resp)
}

// Wait reports failed=true and the error text for a failure response.
func TestPendingCallWaitFailure(t *testing.T) {
	pc := newPendingCall(1)
	pc.complete(nil, true, "no such node")

	_, failed, errText, canceled, err := pc.Wait(context.Background())
	require.NoError(t, err)
	assert.True(t, failed)
	assert.Equal(t, "no such node", errText)
	assert.False(t, canceled)
}

// StartCancel completes the call immediately with IsCanceled=true, even
// with no response ever arriving.
func TestPendingCallStartCancel(t *testing.T) {
	pc := newPendingCall(7)
	pc.StartCancel()

	_, failed, errText, canceled, err := pc.Wait(context.Background())
	require.NoError(t, err)
	assert.True(t, failed)
	assert.Equal(t, "cancelled", errText)
	assert.True(t, canceled)
	assert.True(t, pc.IsCanceled())
}

// A MethodResponse arriving after StartCancel is dropped: complete is a
// no-op once the call is already done.
func TestPendingCallCancelThenLateResponseIgnored(t *testing.T) {
	pc := newPendingCall(7)
	pc.StartCancel()
	pc.complete([]byte("too late"), false, "")

	_, _, _, canceled, err := pc.Wait(context.Background())
	require.NoError(t, err)
	assert.True(t, canceled)
}

// StartCancel on an already-completed call is a no-op.
func TestPendingCallStartCancelAfterCompleteIsNoop(t *testing.T) {
	pc := newPendingCall(1)
	pc.complete([]byte("reply"), false, "")
	pc.StartCancel()

	resp, failed, _, canceled, err := pc.Wait(context.Background())
	require.NoError(t, err)
	assert.False(t, failed)
	assert.False(t, canceled)
	assert.Equal(t, []byte("reply"), resp)
}

// Wait returns ctx.Err() when the context expires before completion,
// without marking the call as failed or cancelled.
func TestPendingCallWaitContextTimeout(t *testing.T) {
	pc := newPendingCall(1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, _, _, _, err := pc.Wait(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// A second Wait call, even after a timeout, returns ErrWaitAlreadyConsumed.
func TestPendingCallSecondWaitAfterTimeout(t *testing.T) {
	pc := newPendingCall(1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, _, _, _, err := pc.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	_, _, _, _, err = pc.Wait(context.Background())
	require.ErrorIs(t, err, ErrWaitAlreadyConsumed)
}

// A second Wait call after a normal completion also returns
// ErrWaitAlreadyConsumed; Wait is strictly single-shot.
func TestPendingCallSecondWaitAfterSuccess(t *testing.T) {
	pc := newPendingCall(1)
	pc.complete([]byte("reply"), false, "")

	_, _, _, _, err := pc.Wait(context.Background())
	require.NoError(t, err)

	_, _, _, _, err = pc.Wait(context.Background())
	require.ErrorIs(t, err, ErrWaitAlreadyConsumed)
}
