// SPDX-License-Identifier: GPL-3.0-or-later

package tracepipe

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bassosimone/octf"
	"github.com/bassosimone/octf/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedExecutor is a [TraceExecutor] test double with a fixed queue count
// and converter, and no CPU affinity.
type fixedExecutor struct {
	queues    uint32
	converter Converter
	queueErr  error
}

func (e *fixedExecutor) QueueCount() (uint32, error)    { return e.queues, e.queueErr }
func (e *fixedExecutor) Converter() Converter            { return e.converter }
func (e *fixedExecutor) CPUAffinity(queueID uint32) []int { return nil }

func passthroughConverter() Converter {
	return ConverterFunc(func(raw []byte) (*wire.Event, error) {
		return &wire.Event{IoRequest: &wire.IoRequest{DeviceID: 1, RequestID: uint64(len(raw))}}, nil
	})
}

// StartTrace followed by pushes and StopTrace produces a complete summary
// and a non-empty per-queue trace file.
func TestSessionStartPushStopRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := octf.NewConfig()
	executor := &fixedExecutor{queues: 2, converter: passthroughConverter()}
	s := NewSession(cfg, octf.DefaultSLogger(), []string{"root", "dev0"}, executor)

	require.NoError(t, s.StartTrace(dir, 0, 0, 0, 0))

	for q := uint32(0); q < 2; q++ {
		for i := 0; i < 5; i++ {
			require.NoError(t, s.PushTrace(q, []byte(fmt.Sprintf("record-%d-%d", q, i))))
		}
	}

	require.Eventually(t, func() bool {
		return s.GetSummary().QueueCount == 2
	}, time.Second, 5*time.Millisecond)

	summary, err := s.StopTrace()
	require.NoError(t, err)
	assert.Equal(t, wire.TraceStateComplete, summary.State)
	assert.Equal(t, []string{"root", "dev0"}, summary.SourceNodePath)

	for q := 0; q < 2; q++ {
		info, err := os.Stat(filepath.Join(dir, fmt.Sprintf("octf.trace.%d", q)))
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
	_, err = os.Stat(filepath.Join(dir, "summary"))
	require.NoError(t, err)
}

// StartTrace queries the executor for queue count when none is given.
func TestSessionStartTraceQueriesQueueCount(t *testing.T) {
	dir := t.TempDir()
	cfg := octf.NewConfig()
	executor := &fixedExecutor{queues: 3, converter: passthroughConverter()}
	s := NewSession(cfg, octf.DefaultSLogger(), []string{"root"}, executor)

	require.NoError(t, s.StartTrace(dir, 0, 0, 0, 0))
	assert.EqualValues(t, 3, s.GetSummary().QueueCount)
	_, err := s.StopTrace()
	require.NoError(t, err)
}

// Starting a second session while one is active fails.
func TestSessionStartTraceAlreadyActive(t *testing.T) {
	dir := t.TempDir()
	cfg := octf.NewConfig()
	executor := &fixedExecutor{queues: 1, converter: passthroughConverter()}
	s := NewSession(cfg, octf.DefaultSLogger(), []string{"root"}, executor)

	require.NoError(t, s.StartTrace(dir, 0, 0, 0, 0))
	err := s.StartTrace(dir, 0, 0, 0, 0)
	require.ErrorIs(t, err, ErrAlreadyActive)

	_, err = s.StopTrace()
	require.NoError(t, err)
}

// PushTrace and StopTrace before any StartTrace both fail cleanly.
func TestSessionNoActiveSession(t *testing.T) {
	cfg := octf.NewConfig()
	executor := &fixedExecutor{queues: 1, converter: passthroughConverter()}
	s := NewSession(cfg, octf.DefaultSLogger(), []string{"root"}, executor)

	err := s.PushTrace(0, []byte("x"))
	require.ErrorIs(t, err, ErrNoSuchQueue)

	_, err = s.StopTrace()
	require.ErrorIs(t, err, ErrNoActiveSession)
}

// A converter error drops the offending record without affecting the
// session or later records.
func TestSessionConverterErrorDropsRecord(t *testing.T) {
	dir := t.TempDir()
	cfg := octf.NewConfig()
	bad := errors.New("cannot parse")
	converter := ConverterFunc(func(raw []byte) (*wire.Event, error) {
		if string(raw) == "poison" {
			return nil, bad
		}
		return &wire.Event{IoRequest: &wire.IoRequest{DeviceID: 1}}, nil
	})
	executor := &fixedExecutor{queues: 1, converter: converter}
	s := NewSession(cfg, octf.DefaultSLogger(), []string{"root"}, executor)

	require.NoError(t, s.StartTrace(dir, 0, 0, 0, 0))
	require.NoError(t, s.PushTrace(0, []byte("poison")))
	require.NoError(t, s.PushTrace(0, []byte("good")))

	summary, err := s.StopTrace()
	require.NoError(t, err)
	assert.Equal(t, wire.TraceStateComplete, summary.State)

	info, err := os.Stat(filepath.Join(dir, "octf.trace.0"))
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

// max_size triggers an early complete transition.
func TestSessionMaxSizeTerminatesSession(t *testing.T) {
	dir := t.TempDir()
	cfg := octf.NewConfig()
	executor := &fixedExecutor{queues: 1, converter: passthroughConverter()}
	s := NewSession(cfg, octf.DefaultSLogger(), []string{"root"}, executor)

	require.NoError(t, s.StartTrace(dir, 0, 0, 8, 0))
	for i := 0; i < 20; i++ {
		_ = s.PushTrace(0, []byte("abcdef"))
	}

	require.Eventually(t, func() bool {
		summary := s.GetSummary()
		return summary != nil && summary.State != wire.TraceStateRunning
	}, time.Second, 5*time.Millisecond)
}

// max_duration terminates the session even with no pushes.
func TestSessionMaxDurationTerminatesSession(t *testing.T) {
	dir := t.TempDir()
	cfg := octf.NewConfig()
	executor := &fixedExecutor{queues: 1, converter: passthroughConverter()}
	s := NewSession(cfg, octf.DefaultSLogger(), []string{"root"}, executor)

	require.NoError(t, s.StartTrace(dir, 0, 20*time.Millisecond, 0, 0))

	require.Eventually(t, func() bool {
		summary := s.GetSummary()
		return summary != nil && summary.State == wire.TraceStateComplete
	}, time.Second, 5*time.Millisecond)
}
