// SPDX-License-Identifier: GPL-3.0-or-later

package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestEventRoundTripIoRequest(t *testing.T) {
	e := &Event{
		Sid:         42,
		TimestampNs: 1000,
		IoRequest: &IoRequest{
			DeviceID:  1,
			RequestID: 9,
			Lba:       4096,
			Len:       512,
			Direction: DirectionWrite,
		},
	}

	got, err := UnmarshalEvent(e.Marshal())
	require.NoError(t, err)
	assert.Equal(t, e.Sid, got.Sid)
	assert.Equal(t, e.TimestampNs, got.TimestampNs)
	require.NotNil(t, got.IoRequest)
	assert.Equal(t, *e.IoRequest, *got.IoRequest)
	assert.Nil(t, got.IoCompletion)
}

func TestEventRoundTripIoCompletion(t *testing.T) {
	e := &Event{
		Sid:         43,
		TimestampNs: 2000,
		IoCompletion: &IoCompletion{
			DeviceID:  1,
			RequestID: 9,
			ErrorCode: -5,
		},
	}

	got, err := UnmarshalEvent(e.Marshal())
	require.NoError(t, err)
	require.NotNil(t, got.IoCompletion)
	assert.Equal(t, *e.IoCompletion, *got.IoCompletion)
}

func TestEventRoundTripDeviceDescription(t *testing.T) {
	e := &Event{
		Sid:               1,
		DeviceDescription: &DeviceDescription{DeviceID: 3, Name: "nvme0n1"},
	}
	got, err := UnmarshalEvent(e.Marshal())
	require.NoError(t, err)
	require.NotNil(t, got.DeviceDescription)
	assert.Equal(t, *e.DeviceDescription, *got.DeviceDescription)
}

func TestEventRoundTripFsMeta(t *testing.T) {
	e := &Event{Sid: 2, FsMeta: &FsMeta{RequestID: 9, FileID: 77}}
	got, err := UnmarshalEvent(e.Marshal())
	require.NoError(t, err)
	require.NotNil(t, got.FsMeta)
	assert.Equal(t, *e.FsMeta, *got.FsMeta)
}

func TestEventRoundTripFsFileName(t *testing.T) {
	e := &Event{Sid: 3, FsFileName: &FsFileName{FileID: 77, Name: "a.txt"}}
	got, err := UnmarshalEvent(e.Marshal())
	require.NoError(t, err)
	require.NotNil(t, got.FsFileName)
	assert.Equal(t, *e.FsFileName, *got.FsFileName)
}

func TestEventRoundTripFsFileEvent(t *testing.T) {
	e := &Event{Sid: 4, FsFileEvent: &FsFileEvent{FileID: 77, ParentFileID: 1, Type: FsEventMove}}
	got, err := UnmarshalEvent(e.Marshal())
	require.NoError(t, err)
	require.NotNil(t, got.FsFileEvent)
	assert.Equal(t, *e.FsFileEvent, *got.FsFileEvent)
}

func TestEventUnknownFieldSkipped(t *testing.T) {
	e := &Event{Sid: 1, TimestampNs: 2}
	b := e.Marshal()

	// Append an unknown varint field (field 99) and confirm it's skipped
	// rather than breaking the decode.
	b = protowire.AppendTag(b, 99, protowire.VarintType)
	b = protowire.AppendVarint(b, 7)

	got, err := UnmarshalEvent(b)
	require.NoError(t, err)
	assert.Equal(t, e.Sid, got.Sid)
	assert.Equal(t, e.TimestampNs, got.TimestampNs)
}
