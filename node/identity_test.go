// SPDX-License-Identifier: GPL-3.0-or-later

package node

import (
	"context"
	"testing"

	"github.com/bassosimone/octf"
	"github.com/bassosimone/octf/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityGetNodeId(t *testing.T) {
	tree := NewTree(octf.NewConfig(), octf.DefaultSLogger())
	root, err := tree.SetRoot(context.Background(), "root", NopLifecycle{})
	require.NoError(t, err)

	iface, err := root.GetInterface(identityInterfaceID)
	require.NoError(t, err)
	method, err := iface.Method(identityMethodGetNodeId)
	require.NoError(t, err)

	resp, err := method(context.Background(), root, nil, nil)
	require.NoError(t, err)

	any, err := wire.UnmarshalAny(resp)
	require.NoError(t, err)
	key, err := wire.UnpackSimpleKey(any)
	require.NoError(t, err)
	assert.Equal(t, "root", key.Key)
}

func TestIdentityGetChildren(t *testing.T) {
	tree := NewTree(octf.NewConfig(), octf.DefaultSLogger())
	root, err := tree.SetRoot(context.Background(), "root", NopLifecycle{})
	require.NoError(t, err)
	_, err = root.AddChild(context.Background(), "dev0", NopLifecycle{})
	require.NoError(t, err)

	iface, err := root.GetInterface(identityInterfaceID)
	require.NoError(t, err)
	method, err := iface.Method(identityMethodGetChildren)
	require.NoError(t, err)

	resp, err := method(context.Background(), root, nil, nil)
	require.NoError(t, err)
	list, err := wire.UnmarshalStringList(resp)
	require.NoError(t, err)
	assert.Equal(t, []string{"dev0"}, list.Values)
}

func TestIdentityGetInterfaces(t *testing.T) {
	tree := NewTree(octf.NewConfig(), octf.DefaultSLogger())
	root, err := tree.SetRoot(context.Background(), "root", NopLifecycle{})
	require.NoError(t, err)

	iface, err := root.GetInterface(identityInterfaceID)
	require.NoError(t, err)
	method, err := iface.Method(identityMethodGetInterfaces)
	require.NoError(t, err)

	resp, err := method(context.Background(), root, nil, nil)
	require.NoError(t, err)
	list, err := wire.UnmarshalStringList(resp)
	require.NoError(t, err)
	assert.Contains(t, list.Values, identityInterfaceID)
}
