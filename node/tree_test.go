// SPDX-License-Identifier: GPL-3.0-or-later

package node

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/bassosimone/octf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTree(t *testing.T) *Tree {
	t.Helper()
	cfg := octf.NewConfig()
	cfg.SettingsDir = filepath.Join(t.TempDir(), "settings")
	return NewTree(cfg, octf.DefaultSLogger())
}

func TestTreeSetRootOnce(t *testing.T) {
	tree := newTestTree(t)
	root, err := tree.SetRoot(context.Background(), "root", NopLifecycle{})
	require.NoError(t, err)
	assert.Equal(t, NodeId("root"), root.Id())

	_, err = tree.SetRoot(context.Background(), "root2", NopLifecycle{})
	assert.ErrorIs(t, err, ErrRootAlreadySet)
}

func TestTreeSetRootInvalidId(t *testing.T) {
	tree := newTestTree(t)
	_, err := tree.SetRoot(context.Background(), "bad id", NopLifecycle{})
	assert.ErrorIs(t, err, ErrInvalidNodeId)
}

func TestNodeAddChildAndLookup(t *testing.T) {
	tree := newTestTree(t)
	root, err := tree.SetRoot(context.Background(), "root", NopLifecycle{})
	require.NoError(t, err)

	child, err := root.AddChild(context.Background(), "dev0", NopLifecycle{})
	require.NoError(t, err)
	assert.Equal(t, NodeId("dev0"), child.Id())

	got, err := root.GetChild("dev0")
	require.NoError(t, err)
	assert.Equal(t, child.Handle(), got.Handle())
	got.Release()

	_, err = root.GetChild("missing")
	assert.ErrorIs(t, err, ErrNoSuchChild)
}

func TestNodeAddChildDuplicateRejected(t *testing.T) {
	tree := newTestTree(t)
	root, err := tree.SetRoot(context.Background(), "root", NopLifecycle{})
	require.NoError(t, err)

	_, err = root.AddChild(context.Background(), "dev0", NopLifecycle{})
	require.NoError(t, err)

	_, err = root.AddChild(context.Background(), "dev0", NopLifecycle{})
	assert.ErrorIs(t, err, ErrDuplicateNodeId)
}

type failingLifecycle struct{}

func (failingLifecycle) InitCustom(ctx context.Context, n *Node) error {
	return errors.New("boom")
}
func (failingLifecycle) DeinitCustom(ctx context.Context, n *Node) error { return nil }

func TestNodeAddChildInitFailureLeavesNoPartialChild(t *testing.T) {
	tree := newTestTree(t)
	root, err := tree.SetRoot(context.Background(), "root", NopLifecycle{})
	require.NoError(t, err)

	_, err = root.AddChild(context.Background(), "dev0", failingLifecycle{})
	require.Error(t, err)

	_, err = root.GetChild("dev0")
	assert.ErrorIs(t, err, ErrNoSuchChild)

	// the id must be free for a subsequent successful attempt.
	child, err := root.AddChild(context.Background(), "dev0", NopLifecycle{})
	require.NoError(t, err)
	assert.Equal(t, NodeId("dev0"), child.Id())
}

func TestTreeResolvePath(t *testing.T) {
	tree := newTestTree(t)
	root, err := tree.SetRoot(context.Background(), "root", NopLifecycle{})
	require.NoError(t, err)
	_, err = root.AddChild(context.Background(), "dev0", NopLifecycle{})
	require.NoError(t, err)

	n, err := tree.ResolvePath(NodePath{"root", "dev0"})
	require.NoError(t, err)
	assert.Equal(t, NodeId("dev0"), n.Id())
	n.Release()

	_, err = tree.ResolvePath(NodePath{"root", "missing"})
	assert.ErrorIs(t, err, ErrNoSuchChild)

	_, err = tree.ResolvePath(NodePath{"wrongroot"})
	assert.ErrorIs(t, err, ErrNoSuchChild)
}

func TestNodeAddInterfaceDuplicateRejected(t *testing.T) {
	tree := newTestTree(t)
	root, err := tree.SetRoot(context.Background(), "root", NopLifecycle{})
	require.NoError(t, err)

	err = root.AddInterface(NewInterface("custom.iface", 1))
	require.NoError(t, err)

	err = root.AddInterface(NewInterface("custom.iface", 1))
	assert.ErrorIs(t, err, ErrDuplicateInterface)

	// the identity interface installed at init is itself a duplicate target.
	err = root.AddInterface(NewInterface(identityInterfaceID, 1))
	assert.ErrorIs(t, err, ErrDuplicateInterface)
}

func TestNodeGetChildrenAndInterfacesIds(t *testing.T) {
	tree := newTestTree(t)
	root, err := tree.SetRoot(context.Background(), "root", NopLifecycle{})
	require.NoError(t, err)
	_, err = root.AddChild(context.Background(), "dev0", NopLifecycle{})
	require.NoError(t, err)
	_, err = root.AddChild(context.Background(), "dev1", NopLifecycle{})
	require.NoError(t, err)

	ids := root.GetChildrenIds()
	assert.ElementsMatch(t, []NodeId{"dev0", "dev1"}, ids)

	ifaces := root.GetInterfacesIds()
	assert.Contains(t, ifaces, identityInterfaceID)
}
