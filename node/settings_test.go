// SPDX-License-Identifier: GPL-3.0-or-later

package node

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bassosimone/octf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// settingsLifecycle persists a fixed blob at deinit and records whatever
// it read back at init.
type settingsLifecycle struct {
	write  []byte
	loaded []byte
}

func (l *settingsLifecycle) InitCustom(ctx context.Context, n *Node) error {
	l.loaded = n.Settings()
	return nil
}

func (l *settingsLifecycle) DeinitCustom(ctx context.Context, n *Node) error {
	if l.write != nil {
		n.SetSettings(l.write)
	}
	return nil
}

func TestNodeSettingsPersistedOnDeinit(t *testing.T) {
	settingsDir := filepath.Join(t.TempDir(), "settings")
	cfg := octf.NewConfig()
	cfg.SettingsDir = settingsDir

	tree := NewTree(cfg, octf.DefaultSLogger())
	lc := &settingsLifecycle{write: []byte("hello")}
	root, err := tree.SetRoot(context.Background(), "root", lc)
	require.NoError(t, err)
	assert.Nil(t, lc.loaded)

	require.NoError(t, root.deinit(context.Background()))

	b, err := os.ReadFile(filepath.Join(settingsDir, "root"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))
}

func TestNodeSettingsLoadedOnInit(t *testing.T) {
	settingsDir := filepath.Join(t.TempDir(), "settings")
	require.NoError(t, os.MkdirAll(settingsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(settingsDir, "root"), []byte("preexisting"), 0o644))

	cfg := octf.NewConfig()
	cfg.SettingsDir = settingsDir
	tree := NewTree(cfg, octf.DefaultSLogger())

	lc := &settingsLifecycle{}
	_, err := tree.SetRoot(context.Background(), "root", lc)
	require.NoError(t, err)
	assert.Equal(t, "preexisting", string(lc.loaded))
}

func TestNodeSettingsDisabledWithoutSettingsDir(t *testing.T) {
	tree := NewTree(octf.NewConfig(), octf.DefaultSLogger())
	lc := &settingsLifecycle{write: []byte("ignored")}
	root, err := tree.SetRoot(context.Background(), "root", lc)
	require.NoError(t, err)
	assert.NoError(t, root.deinit(context.Background()))
}

func TestNodeChildSettingsPathJoinsParentPath(t *testing.T) {
	settingsDir := filepath.Join(t.TempDir(), "settings")
	cfg := octf.NewConfig()
	cfg.SettingsDir = settingsDir
	tree := NewTree(cfg, octf.DefaultSLogger())

	root, err := tree.SetRoot(context.Background(), "root", NopLifecycle{})
	require.NoError(t, err)
	lc := &settingsLifecycle{write: []byte("child-data")}
	child, err := root.AddChild(context.Background(), "dev0", lc)
	require.NoError(t, err)

	require.NoError(t, child.deinit(context.Background()))
	b, err := os.ReadFile(filepath.Join(settingsDir, "root:dev0"))
	require.NoError(t, err)
	assert.Equal(t, "child-data", string(b))
}
