// SPDX-License-Identifier: GPL-3.0-or-later

package node

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
)

// Lifecycle customizes a node's behavior beyond the identity interface
// every node acquires automatically (spec §4.7). InitCustom reads the
// settings blob persisted by a prior deinit through [Node.Settings] (nil on
// first run). DeinitCustom stages the blob to persist with
// [Node.SetSettings]; leaving it nil skips the write.
type Lifecycle interface {
	InitCustom(ctx context.Context, n *Node) error
	DeinitCustom(ctx context.Context, n *Node) error
}

// NopLifecycle is a [Lifecycle] that does nothing, for nodes with no
// custom behavior beyond the identity interface.
type NopLifecycle struct{}

var _ Lifecycle = NopLifecycle{}

// InitCustom implements [Lifecycle].
func (NopLifecycle) InitCustom(ctx context.Context, n *Node) error { return nil }

// DeinitCustom implements [Lifecycle].
func (NopLifecycle) DeinitCustom(ctx context.Context, n *Node) error { return nil }

// Node is one entry in the addressable tree. Children are referenced by
// [Handle], not by pointer, so the tree — never a node — owns storage
// (spec §9).
type Node struct {
	tree      *Tree
	handle    Handle
	parent    Handle
	id        NodeId
	lifecycle Lifecycle

	mu         sync.Mutex
	children   map[NodeId]Handle
	interfaces map[string]*Interface
	refcount   int32
	settings   []byte
}

// Id returns the node's own id.
func (n *Node) Id() NodeId { return n.id }

// Handle returns the node's tree-assigned handle.
func (n *Node) Handle() Handle { return n.handle }

func (n *Node) acquire() { atomic.AddInt32(&n.refcount, 1) }

// Release drops the shared reference acquired by tree resolution.
func (n *Node) Release() { atomic.AddInt32(&n.refcount, -1) }

func (n *Node) refcountLoad() int32 { return atomic.LoadInt32(&n.refcount) }

// settingsPath returns the on-disk path for this node's settings blob, or
// "" if settings persistence is disabled (spec §4.7: "basename is node
// ids joined by ':'").
func (n *Node) settingsPath() string {
	if n.tree.cfg == nil || n.tree.cfg.SettingsDir == "" {
		return ""
	}
	return filepath.Join(n.tree.cfg.SettingsDir, n.path().String())
}

func (n *Node) path() NodePath {
	var ids []NodeId
	for cur := n; cur != nil; {
		ids = append([]NodeId{cur.id}, ids...)
		if cur.parent == InvalidHandle {
			break
		}
		p, err := n.tree.resolve(cur.parent)
		if err != nil {
			break
		}
		p.Release()
		cur = p
	}
	return NodePath(ids)
}

// init runs init_common (load settings, install the identity interface)
// followed by init_custom (spec §4.7 Algorithm, add_child step 1-2).
func (n *Node) init(ctx context.Context) error {
	if path := n.settingsPath(); path != "" {
		b, err := os.ReadFile(path)
		if err == nil {
			n.settings = b
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("node: read settings: %w", err)
		}
	}
	if err := n.AddInterface(newIdentityInterface()); err != nil {
		return err
	}
	if n.lifecycle == nil {
		n.lifecycle = NopLifecycle{}
	}
	return n.lifecycle.InitCustom(ctx, n)
}

// Settings returns the settings blob loaded at init, or nil if none was
// persisted yet. Lifecycle implementations read this during InitCustom.
func (n *Node) Settings() []byte {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.settings
}

// SetSettings stages the settings blob to persist at deinit. Lifecycle
// implementations call this from DeinitCustom.
func (n *Node) SetSettings(b []byte) {
	n.mu.Lock()
	n.settings = b
	n.mu.Unlock()
}

// deinit runs deinit_custom followed by persisting any staged settings
// (spec §4.7: "written on deinit", write-temp-then-rename atomicity, the
// same pattern used for trace summaries).
func (n *Node) deinit(ctx context.Context) error {
	waitForDrain(n)
	if err := n.lifecycle.DeinitCustom(ctx, n); err != nil {
		return err
	}
	path := n.settingsPath()
	b := n.Settings()
	if path == "" || b == nil {
		return nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("node: mkdir settings dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".settings-*")
	if err != nil {
		return fmt.Errorf("node: create temp settings file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("node: write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("node: close temp settings file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("node: rename settings file: %w", err)
	}
	return nil
}

// AddChild creates and registers a new child under this node, running its
// init lifecycle. On failure, the partially constructed child is
// unregistered and no trace of it remains (spec §4.7 add_child edge
// case: "init_custom failure leaves no partial child").
func (n *Node) AddChild(ctx context.Context, id NodeId, lifecycle Lifecycle) (*Node, error) {
	if err := ValidateNodeId(id); err != nil {
		return nil, err
	}
	n.mu.Lock()
	if _, exists := n.children[id]; exists {
		n.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrDuplicateNodeId, id)
	}
	n.mu.Unlock()

	child := n.tree.newNode(n.handle, id, lifecycle)
	if err := child.init(ctx); err != nil {
		n.tree.unregister(child.handle)
		n.tree.logger.Info("nodeAddChildFailed", slog.String("id", string(id)), slog.Any("err", err))
		return nil, err
	}

	n.mu.Lock()
	if _, exists := n.children[id]; exists {
		n.mu.Unlock()
		n.tree.unregister(child.handle)
		return nil, fmt.Errorf("%w: %q", ErrDuplicateNodeId, id)
	}
	n.children[id] = child.handle
	n.mu.Unlock()
	return child, nil
}

// GetChild returns the direct child with the given id.
func (n *Node) GetChild(id NodeId) (*Node, error) {
	n.mu.Lock()
	h, ok := n.children[id]
	n.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoSuchChild, id)
	}
	return n.tree.resolve(h)
}

// GetChildByPath walks path starting from this node: path[0] must equal
// this node's own id, and each subsequent element is a child lookup
// (spec §4.7 get_child_by_path).
func (n *Node) GetChildByPath(path NodePath) (*Node, error) {
	if len(path) == 0 || path[0] != n.id {
		return nil, ErrPathMismatch
	}
	cur := n
	cur.acquire()
	for _, id := range path[1:] {
		next, err := cur.GetChild(id)
		cur.Release()
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// GetChildrenIds returns the ids of this node's direct children.
func (n *Node) GetChildrenIds() []NodeId {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]NodeId, 0, len(n.children))
	for id := range n.children {
		out = append(out, id)
	}
	return out
}

// AddInterface installs iface on this node. It fails with
// [ErrDuplicateInterface] if an interface with the same id is already
// installed.
func (n *Node) AddInterface(iface *Interface) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, exists := n.interfaces[iface.ID]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateInterface, iface.ID)
	}
	n.interfaces[iface.ID] = iface
	return nil
}

// GetInterface returns the interface installed under id.
func (n *Node) GetInterface(id string) (*Interface, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	iface, ok := n.interfaces[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoSuchInterface, id)
	}
	return iface, nil
}

// GetInterfacesIds returns the ids of every interface installed on this
// node.
func (n *Node) GetInterfacesIds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.interfaces))
	for id := range n.interfaces {
		out = append(out, id)
	}
	return out
}
