// SPDX-License-Identifier: GPL-3.0-or-later

package node

import (
	"context"
	"sync"
	"time"

	"github.com/bassosimone/octf"
)

// Handle is a tree-assigned integer identifying a [Node] without an
// owning reference (spec §9: "give nodes integer handles assigned by the
// tree, and store the handle — not an owning reference — in children;
// resolve handle → node via the tree on use"). This is how the
// self-referential root node can be held by a child RPC channel without
// a cycle.
type Handle int64

// InvalidHandle never identifies a live node.
const InvalidHandle Handle = 0

// NewTree returns an empty [*Tree]. cfg supplies [octf.Config.SettingsDir]
// for per-node settings persistence (spec §4.7); it may be nil to disable
// settings entirely.
func NewTree(cfg *octf.Config, logger octf.SLogger) *Tree {
	if logger == nil {
		logger = octf.DefaultSLogger()
	}
	return &Tree{cfg: cfg, logger: logger, nodes: make(map[Handle]*Node), nextHandle: 1}
}

// Tree owns every [Node]'s storage by [Handle], resolving parent/child
// relationships indirectly rather than through owning pointers (spec
// §9).
type Tree struct {
	cfg    *octf.Config
	logger octf.SLogger

	mu         sync.Mutex
	nextHandle Handle
	nodes      map[Handle]*Node
	rootHandle Handle
}

// SetRoot creates the tree's root node. It fails with [ErrRootAlreadySet]
// if a root already exists.
func (t *Tree) SetRoot(ctx context.Context, id NodeId, lifecycle Lifecycle) (*Node, error) {
	if err := ValidateNodeId(id); err != nil {
		return nil, err
	}
	t.mu.Lock()
	if t.rootHandle != InvalidHandle {
		t.mu.Unlock()
		return nil, ErrRootAlreadySet
	}
	t.mu.Unlock()

	n := t.newNode(InvalidHandle, id, lifecycle)
	if err := n.init(ctx); err != nil {
		t.unregister(n.handle)
		return nil, err
	}

	t.mu.Lock()
	t.rootHandle = n.handle
	t.mu.Unlock()
	return n, nil
}

// Root returns the tree's root node, or nil if [Tree.SetRoot] has not
// been called yet.
func (t *Tree) Root() *Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nodes[t.rootHandle]
}

// resolve returns the node identified by h, bumping its refcount so it
// cannot be torn down mid-use (spec §5: "lookups during dispatch take a
// shared reference bumping a refcount"). The caller must call release.
func (t *Tree) resolve(h Handle) (*Node, error) {
	t.mu.Lock()
	n, ok := t.nodes[h]
	t.mu.Unlock()
	if !ok {
		return nil, ErrInvalidHandle
	}
	n.acquire()
	return n, nil
}

func (t *Tree) newNode(parent Handle, id NodeId, lifecycle Lifecycle) *Node {
	n := &Node{
		tree:       t,
		parent:     parent,
		id:         id,
		lifecycle:  lifecycle,
		children:   make(map[NodeId]Handle),
		interfaces: make(map[string]*Interface),
	}
	t.mu.Lock()
	n.handle = t.nextHandle
	t.nextHandle++
	t.nodes[n.handle] = n
	t.mu.Unlock()
	return n
}

func (t *Tree) unregister(h Handle) {
	t.mu.Lock()
	delete(t.nodes, h)
	t.mu.Unlock()
}

// ResolvePath walks path from the root, matching element 0 against the
// root's own id (spec §4.7: "get_child_by_path... second form walks,
// matching element 0 against self"). The returned node's reference is
// acquired; the caller must call [Node.Release].
func (t *Tree) ResolvePath(path NodePath) (*Node, error) {
	root := t.Root()
	if root == nil || len(path) == 0 || path[0] != root.id {
		return nil, ErrNoSuchChild
	}
	return root.GetChildByPath(path)
}

// waitForDrain blocks until n's refcount reaches zero, used by teardown
// to avoid destroying a node mid-dispatch. Best-effort polling: node
// trees are torn down rarely and never on a latency-sensitive path.
func waitForDrain(n *Node) {
	for n.refcountLoad() > 0 {
		time.Sleep(time.Millisecond)
	}
}

