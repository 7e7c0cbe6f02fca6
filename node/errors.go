// SPDX-License-Identifier: GPL-3.0-or-later

package node

import "errors"

// ErrInvalidNodeId is returned when a [NodeId] does not satisfy the
// grammar enforced by [ValidateNodeId].
var ErrInvalidNodeId = errors.New("node: invalid node id")

// ErrDuplicateNodeId is returned by [Node.AddChild] when the parent
// already has a child with that id.
var ErrDuplicateNodeId = errors.New("node: duplicate node id")

// ErrDuplicateInterface is returned by [Node.AddInterface] when the node
// already exposes an interface with that id.
var ErrDuplicateInterface = errors.New("node: duplicate interface")

// ErrRootAlreadySet is returned by [Tree.SetRoot] when the tree already
// has a root node.
var ErrRootAlreadySet = errors.New("node: root already set")

// ErrNoSuchChild is returned by [Node.GetChild] and [Node.GetChildByPath]
// when no child with the given id exists.
var ErrNoSuchChild = errors.New("node: no such child")

// ErrNoSuchInterface is returned by [Node.GetInterface] when the node
// does not expose an interface with that id.
var ErrNoSuchInterface = errors.New("node: no such interface")

// ErrNoSuchMethod is returned when an interface does not expose a method
// at the given index.
var ErrNoSuchMethod = errors.New("node: no such method")

// ErrPathMismatch is returned by [Node.GetChildByPath] when path's first
// element does not match the receiver's own id.
var ErrPathMismatch = errors.New("node: path does not match this node")

// ErrInvalidHandle is returned when a [Handle] does not resolve to a live
// node in the tree.
var ErrInvalidHandle = errors.New("node: invalid handle")

// ErrCannotParseInput is returned by a [MethodFunc] when it fails to
// decode req. [Tree.Dispatch] maps it to the "Cannot parse input" wire
// error text (spec §4.5).
var ErrCannotParseInput = errors.New("node: cannot parse input")

// DispatchError wraps the error text [Tree.Dispatch] produced for a call
// made through [Tree.Invoke].
type DispatchError struct {
	Text string
}

// Error implements the error interface.
func (e *DispatchError) Error() string { return e.Text }
