// SPDX-License-Identifier: GPL-3.0-or-later

// Package node implements the addressable node tree (spec §4.7): nodes
// register children and interfaces along a path, every node acquires an
// identity interface at init, and settings are persisted per node. A
// [*Tree] implements [rpc.Dispatcher] directly, so the same tree serves
// both RPC clients and in-process callers via [Tree.Invoke].
package node
