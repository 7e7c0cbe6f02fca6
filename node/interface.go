// SPDX-License-Identifier: GPL-3.0-or-later

package node

import (
	"context"
	"fmt"

	"github.com/bassosimone/octf/rpc"
)

// MethodFunc implements one method of an [Interface]. It receives the
// node the call was dispatched to, the raw request bytes, and the
// [rpc.CallController] for cancellation and state checks.
type MethodFunc func(ctx context.Context, n *Node, req []byte, ctl *rpc.CallController) ([]byte, error)

// Interface is a named, versioned bundle of methods a [Node] exposes
// (spec §4.5: calls are addressed by node path, interface id and
// version, and a method index).
type Interface struct {
	ID      string
	Version uint32
	methods []MethodFunc
}

// NewInterface builds an [*Interface] from its methods, indexed in the
// order given.
func NewInterface(id string, version uint32, methods ...MethodFunc) *Interface {
	return &Interface{ID: id, Version: version, methods: methods}
}

// Method returns the method at idx, or [ErrNoSuchMethod] if out of
// range.
func (i *Interface) Method(idx uint32) (MethodFunc, error) {
	if idx >= uint32(len(i.methods)) {
		return nil, fmt.Errorf("%w: index %d", ErrNoSuchMethod, idx)
	}
	return i.methods[idx], nil
}
