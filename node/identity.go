// SPDX-License-Identifier: GPL-3.0-or-later

package node

import (
	"context"

	"github.com/bassosimone/octf/rpc"
	"github.com/bassosimone/octf/wire"
)

// identityInterfaceID is the interface every node acquires at init
// (spec §4.7: "this is how a client introspects the tree over RPC").
const identityInterfaceID = "octf.node.identity"

const (
	identityMethodGetNodeId = iota
	identityMethodGetChildren
	identityMethodGetInterfaces
)

// newIdentityInterface builds the identity interface installed on every
// node during init_common.
func newIdentityInterface() *Interface {
	return NewInterface(identityInterfaceID, 1,
		identityGetNodeId,
		identityGetChildren,
		identityGetInterfaces,
	)
}

func identityGetNodeId(ctx context.Context, n *Node, req []byte, ctl *rpc.CallController) ([]byte, error) {
	key := &wire.SimpleKey{Key: string(n.Id())}
	return key.PackAny().Marshal(), nil
}

func identityGetChildren(ctx context.Context, n *Node, req []byte, ctl *rpc.CallController) ([]byte, error) {
	ids := n.GetChildrenIds()
	ss := make([]string, len(ids))
	for i, id := range ids {
		ss[i] = string(id)
	}
	list := &wire.StringList{Values: ss}
	return list.Marshal(), nil
}

func identityGetInterfaces(ctx context.Context, n *Node, req []byte, ctl *rpc.CallController) ([]byte, error) {
	list := &wire.StringList{Values: n.GetInterfacesIds()}
	return list.Marshal(), nil
}
