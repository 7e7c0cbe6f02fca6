// SPDX-License-Identifier: GPL-3.0-or-later

package node

import (
	"context"

	"github.com/bassosimone/octf/rpc"
	"github.com/bassosimone/octf/wire"
)

var _ rpc.Dispatcher = (*Tree)(nil)

// Dispatch implements [rpc.Dispatcher] (spec §4.5 Algorithm): resolve the
// target node by walking NodePath, look up the interface by name and
// version, look up the method by index, deserialize is the method's own
// responsibility, then invoke.
func (t *Tree) Dispatch(ctx context.Context, req *wire.MethodRequest, ctl *rpc.CallController) ([]byte, bool, string) {
	n, err := t.ResolvePath(NodePathFromStrings(req.NodePath))
	if err != nil {
		return nil, false, "No such node"
	}
	defer n.Release()

	iface, err := n.GetInterface(req.InterfaceName)
	if err != nil || iface.Version != req.InterfaceVersion {
		return nil, false, "No such interface"
	}

	method, err := iface.Method(req.MethodIndex)
	if err != nil {
		return nil, false, "No such interface"
	}

	resp, err := method(ctx, n, req.Request, ctl)
	if err != nil {
		if err == ErrCannotParseInput {
			return nil, false, "Cannot parse input"
		}
		return nil, false, err.Error()
	}
	return resp, true, ""
}

// Invoke is the in-process entry point mirroring [rpc.ConnectionContext]'s
// remote call path, for callers that live in the same process as the
// tree (spec §3: a local command path that bypasses the RPC proxy and
// socket layer entirely while exercising the same dispatch logic).
func (t *Tree) Invoke(ctx context.Context, path NodePath, interfaceName string, interfaceVersion uint32, methodIndex uint32, request []byte) ([]byte, error) {
	req := &wire.MethodRequest{
		NodePath:         path.Strings(),
		InterfaceName:    interfaceName,
		InterfaceVersion: interfaceVersion,
		MethodIndex:      methodIndex,
		Request:          request,
	}
	ctl := &rpc.CallController{}
	resp, success, errText := t.Dispatch(ctx, req, ctl)
	if !success {
		return nil, &DispatchError{Text: errText}
	}
	return resp, nil
}
