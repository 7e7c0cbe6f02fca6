// SPDX-License-Identifier: GPL-3.0-or-later

package node

import (
	"fmt"
	"regexp"
	"strings"
)

// NodeId identifies a node uniquely among its siblings.
type NodeId string

var nodeIdPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateNodeId reports whether id satisfies the node id grammar:
// non-empty, alphanumeric plus '_'/'-'. The colon is reserved as the path
// separator for settings file names (spec §4.7), so it is never valid
// inside a single id.
func ValidateNodeId(id NodeId) error {
	if id == "" || !nodeIdPattern.MatchString(string(id)) {
		return fmt.Errorf("%w: %q", ErrInvalidNodeId, id)
	}
	return nil
}

// NodePath is a root-first sequence of [NodeId] values.
type NodePath []NodeId

// String joins the path with ':', matching the settings file basename
// convention (spec §4.7: "basename is node ids joined by ':'").
func (p NodePath) String() string {
	parts := make([]string, len(p))
	for i, id := range p {
		parts[i] = string(id)
	}
	return strings.Join(parts, ":")
}

// Strings returns the path as a plain []string, the representation used
// on the wire ([wire.MethodRequest.NodePath]).
func (p NodePath) Strings() []string {
	out := make([]string, len(p))
	for i, id := range p {
		out[i] = string(id)
	}
	return out
}

// NodePathFromStrings converts a wire-format path back into a [NodePath].
func NodePathFromStrings(ss []string) NodePath {
	out := make(NodePath, len(ss))
	for i, s := range ss {
		out[i] = NodeId(s)
	}
	return out
}
