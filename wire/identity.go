// SPDX-License-Identifier: GPL-3.0-or-later

package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// StringList carries a sequence of strings: the node tree's identity
// interface (spec §4.7, "this is how a client introspects the tree over
// RPC") uses this for get_children and get_interfaces responses.
type StringList struct {
	Values []string
}

// Marshal encodes l into protobuf wire format.
func (l *StringList) Marshal() []byte {
	var b []byte
	for _, v := range l.Values {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendString(b, v)
	}
	return b
}

// UnmarshalStringList decodes a [StringList] from protobuf wire format bytes.
func UnmarshalStringList(b []byte) (*StringList, error) {
	l := &StringList{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("wire: StringList: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		if num == 1 {
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, fmt.Errorf("wire: StringList.values: %w", protowire.ParseError(n))
			}
			l.Values = append(l.Values, v)
			b = b[n:]
			continue
		}
		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return nil, fmt.Errorf("wire: StringList: skip field %d: %w", num, protowire.ParseError(n))
		}
		b = b[n:]
	}
	return l, nil
}
