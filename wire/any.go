// SPDX-License-Identifier: GPL-3.0-or-later

package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Any is a minimal stand-in for google.protobuf.Any (spec §3, §4.10): a
// type-tagged, opaque byte payload. We don't depend on the full
// reflection-based anypb.Any (which requires generated proto.Message
// types); TypeURL plays the same role as google.protobuf.Any's type_url
// and Value holds the packed message bytes.
type Any struct {
	TypeURL string
	Value   []byte
}

// Equal reports whether two [Any] values are byte-for-byte identical. The
// trace cache (§4.10) uses this for key lookups ("compares packed key
// bytes via message-equality").
func (a *Any) Equal(b *Any) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.TypeURL == b.TypeURL && string(a.Value) == string(b.Value)
}

// Marshal encodes a into protobuf wire format.
func (a *Any) Marshal() []byte {
	var b []byte
	if a.TypeURL != "" {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendString(b, a.TypeURL)
	}
	if len(a.Value) > 0 {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, a.Value)
	}
	return b
}

// UnmarshalAny decodes an [Any] from protobuf wire format bytes.
func UnmarshalAny(b []byte) (*Any, error) {
	a := &Any{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("wire: Any: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, fmt.Errorf("wire: Any.type_url: %w", protowire.ParseError(n))
			}
			a.TypeURL = v
			b = b[n:]
		case 2:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("wire: Any.value: %w", protowire.ParseError(n))
			}
			a.Value = append([]byte(nil), v...)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("wire: Any: skip field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return a, nil
}

// SimpleKey wraps a plain string as a message, for the trace cache's
// string-keyed convenience wrapper (§4.10).
type SimpleKey struct {
	Key string
}

// PackAny packs s as an [Any] with type URL "octf.SimpleKey".
func (s *SimpleKey) PackAny() *Any {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, s.Key)
	return &Any{TypeURL: "octf.SimpleKey", Value: b}
}

// UnpackSimpleKey unpacks a [SimpleKey] previously packed by [SimpleKey.PackAny].
func UnpackSimpleKey(a *Any) (*SimpleKey, error) {
	b := a.Value
	s := &SimpleKey{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("wire: SimpleKey: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		if num == 1 {
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, fmt.Errorf("wire: SimpleKey.key: %w", protowire.ParseError(n))
			}
			s.Key = v
			b = b[n:]
			continue
		}
		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return nil, fmt.Errorf("wire: SimpleKey: skip field %d: %w", num, protowire.ParseError(n))
		}
		b = b[n:]
	}
	return s, nil
}

// SimpleValue wraps a plain uint64 as a message, for cache values that are
// just counters or timestamps (§4.10).
type SimpleValue struct {
	Value uint64
}

// PackAny packs v as an [Any] with type URL "octf.SimpleValue".
func (v *SimpleValue) PackAny() *Any {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, v.Value)
	return &Any{TypeURL: "octf.SimpleValue", Value: b}
}

// UnpackSimpleValue unpacks a [SimpleValue] previously packed by [SimpleValue.PackAny].
func UnpackSimpleValue(a *Any) (*SimpleValue, error) {
	b := a.Value
	out := &SimpleValue{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("wire: SimpleValue: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		if num == 1 {
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("wire: SimpleValue.value: %w", protowire.ParseError(n))
			}
			out.Value = v
			b = b[n:]
			continue
		}
		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return nil, fmt.Errorf("wire: SimpleValue: skip field %d: %w", num, protowire.ParseError(n))
		}
		b = b[n:]
	}
	return out, nil
}

// CacheEntry is one row of the per-trace key/value cache file (§4.10,
// "octf.cache"): a packed key and a packed value, both [Any].
type CacheEntry struct {
	Key   *Any
	Value *Any
}

// Marshal encodes e into protobuf wire format.
func (e *CacheEntry) Marshal() []byte {
	var b []byte
	if e.Key != nil {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, e.Key.Marshal())
	}
	if e.Value != nil {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, e.Value.Marshal())
	}
	return b
}

// UnmarshalCacheEntry decodes a [CacheEntry] from protobuf wire format bytes.
func UnmarshalCacheEntry(b []byte) (*CacheEntry, error) {
	e := &CacheEntry{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("wire: CacheEntry: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("wire: CacheEntry.key: %w", protowire.ParseError(n))
			}
			key, err := UnmarshalAny(v)
			if err != nil {
				return nil, err
			}
			e.Key = key
			b = b[n:]
		case 2:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("wire: CacheEntry.value: %w", protowire.ParseError(n))
			}
			value, err := UnmarshalAny(v)
			if err != nil {
				return nil, err
			}
			e.Value = value
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("wire: CacheEntry: skip field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return e, nil
}

// CacheFile is the top-level message stored in "octf.cache": a list of
// [CacheEntry] values.
type CacheFile struct {
	Entries []*CacheEntry
}

// Marshal encodes f into protobuf wire format.
func (f *CacheFile) Marshal() []byte {
	var b []byte
	for _, e := range f.Entries {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, e.Marshal())
	}
	return b
}

// UnmarshalCacheFile decodes a [CacheFile] from protobuf wire format bytes.
func UnmarshalCacheFile(b []byte) (*CacheFile, error) {
	f := &CacheFile{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("wire: CacheFile: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		if num == 1 {
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("wire: CacheFile.entries: %w", protowire.ParseError(n))
			}
			entry, err := UnmarshalCacheEntry(v)
			if err != nil {
				return nil, err
			}
			f.Entries = append(f.Entries, entry)
			b = b[n:]
			continue
		}
		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return nil, fmt.Errorf("wire: CacheFile: skip field %d: %w", num, protowire.ParseError(n))
		}
		b = b[n:]
	}
	return f, nil
}
