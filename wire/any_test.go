// SPDX-License-Identifier: GPL-3.0-or-later

package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnyRoundTrip(t *testing.T) {
	a := &Any{TypeURL: "octf.SimpleKey", Value: []byte("hello")}
	got, err := UnmarshalAny(a.Marshal())
	require.NoError(t, err)
	assert.True(t, a.Equal(got))
}

func TestAnyEqual(t *testing.T) {
	a := &Any{TypeURL: "x", Value: []byte{1, 2}}
	b := &Any{TypeURL: "x", Value: []byte{1, 2}}
	c := &Any{TypeURL: "x", Value: []byte{1, 3}}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))

	var nilA *Any
	assert.True(t, nilA.Equal(nil))
}

func TestSimpleKeyRoundTrip(t *testing.T) {
	k := &SimpleKey{Key: "device/0"}
	packed := k.PackAny()
	assert.Equal(t, "octf.SimpleKey", packed.TypeURL)

	got, err := UnpackSimpleKey(packed)
	require.NoError(t, err)
	assert.Equal(t, k.Key, got.Key)
}

func TestSimpleValueRoundTrip(t *testing.T) {
	v := &SimpleValue{Value: 123456789}
	packed := v.PackAny()
	assert.Equal(t, "octf.SimpleValue", packed.TypeURL)

	got, err := UnpackSimpleValue(packed)
	require.NoError(t, err)
	assert.Equal(t, v.Value, got.Value)
}

func TestCacheEntryRoundTrip(t *testing.T) {
	key := (&SimpleKey{Key: "k"}).PackAny()
	value := (&SimpleValue{Value: 7}).PackAny()
	e := &CacheEntry{Key: key, Value: value}

	got, err := UnmarshalCacheEntry(e.Marshal())
	require.NoError(t, err)
	assert.True(t, e.Key.Equal(got.Key))
	assert.True(t, e.Value.Equal(got.Value))
}

func TestCacheFileRoundTrip(t *testing.T) {
	f := &CacheFile{Entries: []*CacheEntry{
		{Key: (&SimpleKey{Key: "a"}).PackAny(), Value: (&SimpleValue{Value: 1}).PackAny()},
		{Key: (&SimpleKey{Key: "b"}).PackAny(), Value: (&SimpleValue{Value: 2}).PackAny()},
	}}

	got, err := UnmarshalCacheFile(f.Marshal())
	require.NoError(t, err)
	require.Len(t, got.Entries, 2)
	for i := range f.Entries {
		assert.True(t, f.Entries[i].Key.Equal(got.Entries[i].Key))
		assert.True(t, f.Entries[i].Value.Equal(got.Entries[i].Value))
	}
}

func TestCacheFileEmpty(t *testing.T) {
	f := &CacheFile{}
	got, err := UnmarshalCacheFile(f.Marshal())
	require.NoError(t, err)
	assert.Empty(t, got.Entries)
}
