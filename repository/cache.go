// SPDX-License-Identifier: GPL-3.0-or-later

package repository

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bassosimone/octf/wire"
)

const cacheFileName = "octf.cache"

// packable is any protobuf-ish message that can pack itself into a
// [wire.Any] for storage in the cache file.
type packable interface {
	PackAny() *wire.Any
}

// TraceCache is the per-trace key/value cache described in spec §4.10:
// a single protobuf file holding a list of Any-packed (key, value)
// pairs. Write is read-modify-write of the whole file; callers are
// expected to hold exclusive access to the trace for the duration, so
// TraceCache itself only serializes its own in-process callers.
type TraceCache struct {
	path string

	mu sync.Mutex
}

// OpenTraceCache returns a [*TraceCache] for the trace directory dir. The
// cache file is created lazily on first write.
func OpenTraceCache(dir string) *TraceCache {
	return &TraceCache{path: filepath.Join(dir, cacheFileName)}
}

// Read looks up key and returns the matching value's packed bytes, or
// [ErrKeyNotFound] if no entry matches key by Any message-equality.
func (c *TraceCache) Read(key packable) (*wire.Any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	file, err := c.load()
	if err != nil {
		return nil, err
	}
	want := key.PackAny()
	for _, e := range file.Entries {
		if e.Key.Equal(want) {
			return e.Value, nil
		}
	}
	return nil, ErrKeyNotFound
}

// Write stores value under key, replacing any existing entry for the
// same key (last-writer-wins, per spec §8).
func (c *TraceCache) Write(key, value packable) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	file, err := c.load()
	if err != nil {
		return err
	}
	packedKey, packedValue := key.PackAny(), value.PackAny()
	for _, e := range file.Entries {
		if e.Key.Equal(packedKey) {
			e.Value = packedValue
			return c.store(file)
		}
	}
	file.Entries = append(file.Entries, &wire.CacheEntry{Key: packedKey, Value: packedValue})
	return c.store(file)
}

// ReadString is the string-keyed convenience wrapper named in spec
// §4.10: it wraps key in a [wire.SimpleKey] and returns the raw value
// bytes packed by whatever [packable] originally wrote it.
func (c *TraceCache) ReadString(key string) (*wire.Any, error) {
	return c.Read(&wire.SimpleKey{Key: key})
}

// WriteStringUint64 is the string-keyed, uint64-valued convenience
// wrapper named in spec §4.10: key is wrapped in a [wire.SimpleKey],
// value in a [wire.SimpleValue].
func (c *TraceCache) WriteStringUint64(key string, value uint64) error {
	return c.Write(&wire.SimpleKey{Key: key}, &wire.SimpleValue{Value: value})
}

// ReadStringUint64 reads back a value written by
// [TraceCache.WriteStringUint64].
func (c *TraceCache) ReadStringUint64(key string) (uint64, error) {
	any, err := c.ReadString(key)
	if err != nil {
		return 0, err
	}
	v, err := wire.UnpackSimpleValue(any)
	if err != nil {
		return 0, fmt.Errorf("repository: unpack cache value: %w", err)
	}
	return v.Value, nil
}

func (c *TraceCache) load() (*wire.CacheFile, error) {
	b, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return &wire.CacheFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("repository: read cache: %w", err)
	}
	file, err := wire.UnmarshalCacheFile(b)
	if err != nil {
		return nil, fmt.Errorf("repository: parse cache: %w", err)
	}
	return file, nil
}

func (c *TraceCache) store(file *wire.CacheFile) error {
	dir := filepath.Dir(c.path)
	tmp, err := os.CreateTemp(dir, ".octf.cache-*")
	if err != nil {
		return fmt.Errorf("repository: create temp cache file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(file.Marshal()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("repository: write cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("repository: close temp cache file: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("repository: rename cache file: %w", err)
	}
	return nil
}
