// SPDX-License-Identifier: GPL-3.0-or-later

package repository

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bassosimone/octf"
	"github.com/bassosimone/octf/wire"
	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-multierror"
)

const summaryFileName = "summary"

// entry is one enumerated trace: its path relative to the traces root and
// its parsed summary.
type entry struct {
	relPath string
	summary *wire.TraceSummary
}

// Repository enumerates, opens, and removes traces under a traces root
// (spec §4.10). It watches the root directory with fsnotify and re-scans
// after any event there; the watch does not cover subdirectories, so an
// out-of-band create or remove below the root's direct entries is not
// seen until another event or [Repository.Remove] marks the listing dirty.
type Repository struct {
	cfg       *octf.Config
	logger    octf.SLogger
	tracesDir string

	watcher *fsnotify.Watcher
	done    chan struct{}
	dirty   atomic.Bool

	mu    sync.Mutex
	cache []entry
}

// NewRepository opens a repository rooted at cfg.TracesDir. Watching the
// root is best-effort: if fsnotify cannot be initialized (e.g. inotify
// instances exhausted), the repository still works, it simply re-scans
// the filesystem on every [Repository.List] call instead of serving a
// cached listing.
func NewRepository(cfg *octf.Config, logger octf.SLogger) *Repository {
	if logger == nil {
		logger = octf.DefaultSLogger()
	}
	r := &Repository{cfg: cfg, logger: logger, tracesDir: cfg.TracesDir, done: make(chan struct{})}
	r.dirty.Store(true)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Info("repositoryWatchDisabled", slog.Any("err", err))
		close(r.done)
		return r
	}
	if err := watcher.Add(cfg.TracesDir); err != nil {
		logger.Info("repositoryWatchDisabled", slog.Any("err", err))
		watcher.Close()
		close(r.done)
		return r
	}
	r.watcher = watcher
	go r.watchLoop()
	return r
}

func (r *Repository) watchLoop() {
	defer close(r.done)
	for {
		select {
		case _, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			r.dirty.Store(true)
		case _, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.dirty.Store(true)
		}
	}
}

// Close stops the filesystem watcher, if any.
func (r *Repository) Close() error {
	if r.watcher == nil {
		return nil
	}
	err := r.watcher.Close()
	<-r.done
	return err
}

// List enumerates traces matching prefix (spec §4.10):
//   - "" matches every trace under the root.
//   - a prefix ending in '*' matches that directory and every trace
//     nested under it.
//   - any other prefix is an exact match against one trace's relative
//     path.
//
// Only traces whose summary parses and passes [wire.TraceSummary.Valid]
// are returned. Directories with no summary file are skipped silently;
// directories with a corrupt or invalid summary are skipped and their
// causes, together with any walk errors, are aggregated into the
// returned error.
func (r *Repository) List(prefix string) ([]string, error) {
	all, err := r.snapshot()
	base, recursive := normalizePrefix(prefix)
	var out []string
	for _, e := range all {
		if matchesPrefix(e.relPath, base, recursive) {
			out = append(out, e.relPath)
		}
	}
	sort.Strings(out)
	return out, err
}

func normalizePrefix(prefix string) (base string, recursive bool) {
	if prefix == "" {
		return "", true
	}
	if strings.HasSuffix(prefix, "*") {
		return strings.TrimSuffix(prefix, "*"), true
	}
	return prefix, false
}

func matchesPrefix(relPath, base string, recursive bool) bool {
	if !recursive {
		return relPath == base
	}
	if base == "" {
		return true
	}
	return relPath == base || strings.HasPrefix(relPath, base+"/")
}

// snapshot returns the cached listing, refreshing it first if the
// watcher (or the absence of one) has marked it dirty.
func (r *Repository) snapshot() ([]entry, error) {
	if !r.dirty.CompareAndSwap(true, false) && r.watcher != nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.cache, nil
	}
	entries, err := r.scan()
	r.mu.Lock()
	r.cache = entries
	r.mu.Unlock()
	if r.watcher == nil {
		r.dirty.Store(true)
	}
	return entries, err
}

func (r *Repository) scan() ([]entry, error) {
	var out []entry
	var merr *multierror.Error
	walkErr := filepath.WalkDir(r.tracesDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			merr = multierror.Append(merr, err)
			return nil
		}
		if !d.IsDir() || path == r.tracesDir {
			return nil
		}
		summaryPath := filepath.Join(path, summaryFileName)
		b, err := os.ReadFile(summaryPath)
		if err != nil {
			return nil
		}
		summary, err := wire.UnmarshalTraceSummary(b)
		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("%s: %w", path, err))
			return nil
		}
		if !summary.Valid() {
			merr = multierror.Append(merr, fmt.Errorf("%s: %w", path, ErrInvalidSummary))
			return nil
		}
		rel, err := filepath.Rel(r.tracesDir, path)
		if err != nil {
			return nil
		}
		out = append(out, entry{relPath: filepath.ToSlash(rel), summary: summary})
		return nil
	})
	if walkErr != nil {
		merr = multierror.Append(merr, walkErr)
	}
	return out, merr.ErrorOrNil()
}

// Get opens one trace and loads its summary.
func (r *Repository) Get(path string) (*wire.TraceSummary, error) {
	dir, err := r.resolve(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(filepath.Join(dir, summaryFileName))
	if err != nil {
		return nil, fmt.Errorf("repository: read summary: %w", err)
	}
	summary, err := wire.UnmarshalTraceSummary(b)
	if err != nil {
		return nil, fmt.Errorf("repository: parse summary: %w", err)
	}
	if !summary.Valid() {
		return nil, ErrInvalidSummary
	}
	return summary, nil
}

// Remove deletes the trace at path. It refuses to remove a trace whose
// state is not terminal (complete or error) unless force is set.
func (r *Repository) Remove(path string, force bool) error {
	dir, err := r.resolve(path)
	if err != nil {
		return err
	}
	if !force {
		summary, err := r.Get(path)
		if err != nil {
			return err
		}
		if summary.State != wire.TraceStateComplete && summary.State != wire.TraceStateError {
			return ErrNotTerminal
		}
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("repository: remove: %w", err)
	}
	r.dirty.Store(true)
	return nil
}

// resolve joins path onto the traces root and rejects any path that
// escapes it (e.g. via "..").
func (r *Repository) resolve(path string) (string, error) {
	dir := filepath.Join(r.tracesDir, path)
	rel, err := filepath.Rel(r.tracesDir, dir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrInvalidPath
	}
	return dir, nil
}
