// Package watch reports content changes under a corpus directory so the
// corpus can be re-audited.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a batch of changes is reported.
const DefaultDebounce = 500 * time.Millisecond

// Change kinds.
const (
	Created = "created"
	Updated = "updated"
	Deleted = "deleted"
	Renamed = "renamed"
)

// Change is one content file change, with a slash-separated path relative to
// the watched root.
type Change struct {
	Kind string `json:"kind"`
	Path string `json:"path"`
}

// Callback receives a debounced batch of changes, sorted by path. A path
// appears once per batch with its latest kind.
type Callback func(changes []Change)

// Options configures Watch.
type Options struct {
	// Root is the directory to watch recursively.
	Root string
	// Match selects the files that count as content. Nil matches everything.
	Match func(path string) bool
	// Debounce is the quiet period; zero selects DefaultDebounce.
	Debounce time.Duration
	Logger   *slog.Logger
}

// Watch starts an fsnotify watcher on opts.Root and reports content changes
// to cb until ctx is cancelled.
//
// New directories created at runtime are added to the watch list and the
// content files already inside them are reported as created. fsnotify fires
// Rename on the old path only; the new path arrives as a separate Create.
func Watch(ctx context.Context, opts Options, cb Callback) error {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Match == nil {
		opts.Match = func(string) bool { return true }
	}
	logger := opts.Logger

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, opts.Root); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", opts.Root))

	pending := make(map[string]string)
	var flushTimer *time.Timer
	var flushCh <-chan time.Time

	record := func(kind, abs string) {
		rel, relErr := filepath.Rel(opts.Root, abs)
		if relErr != nil {
			return
		}
		pending[filepath.ToSlash(rel)] = kind
		if flushTimer == nil {
			flushTimer = time.NewTimer(opts.Debounce)
			flushCh = flushTimer.C
		} else {
			flushTimer.Reset(opts.Debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if flushTimer != nil {
				flushTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-flushCh:
			flushTimer, flushCh = nil, nil
			if len(pending) == 0 {
				continue
			}
			batch := make([]Change, 0, len(pending))
			for p, k := range pending {
				batch = append(batch, Change{Kind: k, Path: p})
			}
			sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
			pending = make(map[string]string)
			logger.Debug("watcher: changes", slog.Int("count", len(batch)))
			if cb != nil {
				cb(batch)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			absPath := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if hidden(info.Name()) {
						continue
					}
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					_ = filepath.WalkDir(absPath, func(p string, d fs.DirEntry, err error) error {
						if err == nil && !d.IsDir() && opts.Match(p) {
							record(Created, p)
						}
						return nil
					})
					continue
				}
			}

			if !opts.Match(absPath) {
				continue
			}

			switch {
			case ev.Op&fsnotify.Create != 0:
				record(Created, absPath)
			case ev.Op&fsnotify.Write != 0:
				// A write right after a create is still a create.
				kind := Updated
				if pending[relOrEmpty(opts.Root, absPath)] == Created {
					kind = Created
				}
				record(kind, absPath)
			case ev.Op&fsnotify.Remove != 0:
				record(Deleted, absPath)
			case ev.Op&fsnotify.Rename != 0:
				record(Renamed, absPath)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func relOrEmpty(root, abs string) string {
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return ""
	}
	return filepath.ToSlash(rel)
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// addDirsRecursive adds root and all its non-hidden subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && hidden(d.Name()) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
