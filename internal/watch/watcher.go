// Package watch subscribes to filesystem notifications for the sections
// root, coalesces event bursts, and dispatches rebuild and remove batches to
// the builder.
package watch

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/sectionforge/sectionforge/internal/logging"
)

// Ignore patterns - these are glob patterns, not path segments
const (
	globGit         = "**/.git"
	globNodeModules = "**/node_modules"
)

// Watcher wraps fsnotify with recursive directory adds and glob-based
// ignores. It also remembers every directory it watches, which is how a
// Remove event for a path is later recognized as a directory removal:
// fsnotify has no unlink-dir event kind of its own.
type Watcher struct {
	log     *slog.Logger
	fsWatch *fsnotify.Watcher

	watchedDirs sync.Map

	// Patterns stored as absolute paths with forward slashes
	ignoredDirs []string
	absRoot     string
}

// NewWatcher creates a watcher rooted at root. Extra excludes are glob
// patterns relative to the root.
func NewWatcher(root string, exclude []string, log *slog.Logger) (*Watcher, error) {
	if log == nil {
		log = logging.New("watch")
	}

	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		absRoot = root
	}

	w := &Watcher{
		log:     log,
		fsWatch: fsWatch,
		absRoot: filepath.ToSlash(absRoot),
	}

	w.ignoredDirs = append(w.ignoredDirs,
		w.absRoot+"/"+globGit,
		w.absRoot+"/"+globNodeModules,
	)
	for _, p := range exclude {
		np := w.absRoot + "/" + filepath.ToSlash(p)
		w.ignoredDirs = append(w.ignoredDirs, np, np+"/**")
	}

	return w, nil
}

// norm converts a path to absolute with forward slashes for consistent matching
func (w *Watcher) norm(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(abs)
}

func (w *Watcher) Events() <-chan fsnotify.Event {
	return w.fsWatch.Events
}

func (w *Watcher) Errors() <-chan error {
	return w.fsWatch.Errors
}

func (w *Watcher) Close() error {
	return w.fsWatch.Close()
}

// AddDir adds a directory and its subdirectories to the watcher.
func (w *Watcher) AddDir(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return err
		}

		if w.IsIgnoredDir(path) {
			return filepath.SkipDir
		}

		absPath := w.norm(path)
		if _, exists := w.watchedDirs.Load(absPath); exists {
			return nil
		}

		if err := w.fsWatch.Add(path); err != nil {
			return err
		}

		w.watchedDirs.Store(absPath, true)
		return nil
	})
}

// WasWatchedDir reports whether a path is (or was, before removal) a watched
// directory.
func (w *Watcher) WasWatchedDir(path string) bool {
	_, ok := w.watchedDirs.Load(w.norm(path))
	return ok
}

// RemoveStale drops watches for directories that no longer exist.
func (w *Watcher) RemoveStale() {
	w.watchedDirs.Range(func(key, _ any) bool {
		path := key.(string)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			w.fsWatch.Remove(path)
			w.watchedDirs.Delete(path)
		}
		return true
	})
}

// IsIgnoredDir checks if a directory path matches any ignored pattern.
func (w *Watcher) IsIgnoredDir(path string) bool {
	np := w.norm(path)
	for _, pattern := range w.ignoredDirs {
		matches, err := doublestar.Match(pattern, np)
		if err != nil {
			w.log.Error("pattern match error", "pattern", pattern, "path", np, "error", err)
			continue
		}
		if matches {
			return true
		}
	}
	return false
}
