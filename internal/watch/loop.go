package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sectionforge/sectionforge/internal/builder"
	"github.com/sectionforge/sectionforge/internal/logging"
	"github.com/sectionforge/sectionforge/internal/section"
)

// DefaultDebounce is how long a burst of events is allowed to settle before
// the batch dispatches.
const DefaultDebounce = 30 * time.Millisecond

// Notifier receives the outcome of each dispatched batch. The live-reload
// server implements it; a nil notifier is fine.
type Notifier interface {
	Rebuilt(sections []string)
	Removed(paths []string)
}

// Config configures one watch run.
type Config struct {
	// Root is the source root; the watcher is scoped to its sections dir.
	Root string
	// Exclude holds extra ignore globs relative to the sections dir.
	Exclude []string
	// Debounce overrides DefaultDebounce when positive.
	Debounce time.Duration
	// Notifier is told about rebuilt sections and removed outputs.
	Notifier Notifier
}

// Loop is the single logical thread that processes notifications: events
// feed the coalescer, each debounced batch flushes it, and the resulting
// rebuild and remove sets go to the builder. A batch's dispatch completes
// before the next batch runs, so no two builds interleave.
type Loop struct {
	b        *builder.Builder
	w        *Watcher
	co       *Coalescer
	log      *slog.Logger
	notifier Notifier
}

// Run watches the sections root until ctx is done. Pre-existing files are
// not built here; only changes after subscription matter. Callers wanting a
// consistent starting state run a full build first.
func Run(ctx context.Context, b *builder.Builder, cfg Config, log *slog.Logger) error {
	if log == nil {
		log = logging.New("watch")
	}

	root := filepath.Join(cfg.Root, builder.SectionsDirname)
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("sections dir %s does not exist", root)
	}

	w, err := NewWatcher(root, cfg.Exclude, log)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.AddDir(root); err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}

	l := &Loop{
		b:        b,
		w:        w,
		co:       NewCoalescer(),
		log:      log,
		notifier: cfg.Notifier,
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	debouncer := NewDebouncer(debounce, l.processBatch)
	defer debouncer.Stop()

	log.Info("watching for changes", "dir", root)

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-w.Events():
			if !ok {
				return nil
			}
			debouncer.Add(evt)
		case err := <-w.Errors():
			log.Error("watcher error", "error", err)
		}
	}
}

// processBatch is the debouncer callback: one coalescing window's worth of
// raw events in, one rebuild pass and one remove pass out.
func (l *Loop) processBatch(events []fsnotify.Event) {
	// Deduplicate by path; the latest event wins.
	latest := make(map[string]fsnotify.Event)
	for _, evt := range events {
		if evt.Name == "" {
			continue
		}
		latest[evt.Name] = evt
	}

	for _, evt := range latest {
		if l.w.IsIgnoredDir(evt.Name) || isPermissionChurn(evt) {
			continue
		}
		l.log.Info("file changed", "op", evt.Op.String(), "file", evt.Name)
		l.classify(evt)
	}

	rebuild, remove := l.co.Flush()
	if len(rebuild) == 0 && len(remove) == 0 {
		return
	}

	// Rebuild first; removals target disjoint destinations once the
	// coalescer's live-state resolution has run.
	if len(rebuild) > 0 {
		built, err := l.b.IncrementalBuild(rebuild)
		if err != nil {
			l.log.Error("incremental build finished with failures", "error", err)
		}
		if l.notifier != nil && len(built) > 0 {
			l.notifier.Rebuilt(built)
		}
	}

	if len(remove) > 0 {
		deleted, err := l.b.RemoveOutputs(remove)
		if err != nil {
			l.log.Error("output removal finished with failures", "error", err)
		}
		if l.notifier != nil && len(deleted) > 0 {
			l.notifier.Removed(deleted)
		}
	}

	l.w.RemoveStale()
}

// classify feeds one deduplicated event into the coalescer. New directories
// are added to the watch set so files created inside them are seen.
func (l *Loop) classify(evt fsnotify.Event) {
	if evt.Has(fsnotify.Remove) || evt.Has(fsnotify.Rename) {
		if l.w.WasWatchedDir(evt.Name) {
			l.co.Add(KindRemoveDir, evt.Name)
		} else {
			l.co.Add(KindChange, evt.Name)
		}
		return
	}

	if evt.Has(fsnotify.Create) {
		if info, err := os.Stat(evt.Name); err == nil && info.IsDir() {
			if err := l.w.AddDir(evt.Name); err != nil {
				l.log.Error("watch new dir failed", "dir", evt.Name, "error", err)
			}
			// A freshly made empty directory holds nothing to compile;
			// its files announce themselves with their own events. A
			// populated directory moved in wholesale is the exception.
			if !hasRoleFiles(evt.Name) {
				return
			}
		}
	}

	l.co.Add(KindChange, evt.Name)
}

func hasRoleFiles(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := section.RoleForName(entry.Name()); ok {
			return true
		}
	}
	return false
}

// isPermissionChurn reports a Chmod with no other bits set on a file that
// has content. An empty file's chmod may be the middle of a create-chmod-
// write save sequence some editors use, so those still classify.
func isPermissionChurn(evt fsnotify.Event) bool {
	if evt.Op&^fsnotify.Chmod != 0 {
		return false
	}
	info, err := os.Stat(evt.Name)
	return err == nil && info.Size() > 0
}
