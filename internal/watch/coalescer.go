package watch

import (
	"io/fs"
	"os"
	"sort"
)

// Kind classifies a filesystem event for coalescing purposes.
type Kind int

const (
	// KindChange covers adds, content changes and file-level unlinks; all
	// of them mark the path for rebuild.
	KindChange Kind = iota
	// KindRemoveDir is a section folder going away; it marks the path for
	// output removal.
	KindRemoveDir
)

// Coalescer accumulates events for one coalescing window and drains them as
// deduplicated rebuild and remove path sets. It holds no timers and does no
// locking; the watch loop owns it and drives it serially, which keeps all
// concurrency reasoning in one place.
type Coalescer struct {
	rebuild map[string]struct{}
	remove  map[string]struct{}

	// stat is swappable so tests can dictate live-state answers.
	stat func(string) (fs.FileInfo, error)
}

func NewCoalescer() *Coalescer {
	return &Coalescer{
		rebuild: make(map[string]struct{}),
		remove:  make(map[string]struct{}),
		stat:    os.Stat,
	}
}

// Add records one event. Later events for the same path collapse into the
// same set entry.
func (c *Coalescer) Add(kind Kind, path string) {
	switch kind {
	case KindChange:
		c.rebuild[path] = struct{}{}
	case KindRemoveDir:
		c.remove[path] = struct{}{}
	}
}

// Pending reports how many distinct paths are buffered.
func (c *Coalescer) Pending() int {
	n := len(c.rebuild)
	for p := range c.remove {
		if _, both := c.rebuild[p]; !both {
			n++
		}
	}
	return n
}

// Flush returns the window's deduplicated rebuild and remove path lists and
// resets the coalescer to empty. A path that accumulated both kinds during
// the window is decided here, against live filesystem state rather than the
// state frozen at event time: if it still exists it rebuilds, otherwise it
// is removed.
func (c *Coalescer) Flush() (rebuild, remove []string) {
	for p := range c.rebuild {
		if _, both := c.remove[p]; !both {
			continue
		}
		if _, err := c.stat(p); err == nil {
			delete(c.remove, p)
		} else {
			delete(c.rebuild, p)
		}
	}

	rebuild = drainSorted(c.rebuild)
	remove = drainSorted(c.remove)
	c.rebuild = make(map[string]struct{})
	c.remove = make(map[string]struct{})
	return rebuild, remove
}

func drainSorted(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
