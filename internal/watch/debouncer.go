package watch

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Debouncer batches rapid file events: a single editor save can fire several
// notifications, and the callback should see them as one burst. A lone
// collector goroutine owns the batch and the timer and also runs the
// callback, so batches dispatch strictly one after another and events that
// arrive mid-callback simply queue up for the next window.
type Debouncer struct {
	in   chan fsnotify.Event
	quit chan struct{}
	done chan struct{}
	stop sync.Once
}

func NewDebouncer(d time.Duration, cb func([]fsnotify.Event)) *Debouncer {
	deb := &Debouncer{
		in:   make(chan fsnotify.Event, 256),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go deb.collect(d, cb)
	return deb
}

func (deb *Debouncer) collect(d time.Duration, cb func([]fsnotify.Event)) {
	defer close(deb.done)

	var batch []fsnotify.Event
	timer := time.NewTimer(d)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case evt := <-deb.in:
			batch = append(batch, evt)
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(d)

		case <-timer.C:
			if len(batch) > 0 {
				cb(batch)
				batch = nil
			}

		case <-deb.quit:
			return
		}
	}
}

// Add queues an event for the next batch. After Stop it is a no-op.
func (deb *Debouncer) Add(evt fsnotify.Event) {
	select {
	case <-deb.quit:
	case deb.in <- evt:
	}
}

// Stop drops buffered events and waits for the collector to exit, so nothing
// fires during teardown. Call before closing the watcher.
func (deb *Debouncer) Stop() {
	deb.stop.Do(func() { close(deb.quit) })
	<-deb.done
}
