package cart

import (
	"sync"
	"time"
)

// debouncer coalesces snapshots: only the latest one scheduled before the
// quiet period elapses is handed to save.
type debouncer struct {
	delay time.Duration
	save  func([]Item)

	saveMu sync.Mutex

	mu      sync.Mutex
	timer   *time.Timer
	pending []Item
	dirty   bool
	closed  bool
}

func newDebouncer(delay time.Duration, save func([]Item)) *debouncer {
	return &debouncer{delay: delay, save: save}
}

func (d *debouncer) schedule(items []Item) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.pending = cloneItems(items)
	d.dirty = true
	if d.timer == nil {
		d.timer = time.AfterFunc(d.delay, d.fire)
		return
	}
	d.timer.Reset(d.delay)
}

func (d *debouncer) take() ([]Item, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.dirty {
		return nil, false
	}
	items := d.pending
	d.pending, d.dirty = nil, false
	return items, true
}

func (d *debouncer) fire() {
	d.saveMu.Lock()
	defer d.saveMu.Unlock()
	if items, ok := d.take(); ok {
		d.save(items)
	}
}

// flush writes the pending snapshot now, if any.
func (d *debouncer) flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()
	d.fire()
}

// close flushes and refuses further schedules.
func (d *debouncer) close() {
	d.mu.Lock()
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()
	d.fire()
}
