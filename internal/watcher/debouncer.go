package watcher

import (
	"sync"
	"time"
)

// Debouncer coalesces rapid events per path. Each path gets its own sliding
// quiet window measured from the last event observed; on expiry exactly one
// event carrying the most recent kind is emitted. Kinds merge as:
//   - CREATED + MODIFIED = CREATED (file is still new)
//   - CREATED + DELETED  = nothing (file never really existed)
//   - MODIFIED + DELETED = DELETED (file is gone)
//   - DELETED + CREATED  = MODIFIED (file was replaced)
//
// A zero window bypasses coalescing entirely.
type Debouncer struct {
	window time.Duration
	emit   func(Event)

	mu      sync.Mutex
	pending map[string]*pendingEvent
	stopped bool
}

// pendingEvent is the per-path coalescing record. Owned exclusively by the
// debouncer; destroyed when its timer fires or a newer event cancels it out.
type pendingEvent struct {
	event     Event
	firstSeen time.Time
	lastSeen  time.Time
	timer     *time.Timer
}

// NewDebouncer creates a debouncer with the given quiet window. emit is
// invoked from timer goroutines, one call per coalesced event, and must not
// block for long.
func NewDebouncer(window time.Duration, emit func(Event)) *Debouncer {
	return &Debouncer{
		window:  window,
		emit:    emit,
		pending: make(map[string]*pendingEvent),
	}
}

// Add records an event under its path key and (re)schedules delivery after
// the quiet window. With a zero window the event is emitted immediately.
func (d *Debouncer) Add(ev Event) {
	if d.window <= 0 {
		d.mu.Lock()
		stopped := d.stopped
		d.mu.Unlock()
		if !stopped {
			d.emit(ev)
		}
		return
	}

	d.mu.Lock()

	if d.stopped {
		d.mu.Unlock()
		return
	}

	now := time.Now()

	// A timestamp from the future would push the quiet window out
	// indefinitely; clamp to immediate delivery instead of wedging.
	if ev.Timestamp.Sub(now) > d.window {
		if existing, ok := d.pending[ev.Path]; ok {
			existing.timer.Stop()
			delete(d.pending, ev.Path)
			next, drop := coalesce(existing.event.Kind, ev.Kind)
			if drop {
				d.mu.Unlock()
				return
			}
			ev.Kind = next
			ev.FirstSeen = existing.firstSeen
		}
		d.mu.Unlock()
		d.emit(ev)
		return
	}

	if existing, ok := d.pending[ev.Path]; ok {
		next, drop := coalesce(existing.event.Kind, ev.Kind)
		if drop {
			existing.timer.Stop()
			delete(d.pending, ev.Path)
			d.mu.Unlock()
			return
		}
		existing.event = ev
		existing.event.Kind = next
		existing.event.FirstSeen = existing.firstSeen
		existing.lastSeen = now
		existing.timer.Reset(d.window)
		d.mu.Unlock()
		return
	}

	rec := &pendingEvent{
		event:     ev,
		firstSeen: ev.FirstSeen,
		lastSeen:  now,
	}
	rec.event.FirstSeen = rec.firstSeen
	rec.timer = time.AfterFunc(d.window, func() {
		d.fire(ev.Path)
	})
	d.pending[ev.Path] = rec
	d.mu.Unlock()
}

// fire delivers the pending event for path, if still present.
func (d *Debouncer) fire(path string) {
	d.mu.Lock()
	rec, ok := d.pending[path]
	if !ok || d.stopped {
		d.mu.Unlock()
		return
	}
	delete(d.pending, path)
	ev := rec.event
	d.mu.Unlock()

	// Emit outside the lock so a slow consumer cannot block submissions.
	d.emit(ev)
}

// Pending returns the number of paths with undelivered events.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Stop cancels all pending timers without delivering their events.
// Safe to call multiple times.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.stopped = true

	for path, rec := range d.pending {
		rec.timer.Stop()
		delete(d.pending, path)
	}
}

// coalesce merges a pending kind with a newly observed kind. drop reports
// that the events cancelled each other out.
func coalesce(pending, next Kind) (result Kind, drop bool) {
	switch pending {
	case KindCreated:
		switch next {
		case KindModified:
			return KindCreated, false
		case KindDeleted:
			return 0, true
		}
	case KindDeleted:
		if next == KindCreated {
			return KindModified, false
		}
	}
	return next, false
}
