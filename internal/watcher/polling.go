package watcher

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// PollingSource detects changes by periodically scanning the root and
// diffing modification times and sizes against the previous snapshot.
// Used as a fallback when the native backend is unavailable. If the root
// itself disappears the events channel closes, which the watcher treats as
// loss of the watch.
type PollingSource struct {
	interval    time.Duration
	excludedDir func(path string) bool

	mu        sync.Mutex
	snapshot  map[string]fileSnapshot
	events    chan RawEvent
	errors    chan error
	stopCh    chan struct{}
	closeOnce sync.Once
	root      string
}

type fileSnapshot struct {
	modTime time.Time
	size    int64
	isDir   bool
}

var _ EventSource = (*PollingSource)(nil)

// NewPollingSource creates a polling source with the given scan interval.
// excludedDir may be nil.
func NewPollingSource(interval time.Duration, excludedDir func(path string) bool) *PollingSource {
	return &PollingSource{
		interval:    interval,
		excludedDir: excludedDir,
		snapshot:    make(map[string]fileSnapshot),
		events:      make(chan RawEvent, 256),
		errors:      make(chan error, 16),
		stopCh:      make(chan struct{}),
	}
}

// Watch establishes the baseline snapshot and starts the scan loop.
func (p *PollingSource) Watch(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	p.root = abs

	if err := p.scanInto(p.snapshot); err != nil {
		return err
	}

	go p.loop()
	return nil
}

// Events returns the raw notification stream.
func (p *PollingSource) Events() <-chan RawEvent {
	return p.events
}

// Errors returns non-fatal source errors.
func (p *PollingSource) Errors() <-chan error {
	return p.errors
}

// Close stops the scan loop. Idempotent.
func (p *PollingSource) Close() error {
	p.closeOnce.Do(func() {
		close(p.stopCh)
	})
	return nil
}

// loop scans on each tick until closed or the root disappears.
func (p *PollingSource) loop() {
	defer close(p.events)
	defer close(p.errors)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			if _, err := os.Stat(p.root); err != nil {
				// Root is gone; closing the stream signals watch loss.
				return
			}
			if err := p.detectChanges(); err != nil {
				select {
				case p.errors <- err:
				default:
				}
			}
		}
	}
}

// scanInto walks the root and records every entry's state.
func (p *PollingSource) scanInto(dst map[string]fileSnapshot) error {
	return filepath.WalkDir(p.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip entries we cannot access
		}
		if path == p.root {
			return nil
		}
		if d.IsDir() && p.excludedDir != nil && p.excludedDir(path) {
			return filepath.SkipDir
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}

		dst[path] = fileSnapshot{
			modTime: info.ModTime(),
			size:    info.Size(),
			isDir:   d.IsDir(),
		}
		return nil
	})
}

// detectChanges diffs the current tree against the previous snapshot and
// emits create/modify/delete events.
func (p *PollingSource) detectChanges() error {
	current := make(map[string]fileSnapshot, len(p.snapshot))
	if err := p.scanInto(current); err != nil {
		return err
	}

	p.mu.Lock()
	previous := p.snapshot
	p.snapshot = current
	p.mu.Unlock()

	for path, snap := range current {
		prev, existed := previous[path]
		switch {
		case !existed:
			p.emit(RawEvent{Path: path, Kind: KindCreated, IsDir: snap.isDir})
		case prev.modTime != snap.modTime || prev.size != snap.size:
			p.emit(RawEvent{Path: path, Kind: KindModified, IsDir: snap.isDir})
		}
	}

	for path, snap := range previous {
		if _, exists := current[path]; !exists {
			p.emit(RawEvent{Path: path, Kind: KindDeleted, IsDir: snap.isDir})
		}
	}

	return nil
}

// emit sends an event without blocking the scan loop.
func (p *PollingSource) emit(ev RawEvent) {
	select {
	case p.events <- ev:
	default:
		slog.Warn("polling buffer full, dropping event",
			slog.String("path", ev.Path),
			slog.String("op", ev.Kind.String()))
	}
}
