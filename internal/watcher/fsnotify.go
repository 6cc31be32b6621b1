package watcher

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FsnotifySource adapts an fsnotify.Watcher to the EventSource interface.
// Directories are registered recursively; newly created directories are
// added on the fly. Excluded directories are pruned via the supplied hook
// so their watch handles are never allocated.
type FsnotifySource struct {
	fw          *fsnotify.Watcher
	excludedDir func(path string) bool
	events      chan RawEvent
	errors      chan error
	closeOnce   sync.Once
	root        string
}

var _ EventSource = (*FsnotifySource)(nil)

// NewFsnotifySource creates a native notification source. excludedDir may
// be nil, in which case every directory under the root is watched.
func NewFsnotifySource(excludedDir func(path string) bool) (*FsnotifySource, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &FsnotifySource{
		fw:          fw,
		excludedDir: excludedDir,
		events:      make(chan RawEvent, 256),
		errors:      make(chan error, 16),
	}, nil
}

// Watch registers root and all non-excluded subdirectories, then starts
// the translation goroutine.
func (s *FsnotifySource) Watch(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	s.root = abs

	if err := s.addRecursive(abs); err != nil {
		return err
	}

	go s.translate()
	return nil
}

// Events returns the raw notification stream.
func (s *FsnotifySource) Events() <-chan RawEvent {
	return s.events
}

// Errors returns non-fatal source errors.
func (s *FsnotifySource) Errors() <-chan error {
	return s.errors
}

// Close stops the underlying fsnotify watcher. The events channel closes
// once the translation goroutine drains.
func (s *FsnotifySource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.fw.Close()
	})
	return err
}

// translate converts fsnotify events to RawEvents until the underlying
// watcher closes its channels.
func (s *FsnotifySource) translate() {
	defer close(s.events)
	defer close(s.errors)

	fsEvents := s.fw.Events
	fsErrors := s.fw.Errors

	for fsEvents != nil || fsErrors != nil {
		select {
		case ev, ok := <-fsEvents:
			if !ok {
				fsEvents = nil
				continue
			}
			s.handle(ev)
		case err, ok := <-fsErrors:
			if !ok {
				fsErrors = nil
				continue
			}
			select {
			case s.errors <- err:
			default:
			}
		}
	}
}

// handle maps one fsnotify event. Chmod-only events are dropped.
func (s *FsnotifySource) handle(ev fsnotify.Event) {
	var kind Kind
	switch {
	case ev.Op&fsnotify.Create != 0:
		kind = KindCreated
	case ev.Op&fsnotify.Write != 0:
		kind = KindModified
	case ev.Op&fsnotify.Remove != 0:
		kind = KindDeleted
	case ev.Op&fsnotify.Rename != 0:
		kind = KindRenamed
	default:
		return
	}

	isDir := false
	if info, err := os.Stat(ev.Name); err == nil {
		isDir = info.IsDir()
	} else if kind == KindDeleted || kind == KindRenamed {
		// The path is gone; fall back to whether it was registered as a
		// directory watch.
		isDir = s.wasWatched(ev.Name)
	}

	// Register new directories so events inside them are observed.
	if kind == KindCreated && isDir {
		if s.excludedDir == nil || !s.excludedDir(ev.Name) {
			if err := s.addRecursive(ev.Name); err != nil {
				slog.Debug("adding new directory to watch",
					slog.String("path", ev.Name),
					slog.String("error", err.Error()))
			}
		}
	}

	select {
	case s.events <- RawEvent{Path: ev.Name, Kind: kind, IsDir: isDir}:
	default:
		slog.Warn("raw event buffer full, dropping event",
			slog.String("path", ev.Name),
			slog.String("op", kind.String()))
	}
}

// addRecursive walks path and registers every non-excluded directory.
func (s *FsnotifySource) addRecursive(path string) error {
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip entries we cannot access
		}
		if !d.IsDir() {
			return nil
		}
		if p != s.root && s.excludedDir != nil && s.excludedDir(p) {
			return filepath.SkipDir
		}
		return s.fw.Add(p)
	})
}

// wasWatched reports whether path is a registered directory watch.
func (s *FsnotifySource) wasWatched(path string) bool {
	for _, w := range s.fw.WatchList() {
		if w == path {
			return true
		}
	}
	return false
}
