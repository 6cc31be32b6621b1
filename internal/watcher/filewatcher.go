// Package watcher implements recursive file-system watching with per-path
// debounced event delivery. Raw notifications flow from an EventSource
// through classification and coalescing to subscriber callbacks:
//
//	OS notifications -> EventSource -> classify -> Debouncer -> Subscriber
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vigil-dev/vigil/internal/classify"
	verrors "github.com/vigil-dev/vigil/internal/errors"
)

// State is the watcher lifecycle state.
type State int

const (
	// StateStopped is the initial and terminal state.
	StateStopped State = iota
	// StateRunning means the watch is established and events flow.
	StateRunning
)

// Watcher owns a filesystem subscription and emits coalesced events to its
// subscribers. A Watcher is single-use: once stopped (explicitly or by loss
// of the watch source) it cannot be restarted; callers construct a new one.
type Watcher struct {
	opts       Options
	source     EventSource
	classifier *classify.Classifier
	debouncer  *Debouncer
	logger     *slog.Logger

	mu      sync.Mutex
	subs    []Subscriber
	state   State
	started bool
	root    string

	stopCh     chan struct{}
	deliveries chan Event
	group      *errgroup.Group
	shutOnce   sync.Once
	lostOnce   sync.Once
	dropped    atomic.Uint64
}

// New creates a watcher reading from the given source. The classifier
// filters and tags paths before coalescing.
func New(source EventSource, classifier *classify.Classifier, opts Options) *Watcher {
	opts = opts.WithDefaults()
	w := &Watcher{
		opts:       opts,
		source:     source,
		classifier: classifier,
		logger:     slog.Default(),
		stopCh:     make(chan struct{}),
		deliveries: make(chan Event, opts.EventBufferSize),
	}
	w.debouncer = NewDebouncer(opts.DebounceWindow, w.enqueue)
	return w
}

// NewForRoot creates a watcher for root backed by fsnotify, falling back to
// polling when the native backend cannot initialize.
func NewForRoot(classifier *classify.Classifier, opts Options, forcePolling bool) *Watcher {
	opts = opts.WithDefaults()

	var source EventSource
	if !forcePolling {
		if fs, err := NewFsnotifySource(classifier.ExcludedDir); err == nil {
			source = fs
		} else {
			slog.Warn("fsnotify unavailable, falling back to polling",
				slog.String("error", err.Error()))
		}
	}
	if source == nil {
		source = NewPollingSource(opts.PollInterval, classifier.ExcludedDir)
	}

	return New(source, classifier, opts)
}

// Subscribe registers a subscriber. Subscribers added after events have
// been delivered receive only subsequent events.
func (w *Watcher) Subscribe(s Subscriber) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.subs = append(w.subs, s)
}

// State returns the current lifecycle state.
func (w *Watcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Dropped returns the number of events dropped due to a full delivery queue.
func (w *Watcher) Dropped() uint64 {
	return w.dropped.Load()
}

// Start validates root and begins monitoring. It returns a setup error if
// root does not exist or is not a directory, or if the underlying source
// cannot be established. Start does not block; events are delivered on a
// dedicated dispatcher goroutine until Stop is called or the watch is lost.
func (w *Watcher) Start(ctx context.Context, root string) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return verrors.New(verrors.ErrCodeWatchSetup,
			"watcher already started", nil)
	}

	root, err := filepath.Abs(root)
	if err != nil {
		w.mu.Unlock()
		return verrors.Wrap(verrors.ErrCodeWatchSetup, err)
	}

	info, err := os.Stat(root)
	if err != nil {
		w.mu.Unlock()
		return verrors.Newf(verrors.ErrCodeRootNotFound, err,
			"watch root %s does not exist", root).
			WithSuggestion("create the directory or fix the configured root")
	}
	if !info.IsDir() {
		w.mu.Unlock()
		return verrors.Newf(verrors.ErrCodeRootNotDir, nil,
			"watch root %s is not a directory", root)
	}

	if err := w.source.Watch(root); err != nil {
		w.mu.Unlock()
		return verrors.Wrap(verrors.ErrCodeWatchSetup, err)
	}

	w.root = root
	w.started = true
	w.state = StateRunning

	g, gctx := errgroup.WithContext(ctx)
	w.group = g
	w.mu.Unlock()

	g.Go(func() error { return w.run(gctx) })
	g.Go(func() error { return w.dispatch(gctx) })

	w.logger.Info("watch started", slog.String("root", root))
	return nil
}

// Stop unsubscribes from the filesystem source and cancels all pending
// debounce timers. Events coalescing at the moment of Stop are dropped,
// not flushed. Idempotent.
func (w *Watcher) Stop() error {
	w.shutdown()

	w.mu.Lock()
	g := w.group
	w.mu.Unlock()
	if g != nil {
		_ = g.Wait()
	}
	return nil
}

// run is the producer loop: it drains the source until stop or loss.
func (w *Watcher) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.shutdown()
			return nil
		case <-w.stopCh:
			return nil
		case ev, ok := <-w.source.Events():
			if !ok {
				w.lost("event stream closed")
				return nil
			}
			w.handleRaw(ev)
		case err, ok := <-w.source.Errors():
			if !ok {
				continue
			}
			w.logger.Warn("watch source error", slog.String("error", err.Error()))
		}
	}
}

// handleRaw classifies a raw notification and forwards it to the debouncer.
// Ignore rules run before debouncing so suppressed paths never cost timers.
func (w *Watcher) handleRaw(raw RawEvent) {
	if raw.Path == w.root {
		if raw.Kind == KindDeleted || raw.Kind == KindRenamed {
			w.lost("watched root removed")
		}
		return
	}

	// Directory events drive watch registration inside the source and are
	// not delivered to subscribers.
	if raw.IsDir {
		return
	}

	fileType, included := w.classifier.Classify(raw.Path)
	if !included {
		return
	}

	now := time.Now()
	w.debouncer.Add(Event{
		Path:      raw.Path,
		Kind:      raw.Kind,
		FileType:  fileType,
		FirstSeen: now,
		Timestamp: now,
	})
}

// enqueue hands a coalesced event to the dispatcher without blocking the
// debounce timer goroutine.
func (w *Watcher) enqueue(ev Event) {
	select {
	case w.deliveries <- ev:
	default:
		count := w.dropped.Add(1)
		w.logger.Warn("delivery queue full, dropping event",
			slog.String("path", ev.Path),
			slog.Uint64("total_dropped", count))
	}
}

// dispatch is the consumer loop: it invokes subscriber callbacks serially,
// preserving per-path delivery order. A slow subscriber delays only
// deliveries, never the watcher's bookkeeping.
func (w *Watcher) dispatch(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.stopCh:
			return nil
		case ev := <-w.deliveries:
			for _, s := range w.subscribers() {
				s.Notify(ev)
			}
		}
	}
}

// lost surfaces terminal loss of the watch source exactly once, then stops.
func (w *Watcher) lost(reason string) {
	w.lostOnce.Do(func() {
		err := verrors.Newf(verrors.ErrCodeWatchLost, nil,
			"watch lost: %s", reason).
			WithDetail("root", w.root).
			WithSuggestion("restart the watcher once the root is available")

		w.logger.Error("watch lost",
			slog.String("root", w.root),
			slog.String("reason", reason))

		for _, s := range w.subscribers() {
			s.WatchLost(err)
		}
		w.shutdown()
	})
}

// shutdown tears down the pipeline. Idempotent; never blocks on the
// watcher's own goroutines.
func (w *Watcher) shutdown() {
	w.shutOnce.Do(func() {
		w.mu.Lock()
		w.state = StateStopped
		w.mu.Unlock()

		close(w.stopCh)
		w.debouncer.Stop()
		if err := w.source.Close(); err != nil {
			w.logger.Warn("closing watch source", slog.String("error", err.Error()))
		}
		w.logger.Info("watch stopped", slog.String("root", w.root))
	})
}

// subscribers snapshots the subscriber list.
func (w *Watcher) subscribers() []Subscriber {
	w.mu.Lock()
	defer w.mu.Unlock()
	subs := make([]Subscriber, len(w.subs))
	copy(subs, w.subs)
	return subs
}
