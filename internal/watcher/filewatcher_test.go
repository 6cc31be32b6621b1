package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigil-dev/vigil/internal/classify"
	verrors "github.com/vigil-dev/vigil/internal/errors"
	"github.com/vigil-dev/vigil/internal/ignore"
)

// fakeSource is a deterministic EventSource for tests, replacing the OS
// notification stream.
type fakeSource struct {
	mu       sync.Mutex
	events   chan RawEvent
	errors   chan error
	watched  string
	closed   bool
	watchErr error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		events: make(chan RawEvent, 64),
		errors: make(chan error, 8),
	}
}

func (f *fakeSource) Watch(root string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.watchErr != nil {
		return f.watchErr
	}
	f.watched = root
	return nil
}

func (f *fakeSource) Events() <-chan RawEvent { return f.events }
func (f *fakeSource) Errors() <-chan error    { return f.errors }

func (f *fakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSource) send(ev RawEvent) { f.events <- ev }

// endStream simulates loss of the underlying subscription.
func (f *fakeSource) endStream() {
	close(f.events)
}

// recordingSubscriber captures deliveries and watch-lost notifications.
type recordingSubscriber struct {
	mu     sync.Mutex
	events []Event
	lost   []error
}

func (r *recordingSubscriber) Notify(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingSubscriber) WatchLost(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lost = append(r.lost, err)
}

func (r *recordingSubscriber) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recordingSubscriber) lostCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lost)
}

func (r *recordingSubscriber) waitFor(t *testing.T, n int, timeout time.Duration) []Event {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if events := r.snapshot(); len(events) >= n {
			return events
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %d deliveries, got %d", n, len(r.snapshot()))
	return nil
}

func newTestWatcher(t *testing.T, root string, window time.Duration, patterns ...string) (*Watcher, *fakeSource, *recordingSubscriber) {
	t.Helper()
	source := newFakeSource()
	classifier := classify.New(root, ignore.New(patterns...))
	w := New(source, classifier, Options{DebounceWindow: window})

	sub := &recordingSubscriber{}
	w.Subscribe(sub)
	return w, source, sub
}

func TestWatcher_StartOnMissingRoot(t *testing.T) {
	// Given: a root that does not exist
	root := filepath.Join(t.TempDir(), "absent")
	w, _, sub := newTestWatcher(t, root, 0)

	// When: the watcher starts
	err := w.Start(context.Background(), root)

	// Then: setup fails synchronously, before any delivery
	require.Error(t, err)
	assert.True(t, verrors.IsCode(err, verrors.ErrCodeRootNotFound))
	assert.Equal(t, StateStopped, w.State())
	assert.Empty(t, sub.snapshot())
}

func TestWatcher_StartOnFileRoot(t *testing.T) {
	// Given: a root that is a file, not a directory
	root := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(root, []byte("x"), 0o644))
	w, _, _ := newTestWatcher(t, root, 0)

	err := w.Start(context.Background(), root)

	require.Error(t, err)
	assert.True(t, verrors.IsCode(err, verrors.ErrCodeRootNotDir))
}

func TestWatcher_EventsFlowThroughPipeline(t *testing.T) {
	// Given: a running watcher with a short window
	root := t.TempDir()
	w, source, sub := newTestWatcher(t, root, 30*time.Millisecond)
	require.NoError(t, w.Start(context.Background(), root))
	defer func() { _ = w.Stop() }()

	// When: a raw notification for a source file arrives
	source.send(RawEvent{Path: filepath.Join(root, "main.go"), Kind: KindCreated})

	// Then: one classified, coalesced event reaches the subscriber
	events := sub.waitFor(t, 1, 2*time.Second)
	require.Len(t, events, 1)
	assert.Equal(t, filepath.Join(root, "main.go"), events[0].Path)
	assert.Equal(t, KindCreated, events[0].Kind)
	assert.Equal(t, classify.TypeSource, events[0].FileType)
}

func TestWatcher_IgnoredPathsNeverDelivered(t *testing.T) {
	// Given: an ignore pattern for logs
	root := t.TempDir()
	w, source, sub := newTestWatcher(t, root, 20*time.Millisecond, "*.log")
	require.NoError(t, w.Start(context.Background(), root))
	defer func() { _ = w.Stop() }()

	// When: a storm of raw notifications hits an ignored path
	for i := 0; i < 50; i++ {
		source.send(RawEvent{Path: filepath.Join(root, "debug.log"), Kind: KindModified})
	}
	source.send(RawEvent{Path: filepath.Join(root, "kept.go"), Kind: KindModified})

	// Then: only the non-ignored path is delivered
	events := sub.waitFor(t, 1, 2*time.Second)
	for _, ev := range events {
		assert.NotContains(t, ev.Path, "debug.log")
	}
}

func TestWatcher_RapidModificationsCoalesceToOne(t *testing.T) {
	root := t.TempDir()
	w, source, sub := newTestWatcher(t, root, 60*time.Millisecond)
	require.NoError(t, w.Start(context.Background(), root))
	defer func() { _ = w.Stop() }()

	path := filepath.Join(root, "burst.go")
	for i := 0; i < 20; i++ {
		source.send(RawEvent{Path: path, Kind: KindModified})
	}

	events := sub.waitFor(t, 1, 2*time.Second)
	time.Sleep(150 * time.Millisecond)
	events = sub.snapshot()
	assert.Len(t, events, 1)
	assert.Equal(t, KindModified, events[0].Kind)
}

func TestWatcher_ZeroWindowDeliversPerRawEvent(t *testing.T) {
	root := t.TempDir()
	w, source, sub := newTestWatcher(t, root, 0)
	require.NoError(t, w.Start(context.Background(), root))
	defer func() { _ = w.Stop() }()

	path := filepath.Join(root, "every.go")
	for i := 0; i < 5; i++ {
		source.send(RawEvent{Path: path, Kind: KindModified})
	}

	events := sub.waitFor(t, 5, 2*time.Second)
	assert.Len(t, events, 5)
}

func TestWatcher_DirectoryEventsNotDelivered(t *testing.T) {
	root := t.TempDir()
	w, source, sub := newTestWatcher(t, root, 0)
	require.NoError(t, w.Start(context.Background(), root))
	defer func() { _ = w.Stop() }()

	source.send(RawEvent{Path: filepath.Join(root, "subdir"), Kind: KindCreated, IsDir: true})
	source.send(RawEvent{Path: filepath.Join(root, "file.go"), Kind: KindCreated})

	events := sub.waitFor(t, 1, 2*time.Second)
	require.Len(t, events, 1)
	assert.Equal(t, filepath.Join(root, "file.go"), events[0].Path)
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	root := t.TempDir()
	w, source, _ := newTestWatcher(t, root, 50*time.Millisecond)
	require.NoError(t, w.Start(context.Background(), root))

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
	assert.Equal(t, StateStopped, w.State())
	assert.True(t, source.closed)
}

func TestWatcher_StopDropsInFlightEvents(t *testing.T) {
	// Given: an event still inside its debounce window
	root := t.TempDir()
	w, source, sub := newTestWatcher(t, root, 500*time.Millisecond)
	require.NoError(t, w.Start(context.Background(), root))

	source.send(RawEvent{Path: filepath.Join(root, "pending.go"), Kind: KindModified})
	time.Sleep(50 * time.Millisecond) // let the run loop pick it up

	// When: the watcher stops before the window expires
	require.NoError(t, w.Stop())

	// Then: the in-flight event is dropped, not flushed
	time.Sleep(600 * time.Millisecond)
	assert.Empty(t, sub.snapshot())
}

func TestWatcher_StartAfterStopRejected(t *testing.T) {
	root := t.TempDir()
	w, _, _ := newTestWatcher(t, root, 0)
	require.NoError(t, w.Start(context.Background(), root))
	require.NoError(t, w.Stop())

	err := w.Start(context.Background(), root)
	require.Error(t, err)
	assert.True(t, verrors.IsCode(err, verrors.ErrCodeWatchSetup))
}

func TestWatcher_StreamClosureSurfacesWatchLostOnce(t *testing.T) {
	// Given: a running watcher
	root := t.TempDir()
	w, source, sub := newTestWatcher(t, root, 0)
	require.NoError(t, w.Start(context.Background(), root))

	// When: the underlying subscription ends unexpectedly
	source.endStream()

	// Then: the subscriber sees exactly one terminal error and the
	// watcher is stopped
	require.Eventually(t, func() bool {
		return w.State() == StateStopped
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, sub.lostCount())
	require.NotEmpty(t, sub.lost)
	assert.True(t, verrors.IsCode(sub.lost[0], verrors.ErrCodeWatchLost))

	// And: stopping afterwards is still clean
	assert.NoError(t, w.Stop())
}

func TestWatcher_RootRemovalSurfacesWatchLost(t *testing.T) {
	root := t.TempDir()
	w, source, sub := newTestWatcher(t, root, 0)
	require.NoError(t, w.Start(context.Background(), root))

	// When: a delete notification for the root itself arrives
	source.send(RawEvent{Path: root, Kind: KindDeleted, IsDir: true})

	require.Eventually(t, func() bool {
		return sub.lostCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, StateStopped, w.State())
}

func TestWatcher_ContextCancellationStops(t *testing.T) {
	root := t.TempDir()
	w, _, sub := newTestWatcher(t, root, 0)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx, root))

	cancel()

	require.Eventually(t, func() bool {
		return w.State() == StateStopped
	}, 2*time.Second, 10*time.Millisecond)

	// Cancellation is a deliberate stop, not loss of the watch
	assert.Zero(t, sub.lostCount())
}

func TestWatcher_MultipleSubscribersAllNotified(t *testing.T) {
	root := t.TempDir()
	w, source, first := newTestWatcher(t, root, 0)
	second := &recordingSubscriber{}
	w.Subscribe(second)
	require.NoError(t, w.Start(context.Background(), root))
	defer func() { _ = w.Stop() }()

	source.send(RawEvent{Path: filepath.Join(root, "shared.go"), Kind: KindCreated})

	first.waitFor(t, 1, 2*time.Second)
	second.waitFor(t, 1, 2*time.Second)
}
