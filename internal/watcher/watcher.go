package watcher

import (
	"time"

	"github.com/vigil-dev/vigil/internal/classify"
)

// Kind represents the kind of a file event.
type Kind int

const (
	// KindCreated indicates a new file was created.
	KindCreated Kind = iota
	// KindModified indicates an existing file was modified.
	KindModified
	// KindDeleted indicates a file was deleted.
	KindDeleted
	// KindRenamed indicates a file was renamed or moved away.
	KindRenamed
)

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindCreated:
		return "CREATED"
	case KindModified:
		return "MODIFIED"
	case KindDeleted:
		return "DELETED"
	case KindRenamed:
		return "RENAMED"
	default:
		return "UNKNOWN"
	}
}

// RawEvent is an uncoalesced notification from an EventSource.
type RawEvent struct {
	// Path is the absolute path the notification refers to.
	Path string

	// Kind is the raw operation kind.
	Kind Kind

	// IsDir indicates the event is for a directory.
	IsDir bool
}

// EventSource abstracts the underlying notification stream (fsnotify in
// production, polling as fallback, a fake in tests). Implementations close
// the Events channel when the stream ends; an unexpected close while the
// watcher is running is treated as loss of the watch.
type EventSource interface {
	// Watch begins monitoring the given directory recursively.
	Watch(root string) error

	// Events returns the stream of raw notifications.
	Events() <-chan RawEvent

	// Errors returns non-fatal source errors.
	Errors() <-chan error

	// Close stops the source and releases resources. Idempotent.
	Close() error
}

// Event is a coalesced file change notification, delivered exactly once to
// each subscriber. Immutable once constructed.
type Event struct {
	// Path is the absolute path to the file.
	Path string

	// Kind is the coalesced operation kind.
	Kind Kind

	// FileType is the semantic tag assigned by classification.
	FileType classify.FileType

	// FirstSeen is when the first raw event in the coalescing window was
	// observed. Retained for diagnostics.
	FirstSeen time.Time

	// Timestamp is when the most recent raw event was observed.
	Timestamp time.Time
}

// Subscriber receives coalesced events and the terminal watch-lost error.
// Notify is never invoked concurrently for the same path; WatchLost is
// invoked at most once, after which no further events are delivered.
type Subscriber interface {
	Notify(Event)
	WatchLost(err error)
}

// SubscriberFuncs adapts plain functions to the Subscriber interface.
// Nil fields are no-ops.
type SubscriberFuncs struct {
	OnEvent func(Event)
	OnLost  func(error)
}

// Notify implements Subscriber.
func (s SubscriberFuncs) Notify(ev Event) {
	if s.OnEvent != nil {
		s.OnEvent(ev)
	}
}

// WatchLost implements Subscriber.
func (s SubscriberFuncs) WatchLost(err error) {
	if s.OnLost != nil {
		s.OnLost(err)
	}
}

// Options configures watcher behavior.
type Options struct {
	// DebounceWindow is the sliding quiet window per path. 0 disables
	// coalescing and delivers every raw event immediately.
	DebounceWindow time.Duration

	// EventBufferSize is the delivery queue capacity.
	// Default: 1024
	EventBufferSize int

	// PollInterval is the scan interval for the polling fallback.
	// Default: 5s
	PollInterval time.Duration
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		DebounceWindow:  400 * time.Millisecond,
		EventBufferSize: 1024,
		PollInterval:    5 * time.Second,
	}
}

// WithDefaults returns options with defaults applied for zero values.
// A zero DebounceWindow is preserved: it is a meaningful setting.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.EventBufferSize == 0 {
		o.EventBufferSize = defaults.EventBufferSize
	}
	if o.PollInterval == 0 {
		o.PollInterval = defaults.PollInterval
	}
	return o
}
