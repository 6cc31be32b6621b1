package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigil-dev/vigil/internal/classify"
	verrors "github.com/vigil-dev/vigil/internal/errors"
	"github.com/vigil-dev/vigil/internal/watcher"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), ".vigil", "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func testEvent(path string, kind watcher.Kind) watcher.Event {
	now := time.Now()
	return watcher.Event{
		Path:      path,
		Kind:      kind,
		FileType:  classify.TypeSource,
		FirstSeen: now.Add(-100 * time.Millisecond),
		Timestamp: now,
	}
}

func TestJournal_SessionLifecycle(t *testing.T) {
	// Given: an open journal
	j := openTestJournal(t)

	// When: a session starts, records events, and ends
	id, err := j.BeginSession("/project")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, j.RecordEvent(testEvent("/project/a.go", watcher.KindCreated)))
	require.NoError(t, j.RecordEvent(testEvent("/project/a.go", watcher.KindModified)))
	require.NoError(t, j.RecordEvent(testEvent("/project/b.go", watcher.KindDeleted)))
	require.NoError(t, j.EndSession("stopped"))

	// Then: the status reader sees the full session
	st, err := j.LatestSession()
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, id, st.ID)
	assert.Equal(t, "/project", st.Root)
	assert.Equal(t, 3, st.EventCount)
	require.NotNil(t, st.StoppedAt)
	assert.Equal(t, "stopped", st.StopReason)
}

func TestJournal_KindCounts(t *testing.T) {
	j := openTestJournal(t)
	id, err := j.BeginSession("/project")
	require.NoError(t, err)

	require.NoError(t, j.RecordEvent(testEvent("/project/a.go", watcher.KindModified)))
	require.NoError(t, j.RecordEvent(testEvent("/project/b.go", watcher.KindModified)))
	require.NoError(t, j.RecordEvent(testEvent("/project/c.go", watcher.KindDeleted)))

	counts, err := j.KindCounts(id)
	require.NoError(t, err)
	assert.Equal(t, 2, counts["MODIFIED"])
	assert.Equal(t, 1, counts["DELETED"])
}

func TestJournal_RecentEventsNewestFirst(t *testing.T) {
	j := openTestJournal(t)
	id, err := j.BeginSession("/project")
	require.NoError(t, err)

	require.NoError(t, j.RecordEvent(testEvent("/project/first.go", watcher.KindCreated)))
	require.NoError(t, j.RecordEvent(testEvent("/project/second.go", watcher.KindCreated)))

	events, err := j.RecentEvents(id, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "/project/second.go", events[0].Path)
	assert.Equal(t, "/project/first.go", events[1].Path)
}

func TestJournal_LatestSessionPicksNewest(t *testing.T) {
	j := openTestJournal(t)

	_, err := j.BeginSession("/old")
	require.NoError(t, err)
	require.NoError(t, j.EndSession("stopped"))

	time.Sleep(10 * time.Millisecond)
	_, err = j.BeginSession("/new")
	require.NoError(t, err)

	st, err := j.LatestSession()
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, "/new", st.Root)
	assert.Nil(t, st.StoppedAt)
}

func TestJournal_EmptyJournal(t *testing.T) {
	j := openTestJournal(t)

	st, err := j.LatestSession()
	require.NoError(t, err)
	assert.Nil(t, st)
}

func TestJournal_RecordWithoutSession(t *testing.T) {
	j := openTestJournal(t)

	err := j.RecordEvent(testEvent("/x.go", watcher.KindCreated))
	require.Error(t, err)
	assert.True(t, verrors.IsCode(err, verrors.ErrCodeJournal))
}

func TestJournal_OpenReadOnlyMissing(t *testing.T) {
	_, err := OpenReadOnly(filepath.Join(t.TempDir(), "absent.db"))
	require.Error(t, err)
	assert.True(t, verrors.IsCode(err, verrors.ErrCodeJournal))
}

func TestJournal_ReadOnlySeesWriterData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "journal.db")

	w, err := Open(path)
	require.NoError(t, err)
	_, err = w.BeginSession("/project")
	require.NoError(t, err)
	require.NoError(t, w.RecordEvent(testEvent("/project/a.go", watcher.KindCreated)))

	r, err := OpenReadOnly(path)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	st, err := r.LatestSession()
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, 1, st.EventCount)

	require.NoError(t, w.Close())
}
