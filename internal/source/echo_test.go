package source

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/tasksync/internal/task"
)

// newTestTracker returns a tracker over a memory source with a clock the
// test advances by hand.
func newTestTracker(t *testing.T) (*WriteTracker, *Memory, *time.Time) {
	t.Helper()
	mem := NewMemory("remote")
	w := NewWriteTracker(mem, time.Second)
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return clock }
	return w, mem, &clock
}

func TestWriteTracker_OwnWritesAreEchoes(t *testing.T) {
	t.Parallel()
	w, mem, _ := newTestTracker(t)
	ctx := context.Background()

	require.NoError(t, w.SaveTask(ctx, task.NewWithID("a", "", "a")))
	require.NoError(t, w.CompleteTask(ctx, task.NewWithID("b", "", "b")))
	require.NoError(t, w.DeleteTask(ctx, "c"))

	assert.True(t, w.IsEcho(Change{Op: "insert", ID: "a"}))
	assert.True(t, w.IsEcho(Change{Op: "update", ID: "b"}))
	assert.True(t, w.IsEcho(Change{Op: "delete", ID: "c"}))
	assert.False(t, w.IsEcho(Change{Op: "update", ID: "other"}), "other writers' changes refresh")

	// Writes reach the wrapped source.
	assert.Len(t, mem.Snapshot(), 2)
	assert.Equal(t, 1, mem.CallCount(OpDeleteTask))
}

func TestWriteTracker_WindowExpires(t *testing.T) {
	t.Parallel()
	w, _, clock := newTestTracker(t)

	require.NoError(t, w.SaveTask(context.Background(), task.NewWithID("a", "", "a")))
	*clock = clock.Add(2 * time.Second)

	assert.False(t, w.IsEcho(Change{Op: "update", ID: "a"}))
}

func TestWriteTracker_BulkDeletes(t *testing.T) {
	t.Parallel()
	w, _, clock := newTestTracker(t)
	ctx := context.Background()

	assert.False(t, w.IsEcho(Change{Op: "delete", ID: "x"}))

	require.NoError(t, w.ClearCompletedTasks(ctx))
	assert.True(t, w.IsEcho(Change{Op: "delete", ID: "x"}))
	assert.False(t, w.IsEcho(Change{Op: "insert", ID: "x"}), "only deletes follow a bulk write")

	*clock = clock.Add(2 * time.Second)
	require.NoError(t, w.DeleteAllTasks(ctx))
	assert.True(t, w.IsEcho(Change{Op: "delete", ID: "y"}))
}

func TestWriteTracker_ReconnectIsNeverEcho(t *testing.T) {
	t.Parallel()
	w, _, _ := newTestTracker(t)

	require.NoError(t, w.DeleteAllTasks(context.Background()))
	assert.False(t, w.IsEcho(Change{Op: OpReconnect}))
}

func TestWriteTracker_ReadsPassThrough(t *testing.T) {
	t.Parallel()
	w, mem, _ := newTestTracker(t)
	mem.Seed(task.NewWithID("a", "", "a"))

	tasks, err := w.ListTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(tasks))
	assert.False(t, w.IsEcho(Change{Op: "update", ID: "a"}), "reads are not writes")
}
