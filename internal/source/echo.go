package source

import (
	"context"
	"sync"
	"time"

	"github.com/randalmurphal/tasksync/internal/task"
)

// DefaultEchoWindow is how long a write suppresses change notifications
// for the same task.
const DefaultEchoWindow = 5 * time.Second

// WriteTracker wraps a DataSource and remembers which tasks this process
// wrote through it, so notifications caused by those writes can be told
// apart from changes made by other writers. Reads pass straight through.
//
// A change made by another writer to the same task inside the window is
// also treated as an echo; the next write or refresh picks it up.
type WriteTracker struct {
	DataSource

	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	ids  map[string]time.Time
	bulk time.Time
}

// NewWriteTracker wraps ds. A non-positive window uses DefaultEchoWindow.
func NewWriteTracker(ds DataSource, window time.Duration) *WriteTracker {
	if window <= 0 {
		window = DefaultEchoWindow
	}
	return &WriteTracker{
		DataSource: ds,
		window:     window,
		now:        time.Now,
		ids:        make(map[string]time.Time),
	}
}

// IsEcho reports whether c was most likely caused by a write made through
// this tracker. Reconnects are never echoes.
func (w *WriteTracker) IsEcho(c Change) bool {
	if c.Op == OpReconnect {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	for id, at := range w.ids {
		if now.Sub(at) > w.window {
			delete(w.ids, id)
		}
	}

	if c.ID != "" {
		if _, ok := w.ids[c.ID]; ok {
			return true
		}
	}
	// Bulk deletes notify once per removed row.
	return c.Op == "delete" && !w.bulk.IsZero() && now.Sub(w.bulk) <= w.window
}

func (w *WriteTracker) mark(id string) {
	w.mu.Lock()
	w.ids[id] = w.now()
	w.mu.Unlock()
}

func (w *WriteTracker) markBulk() {
	w.mu.Lock()
	w.bulk = w.now()
	w.mu.Unlock()
}

// SaveTask records t.ID and saves it.
func (w *WriteTracker) SaveTask(ctx context.Context, t task.Task) error {
	w.mark(t.ID)
	return w.DataSource.SaveTask(ctx, t)
}

// CompleteTask records t.ID and completes it.
func (w *WriteTracker) CompleteTask(ctx context.Context, t task.Task) error {
	w.mark(t.ID)
	return w.DataSource.CompleteTask(ctx, t)
}

// CompleteTaskByID records id and completes it.
func (w *WriteTracker) CompleteTaskByID(ctx context.Context, id string) error {
	w.mark(id)
	return w.DataSource.CompleteTaskByID(ctx, id)
}

// ActivateTask records t.ID and activates it.
func (w *WriteTracker) ActivateTask(ctx context.Context, t task.Task) error {
	w.mark(t.ID)
	return w.DataSource.ActivateTask(ctx, t)
}

// ActivateTaskByID records id and activates it.
func (w *WriteTracker) ActivateTaskByID(ctx context.Context, id string) error {
	w.mark(id)
	return w.DataSource.ActivateTaskByID(ctx, id)
}

// DeleteTask records id and deletes it.
func (w *WriteTracker) DeleteTask(ctx context.Context, id string) error {
	w.mark(id)
	return w.DataSource.DeleteTask(ctx, id)
}

// ClearCompletedTasks records a bulk delete and clears completed tasks.
func (w *WriteTracker) ClearCompletedTasks(ctx context.Context) error {
	w.markBulk()
	return w.DataSource.ClearCompletedTasks(ctx)
}

// DeleteAllTasks records a bulk delete and removes every task.
func (w *WriteTracker) DeleteAllTasks(ctx context.Context) error {
	w.markBulk()
	return w.DataSource.DeleteAllTasks(ctx)
}
