package repository

import (
	"bytes"
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/tasksync/internal/errors"
	"github.com/randalmurphal/tasksync/internal/events"
	"github.com/randalmurphal/tasksync/internal/source"
	"github.com/randalmurphal/tasksync/internal/task"
)

var (
	t1 = task.NewWithID("Title1", "Description1", "t1")
	t2 = task.NewWithID("Title2", "Description2", "t2")
	t3 = task.NewWithID("Title3", "Description3", "t3")
)

type fixture struct {
	repo   *Repository
	remote *source.Memory
	local  *source.Memory
	logs   *bytes.Buffer
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	remote := source.NewMemory("remote")
	local := source.NewMemory("local")
	opts = append([]Option{WithLogger(logger)}, opts...)
	return &fixture{
		repo:   New(remote, local, opts...),
		remote: remote,
		local:  local,
		logs:   &buf,
	}
}

// seedCache populates the cache directly, bypassing every adapter.
func (f *fixture) seedCache(tasks ...task.Task) {
	f.repo.cache.replace(tasks)
	f.repo.cache.dirty = false
}

func (f *fixture) noAdapterCalls(t *testing.T) {
	t.Helper()
	assert.Empty(t, f.remote.Calls(), "remote calls")
	assert.Empty(t, f.local.Calls(), "local calls")
}

func TestListTasks_CacheHit(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.seedCache(t1, t2)

	tasks, err := f.repo.ListTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []task.Task{t1, t2}, tasks)
	f.noAdapterCalls(t)
}

func TestListTasks_DirtyTriggersRefresh(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.seedCache(t1, t2)
	f.remote.Seed(t3)
	require.NoError(t, f.repo.RefreshTasks(ctx))

	tasks, err := f.repo.ListTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []task.Task{t3}, tasks)

	assert.Equal(t, 1, f.remote.CallCount(source.OpListTasks))
	assert.Equal(t, []source.Call{
		{Op: source.OpDeleteAllTasks},
		{Op: source.OpSaveTask, ID: "t3"},
	}, f.local.Calls())

	_, ok := f.repo.cache.get("t1")
	assert.False(t, ok, "t1 evicted")
	_, ok = f.repo.cache.get("t2")
	assert.False(t, ok, "t2 evicted")
	assert.False(t, f.repo.Stats().Dirty)

	// Clean again: the next list is served from the cache.
	f.remote.ResetCalls()
	_, err = f.repo.ListTasks(ctx)
	require.NoError(t, err)
	assert.Zero(t, f.remote.CallCount(source.OpListTasks))
}

func TestListTasks_NotAvailablePassthrough(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.seedCache(t1, t2)
	require.NoError(t, f.repo.RefreshTasks(ctx))
	f.remote.SetAvailable(false)

	before := f.repo.cache.snapshot()
	_, err := f.repo.ListTasks(ctx)
	assert.True(t, errors.IsNotAvailable(err))

	assert.Equal(t, before, f.repo.cache.snapshot())
	assert.True(t, f.repo.Stats().Dirty, "still dirty after a failed refresh")
	assert.Empty(t, f.local.Calls(), "local untouched")
}

func TestListTasks_EmptyRemoteReplacesCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.seedCache(t1)
	require.NoError(t, f.repo.RefreshTasks(ctx))

	tasks, err := f.repo.ListTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.Equal(t, CacheStats{Populated: true}, f.repo.Stats())
}

func TestListTasks_SnapshotIsolation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.seedCache(t1)

	tasks, err := f.repo.ListTasks(ctx)
	require.NoError(t, err)

	require.NoError(t, f.repo.CompleteTask(ctx, t1))
	require.NoError(t, f.repo.SaveTask(ctx, t2))

	assert.Equal(t, []task.Task{t1}, tasks, "returned slice not affected by later writes")
	assert.False(t, tasks[0].Completed)

	tasks[0] = t3
	_, ok := f.repo.cache.get("t3")
	assert.False(t, ok, "mutating the result does not touch the cache")
}

func TestListTasks_ColdStart(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("refresh enabled fetches remote", func(t *testing.T) {
		f := newFixture(t)
		f.remote.Seed(t1)

		tasks, err := f.repo.ListTasks(ctx)
		require.NoError(t, err)
		assert.Equal(t, []task.Task{t1}, tasks)
		assert.Equal(t, 1, f.remote.CallCount(source.OpListTasks))
		assert.Equal(t, []task.Task{t1}, f.local.Snapshot())
	})

	t.Run("refresh disabled answers not available", func(t *testing.T) {
		f := newFixture(t, WithColdStartRefresh(false))
		f.remote.Seed(t1)

		_, err := f.repo.ListTasks(ctx)
		assert.True(t, errors.IsNotAvailable(err))
		f.noAdapterCalls(t)
		assert.False(t, f.repo.Stats().Populated)

		// An explicit refresh makes the next list go to remote.
		require.NoError(t, f.repo.RefreshTasks(ctx))
		tasks, err := f.repo.ListTasks(ctx)
		require.NoError(t, err)
		assert.Equal(t, []task.Task{t1}, tasks)
	})
}

func TestGetTask_BypassesRemote(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for _, dirty := range []bool{false, true} {
		f := newFixture(t)
		f.seedCache(t1)
		f.repo.cache.dirty = dirty
		f.remote.Seed(t2)

		_, err := f.repo.GetTask(ctx, "t2")
		assert.True(t, errors.IsNotAvailable(err), "dirty=%v", dirty)

		f.local.Seed(t2)
		got, err := f.repo.GetTask(ctx, "t2")
		require.NoError(t, err)
		assert.Equal(t, t2, got)

		assert.Empty(t, f.remote.Calls(), "dirty=%v", dirty)
		assert.Equal(t, 2, f.local.CallCount(source.OpGetTask))
	}
}

func TestGetTask_CacheHitIgnoresDirty(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.seedCache(t1)
	f.repo.cache.dirty = true

	got, err := f.repo.GetTask(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, t1, got)
	f.noAdapterCalls(t)
}

func TestCompleteActivate_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.repo.CompleteTask(ctx, t1))
	got, ok := f.repo.cache.get("t1")
	require.True(t, ok)
	assert.True(t, got.Completed)
	assert.True(t, got.Equal(t1))

	require.NoError(t, f.repo.ActivateTaskByID(ctx, "t1"))
	got, ok = f.repo.cache.get("t1")
	require.True(t, ok)
	assert.False(t, got.Completed)
	assert.Equal(t, t1, got)

	assert.Equal(t, []source.Call{
		{Op: source.OpCompleteTask, ID: "t1"},
		{Op: source.OpActivateTask, ID: "t1"},
	}, f.remote.Calls())
	assert.Equal(t, f.remote.Calls(), f.local.Calls())
}

func TestByID_Unresolved(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.local.Seed(t1)
	f.remote.Seed(t1)

	assert.True(t, errors.IsTaskNotFound(f.repo.CompleteTaskByID(ctx, "t1")))
	assert.True(t, errors.IsTaskNotFound(f.repo.ActivateTaskByID(ctx, "t1")))
	f.noAdapterCalls(t)
	assert.False(t, f.repo.Stats().Populated)
}

func TestDeleteAllTasks_ResetsNotNulls(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.seedCache(t1, t2)
	f.remote.Seed(t1, t2)

	require.NoError(t, f.repo.DeleteAllTasks(ctx))
	f.remote.ResetCalls()

	tasks, err := f.repo.ListTasks(ctx)
	require.NoError(t, err)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)
	assert.Empty(t, f.remote.Calls(), "no remote fetch after delete-all")
	assert.Equal(t, CacheStats{Populated: true}, f.repo.Stats())
}

func TestDeleteAllTasks_FromColdStart(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.repo.DeleteAllTasks(ctx))
	tasks, err := f.repo.ListTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.Zero(t, f.remote.CallCount(source.OpListTasks))
}

func TestSaveTask(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.repo.SaveTask(ctx, t1))
	require.NoError(t, f.repo.SaveTask(ctx, t2))
	edited := task.NewWithID("edited", "", "t1")
	require.NoError(t, f.repo.SaveTask(ctx, edited))

	assert.Equal(t, []task.Task{edited, t2}, f.repo.cache.snapshot(), "upsert keeps position")
	assert.Equal(t, []task.Task{edited, t2}, f.remote.Snapshot())
	assert.Equal(t, []task.Task{edited, t2}, f.local.Snapshot())

	// A save populates the cache, so listing does not reach remote.
	tasks, err := f.repo.ListTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
	assert.Zero(t, f.remote.CallCount(source.OpListTasks))
}

func TestSaveTask_RejectsMissingID(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	err := f.repo.SaveTask(context.Background(), task.Task{Title: "no id"})
	assert.Error(t, err)
	f.noAdapterCalls(t)
}

func TestWrites_AttemptBothAndJoinErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	remoteErr := stderrors.New("remote down")
	localErr := stderrors.New("disk full")
	f.remote.FailWrites(remoteErr)
	f.local.FailWrites(localErr)

	err := f.repo.SaveTask(ctx, t1)
	require.Error(t, err)
	assert.ErrorIs(t, err, remoteErr)
	assert.ErrorIs(t, err, localErr)
	assert.ErrorIs(t, err, &errors.SyncError{Code: errors.CodeWriteFailed})

	assert.Equal(t, 1, f.remote.CallCount(source.OpSaveTask))
	assert.Equal(t, 1, f.local.CallCount(source.OpSaveTask), "local attempted after remote failed")

	_, ok := f.repo.cache.get("t1")
	assert.True(t, ok, "cache updated optimistically")
	assert.Contains(t, f.logs.String(), "write failed")
	assert.Contains(t, f.logs.String(), "source=remote")
	assert.Contains(t, f.logs.String(), "source=local")
}

func TestWrites_PartialFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.remote.SetAvailable(false)

	err := f.repo.CompleteTask(ctx, t1)
	require.Error(t, err)
	assert.True(t, errors.IsNotAvailable(err), "cause is preserved")

	got, err := f.local.GetTask(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, got.Completed, "local still written")
}

func TestClearCompletedTasks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	done := t2.Complete()
	f.seedCache(t1, done, t3)
	f.remote.Seed(t1, done, t3)
	f.local.Seed(t1, done, t3)

	require.NoError(t, f.repo.ClearCompletedTasks(ctx))
	assert.Equal(t, []task.Task{t1, t3}, f.repo.cache.snapshot())
	assert.Equal(t, []task.Task{t1, t3}, f.remote.Snapshot())
	assert.Equal(t, []task.Task{t1, t3}, f.local.Snapshot())
}

func TestClearCompletedTasks_AbsentCacheStaysAbsent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	require.NoError(t, f.repo.ClearCompletedTasks(context.Background()))
	assert.False(t, f.repo.Stats().Populated)
}

func TestDeleteTask(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.seedCache(t1, t2)
	f.remote.Seed(t1, t2)

	require.NoError(t, f.repo.DeleteTask(ctx, "t1"))
	assert.Equal(t, []task.Task{t2}, f.repo.cache.snapshot())
	assert.Equal(t, []task.Task{t2}, f.remote.Snapshot())
	assert.Equal(t, 1, f.local.CallCount(source.OpDeleteTask))
}

func TestRefreshTasks_NoIO(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.seedCache(t1)

	require.NoError(t, f.repo.RefreshTasks(context.Background()))
	assert.True(t, f.repo.Stats().Dirty)
	f.noAdapterCalls(t)
}

func TestEvents(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	pub := events.NewMemoryPublisher()
	defer pub.Close()
	ch := pub.Subscribe(events.GlobalTaskID)

	f := newFixture(t, WithPublisher(pub))
	f.remote.Seed(t1)

	_, err := f.repo.ListTasks(ctx)
	require.NoError(t, err)
	require.NoError(t, f.repo.SaveTask(ctx, t2))
	require.NoError(t, f.repo.CompleteTaskByID(ctx, "t2"))
	require.NoError(t, f.repo.ActivateTask(ctx, t2))
	require.NoError(t, f.repo.DeleteTask(ctx, "t2"))
	require.NoError(t, f.repo.ClearCompletedTasks(ctx))
	require.NoError(t, f.repo.RefreshTasks(ctx))
	require.NoError(t, f.repo.DeleteAllTasks(ctx))

	want := []events.EventType{
		events.EventCacheRefreshed,
		events.EventTaskSaved,
		events.EventTaskCompleted,
		events.EventTaskActivated,
		events.EventTaskDeleted,
		events.EventTasksCleared,
		events.EventCacheInvalidated,
		events.EventTasksCleared,
	}
	var got []events.EventType
	for range want {
		select {
		case ev := <-ch:
			got = append(got, ev.Type)
		case <-time.After(time.Second):
			t.Fatalf("timeout after %d events", len(got))
		}
	}
	assert.Equal(t, want, got)
}

func TestAsync_ExactlyOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.remote.Seed(t1)

	var results []source.Result[[]task.Task]
	for r := range source.ListAsync(ctx, f.repo) {
		results = append(results, r)
	}
	require.Len(t, results, 1)
	tasks, err := results[0].Get()
	require.NoError(t, err)
	assert.Equal(t, []task.Task{t1}, tasks)

	require.NoError(t, f.repo.RefreshTasks(ctx))
	f.remote.SetAvailable(false)
	results = results[:0]
	for r := range source.ListAsync(ctx, f.repo) {
		results = append(results, r)
	}
	require.Len(t, results, 1)
	assert.True(t, results[0].NotAvailable())
}

func TestConcurrentListsFetchOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.remote.Seed(t1, t2)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tasks, err := f.repo.ListTasks(ctx)
			assert.NoError(t, err)
			assert.Len(t, tasks, 2)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.remote.CallCount(source.OpListTasks))
}
