package source

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/tasksync/internal/errors"
	"github.com/randalmurphal/tasksync/internal/task"
)

func TestMemory_RecordsCalls(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory("remote")

	m.Seed(task.NewWithID("a", "", "a"))
	assert.Empty(t, m.Calls(), "Seed is not recorded")

	_, err := m.ListTasks(ctx)
	require.NoError(t, err)
	_, err = m.GetTask(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, m.SaveTask(ctx, task.NewWithID("b", "", "b")))

	assert.Equal(t, []Call{
		{Op: OpListTasks},
		{Op: OpGetTask, ID: "a"},
		{Op: OpSaveTask, ID: "b"},
	}, m.Calls())
	assert.Equal(t, 1, m.CallCount(OpSaveTask))

	m.ResetCalls()
	assert.Empty(t, m.Calls())
}

func TestMemory_Unavailable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory("remote")
	m.Seed(task.NewWithID("a", "", "a"))
	m.SetAvailable(false)

	_, err := m.ListTasks(ctx)
	assert.True(t, errors.IsNotAvailable(err))
	_, err = m.GetTask(ctx, "a")
	assert.True(t, errors.IsNotAvailable(err))
	assert.True(t, errors.IsNotAvailable(m.SaveTask(ctx, task.NewWithID("b", "", "b"))))
	assert.Len(t, m.Snapshot(), 1, "failed writes change nothing")
	assert.Equal(t, 3, len(m.Calls()), "failed calls are still recorded")

	m.SetAvailable(true)
	tasks, err := m.ListTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestMemory_FailWrites(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory("local")
	boom := stderrors.New("disk full")
	m.FailWrites(boom)

	assert.ErrorIs(t, m.SaveTask(ctx, task.NewWithID("a", "", "a")), boom)
	assert.ErrorIs(t, m.DeleteAllTasks(ctx), boom)
	assert.Empty(t, m.Snapshot())

	_, err := m.ListTasks(ctx)
	assert.NoError(t, err, "reads are unaffected")
}

func TestMemory_Mutations(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory("local")
	m.Seed(
		task.NewWithID("a", "", "a"),
		task.NewWithID("b", "", "b"),
		task.NewWithID("c", "", "c"),
	)

	require.NoError(t, m.CompleteTaskByID(ctx, "a"))
	require.NoError(t, m.CompleteTask(ctx, task.NewWithID("c", "", "c")))
	require.NoError(t, m.ActivateTaskByID(ctx, "c"))
	assert.True(t, errors.IsTaskNotFound(m.CompleteTaskByID(ctx, "zzz")))
	assert.True(t, errors.IsTaskNotFound(m.ActivateTaskByID(ctx, "zzz")))

	require.NoError(t, m.ClearCompletedTasks(ctx))
	assert.Equal(t, []string{"b", "c"}, ids(m.Snapshot()))

	require.NoError(t, m.ActivateTask(ctx, task.NewWithState("b2", "", "b", true)))
	got, err := m.GetTask(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "b2", got.Title)
	assert.False(t, got.Completed)

	require.NoError(t, m.DeleteTask(ctx, "b"))
	require.NoError(t, m.DeleteTask(ctx, "b"))
	assert.Equal(t, []string{"c"}, ids(m.Snapshot()))

	_, err = m.GetTask(ctx, "b")
	assert.True(t, errors.IsNotAvailable(err))

	require.NoError(t, m.RefreshTasks(ctx))
	require.NoError(t, m.DeleteAllTasks(ctx))
	tasks, err := m.ListTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}
