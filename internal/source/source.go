// Package source defines the task data source contract and its adapters.
//
// Three implementations exist:
//   - Store: SQL-backed, used as the Local (SQLite) and Remote (Postgres) source
//   - Memory: in-process, used by tests and by the "memory" remote driver
//   - repository.Repository: the cache-aside coordinator over a Local and a Remote
//
// A read that cannot be answered returns an error matching
// errors.ErrDataNotAvailable. An empty list is a valid answer.
package source

import (
	"context"

	"github.com/randalmurphal/tasksync/internal/task"
)

// DataSource fetches and mutates tasks.
type DataSource interface {
	// ListTasks returns every task, or a not-available error.
	ListTasks(ctx context.Context) ([]task.Task, error)
	// GetTask returns one task, or a not-available error.
	GetTask(ctx context.Context, id string) (task.Task, error)

	// SaveTask upserts a task by id.
	SaveTask(ctx context.Context, t task.Task) error
	// CompleteTask marks the task completed.
	CompleteTask(ctx context.Context, t task.Task) error
	// CompleteTaskByID resolves the task first. Unresolvable ids return a
	// task-not-found error without side effects.
	CompleteTaskByID(ctx context.Context, id string) error
	// ActivateTask marks the task active.
	ActivateTask(ctx context.Context, t task.Task) error
	// ActivateTaskByID is the id form of ActivateTask.
	ActivateTaskByID(ctx context.Context, id string) error
	// ClearCompletedTasks removes every completed task.
	ClearCompletedTasks(ctx context.Context) error
	// RefreshTasks invalidates any cached view of the source.
	RefreshTasks(ctx context.Context) error
	// DeleteAllTasks removes every task.
	DeleteAllTasks(ctx context.Context) error
	// DeleteTask removes one task. Missing ids are not an error.
	DeleteTask(ctx context.Context, id string) error
}

var (
	_ DataSource = (*Store)(nil)
	_ DataSource = (*Memory)(nil)
	_ DataSource = (*WriteTracker)(nil)
)
