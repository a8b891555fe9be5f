package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/randalmurphal/tasksync/internal/db/driver"
	"github.com/randalmurphal/tasksync/internal/task"
)

// ErrNoTask is returned by GetTask when no row matches the id.
var ErrNoTask = errors.New("task not found")

// orderBy lists rows in insertion order. SQLite keeps the rowid across
// upserts; Postgres uses the seq column for the same purpose.
func (d *DB) orderBy() string {
	if d.Dialect() == driver.DialectPostgres {
		return "seq"
	}
	return "rowid"
}

// ListTasks returns every task in insertion order.
func (d *DB) ListTasks(ctx context.Context) ([]task.Task, error) {
	rows, err := d.driver.Query(ctx,
		"SELECT id, title, description, completed FROM tasks ORDER BY "+d.orderBy())
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}

// GetTask returns a single task. Returns ErrNoTask if it doesn't exist.
func (d *DB) GetTask(ctx context.Context, id string) (task.Task, error) {
	row := d.driver.QueryRow(ctx,
		d.rebind("SELECT id, title, description, completed FROM tasks WHERE id = ?"), id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return task.Task{}, ErrNoTask
	}
	if err != nil {
		return task.Task{}, err
	}
	return t, nil
}

// SaveTask creates or updates a task by id.
func (d *DB) SaveTask(ctx context.Context, t task.Task) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}

	_, err := d.driver.Exec(ctx, d.rebind(`
		INSERT INTO tasks (id, title, description, completed)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			completed = excluded.completed,
			updated_at = `+d.now()), t.ID, t.Title, t.Description, t.Completed)
	if err != nil {
		return fmt.Errorf("save task %s: %w", t.ID, err)
	}
	return nil
}

// SetTaskCompleted flips the completed flag of an existing task.
// Returns ErrNoTask if no row was updated.
func (d *DB) SetTaskCompleted(ctx context.Context, id string, completed bool) error {
	res, err := d.driver.Exec(ctx,
		d.rebind("UPDATE tasks SET completed = ?, updated_at = "+d.now()+" WHERE id = ?"),
		completed, id)
	if err != nil {
		return fmt.Errorf("update task %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update task %s: %w", id, err)
	}
	if n == 0 {
		return ErrNoTask
	}
	return nil
}

// DeleteTask removes a task. Deleting a missing task is not an error.
func (d *DB) DeleteTask(ctx context.Context, id string) error {
	if _, err := d.driver.Exec(ctx, d.rebind("DELETE FROM tasks WHERE id = ?"), id); err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	return nil
}

// DeleteAllTasks removes every task.
func (d *DB) DeleteAllTasks(ctx context.Context) error {
	if _, err := d.driver.Exec(ctx, "DELETE FROM tasks"); err != nil {
		return fmt.Errorf("delete all tasks: %w", err)
	}
	return nil
}

// DeleteCompletedTasks removes every completed task and returns how many
// rows were deleted.
func (d *DB) DeleteCompletedTasks(ctx context.Context) (int64, error) {
	res, err := d.driver.Exec(ctx, d.rebind("DELETE FROM tasks WHERE completed = ?"), true)
	if err != nil {
		return 0, fmt.Errorf("delete completed tasks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete completed tasks: %w", err)
	}
	return n, nil
}

func (d *DB) now() string {
	if d.Dialect() == driver.DialectPostgres {
		return "NOW()"
	}
	return "datetime('now')"
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (task.Task, error) {
	var t task.Task
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Completed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return task.Task{}, err
		}
		return task.Task{}, fmt.Errorf("scan task: %w", err)
	}
	return t, nil
}
