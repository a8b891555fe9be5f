package source

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/randalmurphal/tasksync/internal/db"
	"github.com/randalmurphal/tasksync/internal/errors"
	"github.com/randalmurphal/tasksync/internal/task"
)

// Role selects how a Store reports read failures.
type Role string

const (
	// RoleLocal is the on-disk mirror. An empty table is not available and
	// storage failures are returned as-is.
	RoleLocal Role = "local"
	// RoleRemote is the source of truth. An empty table is a valid answer
	// and any query failure is reported as not available.
	RoleRemote Role = "remote"
)

// Store is a DataSource over the SQL task store.
type Store struct {
	db     *db.DB
	role   Role
	logger *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreLogger sets the logger.
func WithStoreLogger(l *slog.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewLocal creates the local data source.
func NewLocal(d *db.DB, opts ...StoreOption) *Store {
	return newStore(d, RoleLocal, opts)
}

// NewRemote creates the remote data source.
func NewRemote(d *db.DB, opts ...StoreOption) *Store {
	return newStore(d, RoleRemote, opts)
}

func newStore(d *db.DB, role Role, opts []StoreOption) *Store {
	s := &Store{db: d, role: role, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("source", string(role))
	return s
}

// Role returns the store's role.
func (s *Store) Role() Role {
	return s.role
}

// DB returns the underlying task store.
func (s *Store) DB() *db.DB {
	return s.db
}

func (s *Store) notAvailable(cause error) error {
	err := errors.ErrDataNotAvailable(string(s.role))
	if cause != nil {
		return err.WithCause(cause)
	}
	return err
}

// ListTasks returns every task in insertion order.
func (s *Store) ListTasks(ctx context.Context) ([]task.Task, error) {
	tasks, err := s.db.ListTasks(ctx)
	if err != nil {
		if s.role == RoleRemote {
			s.logger.Warn("list tasks failed", "error", err)
			return nil, s.notAvailable(err)
		}
		return nil, fmt.Errorf("list %s tasks: %w", s.role, err)
	}
	if len(tasks) == 0 {
		if s.role == RoleLocal {
			return nil, s.notAvailable(nil)
		}
		return []task.Task{}, nil
	}
	return tasks, nil
}

// GetTask returns one task. A missing id is not available.
func (s *Store) GetTask(ctx context.Context, id string) (task.Task, error) {
	t, err := s.db.GetTask(ctx, id)
	switch {
	case err == nil:
		return t, nil
	case stderrors.Is(err, db.ErrNoTask):
		return task.Task{}, s.notAvailable(nil)
	case s.role == RoleRemote:
		s.logger.Warn("get task failed", "id", id, "error", err)
		return task.Task{}, s.notAvailable(err)
	default:
		return task.Task{}, fmt.Errorf("get %s task %s: %w", s.role, id, err)
	}
}

// SaveTask upserts a task.
func (s *Store) SaveTask(ctx context.Context, t task.Task) error {
	if err := s.db.SaveTask(ctx, t); err != nil {
		return fmt.Errorf("save %s task: %w", s.role, err)
	}
	return nil
}

// CompleteTask stores the completed form of t, creating the row if needed.
func (s *Store) CompleteTask(ctx context.Context, t task.Task) error {
	return s.SaveTask(ctx, t.Complete())
}

// ActivateTask stores the active form of t, creating the row if needed.
func (s *Store) ActivateTask(ctx context.Context, t task.Task) error {
	return s.SaveTask(ctx, t.Activate())
}

// CompleteTaskByID marks an existing task completed.
func (s *Store) CompleteTaskByID(ctx context.Context, id string) error {
	return s.setCompleted(ctx, id, true)
}

// ActivateTaskByID marks an existing task active.
func (s *Store) ActivateTaskByID(ctx context.Context, id string) error {
	return s.setCompleted(ctx, id, false)
}

func (s *Store) setCompleted(ctx context.Context, id string, completed bool) error {
	err := s.db.SetTaskCompleted(ctx, id, completed)
	if stderrors.Is(err, db.ErrNoTask) {
		return errors.ErrTaskNotFound(id)
	}
	if err != nil {
		return fmt.Errorf("update %s task: %w", s.role, err)
	}
	return nil
}

// ClearCompletedTasks removes completed tasks.
func (s *Store) ClearCompletedTasks(ctx context.Context) error {
	n, err := s.db.DeleteCompletedTasks(ctx)
	if err != nil {
		return fmt.Errorf("clear %s completed tasks: %w", s.role, err)
	}
	s.logger.Debug("cleared completed tasks", "count", n)
	return nil
}

// RefreshTasks is a no-op: a Store always reads through to the database.
func (s *Store) RefreshTasks(ctx context.Context) error {
	return nil
}

// DeleteAllTasks removes every task.
func (s *Store) DeleteAllTasks(ctx context.Context) error {
	if err := s.db.DeleteAllTasks(ctx); err != nil {
		return fmt.Errorf("delete all %s tasks: %w", s.role, err)
	}
	return nil
}

// DeleteTask removes one task.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	if err := s.db.DeleteTask(ctx, id); err != nil {
		return fmt.Errorf("delete %s task: %w", s.role, err)
	}
	return nil
}
