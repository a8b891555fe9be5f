// Package repository implements the cache-aside task repository.
//
// The Repository answers list reads from an in-memory cache, refreshing it
// from the remote source when the cache is dirty, and mirrors each refresh
// into the local source. Single-task reads fall back to the local source
// only. Writes go to remote then local and update the cache optimistically.
package repository

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/randalmurphal/tasksync/internal/errors"
	"github.com/randalmurphal/tasksync/internal/events"
	"github.com/randalmurphal/tasksync/internal/source"
	"github.com/randalmurphal/tasksync/internal/task"
)

var _ source.DataSource = (*Repository)(nil)

// Repository coordinates a cache, a local source and a remote source.
// It is safe for concurrent use.
type Repository struct {
	remote source.DataSource
	local  source.DataSource

	// mu is held across every check-fetch-write sequence, including the
	// remote fetch during a refresh.
	mu    sync.Mutex
	cache cache

	logger           *slog.Logger
	publisher        events.Publisher
	coldStartRefresh bool
}

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithPublisher sets the publisher that receives change events.
func WithPublisher(p events.Publisher) Option {
	return func(r *Repository) {
		if p != nil {
			r.publisher = p
		}
	}
}

// WithColdStartRefresh controls the first ListTasks of a process. When
// enabled (the default) an absent cache is fetched from remote. When
// disabled an absent, clean cache answers not available without any I/O.
func WithColdStartRefresh(enabled bool) Option {
	return func(r *Repository) {
		r.coldStartRefresh = enabled
	}
}

// New creates a repository over the given sources.
func New(remote, local source.DataSource, opts ...Option) *Repository {
	r := &Repository{
		remote:           remote,
		local:            local,
		logger:           slog.Default(),
		publisher:        events.NewNopPublisher(),
		coldStartRefresh: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CacheStats describes the cache state.
type CacheStats struct {
	Populated bool `json:"populated"`
	Dirty     bool `json:"dirty"`
	Size      int  `json:"size"`
}

// Stats returns the current cache state.
func (r *Repository) Stats() CacheStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return CacheStats{
		Populated: r.cache.populated,
		Dirty:     r.cache.dirty,
		Size:      r.cache.size(),
	}
}

// ListTasks returns every task.
//
// A populated, clean cache is answered without I/O. Otherwise the remote
// list replaces the cache wholesale and is mirrored into local. If remote
// is not available that error is returned and nothing is modified.
func (r *Repository) ListTasks(ctx context.Context) ([]task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cache.populated && !r.cache.dirty {
		return r.cache.snapshot(), nil
	}
	if !r.cache.populated && !r.cache.dirty && !r.coldStartRefresh {
		return nil, errors.ErrDataNotAvailable("cache")
	}

	tasks, err := r.remote.ListTasks(ctx)
	if err != nil {
		r.logger.Debug("remote refresh failed", "error", err)
		return nil, err
	}

	r.cache.replace(tasks)
	r.cache.dirty = false
	r.mirrorLocal(ctx, tasks)

	r.logger.Debug("cache refreshed from remote", "count", len(tasks))
	r.publish(events.EventCacheRefreshed, "", events.RefreshedData{Count: len(tasks)})
	return r.cache.snapshot(), nil
}

// mirrorLocal overwrites local with tasks. Failures are logged; the cache
// already holds the authoritative list.
func (r *Repository) mirrorLocal(ctx context.Context, tasks []task.Task) {
	if err := r.local.DeleteAllTasks(ctx); err != nil {
		r.logger.Warn("failed to clear local tasks", "error", err)
	}
	for _, t := range tasks {
		if err := r.local.SaveTask(ctx, t); err != nil {
			r.logger.Warn("failed to mirror task to local", "id", t.ID, "error", err)
		}
	}
}

// GetTask returns a task from the cache, falling back to local only.
// The dirty flag is ignored and remote is never consulted.
func (r *Repository) GetTask(ctx context.Context, id string) (task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.cache.get(id); ok {
		return t, nil
	}
	return r.local.GetTask(ctx, id)
}

// SaveTask writes t to remote and local, then caches it.
func (r *Repository) SaveTask(ctx context.Context, t task.Task) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("save task: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.writeBoth("save task", func(ds source.DataSource) error {
		return ds.SaveTask(ctx, t)
	})
	r.cache.put(t)
	r.publish(events.EventTaskSaved, t.ID, t)
	return err
}

// CompleteTask marks t completed on remote and local and caches the
// completed copy.
func (r *Repository) CompleteTask(ctx context.Context, t task.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.complete(ctx, t)
}

// CompleteTaskByID resolves id through the cache and completes it.
func (r *Repository) CompleteTaskByID(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.cache.get(id)
	if !ok {
		return errors.ErrTaskNotFound(id)
	}
	return r.complete(ctx, t)
}

func (r *Repository) complete(ctx context.Context, t task.Task) error {
	err := r.writeBoth("complete task", func(ds source.DataSource) error {
		return ds.CompleteTask(ctx, t)
	})
	done := t.Complete()
	r.cache.put(done)
	r.publish(events.EventTaskCompleted, done.ID, done)
	return err
}

// ActivateTask marks t active on remote and local and caches the active copy.
func (r *Repository) ActivateTask(ctx context.Context, t task.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activate(ctx, t)
}

// ActivateTaskByID resolves id through the cache and activates it.
func (r *Repository) ActivateTaskByID(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.cache.get(id)
	if !ok {
		return errors.ErrTaskNotFound(id)
	}
	return r.activate(ctx, t)
}

func (r *Repository) activate(ctx context.Context, t task.Task) error {
	err := r.writeBoth("activate task", func(ds source.DataSource) error {
		return ds.ActivateTask(ctx, t)
	})
	active := t.Activate()
	r.cache.put(active)
	r.publish(events.EventTaskActivated, active.ID, active)
	return err
}

// ClearCompletedTasks removes completed tasks everywhere.
func (r *Repository) ClearCompletedTasks(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.writeBoth("clear completed tasks", func(ds source.DataSource) error {
		return ds.ClearCompletedTasks(ctx)
	})
	r.cache.removeCompleted()
	r.publish(events.EventTasksCleared, "", events.ClearedData{All: false})
	return err
}

// RefreshTasks marks the cache dirty so the next ListTasks reads remote.
func (r *Repository) RefreshTasks(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cache.dirty = true
	r.publish(events.EventCacheInvalidated, "", nil)
	return nil
}

// DeleteAllTasks removes every task and leaves the cache populated and
// empty, so the next ListTasks does not reach remote.
func (r *Repository) DeleteAllTasks(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.writeBoth("delete all tasks", func(ds source.DataSource) error {
		return ds.DeleteAllTasks(ctx)
	})
	r.cache.reset()
	r.cache.dirty = false
	r.publish(events.EventTasksCleared, "", events.ClearedData{All: true})
	return err
}

// DeleteTask removes one task everywhere.
func (r *Repository) DeleteTask(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.writeBoth("delete task", func(ds source.DataSource) error {
		return ds.DeleteTask(ctx, id)
	})
	r.cache.remove(id)
	r.publish(events.EventTaskDeleted, id, nil)
	return err
}

// writeBoth applies fn to remote, then local. Both are always attempted
// and nothing is rolled back. Failures are logged and returned joined.
func (r *Repository) writeBoth(op string, fn func(source.DataSource) error) error {
	var errs []error
	for _, target := range []struct {
		name string
		ds   source.DataSource
	}{
		{"remote", r.remote},
		{"local", r.local},
	} {
		if err := fn(target.ds); err != nil {
			r.logger.Warn("write failed", "op", op, "source", target.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", target.name, err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.ErrWriteFailed(op, stderrors.Join(errs...))
}

func (r *Repository) publish(typ events.EventType, taskID string, data any) {
	r.publisher.Publish(events.NewEvent(typ, taskID, data))
}
