package source

import (
	"context"
	"fmt"

	"github.com/randalmurphal/tasksync/internal/errors"
	"github.com/randalmurphal/tasksync/internal/task"
)

// Result is the outcome of an asynchronous data source call: either a value
// or an error. Not-available is the error case callers usually branch on.
type Result[T any] struct {
	value T
	err   error
}

// Value returns a successful result.
func Value[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Failed returns a result carrying err.
func Failed[T any](err error) Result[T] {
	return Result[T]{err: err}
}

// Get returns the value and error.
func (r Result[T]) Get() (T, error) {
	return r.value, r.err
}

// Err returns the error, or nil on success.
func (r Result[T]) Err() error {
	return r.err
}

// OK reports whether the result holds a value.
func (r Result[T]) OK() bool {
	return r.err == nil
}

// NotAvailable reports whether the source could not answer.
func (r Result[T]) NotAvailable() bool {
	return errors.IsNotAvailable(r.err)
}

// Go runs fn on its own goroutine. The returned channel receives exactly
// one result and is then closed. A panic in fn is delivered as an error.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) <-chan Result[T] {
	ch := make(chan Result[T], 1)
	go func() {
		defer close(ch)
		var res Result[T]
		defer func() {
			if r := recover(); r != nil {
				res = Failed[T](fmt.Errorf("data source panic: %v", r))
			}
			ch <- res
		}()
		v, err := fn(ctx)
		if err != nil {
			res = Failed[T](err)
			return
		}
		res = Value(v)
	}()
	return ch
}

// ListAsync lists tasks from ds without blocking the caller.
func ListAsync(ctx context.Context, ds DataSource) <-chan Result[[]task.Task] {
	return Go(ctx, ds.ListTasks)
}

// GetAsync fetches one task from ds without blocking the caller.
func GetAsync(ctx context.Context, ds DataSource, id string) <-chan Result[task.Task] {
	return Go(ctx, func(ctx context.Context) (task.Task, error) {
		return ds.GetTask(ctx, id)
	})
}
