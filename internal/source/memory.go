package source

import (
	"context"
	"slices"
	"sync"

	"github.com/randalmurphal/tasksync/internal/errors"
	"github.com/randalmurphal/tasksync/internal/task"
)

// Operation names recorded in a Memory call log.
const (
	OpListTasks           = "ListTasks"
	OpGetTask             = "GetTask"
	OpSaveTask            = "SaveTask"
	OpCompleteTask        = "CompleteTask"
	OpCompleteTaskByID    = "CompleteTaskByID"
	OpActivateTask        = "ActivateTask"
	OpActivateTaskByID    = "ActivateTaskByID"
	OpClearCompletedTasks = "ClearCompletedTasks"
	OpRefreshTasks        = "RefreshTasks"
	OpDeleteAllTasks      = "DeleteAllTasks"
	OpDeleteTask          = "DeleteTask"
)

// Call is one recorded invocation.
type Call struct {
	Op string
	ID string
}

// Memory is an in-process DataSource. It records every call and can be
// switched unavailable to simulate an unreachable source.
type Memory struct {
	mu        sync.Mutex
	name      string
	tasks     map[string]task.Task
	order     []string
	available bool
	writeErr  error
	calls     []Call
}

// NewMemory creates an empty, available memory source.
func NewMemory(name string) *Memory {
	return &Memory{
		name:      name,
		tasks:     make(map[string]task.Task),
		available: true,
	}
}

// Seed stores tasks without recording calls.
func (m *Memory) Seed(tasks ...task.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range tasks {
		m.put(t)
	}
}

// SetAvailable toggles availability. An unavailable source fails every
// operation with a not-available error.
func (m *Memory) SetAvailable(available bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = available
}

// FailWrites makes every write return err. Pass nil to restore.
func (m *Memory) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// Calls returns a copy of the call log.
func (m *Memory) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

// CallCount returns how many times op was called.
func (m *Memory) CallCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// ResetCalls clears the call log.
func (m *Memory) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// Snapshot returns the stored tasks in insertion order without recording a call.
func (m *Memory) Snapshot() []task.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list()
}

func (m *Memory) record(op, id string) error {
	m.calls = append(m.calls, Call{Op: op, ID: id})
	if !m.available {
		return errors.ErrDataNotAvailable(m.name)
	}
	return nil
}

func (m *Memory) recordWrite(op, id string) error {
	if err := m.record(op, id); err != nil {
		return err
	}
	return m.writeErr
}

func (m *Memory) put(t task.Task) {
	if _, ok := m.tasks[t.ID]; !ok {
		m.order = append(m.order, t.ID)
	}
	m.tasks[t.ID] = t
}

func (m *Memory) remove(id string) {
	if _, ok := m.tasks[id]; !ok {
		return
	}
	delete(m.tasks, id)
	m.order = slices.DeleteFunc(m.order, func(s string) bool { return s == id })
}

func (m *Memory) list() []task.Task {
	out := make([]task.Task, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.tasks[id])
	}
	return out
}

// ListTasks returns every task. An empty source is a valid empty list.
func (m *Memory) ListTasks(ctx context.Context) ([]task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(OpListTasks, ""); err != nil {
		return nil, err
	}
	return m.list(), nil
}

// GetTask returns one task.
func (m *Memory) GetTask(ctx context.Context, id string) (task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(OpGetTask, id); err != nil {
		return task.Task{}, err
	}
	t, ok := m.tasks[id]
	if !ok {
		return task.Task{}, errors.ErrDataNotAvailable(m.name)
	}
	return t, nil
}

// SaveTask upserts a task.
func (m *Memory) SaveTask(ctx context.Context, t task.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.recordWrite(OpSaveTask, t.ID); err != nil {
		return err
	}
	m.put(t)
	return nil
}

// CompleteTask stores the completed form of t.
func (m *Memory) CompleteTask(ctx context.Context, t task.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.recordWrite(OpCompleteTask, t.ID); err != nil {
		return err
	}
	m.put(t.Complete())
	return nil
}

// CompleteTaskByID marks a stored task completed.
func (m *Memory) CompleteTaskByID(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.recordWrite(OpCompleteTaskByID, id); err != nil {
		return err
	}
	t, ok := m.tasks[id]
	if !ok {
		return errors.ErrTaskNotFound(id)
	}
	m.put(t.Complete())
	return nil
}

// ActivateTask stores the active form of t.
func (m *Memory) ActivateTask(ctx context.Context, t task.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.recordWrite(OpActivateTask, t.ID); err != nil {
		return err
	}
	m.put(t.Activate())
	return nil
}

// ActivateTaskByID marks a stored task active.
func (m *Memory) ActivateTaskByID(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.recordWrite(OpActivateTaskByID, id); err != nil {
		return err
	}
	t, ok := m.tasks[id]
	if !ok {
		return errors.ErrTaskNotFound(id)
	}
	m.put(t.Activate())
	return nil
}

// ClearCompletedTasks removes completed tasks.
func (m *Memory) ClearCompletedTasks(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.recordWrite(OpClearCompletedTasks, ""); err != nil {
		return err
	}
	for _, t := range m.list() {
		if t.Completed {
			m.remove(t.ID)
		}
	}
	return nil
}

// RefreshTasks records the call and does nothing else.
func (m *Memory) RefreshTasks(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.record(OpRefreshTasks, "")
}

// DeleteAllTasks removes every task.
func (m *Memory) DeleteAllTasks(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.recordWrite(OpDeleteAllTasks, ""); err != nil {
		return err
	}
	m.tasks = make(map[string]task.Task)
	m.order = nil
	return nil
}

// DeleteTask removes one task.
func (m *Memory) DeleteTask(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.recordWrite(OpDeleteTask, id); err != nil {
		return err
	}
	m.remove(id)
	return nil
}
