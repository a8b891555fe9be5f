// Package task provides the immutable task value shared by every data source.
package task

import (
	"fmt"

	"github.com/google/uuid"
)

// Status is the derived lifecycle state of a task.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Task is an immutable to-do item. Values are copied, never mutated in
// place: Complete and Activate return new tasks with the same identity.
type Task struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title,omitempty" yaml:"title,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Completed   bool   `json:"completed" yaml:"completed"`
}

// New creates an active task with a freshly generated ID.
func New(title, description string) Task {
	return NewWithState(title, description, uuid.NewString(), false)
}

// NewWithID creates an active task that reuses an existing ID.
func NewWithID(title, description, id string) Task {
	return NewWithState(title, description, id, false)
}

// NewWithState creates a task with every field specified. An empty id is
// replaced with a generated one.
func NewWithState(title, description, id string, completed bool) Task {
	if id == "" {
		id = uuid.NewString()
	}
	return Task{
		ID:          id,
		Title:       title,
		Description: description,
		Completed:   completed,
	}
}

// Complete returns a copy of the task marked completed.
func (t Task) Complete() Task {
	return NewWithState(t.Title, t.Description, t.ID, true)
}

// Activate returns a copy of the task marked active.
func (t Task) Activate() Task {
	return NewWithState(t.Title, t.Description, t.ID, false)
}

// IsCompleted reports whether the task is completed.
func (t Task) IsCompleted() bool {
	return t.Completed
}

// IsActive reports whether the task is still open.
func (t Task) IsActive() bool {
	return !t.Completed
}

// Status returns the task's lifecycle state.
func (t Task) Status() Status {
	if t.Completed {
		return StatusCompleted
	}
	return StatusActive
}

// IsEmpty reports whether the task has neither a title nor a description.
func (t Task) IsEmpty() bool {
	return t.Title == "" && t.Description == ""
}

// TitleForList returns the title, falling back to the description.
func (t Task) TitleForList() string {
	if t.Title != "" {
		return t.Title
	}
	return t.Description
}

// Equal compares identity and content. The completed flag is not part of
// task equality.
func (t Task) Equal(other Task) bool {
	return t.ID == other.ID &&
		t.Title == other.Title &&
		t.Description == other.Description
}

// Validate checks that the task can be stored.
func (t Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("task id is required")
	}
	return nil
}

// String implements fmt.Stringer.
func (t Task) String() string {
	return fmt.Sprintf("Task with title %s", t.Title)
}

// FilterByStatus returns the tasks whose status matches. An empty status
// matches every task.
func FilterByStatus(tasks []Task, status Status) []Task {
	if status == "" {
		return tasks
	}
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Status() == status {
			out = append(out, t)
		}
	}
	return out
}

// ParseStatus parses a status filter value.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusActive, StatusCompleted:
		return Status(s), nil
	case "", "all":
		return "", nil
	default:
		return "", fmt.Errorf("invalid status %q (want active, completed or all)", s)
	}
}
