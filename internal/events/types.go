// Package events provides task change events and an in-process publisher.
package events

import (
	"time"
)

// EventType defines the type of event.
type EventType string

const (
	// EventTaskSaved indicates a task was created or updated.
	EventTaskSaved EventType = "task_saved"
	// EventTaskCompleted indicates a task was marked completed.
	EventTaskCompleted EventType = "task_completed"
	// EventTaskActivated indicates a task was marked active again.
	EventTaskActivated EventType = "task_activated"
	// EventTaskDeleted indicates a single task was deleted.
	EventTaskDeleted EventType = "task_deleted"
	// EventTasksCleared indicates completed tasks, or all tasks, were removed.
	EventTasksCleared EventType = "tasks_cleared"

	// Cache events

	// EventCacheRefreshed indicates the cache was rebuilt from the remote.
	EventCacheRefreshed EventType = "cache_refreshed"
	// EventCacheInvalidated indicates the cache was marked dirty.
	EventCacheInvalidated EventType = "cache_invalidated"
)

// Event represents a published event.
type Event struct {
	Type   EventType `json:"type"`
	TaskID string    `json:"task_id"`
	Data   any       `json:"data,omitempty"`
	Time   time.Time `json:"time"`
}

// NewEvent creates a new event with the current timestamp.
// Events that are not about one task use GlobalTaskID.
func NewEvent(eventType EventType, taskID string, data any) Event {
	if taskID == "" {
		taskID = GlobalTaskID
	}
	return Event{
		Type:   eventType,
		TaskID: taskID,
		Data:   data,
		Time:   time.Now(),
	}
}

// ClearedData describes a bulk removal.
type ClearedData struct {
	All bool `json:"all"`
}

// RefreshedData describes a cache rebuild.
type RefreshedData struct {
	Count int `json:"count"`
}
