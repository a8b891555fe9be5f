package repository

import (
	"github.com/randalmurphal/tasksync/internal/task"
)

// cache is the in-memory snapshot of the remote task list. It has three
// states: absent (never populated), populated and empty, populated and
// non-empty. Only the Repository touches it, under its mutex.
type cache struct {
	populated bool
	dirty     bool
	tasks     map[string]task.Task
	order     []string
}

func (c *cache) ensure() {
	if c.populated {
		return
	}
	c.populated = true
	c.tasks = make(map[string]task.Task)
	c.order = nil
}

// replace discards the current contents and inserts tasks.
func (c *cache) replace(tasks []task.Task) {
	c.populated = false
	c.ensure()
	for _, t := range tasks {
		c.put(t)
	}
}

// reset leaves the cache populated and empty.
func (c *cache) reset() {
	c.replace(nil)
}

// put inserts or updates a task, keeping the position of an existing id.
func (c *cache) put(t task.Task) {
	c.ensure()
	if _, ok := c.tasks[t.ID]; !ok {
		c.order = append(c.order, t.ID)
	}
	c.tasks[t.ID] = t
}

func (c *cache) get(id string) (task.Task, bool) {
	if !c.populated {
		return task.Task{}, false
	}
	t, ok := c.tasks[id]
	return t, ok
}

func (c *cache) remove(id string) {
	if _, ok := c.get(id); !ok {
		return
	}
	delete(c.tasks, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// removeCompleted drops completed tasks from a populated cache.
func (c *cache) removeCompleted() {
	if !c.populated {
		return
	}
	kept := c.order[:0]
	for _, id := range c.order {
		if c.tasks[id].Completed {
			delete(c.tasks, id)
			continue
		}
		kept = append(kept, id)
	}
	c.order = kept
}

// snapshot returns a copy of the cached tasks in insertion order. Callers
// may keep it; later cache changes do not affect it.
func (c *cache) snapshot() []task.Task {
	out := make([]task.Task, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.tasks[id])
	}
	return out
}

// size returns the number of cached tasks.
func (c *cache) size() int {
	return len(c.order)
}
