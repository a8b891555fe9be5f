package api

import (
	"encoding/json"
	"net/http"

	"github.com/randalmurphal/tasksync/internal/errors"
	"github.com/randalmurphal/tasksync/internal/task"
)

// createTaskRequest is the body of POST /api/tasks. An id upserts an
// existing task.
type createTaskRequest struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// handleListTasks returns all tasks, optionally filtered by ?status=.
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	status, err := task.ParseStatus(r.URL.Query().Get("status"))
	if err != nil {
		JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	tasks, err := s.repo.ListTasks(r.Context())
	if err != nil {
		HandleError(w, err)
		return
	}

	tasks = task.FilterByStatus(tasks, status)
	if tasks == nil {
		tasks = []task.Task{}
	}
	JSONResponse(w, tasks)
}

// handleCreateTask creates or updates a task.
func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	t := task.NewWithState(req.Title, req.Description, req.ID, req.Completed)
	if t.IsEmpty() {
		JSONError(w, "title or description is required", http.StatusBadRequest)
		return
	}

	if err := s.repo.SaveTask(r.Context(), t); err != nil {
		HandleError(w, err)
		return
	}
	JSONResponseStatus(w, t, http.StatusCreated)
}

// handleGetTask returns a single task.
func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	t, err := s.repo.GetTask(r.Context(), id)
	if err != nil {
		if errors.IsNotAvailable(err) {
			HandleError(w, errors.ErrTaskNotFound(id))
			return
		}
		HandleError(w, err)
		return
	}
	JSONResponse(w, t)
}

// handleDeleteTask deletes a single task.
func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.DeleteTask(r.Context(), r.PathValue("id")); err != nil {
		HandleError(w, err)
		return
	}
	NoContent(w)
}

// handleDeleteAllTasks deletes every task.
func (s *Server) handleDeleteAllTasks(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.DeleteAllTasks(r.Context()); err != nil {
		HandleError(w, err)
		return
	}
	NoContent(w)
}

// handleCompleteTask marks a task completed.
func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.repo.CompleteTaskByID(r.Context(), id); err != nil {
		HandleError(w, err)
		return
	}
	s.respondTask(w, r, id)
}

// handleActivateTask marks a task active.
func (s *Server) handleActivateTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.repo.ActivateTaskByID(r.Context(), id); err != nil {
		HandleError(w, err)
		return
	}
	s.respondTask(w, r, id)
}

func (s *Server) respondTask(w http.ResponseWriter, r *http.Request, id string) {
	t, err := s.repo.GetTask(r.Context(), id)
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, t)
}

// handleClearCompleted removes completed tasks.
func (s *Server) handleClearCompleted(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.ClearCompletedTasks(r.Context()); err != nil {
		HandleError(w, err)
		return
	}
	NoContent(w)
}

// handleRefresh marks the cache dirty. The next list reads remote.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.RefreshTasks(r.Context()); err != nil {
		HandleError(w, err)
		return
	}
	JSONResponseStatus(w, s.repo.Stats(), http.StatusAccepted)
}
