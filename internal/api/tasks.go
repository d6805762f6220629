package api

import (
	"net/http"

	"github.com/nhle/dayplan/internal/model"
)

func (s *Server) listBacklog(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.store.ListBacklog(r.Context(), userID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

type createTaskRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Duration    int     `json:"duration"`
	Priority    int     `json:"priority"`
	ProjectID   *string `json:"project_id"`
	RoutineID   *string `json:"routine_id"`
	BlockID     *string `json:"block_id"`
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	task, err := s.store.CreateTask(r.Context(), model.Task{
		UserID:      userID(r),
		Title:       req.Title,
		Description: req.Description,
		Duration:    req.Duration,
		Priority:    req.Priority,
		ProjectID:   emptyToNil(req.ProjectID),
		RoutineID:   emptyToNil(req.RoutineID),
		BlockID:     emptyToNil(req.BlockID),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.store.GetTask(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// updateTaskRequest patches a task. An empty project_id or routine_id
// detaches the task from its parent.
type updateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Duration    *int    `json:"duration"`
	Priority    *int    `json:"priority"`
	Status      *string `json:"status"`
	ProjectID   *string `json:"project_id"`
	RoutineID   *string `json:"routine_id"`
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	var req updateTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	ctx, uid, id := r.Context(), userID(r), r.PathValue("id")

	task, err := s.store.GetTask(ctx, uid, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Duration != nil {
		task.Duration = *req.Duration
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	if req.Status != nil {
		task.Status = *req.Status
	}
	if req.ProjectID != nil {
		task.ProjectID = emptyToNil(req.ProjectID)
	}
	if req.RoutineID != nil {
		task.RoutineID = emptyToNil(req.RoutineID)
	}

	if err := s.store.UpdateTask(ctx, *task); err != nil {
		s.fail(w, r, err)
		return
	}
	updated, err := s.store.GetTask(ctx, uid, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteTask(r.Context(), userID(r), r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type moveTaskRequest struct {
	// BlockID is the destination; null or empty moves to the backlog.
	BlockID  *string `json:"block_id"`
	Position int     `json:"position"`
}

func (s *Server) moveTask(w http.ResponseWriter, r *http.Request) {
	var req moveTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	task, err := s.store.MoveTask(r.Context(), userID(r), r.PathValue("id"), emptyToNil(req.BlockID), req.Position)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) completeTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.store.CompleteTask(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func emptyToNil(p *string) *string {
	if p == nil || *p == "" {
		return nil
	}
	return p
}
