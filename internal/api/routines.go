package api

import (
	"net/http"

	"github.com/nhle/dayplan/internal/model"
	"github.com/nhle/dayplan/internal/recur"
)

func (s *Server) listRoutines(w http.ResponseWriter, r *http.Request) {
	activeOnly, err := queryBool(r, "active")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	routines, err := s.store.ListRoutines(r.Context(), userID(r), activeOnly)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, routines)
}

type templateTask struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Duration    int    `json:"duration"`
	Priority    int    `json:"priority"`
}

type createRoutineRequest struct {
	Name      string         `json:"name"`
	Days      string         `json:"days"`
	StartTime string         `json:"start_time"`
	EndTime   string         `json:"end_time"`
	Active    *bool          `json:"active"`
	Tasks     []templateTask `json:"tasks"`
}

func (s *Server) createRoutine(w http.ResponseWriter, r *http.Request) {
	var req createRoutineRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	routine := model.Routine{
		UserID:    userID(r),
		Name:      req.Name,
		Days:      req.Days,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Active:    req.Active == nil || *req.Active,
	}
	for _, t := range req.Tasks {
		routine.Tasks = append(routine.Tasks, model.Task{
			Title:       t.Title,
			Description: t.Description,
			Duration:    t.Duration,
			Priority:    t.Priority,
		})
	}

	created, err := s.store.CreateRoutine(r.Context(), routine)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) getRoutine(w http.ResponseWriter, r *http.Request) {
	routine, err := s.store.GetRoutine(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, routine)
}

func (s *Server) deleteRoutine(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteRoutine(r.Context(), userID(r), r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.store.ListEvents(r.Context(), userID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

type createEventRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
	StartTime   string `json:"start_time"`
	Duration    int    `json:"duration"`
	Recurrence  string `json:"recurrence"`
}

func (s *Server) createEvent(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := recur.ValidateRecurrence(req.Recurrence); err != nil {
		s.fail(w, r, err)
		return
	}

	event, err := s.store.CreateEvent(r.Context(), model.Event{
		UserID:      userID(r),
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		StartTime:   req.StartTime,
		Duration:    req.Duration,
		Recurrence:  req.Recurrence,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// getEvent includes the per-occurrence history of recurring events.
func (s *Server) getEvent(w http.ResponseWriter, r *http.Request) {
	event, err := s.store.GetEvent(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (s *Server) deleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteEvent(r.Context(), userID(r), r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
