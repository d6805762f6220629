package api

import (
	"fmt"
	"net/http"

	"github.com/nhle/dayplan/internal/ai"
	"github.com/nhle/dayplan/internal/cms"
	"github.com/nhle/dayplan/internal/planner"
)

type suggestRequest struct {
	Date string `json:"date"`
}

type suggestResponse struct {
	Date        string          `json:"date"`
	Suggestions []ai.Suggestion `json:"suggestions"`
}

// suggestSchedule asks the model where backlog tasks fit into the day.
// Suggestions are advisory; nothing is moved.
func (s *Server) suggestSchedule(w http.ResponseWriter, r *http.Request) {
	if s.completer == nil {
		s.fail(w, r, notConfigured("AI integration"))
		return
	}
	var req suggestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := planner.ValidateDate(req.Date); err != nil {
		s.fail(w, r, err)
		return
	}

	ctx, uid := r.Context(), userID(r)
	_, blocks, err := s.mat.Materialize(ctx, uid, req.Date)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	backlog, err := s.store.ListBacklog(ctx, uid)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := suggestResponse{Date: req.Date, Suggestions: []ai.Suggestion{}}
	if len(backlog) == 0 {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	reply, err := s.completer.Complete(ctx, ai.ScheduleSystemPrompt, ai.BuildSchedulePrompt(req.Date, blocks, backlog))
	if err != nil {
		s.fail(w, r, fmt.Errorf("suggesting schedule: %w: %w", cms.ErrGenerationFailed, err))
		return
	}
	suggestions, err := ai.ParseSuggestions(reply, backlog)
	if err != nil {
		s.fail(w, r, fmt.Errorf("suggesting schedule: %w: %w", cms.ErrGenerationFailed, err))
		return
	}
	resp.Suggestions = suggestions
	writeJSON(w, http.StatusOK, resp)
}
