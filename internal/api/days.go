package api

import (
	"net/http"

	"github.com/nhle/dayplan/internal/calendar"
	"github.com/nhle/dayplan/internal/planner"
)

func (s *Server) listDays(w http.ResponseWriter, r *http.Request) {
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	for _, d := range []string{from, to} {
		if d == "" {
			continue
		}
		if err := planner.ValidateDate(d); err != nil {
			s.fail(w, r, err)
			return
		}
	}

	days, err := s.store.ListDays(r.Context(), userID(r), from, to)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, days)
}

// getDay returns the day with its blocks, creating the day and
// materializing routines and events on first access.
func (s *Server) getDay(w http.ResponseWriter, r *http.Request) {
	date := r.PathValue("date")
	if err := planner.ValidateDate(date); err != nil {
		s.fail(w, r, err)
		return
	}

	day, blocks, err := s.mat.Materialize(r.Context(), userID(r), date)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	day.Blocks = blocks
	writeJSON(w, http.StatusOK, day)
}

func (s *Server) exportDay(w http.ResponseWriter, r *http.Request) {
	date := r.PathValue("date")
	if err := planner.ValidateDate(date); err != nil {
		s.fail(w, r, err)
		return
	}

	day, blocks, err := s.mat.Materialize(r.Context(), userID(r), date)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := calendar.ExportDay(*day, blocks, s.loc)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="dayplan-`+date+`.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(out))
}
