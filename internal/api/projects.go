package api

import (
	"net/http"

	"github.com/nhle/dayplan/internal/model"
)

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	archived, err := queryBool(r, "archived")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	projects, err := s.store.ListProjects(r.Context(), userID(r), archived)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

type projectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
	SortOrder   *int    `json:"sort_order"`
}

func (p projectRequest) apply(project *model.Project) {
	if p.Name != nil {
		project.Name = *p.Name
	}
	if p.Description != nil {
		project.Description = *p.Description
	}
	if p.Color != nil {
		project.Color = *p.Color
	}
	if p.SortOrder != nil {
		project.SortOrder = *p.SortOrder
	}
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	project := model.Project{UserID: userID(r)}
	req.apply(&project)

	created, err := s.store.CreateProject(r.Context(), project)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	project, err := s.store.GetProject(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (s *Server) updateProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	ctx, uid, id := r.Context(), userID(r), r.PathValue("id")

	project, err := s.store.GetProject(ctx, uid, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	req.apply(project)
	if err := s.store.UpdateProject(ctx, *project); err != nil {
		s.fail(w, r, err)
		return
	}
	updated, err := s.store.GetProject(ctx, uid, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// deleteProject removes a project. Its tasks survive without a parent.
func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteProject(r.Context(), userID(r), r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) archiveProject(w http.ResponseWriter, r *http.Request) {
	s.setArchived(w, r, true)
}

func (s *Server) restoreProject(w http.ResponseWriter, r *http.Request) {
	s.setArchived(w, r, false)
}

func (s *Server) setArchived(w http.ResponseWriter, r *http.Request, archived bool) {
	ctx, uid, id := r.Context(), userID(r), r.PathValue("id")
	var err error
	if archived {
		err = s.store.ArchiveProject(ctx, uid, id)
	} else {
		err = s.store.RestoreProject(ctx, uid, id)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	project, err := s.store.GetProject(ctx, uid, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}
