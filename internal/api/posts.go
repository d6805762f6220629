package api

import (
	"net/http"
	"time"

	"github.com/nhle/dayplan/internal/model"
)

func (s *Server) listPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.store.ListPosts(r.Context(), userID(r), r.URL.Query().Get("status"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

type createPostRequest struct {
	Topic string `json:"topic"`
	// ScheduledAt queues the post for generation; without it the post is
	// a draft.
	ScheduledAt *time.Time `json:"scheduled_at"`
}

func (s *Server) createPost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	post, err := s.store.CreatePost(r.Context(), model.Post{
		UserID:      userID(r),
		Topic:       req.Topic,
		ScheduledAt: req.ScheduledAt,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (s *Server) getPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.store.GetPost(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

type topicsRequest struct {
	Themes []string `json:"themes"`
	Count  int      `json:"count"`
}

func (s *Server) generateTopics(w http.ResponseWriter, r *http.Request) {
	if s.generator == nil {
		s.fail(w, r, notConfigured("post generation"))
		return
	}
	var req topicsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Count == 0 {
		req.Count = 3
	}
	posts, err := s.generator.GenerateTopics(r.Context(), userID(r), req.Themes, req.Count)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, posts)
}

// generatePost is called by the generation trigger for each claimed post
// and may also be called directly to generate a draft now.
func (s *Server) generatePost(w http.ResponseWriter, r *http.Request) {
	if s.generator == nil {
		s.fail(w, r, notConfigured("post generation"))
		return
	}
	post, err := s.generator.Generate(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}
