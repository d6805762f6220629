package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/nhle/dayplan/internal/auth"
	"github.com/nhle/dayplan/internal/model"
)

type createKeyRequest struct {
	Name string `json:"name"`
}

type createKeyResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Prefix    string    `json:"prefix"`
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"created_at"`
}

// createAPIKey issues a key for the caller. The plaintext key is returned
// only in this response.
func (s *Server) createAPIKey(w http.ResponseWriter, r *http.Request) {
	var req createKeyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	name := strings.TrimSpace(req.Name)
	if err := required("name", name); err != nil {
		s.fail(w, r, err)
		return
	}

	key, err := auth.GenerateKey()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rec, err := s.store.CreateAPIKey(r.Context(), model.APIKey{
		UserID:  userID(r),
		Name:    name,
		Prefix:  key.Prefix,
		KeyHash: key.Hash,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createKeyResponse{
		ID:        rec.ID,
		Name:      rec.Name,
		Prefix:    rec.Prefix,
		Key:       key.Plaintext,
		CreatedAt: rec.CreatedAt,
	})
}

func (s *Server) revokeAPIKey(w http.ResponseWriter, r *http.Request) {
	if err := s.store.RevokeAPIKey(r.Context(), userID(r), r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
