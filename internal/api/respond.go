package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/dayplan/internal/auth"
	"github.com/nhle/dayplan/internal/cms"
	"github.com/nhle/dayplan/internal/model"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

// statusFor maps an error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalid), errors.Is(err, model.ErrBoundary):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, model.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, cms.ErrGenerationFailed):
		return http.StatusBadGateway
	case errors.Is(err, errUnavailable), errors.Is(err, cms.ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a JSON error. Unclassified errors are logged and
// reported without detail.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	var limitErr *auth.LimitError
	if errors.As(err, &limitErr) {
		d := limitErr.Decision
		retry := d.RetryAfter(time.Now())
		w.Header().Set("Retry-After", strconv.Itoa(int(retry/time.Second)))
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		w.Header().Set("X-RateLimit-Remaining", "0")
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		msg = "internal error"
	}
	writeError(w, status, msg)
}

// decodeJSON reads the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return model.Invalid("body", "request body is empty")
		}
		return model.Invalid("body", "invalid JSON: %v", err)
	}
	if dec.More() {
		return model.Invalid("body", "unexpected data after JSON value")
	}
	return nil
}

// userID returns the authenticated user of r. The auth middleware
// guarantees one is present on every non-public route.
func userID(r *http.Request) string {
	id, _ := auth.FromContext(r.Context())
	return id.UserID
}

// queryBool parses an optional boolean query parameter.
func queryBool(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, model.Invalid(name, "must be a boolean, got %q", raw)
	}
	return v, nil
}

func required(field, value string) error {
	if value == "" {
		return model.Invalid(field, "is required")
	}
	return nil
}

func notConfigured(feature string) error {
	return fmt.Errorf("%s is not configured: %w", feature, errUnavailable)
}

var errUnavailable = errors.New("unavailable")
