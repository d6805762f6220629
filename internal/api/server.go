// Package api serves the planner over a JSON HTTP interface.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/dayplan/internal/ai"
	"github.com/nhle/dayplan/internal/auth"
	"github.com/nhle/dayplan/internal/model"
	"github.com/nhle/dayplan/internal/recur"
	"github.com/nhle/dayplan/internal/store"
)

// PostGenerator writes posts on demand.
type PostGenerator interface {
	Generate(ctx context.Context, userID, postID string) (*model.Post, error)
	GenerateTopics(ctx context.Context, userID string, themes []string, perTheme int) ([]model.Post, error)
}

// Options wires a Server.
type Options struct {
	Store     store.Store
	Auth      *auth.Authenticator
	Generator PostGenerator
	// Completer backs schedule suggestions. It may be nil.
	Completer ai.Completer
	Location  *time.Location
	Logger    *zap.Logger
	Server    model.ServerConfig
}

// Server handles HTTP requests for the planner.
type Server struct {
	store     store.Store
	mat       *recur.Materializer
	auth      *auth.Authenticator
	generator PostGenerator
	completer ai.Completer
	loc       *time.Location
	logger    *zap.Logger
	cfg       model.ServerConfig
	mux       *http.ServeMux
}

// NewServer creates a Server and registers its routes.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	s := &Server{
		store:     opts.Store,
		mat:       recur.NewMaterializer(opts.Store, loc, logger.Named("materializer")),
		auth:      opts.Auth,
		generator: opts.Generator,
		completer: opts.Completer,
		loc:       loc,
		logger:    logger.Named("api"),
		cfg:       opts.Server,
		mux:       http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.health)

	// Days
	s.mux.HandleFunc("GET /days", s.listDays)
	s.mux.HandleFunc("GET /days/{date}", s.getDay)
	s.mux.HandleFunc("GET /days/{date}/calendar.ics", s.exportDay)

	// Blocks
	s.mux.HandleFunc("POST /blocks", s.createBlock)
	s.mux.HandleFunc("GET /blocks/{id}", s.getBlock)
	s.mux.HandleFunc("PATCH /blocks/{id}", s.updateBlock)
	s.mux.HandleFunc("DELETE /blocks/{id}", s.deleteBlock)
	s.mux.HandleFunc("POST /blocks/reorder", s.reorderBlock)
	s.mux.HandleFunc("POST /blocks/{id}/complete", s.completeBlock)
	s.mux.HandleFunc("POST /blocks/{id}/reactivate", s.reactivateBlock)
	s.mux.HandleFunc("PATCH /drag-end", s.dragEnd)

	// Tasks
	s.mux.HandleFunc("GET /tasks/backlog", s.listBacklog)
	s.mux.HandleFunc("POST /tasks", s.createTask)
	s.mux.HandleFunc("GET /tasks/{id}", s.getTask)
	s.mux.HandleFunc("PATCH /tasks/{id}", s.updateTask)
	s.mux.HandleFunc("DELETE /tasks/{id}", s.deleteTask)
	s.mux.HandleFunc("POST /tasks/{id}/move", s.moveTask)
	s.mux.HandleFunc("POST /tasks/{id}/complete", s.completeTask)

	// Projects
	s.mux.HandleFunc("GET /projects", s.listProjects)
	s.mux.HandleFunc("POST /projects", s.createProject)
	s.mux.HandleFunc("GET /projects/{id}", s.getProject)
	s.mux.HandleFunc("PATCH /projects/{id}", s.updateProject)
	s.mux.HandleFunc("DELETE /projects/{id}", s.deleteProject)
	s.mux.HandleFunc("POST /projects/{id}/archive", s.archiveProject)
	s.mux.HandleFunc("POST /projects/{id}/restore", s.restoreProject)

	// Routines and events
	s.mux.HandleFunc("GET /routines", s.listRoutines)
	s.mux.HandleFunc("POST /routines", s.createRoutine)
	s.mux.HandleFunc("GET /routines/{id}", s.getRoutine)
	s.mux.HandleFunc("DELETE /routines/{id}", s.deleteRoutine)
	s.mux.HandleFunc("GET /events", s.listEvents)
	s.mux.HandleFunc("POST /events", s.createEvent)
	s.mux.HandleFunc("GET /events/{id}", s.getEvent)
	s.mux.HandleFunc("DELETE /events/{id}", s.deleteEvent)

	// AI
	s.mux.HandleFunc("POST /schedule/suggest", s.suggestSchedule)

	// Posts
	s.mux.HandleFunc("GET /posts", s.listPosts)
	s.mux.HandleFunc("POST /posts", s.createPost)
	s.mux.HandleFunc("GET /posts/{id}", s.getPost)
	s.mux.HandleFunc("POST /posts/topics", s.generateTopics)
	s.mux.HandleFunc("POST /posts/{id}/generate", s.generatePost)

	// API keys
	s.mux.HandleFunc("POST /api-keys", s.createAPIKey)
	s.mux.HandleFunc("DELETE /api-keys/{id}", s.revokeAPIKey)
}

// Handler returns the full middleware chain around the router.
func (s *Server) Handler() http.Handler {
	return s.recoverPanics(s.logRequests(s.authenticate(s.mux)))
}

// ListenAndServe serves on the configured address until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Listen, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", zap.String("listen", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving HTTP: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	s.logger.Info("shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down HTTP server: %w", err)
	}
	return nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.store.(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			s.logger.Error("health check failed", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
