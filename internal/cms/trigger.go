// Package cms runs blog post generation: a cron-driven trigger that sweeps
// stale runs and dispatches due posts, and the generator that writes them.
package cms

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/nhle/dayplan/internal/model"
)

// TriggerStore is the slice of the store the trigger needs.
type TriggerStore interface {
	ResetStalePosts(ctx context.Context, staleBefore time.Time, maxRetries int) (reset, failed int, err error)
	ClaimDuePosts(ctx context.Context, now time.Time, limit int) ([]model.Post, error)
}

// TickResult summarizes one trigger run.
type TickResult struct {
	Reset      int
	Failed     int
	Dispatched int
}

// Trigger periodically resets stale generations and hands due posts to the
// generation endpoint. Dispatch is fire-and-forget: the outcome of a
// generation is observed only through the post's status.
type Trigger struct {
	store      TriggerStore
	cfg        model.GenerationConfig
	token      string
	userHeader string
	client     *http.Client
	logger     *zap.Logger
	now        func() time.Time

	cron       *cron.Cron
	inflight   sync.WaitGroup
	noDispatch bool
}

// NewTrigger validates the cron spec and builds a Trigger. Requests to the
// generation endpoint carry auth's service token and user header.
func NewTrigger(s TriggerStore, cfg model.GenerationConfig, auth model.AuthConfig, logger *zap.Logger) (*Trigger, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 10 * time.Minute
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.ClaimBatch <= 0 {
		cfg.ClaimBatch = 10
	}
	if auth.UserHeader == "" {
		auth.UserHeader = "X-Authenticated-User"
	}

	t := &Trigger{
		store:      s,
		cfg:        cfg,
		token:      auth.ServiceToken,
		userHeader: auth.UserHeader,
		client:     &http.Client{Timeout: cfg.StaleAfter},
		logger:     logger.Named("trigger"),
		now:        time.Now,
	}

	cl := cronLogger{t.logger.Sugar()}
	t.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := t.cron.AddFunc(cfg.Cron, t.run); err != nil {
		return nil, fmt.Errorf("parsing generation schedule %q: %w", cfg.Cron, err)
	}
	return t, nil
}

// Every adds a maintenance job to the schedule. Job errors are logged.
func (t *Trigger) Every(spec, name string, job func(context.Context) error) error {
	_, err := t.cron.AddFunc(spec, func() {
		if err := job(context.Background()); err != nil {
			t.logger.Error("scheduled job failed", zap.String("job", name), zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("parsing schedule %q for %s: %w", spec, name, err)
	}
	return nil
}

// DisableDispatch keeps the stale sweep running but stops claiming due
// posts, for when the server has no model to generate them with.
func (t *Trigger) DisableDispatch() {
	t.noDispatch = true
}

// Start begins running the schedule in the background.
func (t *Trigger) Start() {
	t.logger.Info("generation trigger started", zap.String("schedule", t.cfg.Cron))
	t.cron.Start()
}

// Stop halts the schedule and waits for the running tick and in-flight
// dispatches, or for ctx to end.
func (t *Trigger) Stop(ctx context.Context) error {
	stopped := t.cron.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := t.Wait(ctx); err != nil {
		return err
	}
	t.logger.Info("generation trigger stopped")
	return nil
}

// Wait blocks until dispatched requests have been sent and answered.
func (t *Trigger) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		t.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		t.client.CloseIdleConnections()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Trigger) run() {
	if _, err := t.Tick(context.Background()); err != nil {
		t.logger.Error("generation tick failed", zap.Error(err))
	}
}

// Tick performs one sweep: stale generations are reset or failed, then
// due posts are claimed and dispatched unless dispatch is disabled.
func (t *Trigger) Tick(ctx context.Context) (TickResult, error) {
	var res TickResult
	now := t.now()

	reset, failed, err := t.store.ResetStalePosts(ctx, now.Add(-t.cfg.StaleAfter), t.cfg.MaxRetries)
	if err != nil {
		return res, fmt.Errorf("resetting stale posts: %w", err)
	}
	res.Reset, res.Failed = reset, failed
	if reset > 0 || failed > 0 {
		t.logger.Info("stale generations swept", zap.Int("reset", reset), zap.Int("failed", failed))
	}

	if t.noDispatch {
		return res, nil
	}
	posts, err := t.store.ClaimDuePosts(ctx, now, t.cfg.ClaimBatch)
	if err != nil {
		return res, fmt.Errorf("claiming due posts: %w", err)
	}
	for _, p := range posts {
		t.dispatch(p)
	}
	res.Dispatched = len(posts)
	return res, nil
}

func (t *Trigger) dispatch(p model.Post) {
	t.inflight.Add(1)
	go func() {
		defer t.inflight.Done()

		ctx, cancel := context.WithTimeout(context.Background(), t.cfg.StaleAfter)
		defer cancel()

		url := strings.TrimRight(t.cfg.Endpoint, "/") + "/posts/" + p.ID + "/generate"
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(nil))
		if err != nil {
			t.logger.Error("building generation request", zap.String("post_id", p.ID), zap.Error(err))
			return
		}
		if t.token != "" {
			req.Header.Set("Authorization", "Bearer "+t.token)
		}
		req.Header.Set(t.userHeader, p.UserID)

		resp, err := t.client.Do(req)
		if err != nil {
			t.logger.Warn("generation request failed", zap.String("post_id", p.ID), zap.Error(err))
			return
		}
		resp.Body.Close()
		if resp.StatusCode >= 300 {
			t.logger.Warn("generation request rejected",
				zap.String("post_id", p.ID), zap.Int("status", resp.StatusCode))
			return
		}
		t.logger.Debug("generation dispatched", zap.String("post_id", p.ID))
	}()
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
