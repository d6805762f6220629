package cms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/nhle/dayplan/internal/model"
)

type fakeTriggerStore struct {
	mu          sync.Mutex
	due         []model.Post
	staleBefore time.Time
	maxRetries  int
	claimLimit  int
}

func (f *fakeTriggerStore) ResetStalePosts(_ context.Context, staleBefore time.Time, maxRetries int) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.staleBefore = staleBefore
	f.maxRetries = maxRetries
	return 1, 2, nil
}

func (f *fakeTriggerStore) ClaimDuePosts(_ context.Context, _ time.Time, limit int) ([]model.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claimLimit = limit
	out := f.due
	f.due = nil
	return out, nil
}

type received struct {
	path, auth, user string
}

func recordingServer(t *testing.T, status int) (*httptest.Server, func() []received) {
	t.Helper()
	var mu sync.Mutex
	var got []received
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		got = append(got, received{
			path: r.Method + " " + r.URL.Path,
			auth: r.Header.Get("Authorization"),
			user: r.Header.Get("X-User"),
		})
		mu.Unlock()
		w.WriteHeader(status)
	}))
	return srv, func() []received {
		mu.Lock()
		defer mu.Unlock()
		out := append([]received(nil), got...)
		sort.Slice(out, func(i, j int) bool { return out[i].path < out[j].path })
		return out
	}
}

func TestTickSweepsAndDispatches(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	srv, requests := recordingServer(t, http.StatusOK)
	defer srv.Close()

	fs := &fakeTriggerStore{due: []model.Post{
		{ID: "p1", UserID: "alice"},
		{ID: "p2", UserID: "bob"},
	}}
	tr, err := NewTrigger(fs, model.GenerationConfig{
		Cron:       "* * * * *",
		StaleAfter: 10 * time.Minute,
		MaxRetries: 3,
		ClaimBatch: 5,
		Endpoint:   srv.URL + "/",
	}, model.AuthConfig{UserHeader: "X-User", ServiceToken: "tok"}, nil)
	require.NoError(t, err)

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return now }

	res, err := tr.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TickResult{Reset: 1, Failed: 2, Dispatched: 2}, res)
	require.NoError(t, tr.Wait(context.Background()))

	assert.True(t, fs.staleBefore.Equal(now.Add(-10*time.Minute)))
	assert.Equal(t, 3, fs.maxRetries)
	assert.Equal(t, 5, fs.claimLimit)
	assert.Equal(t, []received{
		{path: "POST /posts/p1/generate", auth: "Bearer tok", user: "alice"},
		{path: "POST /posts/p2/generate", auth: "Bearer tok", user: "bob"},
	}, requests())
}

func TestTickToleratesRejectedDispatch(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	srv, requests := recordingServer(t, http.StatusInternalServerError)
	defer srv.Close()

	fs := &fakeTriggerStore{due: []model.Post{{ID: "p1", UserID: "alice"}}}
	tr, err := NewTrigger(fs, model.GenerationConfig{Cron: "@every 1m", Endpoint: srv.URL},
		model.AuthConfig{UserHeader: "X-User"}, nil)
	require.NoError(t, err)

	res, err := tr.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Dispatched)
	require.NoError(t, tr.Wait(context.Background()))

	got := requests()
	require.Len(t, got, 1)
	assert.Empty(t, got[0].auth)

	res, err = tr.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Dispatched)
}

func TestNewTriggerRejectsBadSchedule(t *testing.T) {
	_, err := NewTrigger(&fakeTriggerStore{}, model.GenerationConfig{Cron: "every minute"},
		model.AuthConfig{}, nil)
	require.Error(t, err)
}

func TestTriggerStartStop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	tr, err := NewTrigger(&fakeTriggerStore{}, model.GenerationConfig{Cron: "* * * * *"},
		model.AuthConfig{}, nil)
	require.NoError(t, err)

	tr.Start()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, tr.Stop(ctx))
}

func TestTriggerEveryRunsJob(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	tr, err := NewTrigger(&fakeTriggerStore{}, model.GenerationConfig{Cron: "@every 1h"},
		model.AuthConfig{}, nil)
	require.NoError(t, err)
	require.Error(t, tr.Every("whenever", "prune", func(context.Context) error { return nil }))

	ran := make(chan struct{}, 1)
	require.NoError(t, tr.Every("@every 1s", "prune", func(context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	}))

	tr.Start()
	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not run")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, tr.Stop(ctx))
}

func TestTickWithDispatchDisabledOnlySweeps(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	srv, requests := recordingServer(t, http.StatusOK)
	defer srv.Close()

	fs := &fakeTriggerStore{due: []model.Post{{ID: "p1", UserID: "alice"}}}
	tr, err := NewTrigger(fs, model.GenerationConfig{Cron: "* * * * *", Endpoint: srv.URL},
		model.AuthConfig{ServiceToken: "tok"}, nil)
	require.NoError(t, err)
	tr.DisableDispatch()

	res, err := tr.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TickResult{Reset: 1, Failed: 2}, res)
	require.NoError(t, tr.Wait(context.Background()))

	assert.Empty(t, requests())
	assert.Len(t, fs.due, 1, "due posts stay pending")
	assert.Zero(t, fs.claimLimit)
}
