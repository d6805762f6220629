package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/dayplan/internal/api"
	"github.com/nhle/dayplan/internal/auth"
	"github.com/nhle/dayplan/internal/model"
	"github.com/nhle/dayplan/internal/ratelimit"
	"github.com/nhle/dayplan/internal/store"
	"github.com/nhle/dayplan/tests/testutil"
)

const (
	alice = "alice"
	bob   = "bob"
	today = "2026-03-10"

	userHeader = "X-User"
)

type harness struct {
	t     *testing.T
	store *store.SQLiteStore
	h     http.Handler
}

// newHarness builds a server over an in-memory store that trusts the
// X-User header. opts may adjust the options before the server is built.
func newHarness(t *testing.T, opts ...func(*api.Options, *store.SQLiteStore)) *harness {
	t.Helper()
	s := testutil.NewTestStore(t)
	o := api.Options{
		Store: s,
		Auth: auth.NewAuthenticator(s, ratelimit.New(s, 100, nil),
			model.AuthConfig{UserHeader: userHeader, TrustHeader: true}, nil),
		Location: time.UTC,
	}
	for _, fn := range opts {
		fn(&o, s)
	}
	return &harness{t: t, store: s, h: api.NewServer(o).Handler()}
}

func (h *harness) request(method, path string, headers map[string]string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(h.t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.h.ServeHTTP(rec, req)
	return rec
}

// as sends a request on behalf of user.
func (h *harness) as(user, method, path string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	return h.request(method, path, map[string]string{userHeader: user}, body)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode[map[string]string](t, rec)
	require.Contains(t, body, "error")
	return body["error"]
}

func TestHealthIsPublic(t *testing.T) {
	h := newHarness(t)
	rec := h.request(http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])
}

func TestMissingIdentityIsRejected(t *testing.T) {
	h := newHarness(t)
	rec := h.request(http.MethodGet, "/tasks/backlog", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, errorMessage(t, rec), "unauthenticated")
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestMalformedBody(t *testing.T) {
	h := newHarness(t)

	rec := h.as(alice, http.MethodPost, "/blocks/reorder", "{")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorMessage(t, rec), "invalid JSON")

	rec = h.as(alice, http.MethodPost, "/tasks", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorMessage(t, rec), "empty")
}

func TestAPIKeyAuthAndRateLimit(t *testing.T) {
	h := newHarness(t, func(o *api.Options, s *store.SQLiteStore) {
		o.Auth = auth.NewAuthenticator(s, ratelimit.New(s, 2, nil),
			model.AuthConfig{UserHeader: userHeader, TrustHeader: true}, nil)
	})

	rec := h.as(alice, http.MethodPost, "/api-keys", map[string]string{"name": "laptop"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[map[string]any](t, rec)
	key, _ := created["key"].(string)
	require.NotEmpty(t, key)
	assert.Equal(t, key[:9], created["prefix"])

	bearer := map[string]string{"Authorization": "Bearer " + key}
	for range 2 {
		rec = h.request(http.MethodGet, "/tasks/backlog", bearer, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec = h.request(http.MethodGet, "/tasks/backlog", bearer, nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Contains(t, errorMessage(t, rec), "rate limit")

	// Header identities are not metered.
	rec = h.as(alice, http.MethodGet, "/tasks/backlog", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIKeyRevoke(t *testing.T) {
	h := newHarness(t)
	rec := h.as(alice, http.MethodPost, "/api-keys", map[string]string{"name": "ci"})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[map[string]any](t, rec)

	rec = h.as(bob, http.MethodDelete, "/api-keys/"+created["id"].(string), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.as(alice, http.MethodDelete, "/api-keys/"+created["id"].(string), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = h.request(http.MethodGet, "/tasks/backlog",
		map[string]string{"Authorization": "Bearer " + created["key"].(string)}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.as(alice, http.MethodPost, "/api-keys", map[string]string{"name": " "})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	s := testutil.NewTestStore(t)
	srv := api.NewServer(api.Options{
		Store: s,
		Auth:  auth.NewAuthenticator(s, nil, model.AuthConfig{}, nil),
		Server: model.ServerConfig{
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		},
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
