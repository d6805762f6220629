// Package auth resolves the calling user of an HTTP request. A request is
// identified either by an API key, by the identity header set by a trusted
// proxy, or by the internal service token plus that header.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/dayplan/internal/model"
	"github.com/nhle/dayplan/internal/ratelimit"
)

// Identity sources.
const (
	ViaAPIKey  = "api_key"
	ViaHeader  = "header"
	ViaService = "service"
)

// Identity is the resolved caller.
type Identity struct {
	UserID string
	KeyID  string
	Via    string
}

// KeyStore looks up and stamps API keys.
type KeyStore interface {
	LookupAPIKey(ctx context.Context, keyHash string) (*model.APIKey, error)
	TouchAPIKey(ctx context.Context, id string, at time.Time) error
}

// Limiter meters API-key traffic.
type Limiter interface {
	Allow(ctx context.Context, key string) (ratelimit.Decision, error)
}

// LimitError is returned when an API key has exhausted its window.
type LimitError struct {
	Decision ratelimit.Decision
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%v: limit %d per hour", model.ErrRateLimited, e.Decision.Limit)
}

// Unwrap lets errors.Is(err, model.ErrRateLimited) match.
func (e *LimitError) Unwrap() error {
	return model.ErrRateLimited
}

// Authenticator resolves identities from requests.
type Authenticator struct {
	keys    KeyStore
	limiter Limiter
	cfg     model.AuthConfig
	logger  *zap.Logger
}

// NewAuthenticator creates an Authenticator. limiter may be nil to disable
// rate limiting.
func NewAuthenticator(keys KeyStore, limiter Limiter, cfg model.AuthConfig, logger *zap.Logger) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.UserHeader == "" {
		cfg.UserHeader = "X-Authenticated-User"
	}
	return &Authenticator{keys: keys, limiter: limiter, cfg: cfg, logger: logger}
}

// UserHeader returns the header name that carries an asserted user id.
func (a *Authenticator) UserHeader() string {
	return a.cfg.UserHeader
}

// Resolve identifies the caller of r. It returns an error wrapping
// model.ErrUnauthenticated when no identity can be established, or a
// *LimitError when the caller's API key is over its limit.
func (a *Authenticator) Resolve(r *http.Request) (Identity, error) {
	ctx := r.Context()
	asserted := strings.TrimSpace(r.Header.Get(a.cfg.UserHeader))

	if token, ok := bearerToken(r); ok {
		if a.cfg.ServiceToken != "" && secureCompare(token, a.cfg.ServiceToken) {
			if asserted == "" {
				return Identity{}, fmt.Errorf("service call without %s: %w", a.cfg.UserHeader, model.ErrUnauthenticated)
			}
			return Identity{UserID: asserted, Via: ViaService}, nil
		}
		if !strings.HasPrefix(token, KeyPrefix) {
			return Identity{}, fmt.Errorf("malformed bearer token: %w", model.ErrUnauthenticated)
		}
		return a.resolveKey(ctx, token)
	}

	if a.cfg.TrustHeader && asserted != "" {
		return Identity{UserID: asserted, Via: ViaHeader}, nil
	}
	return Identity{}, fmt.Errorf("no credentials: %w", model.ErrUnauthenticated)
}

func (a *Authenticator) resolveKey(ctx context.Context, token string) (Identity, error) {
	key, err := a.keys.LookupAPIKey(ctx, HashKey(token))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return Identity{}, fmt.Errorf("unknown api key: %w", model.ErrUnauthenticated)
		}
		return Identity{}, fmt.Errorf("looking up api key: %w", err)
	}

	if a.limiter != nil {
		d, err := a.limiter.Allow(ctx, "apikey:"+key.ID)
		if err != nil {
			return Identity{}, err
		}
		if !d.Allowed {
			return Identity{}, &LimitError{Decision: d}
		}
	}

	if err := a.keys.TouchAPIKey(ctx, key.ID, time.Now()); err != nil {
		a.logger.Warn("failed to stamp api key usage", zap.String("key_id", key.ID), zap.Error(err))
	}
	return Identity{UserID: key.UserID, KeyID: key.ID, Via: ViaAPIKey}, nil
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

type ctxKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored by WithIdentity.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok && id.UserID != ""
}
