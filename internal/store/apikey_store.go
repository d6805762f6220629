package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/dayplan/internal/model"
)

// CreateAPIKey stores a key record. Only the hash of the secret is kept.
func (s *SQLiteStore) CreateAPIKey(ctx context.Context, key model.APIKey) (*model.APIKey, error) {
	if strings.TrimSpace(key.UserID) == "" {
		return nil, model.Invalid("user_id", "must not be empty")
	}
	if key.KeyHash == "" {
		return nil, model.Invalid("key_hash", "must not be empty")
	}
	if key.ID == "" {
		key.ID = uuid.New().String()
	}
	key.CreatedAt = now()
	key.LastUsedAt = nil

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO api_keys (id, user_id, name, prefix, key_hash, created_at, last_used_at)
		VALUES (?, ?, ?, ?, ?, ?, NULL)`,
		key.ID, key.UserID, key.Name, key.Prefix, key.KeyHash, key.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating api key: %w", err)
	}
	return &key, nil
}

// LookupAPIKey finds the key record for a secret hash.
func (s *SQLiteStore) LookupAPIKey(ctx context.Context, keyHash string) (*model.APIKey, error) {
	var key model.APIKey
	err := s.db.GetContext(ctx, &key, `
		SELECT id, user_id, name, prefix, key_hash, created_at, last_used_at
		FROM api_keys WHERE key_hash = ?`, keyHash)
	if err != nil {
		return nil, notFoundOr(err, "api key", "with hash")
	}
	return &key, nil
}

// TouchAPIKey records the last time a key authenticated a request.
func (s *SQLiteStore) TouchAPIKey(ctx context.Context, id string, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE api_keys SET last_used_at = ? WHERE id = ?", at.UTC(), id)
	if err != nil {
		return fmt.Errorf("touching api key %s: %w", id, err)
	}
	return expectOne(result, "api key", id)
}

// RevokeAPIKey deletes one of the user's keys.
func (s *SQLiteStore) RevokeAPIKey(ctx context.Context, userID, id string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM api_keys WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("revoking api key %s: %w", id, err)
	}
	return expectOne(result, "api key", id)
}

// IncrementRateWindow atomically adds one request to the counter for key
// in the window starting at windowStart and returns the new count.
func (s *SQLiteStore) IncrementRateWindow(ctx context.Context, key string, windowStart time.Time) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `
		INSERT INTO rate_windows (bucket, window_start, hits) VALUES (?, ?, 1)
		ON CONFLICT(bucket, window_start) DO UPDATE SET hits = hits + 1
		RETURNING hits`,
		key, windowStart.Unix())
	if err != nil {
		return 0, fmt.Errorf("incrementing rate window for %s: %w", key, err)
	}
	return count, nil
}

// PruneRateWindows deletes counters for windows that started before before.
func (s *SQLiteStore) PruneRateWindows(ctx context.Context, before time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM rate_windows WHERE window_start < ?", before.Unix())
	if err != nil {
		return 0, fmt.Errorf("pruning rate windows: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading pruned window count: %w", err)
	}
	return int(n), nil
}
