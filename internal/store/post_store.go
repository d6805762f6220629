package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/dayplan/internal/model"
)

const postColumns = `id, user_id, topic, title, body, status, scheduled_at, generation_started_at,
	retry_count, last_error, created_at, updated_at`

// staleReason is recorded on posts reset by ResetStalePosts.
const staleReason = "generation timed out"

// CreatePost inserts a post. A post with a schedule starts pending, one
// without starts as a draft.
func (s *SQLiteStore) CreatePost(ctx context.Context, post model.Post) (*model.Post, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertPost(ctx, tx, &post); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing post %s: %w", post.ID, err)
	}
	return &post, nil
}

// CreatePosts inserts a batch of posts in one transaction. Either every
// post is stored or none is.
func (s *SQLiteStore) CreatePosts(ctx context.Context, posts []model.Post) ([]model.Post, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	out := make([]model.Post, len(posts))
	for i, p := range posts {
		if err := insertPost(ctx, tx, &p); err != nil {
			return nil, fmt.Errorf("post %d of %d: %w", i+1, len(posts), err)
		}
		out[i] = p
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing %d posts: %w", len(posts), err)
	}
	return out, nil
}

func insertPost(ctx context.Context, tx *sqlx.Tx, post *model.Post) error {
	if strings.TrimSpace(post.Topic) == "" {
		return model.Invalid("topic", "must not be empty")
	}
	if post.ID == "" {
		post.ID = uuid.New().String()
	}
	ts := now()
	post.CreatedAt = ts
	post.UpdatedAt = ts
	post.GenerationStartedAt = nil
	post.RetryCount = 0
	post.LastError = ""
	if post.ScheduledAt != nil {
		at := post.ScheduledAt.UTC()
		post.ScheduledAt = &at
		post.Status = model.PostStatusPending
	} else {
		post.Status = model.PostStatusDraft
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO posts (
			id, user_id, topic, title, body, status, scheduled_at, generation_started_at,
			retry_count, last_error, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, NULL, 0, '', ?, ?)`,
		post.ID, post.UserID, post.Topic, post.Title, post.Body, post.Status, post.ScheduledAt,
		post.CreatedAt, post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating post: %w", err)
	}
	return nil
}

// GetPost retrieves a single post by id.
func (s *SQLiteStore) GetPost(ctx context.Context, userID, id string) (*model.Post, error) {
	var p model.Post
	err := s.db.GetContext(ctx, &p,
		"SELECT "+postColumns+" FROM posts WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return nil, notFoundOr(err, "post", id)
	}
	return &p, nil
}

// ListPosts returns the user's posts, newest first, optionally filtered by status.
func (s *SQLiteStore) ListPosts(ctx context.Context, userID, status string) ([]model.Post, error) {
	query := "SELECT " + postColumns + " FROM posts WHERE user_id = ?"
	args := []any{userID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"

	var posts []model.Post
	if err := s.db.SelectContext(ctx, &posts, query, args...); err != nil {
		return nil, fmt.Errorf("querying posts: %w", err)
	}
	return posts, nil
}

// ClaimDuePosts moves up to limit pending posts whose schedule has passed
// into generating and stamps their start time. The claimed posts are
// returned in schedule order.
func (s *SQLiteStore) ClaimDuePosts(ctx context.Context, at time.Time, limit int) ([]model.Post, error) {
	if limit <= 0 {
		return nil, nil
	}
	at = at.UTC()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var due []model.Post
	err = tx.SelectContext(ctx, &due, `
		SELECT `+postColumns+` FROM posts
		WHERE status = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ?
		ORDER BY scheduled_at LIMIT ?`,
		model.PostStatusPending, at, limit)
	if err != nil {
		return nil, fmt.Errorf("querying due posts: %w", err)
	}

	for i := range due {
		if err := markGenerating(ctx, tx, due[i].ID, model.PostStatusPending, at); err != nil {
			return nil, err
		}
		due[i].Status = model.PostStatusGenerating
		due[i].GenerationStartedAt = &at
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing post claims: %w", err)
	}
	return due, nil
}

// MarkPostGenerating claims a single post for a manual generation run.
// A post that is already generating keeps its original start stamp.
func (s *SQLiteStore) MarkPostGenerating(ctx context.Context, userID, id string, at time.Time) error {
	p, err := s.GetPost(ctx, userID, id)
	if err != nil {
		return err
	}
	switch p.Status {
	case model.PostStatusGenerating:
		return nil
	case model.PostStatusPublished:
		return fmt.Errorf("post %s is already published: %w", id, model.ErrConflict)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := markGenerating(ctx, tx, id, p.Status, at.UTC()); err != nil {
		return err
	}
	return tx.Commit()
}

func markGenerating(ctx context.Context, tx *sqlx.Tx, id, from string, at time.Time) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE posts SET status = ?, generation_started_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		model.PostStatusGenerating, at, now(), id, from)
	if err != nil {
		return fmt.Errorf("claiming post %s: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected for post %s: %w", id, err)
	}
	if rows != 1 {
		return fmt.Errorf("post %s left %s before it was claimed: %w", id, from, model.ErrConflict)
	}
	return nil
}

// CompletePostGeneration stores the generated content and publishes the post.
func (s *SQLiteStore) CompletePostGeneration(ctx context.Context, userID, id, title, body string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE posts SET title = ?, body = ?, status = ?, generation_started_at = NULL,
			last_error = '', updated_at = ?
		WHERE id = ? AND user_id = ? AND status = ?`,
		title, body, model.PostStatusPublished, now(), id, userID, model.PostStatusGenerating)
	if err != nil {
		return fmt.Errorf("publishing post %s: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected for post %s: %w", id, err)
	}
	if rows == 0 {
		return fmt.Errorf("post %s is no longer generating: %w", id, model.ErrConflict)
	}
	return nil
}

// FailPostGeneration records a failed attempt. A scheduled post goes back
// to pending for the trigger to retry and an unscheduled one back to draft,
// until it has used maxRetries attempts and becomes failed. The resulting
// status is returned.
func (s *SQLiteStore) FailPostGeneration(
	ctx context.Context,
	userID, id, reason string,
	maxRetries int,
) (string, error) {
	var status string
	err := s.db.GetContext(ctx, &status, `
		UPDATE posts SET
			retry_count = retry_count + 1,
			status = CASE
				WHEN retry_count + 1 >= ? THEN 'failed'
				WHEN scheduled_at IS NULL THEN 'draft'
				ELSE 'pending'
			END,
			generation_started_at = NULL,
			last_error = ?,
			updated_at = ?
		WHERE id = ? AND user_id = ? AND status = ?
		RETURNING status`,
		maxRetries, reason, now(), id, userID, model.PostStatusGenerating)
	if err != nil {
		return "", notFoundOr(err, "generating post", id)
	}
	return status, nil
}

// ResetStalePosts handles posts stuck in generating since before
// staleBefore: each one is charged a retry and goes back to pending (draft
// when unscheduled), or to failed when that retry reaches maxRetries.
func (s *SQLiteStore) ResetStalePosts(
	ctx context.Context,
	staleBefore time.Time,
	maxRetries int,
) (reset, failed int, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	staleBefore = staleBefore.UTC()
	ts := now()

	result, err := tx.ExecContext(ctx, `
		UPDATE posts SET status = ?, retry_count = retry_count + 1,
			generation_started_at = NULL, last_error = ?, updated_at = ?
		WHERE status = ? AND generation_started_at < ? AND retry_count + 1 >= ?`,
		model.PostStatusFailed, staleReason, ts,
		model.PostStatusGenerating, staleBefore, maxRetries)
	if err != nil {
		return 0, 0, fmt.Errorf("failing stale posts: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, 0, fmt.Errorf("reading failed post count: %w", err)
	}
	failed = int(n)

	result, err = tx.ExecContext(ctx, `
		UPDATE posts SET
			status = CASE WHEN scheduled_at IS NULL THEN ? ELSE ? END,
			retry_count = retry_count + 1,
			generation_started_at = NULL, last_error = ?, updated_at = ?
		WHERE status = ? AND generation_started_at < ?`,
		model.PostStatusDraft, model.PostStatusPending, staleReason, ts,
		model.PostStatusGenerating, staleBefore)
	if err != nil {
		return 0, 0, fmt.Errorf("resetting stale posts: %w", err)
	}
	n, err = result.RowsAffected()
	if err != nil {
		return 0, 0, fmt.Errorf("reading reset post count: %w", err)
	}
	reset = int(n)

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("committing stale post reset: %w", err)
	}
	return reset, failed, nil
}
