package model

import "time"

// Post status constants.
const (
	PostStatusDraft      = "draft"
	PostStatusPending    = "pending"
	PostStatusGenerating = "generating"
	PostStatusPublished  = "published"
	PostStatusFailed     = "failed"
)

// Post is a blog entry whose body is produced by the AI generator.
type Post struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`

	// Topic is the generation brief.
	Topic string `json:"topic" db:"topic"`
	Title string `json:"title" db:"title"`
	Body  string `json:"body" db:"body"`

	Status string `json:"status" db:"status"`

	// ScheduledAt is when the post becomes due for generation.
	ScheduledAt *time.Time `json:"scheduled_at,omitempty" db:"scheduled_at"`

	// GenerationStartedAt is stamped when the post is claimed; a post stuck
	// in generating past the staleness window is reset to pending.
	GenerationStartedAt *time.Time `json:"generation_started_at,omitempty" db:"generation_started_at"`

	RetryCount int       `json:"retry_count" db:"retry_count"`
	LastError  string    `json:"last_error,omitempty" db:"last_error"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}
