package model

import "time"

// DateLayout is the calendar-date key format for days.
const DateLayout = "2006-01-02"

// Day is the per-user, per-date container of scheduled blocks.
type Day struct {
	ID                   string    `json:"id" db:"id"`
	UserID               string    `json:"user_id" db:"user_id"`
	Date                 string    `json:"date" db:"date"`
	Completed            bool      `json:"completed" db:"completed"`
	CompletedBlocksCount int       `json:"completed_blocks_count" db:"completed_blocks_count"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time `json:"updated_at" db:"updated_at"`

	// Blocks is populated by queries that load the day's schedule,
	// ordered by Block.Index.
	Blocks []Block `json:"blocks,omitempty" db:"-"`
}
