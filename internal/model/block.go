package model

import "time"

// BlockType tags what kind of time span a block represents.
type BlockType string

const (
	BlockTypeDeepWork BlockType = "deep-work"
	BlockTypeAdmin    BlockType = "admin"
	BlockTypeBreak    BlockType = "break"
	BlockTypeMeeting  BlockType = "meeting"
	BlockTypeEvent    BlockType = "event"
	BlockTypeRoutine  BlockType = "routine"
)

// BlockTypes lists every accepted block type.
var BlockTypes = []BlockType{
	BlockTypeDeepWork,
	BlockTypeAdmin,
	BlockTypeBreak,
	BlockTypeMeeting,
	BlockTypeEvent,
	BlockTypeRoutine,
}

// Block status constants.
const (
	BlockStatusPending   = "pending"
	BlockStatusCompleted = "completed"
)

// Block is a scheduled time span inside a Day.
type Block struct {
	// ID is the unique identifier for this block.
	ID string `json:"id" db:"id"`

	UserID string `json:"user_id" db:"user_id"`

	// DayID is the owning day. A block belongs to exactly one day.
	DayID string `json:"day_id" db:"day_id"`

	Title       string `json:"title" db:"title"`
	Description string `json:"description" db:"description"`

	// StartTime is the local wall-clock start in HH:MM form.
	StartTime string `json:"start_time" db:"start_time"`

	// Duration is the planned length in minutes.
	Duration int `json:"duration" db:"duration"`

	Type BlockType `json:"type" db:"type"`

	// Index is the manual render position among the day's blocks.
	// It is independent of StartTime.
	Index int `json:"index" db:"idx"`

	Status string `json:"status" db:"status"`

	// RoutineID and EventID link blocks materialized from a routine or
	// an event back to their template.
	RoutineID *string `json:"routine_id,omitempty" db:"routine_id"`
	EventID   *string `json:"event_id,omitempty" db:"event_id"`

	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`

	// Tasks is populated by queries that load the block's contents,
	// ordered by Task.Position.
	Tasks []Task `json:"tasks,omitempty" db:"-"`
}

// IsRoutineOrEventBlock reports whether the block was materialized from a
// routine or an event. Tasks inside such blocks are never deleted with it.
func (b Block) IsRoutineOrEventBlock() bool {
	if b.Type == BlockTypeRoutine || b.Type == BlockTypeEvent {
		return true
	}
	return b.RoutineID != nil || b.EventID != nil
}

// IsCompleted reports whether the block has been marked done.
func (b Block) IsCompleted() bool {
	return b.Status == BlockStatusCompleted
}
