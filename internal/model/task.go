package model

import "time"

// Task status constants.
const (
	TaskStatusTodo      = "todo"
	TaskStatusCompleted = "completed"
)

// Normalized priority constants (lower number = higher priority).
const (
	PriorityCritical = 1
	PriorityHigh     = 2
	PriorityMedium   = 3
	PriorityLow      = 4
	PriorityLowest   = 5
)

// Task is a unit of work. It may be owned by a Project or a Routine (never
// both) and may be placed inside at most one Block. A task with no block is
// part of the unscheduled backlog.
type Task struct {
	ID          string     `json:"id" db:"id"`
	UserID      string     `json:"user_id" db:"user_id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	Duration    int        `json:"duration" db:"duration"`
	Status      string     `json:"status" db:"status"`
	Priority    int        `json:"priority" db:"priority"`
	ProjectID   *string    `json:"project_id,omitempty" db:"project_id"`
	RoutineID   *string    `json:"routine_id,omitempty" db:"routine_id"`
	BlockID     *string    `json:"block_id,omitempty" db:"block_id"`
	Position    int        `json:"position" db:"position"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// HasParent reports whether the task belongs to a project or a routine.
func (t Task) HasParent() bool {
	return t.ProjectID != nil || t.RoutineID != nil
}

// IsScheduled reports whether the task sits inside a block.
func (t Task) IsScheduled() bool {
	return t.BlockID != nil
}
