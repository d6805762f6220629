package model

import "time"

// Event instance status constants.
const (
	InstanceStatusPending    = "pending"
	InstanceStatusCompleted  = "completed"
	InstanceStatusIncomplete = "incomplete"
)

// Event is a calendar item. One-time events track completion in Completed;
// recurring events (non-empty Recurrence) track it per occurrence in
// InstanceHistory instead.
type Event struct {
	ID          string `json:"id" db:"id"`
	UserID      string `json:"user_id" db:"user_id"`
	Title       string `json:"title" db:"title"`
	Description string `json:"description" db:"description"`

	// Date is the first (or only) occurrence, YYYY-MM-DD.
	Date      string `json:"date" db:"date"`
	StartTime string `json:"start_time" db:"start_time"`
	Duration  int    `json:"duration" db:"duration"`

	// Recurrence is an RFC 5545 RRULE value without the "RRULE:" prefix,
	// e.g. "FREQ=WEEKLY;BYDAY=TU". Empty means one-time.
	Recurrence string `json:"recurrence,omitempty" db:"recurrence"`

	Completed bool      `json:"completed" db:"completed"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	InstanceHistory []EventInstance `json:"instance_history,omitempty" db:"-"`
}

// IsRecurring reports whether the event repeats.
func (e Event) IsRecurring() bool {
	return e.Recurrence != ""
}

// EventInstance is the completion record of one materialized occurrence
// of a recurring event, keyed by the block that instantiated it.
type EventInstance struct {
	EventID   string    `json:"event_id" db:"event_id"`
	BlockID   string    `json:"block_id" db:"block_id"`
	Date      string    `json:"date" db:"date"`
	Status    string    `json:"status" db:"status"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
