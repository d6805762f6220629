package model

import (
	"strings"
	"time"
)

// Weekday codes accepted in Routine.Days, matching RRULE BYDAY values.
var WeekdayCodes = []string{"MO", "TU", "WE", "TH", "FR", "SA", "SU"}

// Routine is a recurring template. On every matching weekday it is
// materialized into a routine block holding fresh instances of its tasks.
type Routine struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`
	Name   string `json:"name" db:"name"`

	// Days is a comma-separated list of weekday codes (e.g. "MO,WE,FR").
	Days string `json:"days" db:"days"`

	StartTime string    `json:"start_time" db:"start_time"`
	EndTime   string    `json:"end_time" db:"end_time"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Tasks holds the template tasks. They carry RoutineID and no block.
	Tasks []Task `json:"tasks,omitempty" db:"-"`
}

// Weekdays returns the routine's weekday codes, upper-cased and trimmed.
func (r Routine) Weekdays() []string {
	var out []string
	for _, d := range strings.Split(r.Days, ",") {
		d = strings.ToUpper(strings.TrimSpace(d))
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}
