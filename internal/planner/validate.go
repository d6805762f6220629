package planner

import (
	"fmt"
	"strings"
	"time"

	"github.com/nhle/dayplan/internal/model"
)

// maxDuration caps a block or task estimate at one full day.
const maxDuration = 24 * 60

// ValidateDate checks a YYYY-MM-DD day key.
func ValidateDate(date string) error {
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return model.Invalid("date", "must be YYYY-MM-DD, got %q", date)
	}
	return nil
}

// ValidateClock checks an HH:MM wall-clock string.
func ValidateClock(field, clock string) error {
	if _, err := ClockToMinutes(clock); err != nil {
		return model.Invalid(field, "must be HH:MM, got %q", clock)
	}
	return nil
}

// ClockToMinutes converts HH:MM to minutes after midnight.
func ClockToMinutes(clock string) (int, error) {
	if len(clock) != len("15:04") {
		return 0, fmt.Errorf("parsing clock %q: want HH:MM", clock)
	}
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return 0, fmt.Errorf("parsing clock %q: %w", clock, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// MinutesToClock renders minutes after midnight as HH:MM, wrapping at 24h.
func MinutesToClock(m int) string {
	m = ((m % maxDuration) + maxDuration) % maxDuration
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// EndClock returns the HH:MM at which a span of duration minutes starting
// at start ends.
func EndClock(start string, duration int) (string, error) {
	m, err := ClockToMinutes(start)
	if err != nil {
		return "", err
	}
	return MinutesToClock(m + duration), nil
}

// ValidateDuration accepts 1..1440 minutes.
func ValidateDuration(field string, minutes int) error {
	if minutes <= 0 || minutes > maxDuration {
		return model.Invalid(field, "must be between 1 and %d minutes, got %d", maxDuration, minutes)
	}
	return nil
}

// ValidateBlockType checks the type tag against model.BlockTypes.
func ValidateBlockType(t model.BlockType) error {
	for _, known := range model.BlockTypes {
		if t == known {
			return nil
		}
	}
	return model.Invalid("type", "unknown block type %q", t)
}

// ValidateBlock checks the user-editable fields of a block.
func ValidateBlock(b model.Block) error {
	if strings.TrimSpace(b.Title) == "" {
		return model.Invalid("title", "must not be empty")
	}
	if err := ValidateClock("start_time", b.StartTime); err != nil {
		return err
	}
	if err := ValidateDuration("duration", b.Duration); err != nil {
		return err
	}
	return ValidateBlockType(b.Type)
}

// ValidateTask checks the user-editable fields of a task, including the
// rule that a task has at most one parent.
func ValidateTask(t model.Task) error {
	if strings.TrimSpace(t.Title) == "" {
		return model.Invalid("title", "must not be empty")
	}
	if t.Duration < 0 || t.Duration > maxDuration {
		return model.Invalid("duration", "must be between 0 and %d minutes, got %d", maxDuration, t.Duration)
	}
	return ValidateTaskParents(t)
}

// ValidateTaskParents rejects tasks owned by both a project and a routine.
func ValidateTaskParents(t model.Task) error {
	if t.ProjectID != nil && t.RoutineID != nil {
		return model.Invalid("project_id", "a task belongs to a project or a routine, not both")
	}
	return nil
}

// ValidateRoutine checks a routine template.
func ValidateRoutine(r model.Routine) error {
	if strings.TrimSpace(r.Name) == "" {
		return model.Invalid("name", "must not be empty")
	}
	days := r.Weekdays()
	if len(days) == 0 {
		return model.Invalid("days", "at least one weekday is required")
	}
	for _, d := range days {
		if !isWeekdayCode(d) {
			return model.Invalid("days", "unknown weekday %q", d)
		}
	}
	if err := ValidateClock("start_time", r.StartTime); err != nil {
		return err
	}
	if err := ValidateClock("end_time", r.EndTime); err != nil {
		return err
	}
	if _, err := RoutineDuration(r); err != nil {
		return err
	}
	return nil
}

// RoutineDuration returns the minutes between start and end. End must be
// after start.
func RoutineDuration(r model.Routine) (int, error) {
	start, err := ClockToMinutes(r.StartTime)
	if err != nil {
		return 0, model.Invalid("start_time", "must be HH:MM, got %q", r.StartTime)
	}
	end, err := ClockToMinutes(r.EndTime)
	if err != nil {
		return 0, model.Invalid("end_time", "must be HH:MM, got %q", r.EndTime)
	}
	if end <= start {
		return 0, model.Invalid("end_time", "must be after start_time")
	}
	return end - start, nil
}

func isWeekdayCode(d string) bool {
	for _, c := range model.WeekdayCodes {
		if c == d {
			return true
		}
	}
	return false
}
