// Package recur expands routines and recurring events into the blocks of a
// given day.
package recur

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/nhle/dayplan/internal/model"
	"github.com/nhle/dayplan/internal/planner"
)

// routineEpoch anchors weekly routine rules. It is a Monday so WKST lines
// up with the first occurrence.
var routineEpoch = time.Date(2000, time.January, 3, 0, 0, 0, 0, time.UTC)

// ValidateRecurrence checks an RRULE value such as "FREQ=WEEKLY;BYDAY=TU".
// An empty value means one-time and is valid.
func ValidateRecurrence(rule string) error {
	rule = strings.TrimPrefix(strings.TrimSpace(rule), "RRULE:")
	if rule == "" {
		return nil
	}
	if _, err := rrule.StrToRRule(rule); err != nil {
		return model.Invalid("recurrence", "%v", err)
	}
	return nil
}

// RoutineRule builds a weekly rule that fires at the routine's start time
// on each of its weekdays, interpreted in loc.
func RoutineRule(r model.Routine, loc *time.Location) (*rrule.RRule, error) {
	days := r.Weekdays()
	if len(days) == 0 {
		return nil, model.Invalid("days", "routine %s has no weekdays", r.ID)
	}
	rule, err := rrule.StrToRRule("FREQ=WEEKLY;BYDAY=" + strings.Join(days, ","))
	if err != nil {
		return nil, fmt.Errorf("building rule for routine %s: %w", r.ID, err)
	}

	start, err := planner.ClockToMinutes(r.StartTime)
	if err != nil {
		return nil, fmt.Errorf("routine %s start: %w", r.ID, err)
	}
	anchor := time.Date(routineEpoch.Year(), routineEpoch.Month(), routineEpoch.Day(),
		start/60, start%60, 0, 0, loc)
	rule.DTStart(anchor)
	return rule, nil
}

// EventRule builds the rule for a recurring event, anchored at the event's
// first date and start time in loc.
func EventRule(e model.Event, loc *time.Location) (*rrule.RRule, error) {
	rule, err := rrule.StrToRRule(strings.TrimPrefix(e.Recurrence, "RRULE:"))
	if err != nil {
		return nil, fmt.Errorf("parsing recurrence of event %s: %w", e.ID, err)
	}
	anchor, err := At(e.Date, e.StartTime, loc)
	if err != nil {
		return nil, fmt.Errorf("event %s start: %w", e.ID, err)
	}
	rule.DTStart(anchor)
	return rule, nil
}

// Occurs reports whether rule has an occurrence during the calendar date
// in loc.
func Occurs(rule *rrule.RRule, date string, loc *time.Location) (bool, error) {
	dayStart, err := time.ParseInLocation(model.DateLayout, date, loc)
	if err != nil {
		return false, model.Invalid("date", "must be YYYY-MM-DD, got %q", date)
	}
	dayEnd := dayStart.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return len(rule.Between(dayStart, dayEnd, true)) > 0, nil
}

// At combines a YYYY-MM-DD date and an HH:MM clock into a time in loc.
func At(date, clock string, loc *time.Location) (time.Time, error) {
	day, err := time.ParseInLocation(model.DateLayout, date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", date, err)
	}
	minutes, err := planner.ClockToMinutes(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), minutes/60, minutes%60, 0, 0, loc), nil
}
