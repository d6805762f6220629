package recur

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/dayplan/internal/model"
)

// 2026-03-10 is a Tuesday.
const tuesday = "2026-03-10"

func TestRoutineRule_Weekdays(t *testing.T) {
	rule, err := RoutineRule(model.Routine{ID: "r", Days: "tu, TH", StartTime: "07:00"}, time.UTC)
	require.NoError(t, err)

	for date, want := range map[string]bool{
		"2026-03-09": false,
		tuesday:      true,
		"2026-03-11": false,
		"2026-03-12": true,
		"2026-03-14": false,
	} {
		got, err := Occurs(rule, date, time.UTC)
		require.NoError(t, err)
		assert.Equal(t, want, got, date)
	}

	_, err = RoutineRule(model.Routine{ID: "r", StartTime: "07:00"}, time.UTC)
	assert.ErrorIs(t, err, model.ErrInvalid)
}

func TestEventRule(t *testing.T) {
	weekly := model.Event{ID: "e", Date: "2026-03-03", StartTime: "10:00", Recurrence: "FREQ=WEEKLY;BYDAY=TU"}
	rule, err := EventRule(weekly, time.UTC)
	require.NoError(t, err)

	ok, err := Occurs(rule, tuesday, time.UTC)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Occurs(rule, "2026-02-24", time.UTC)
	require.NoError(t, err)
	assert.False(t, ok, "no occurrences before the first date")

	limited := model.Event{ID: "e", Date: tuesday, StartTime: "10:00", Recurrence: "RRULE:FREQ=DAILY;COUNT=2"}
	rule, err = EventRule(limited, time.UTC)
	require.NoError(t, err)

	ok, err = Occurs(rule, "2026-03-11", time.UTC)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = Occurs(rule, "2026-03-12", time.UTC)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOccurs_RespectsLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	rule, err := EventRule(model.Event{ID: "e", Date: tuesday, StartTime: "23:30", Recurrence: "FREQ=DAILY"}, tokyo)
	require.NoError(t, err)

	ok, err := Occurs(rule, tuesday, tokyo)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = Occurs(rule, "not-a-date", tokyo)
	assert.ErrorIs(t, err, model.ErrInvalid)
}

func TestValidateRecurrence(t *testing.T) {
	assert.NoError(t, ValidateRecurrence(""))
	assert.NoError(t, ValidateRecurrence("FREQ=MONTHLY;BYMONTHDAY=1"))
	assert.NoError(t, ValidateRecurrence("RRULE:FREQ=WEEKLY;BYDAY=MO,FR"))
	assert.ErrorIs(t, ValidateRecurrence("FREQ=SOMETIMES"), model.ErrInvalid)
}

func TestAt(t *testing.T) {
	got, err := At(tuesday, "14:05", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 10, 14, 5, 0, 0, time.UTC), got)

	_, err = At(tuesday, "2pm", time.UTC)
	assert.Error(t, err)
}
