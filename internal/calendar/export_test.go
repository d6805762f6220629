package calendar

import (
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/dayplan/internal/model"
)

func TestExportDay(t *testing.T) {
	stamp := time.Date(2026, 3, 9, 20, 0, 0, 0, time.UTC)
	day := model.Day{ID: "d1", Date: "2026-03-10"}
	blocks := []model.Block{
		{
			ID: "b1", Title: "Write report", StartTime: "09:00", Duration: 90,
			Type: model.BlockTypeDeepWork, Status: model.BlockStatusCompleted,
			CreatedAt: stamp, UpdatedAt: stamp,
			Tasks: []model.Task{
				{Title: "Outline", Status: model.TaskStatusCompleted},
				{Title: "Draft", Status: model.TaskStatusTodo},
			},
		},
		{
			ID: "b2", Title: "Lunch", StartTime: "12:30", Duration: 45,
			Type: model.BlockTypeBreak, Status: model.BlockStatusPending,
			CreatedAt: stamp, UpdatedAt: stamp,
		},
	}

	out, err := ExportDay(day, blocks, time.UTC)
	require.NoError(t, err)
	assert.Contains(t, out, "METHOD:PUBLISH")

	cal, err := ics.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 2)

	first := events[0]
	assert.Equal(t, "b1", first.Id())
	assert.Equal(t, "Write report", first.GetProperty(ics.ComponentPropertySummary).Value)
	assert.Equal(t, "COMPLETED", first.GetProperty(ics.ComponentPropertyStatus).Value)
	assert.Equal(t, "deep-work", first.GetProperty(ics.ComponentPropertyCategories).Value)

	start, err := first.GetStartAt()
	require.NoError(t, err)
	assert.True(t, start.Equal(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)))
	end, err := first.GetEndAt()
	require.NoError(t, err)
	assert.True(t, end.Equal(time.Date(2026, 3, 10, 10, 30, 0, 0, time.UTC)))

	second := events[1]
	assert.Equal(t, "b2", second.Id())
	assert.Equal(t, "CONFIRMED", second.GetProperty(ics.ComponentPropertyStatus).Value)
	assert.Nil(t, second.GetProperty(ics.ComponentPropertyDescription))
}

func TestExportDayRejectsBadClock(t *testing.T) {
	day := model.Day{Date: "2026-03-10"}
	_, err := ExportDay(day, []model.Block{{ID: "b1", StartTime: "9am"}}, time.UTC)
	require.Error(t, err)
}

func TestDescribeChecklist(t *testing.T) {
	b := model.Block{
		Description: "focus",
		Tasks: []model.Task{
			{Title: "Outline", Status: model.TaskStatusCompleted},
			{Title: "Draft", Status: model.TaskStatusTodo},
		},
	}
	assert.Equal(t, "focus\n[x] Outline\n[ ] Draft", describe(b))
	assert.Empty(t, describe(model.Block{}))
}
