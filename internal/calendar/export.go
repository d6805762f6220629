// Package calendar renders a planned day as an iCalendar feed so it can be
// subscribed to from any calendar client.
package calendar

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/nhle/dayplan/internal/model"
	"github.com/nhle/dayplan/internal/recur"
)

const productID = "-//dayplan//Day Export//EN"

// ExportDay serializes the blocks of day as a VCALENDAR with one VEVENT per
// block. Wall-clock start times are interpreted in loc.
func ExportDay(day model.Day, blocks []model.Block, loc *time.Location) (string, error) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName("dayplan " + day.Date)
	cal.SetXWRTimezone(loc.String())

	for _, b := range blocks {
		start, err := recur.At(day.Date, b.StartTime, loc)
		if err != nil {
			return "", fmt.Errorf("exporting block %s: %w", b.ID, err)
		}
		end := start.Add(time.Duration(b.Duration) * time.Minute)

		ev := cal.AddEvent(b.ID)
		ev.SetDtStampTime(b.UpdatedAt)
		ev.SetCreatedTime(b.CreatedAt)
		ev.SetModifiedAt(b.UpdatedAt)
		ev.SetStartAt(start)
		ev.SetEndAt(end)
		ev.SetSummary(b.Title)
		if desc := describe(b); desc != "" {
			ev.SetDescription(desc)
		}
		ev.AddProperty(ics.ComponentPropertyCategories, string(b.Type))
		if b.IsCompleted() {
			ev.SetStatus(ics.ObjectStatusCompleted)
		} else {
			ev.SetStatus(ics.ObjectStatusConfirmed)
		}
	}

	return cal.Serialize(), nil
}

// describe joins the block description with a checklist of its tasks.
func describe(b model.Block) string {
	var sb strings.Builder
	sb.WriteString(b.Description)
	for _, t := range b.Tasks {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		mark := "[ ]"
		if t.Status == model.TaskStatusCompleted {
			mark = "[x]"
		}
		sb.WriteString(mark + " " + t.Title)
	}
	return sb.String()
}
