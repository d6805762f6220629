package theme

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/dayplan/internal/model"
	"github.com/nhle/dayplan/internal/planner"
)

// RenderAgenda draws a day and its blocks, in index order, for the
// terminal. Blocks are expected to carry their tasks.
func RenderAgenda(day model.Day, blocks []model.Block) string {
	lines := []string{HeaderStyle.Render(agendaTitle(day, blocks))}

	if len(blocks) == 0 {
		lines = append(lines, HelpStyle.Render("No blocks planned."))
		return PanelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
	}

	for _, b := range blocks {
		lines = append(lines, renderBlock(b))
		for _, t := range b.Tasks {
			lines = append(lines, renderTask(t))
		}
	}
	return PanelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func agendaTitle(day model.Day, blocks []model.Block) string {
	done := 0
	for _, b := range blocks {
		if b.IsCompleted() {
			done++
		}
	}
	return fmt.Sprintf("%s  %d/%d done", day.Date, done, len(blocks))
}

func renderBlock(b model.Block) string {
	span := b.StartTime
	if end, err := planner.EndClock(b.StartTime, b.Duration); err == nil {
		span += "-" + end
	}

	prefix := "○"
	if b.IsCompleted() {
		prefix = "✓"
	}

	title := b.Title
	if b.IsCompleted() {
		title = DimmedStyle.Render(title)
	}

	return strings.Join([]string{
		prefix,
		TimeStyle.Render(span),
		BlockTypeStyle(b.Type).Render(string(b.Type)),
		title,
	}, " ")
}

func renderTask(t model.Task) string {
	box := "[ ]"
	title := t.Title
	if t.Status == model.TaskStatusCompleted {
		box = "[x]"
		title = DimmedStyle.Render(title)
	}
	line := fmt.Sprintf("%s %s %s", box, PriorityStyle(t.Priority).Render(PriorityLabel(t.Priority)), title)
	if t.Duration > 0 {
		line += TimeStyle.Render(fmt.Sprintf(" %dm", t.Duration))
	}
	return TaskStyle.Render(line)
}
