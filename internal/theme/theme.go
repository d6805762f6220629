// Package theme holds the terminal styles used by the dayplan CLI.
package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/dayplan/internal/model"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorOrange  = lipgloss.AdaptiveColor{Dark: "#FFA94D", Light: "#C05621"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for the agenda title line.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// PanelStyle frames the rendered agenda.
var PanelStyle = lipgloss.NewStyle().
	Padding(0, 1).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// TimeStyle renders the start-end range of a block.
var TimeStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// TaskStyle indents the tasks listed under a block.
var TaskStyle = lipgloss.NewStyle().
	PaddingLeft(4)

// DimmedStyle fades completed blocks and tasks.
var DimmedStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Strikethrough(true)

// HelpStyle is used for footers and empty-state hints.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// BlockTypeStyle returns a color-coded badge style for a block type.
func BlockTypeStyle(t model.BlockType) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)

	switch t {
	case model.BlockTypeDeepWork:
		return base.Foreground(ColorBlue)
	case model.BlockTypeMeeting:
		return base.Foreground(ColorMagenta)
	case model.BlockTypeEvent:
		return base.Foreground(ColorOrange)
	case model.BlockTypeRoutine:
		return base.Foreground(ColorGreen)
	case model.BlockTypeBreak:
		return base.Foreground(ColorYellow)
	default:
		return base.Foreground(ColorGray)
	}
}

// BlockStatusStyle colors a block's status.
func BlockStatusStyle(status string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	if status == model.BlockStatusCompleted {
		return base.Foreground(ColorGreen)
	}
	return base.Foreground(ColorBlue)
}

// PriorityStyle returns a color-coded style for the given numeric priority.
func PriorityStyle(priority int) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch priority {
	case model.PriorityCritical:
		return base.Foreground(ColorRed)
	case model.PriorityHigh:
		return base.Foreground(ColorOrange)
	case model.PriorityMedium:
		return base.Foreground(ColorYellow)
	case model.PriorityLow:
		return base.Foreground(ColorBlue)
	default:
		return base.Foreground(ColorGray)
	}
}

// PriorityLabel is the short badge text for a priority.
func PriorityLabel(priority int) string {
	switch priority {
	case model.PriorityCritical:
		return "P1"
	case model.PriorityHigh:
		return "P2"
	case model.PriorityMedium:
		return "P3"
	case model.PriorityLow:
		return "P4"
	case model.PriorityLowest:
		return "P5"
	default:
		return "--"
	}
}
