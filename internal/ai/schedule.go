package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nhle/dayplan/internal/model"
)

// ScheduleSystemPrompt frames the model as a day planner.
const ScheduleSystemPrompt = "You are a scheduling assistant. You place backlog tasks into " +
	"time blocks of a single day. Reply with JSON only."

// Suggestion places one backlog task. Exactly one of BlockID and StartTime
// is set: an existing block, or the start of a new block.
type Suggestion struct {
	TaskID    string `json:"taskId"`
	BlockID   string `json:"blockId,omitempty"`
	StartTime string `json:"startTime,omitempty"`
	Reason    string `json:"reason"`
}

// BuildSchedulePrompt describes the day's blocks and the backlog.
func BuildSchedulePrompt(date string, blocks []model.Block, backlog []model.Task) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Date: %s\n\n", date)

	sb.WriteString("Blocks:\n")
	if len(blocks) == 0 {
		sb.WriteString("(none)\n")
	}
	for _, b := range blocks {
		free := b.Duration
		for _, t := range b.Tasks {
			free -= t.Duration
		}
		fmt.Fprintf(&sb, "- id=%s %s %dmin type=%s status=%s free=%dmin title=%q\n",
			b.ID, b.StartTime, b.Duration, b.Type, b.Status, max(free, 0), b.Title)
	}

	sb.WriteString("\nBacklog:\n")
	if len(backlog) == 0 {
		sb.WriteString("(empty)\n")
	}
	for _, t := range backlog {
		fmt.Fprintf(&sb, "- id=%s priority=%d estimate=%dmin title=%q\n",
			t.ID, t.Priority, t.Duration, t.Title)
	}

	sb.WriteString("\nReturn a JSON array of objects with keys taskId, blockId ")
	sb.WriteString("(an existing block with enough free time) or startTime (HH:MM for ")
	sb.WriteString("a new block), and reason. Prefer higher priority tasks. ")
	sb.WriteString("Omit tasks that do not fit.")
	return sb.String()
}

// ParseSuggestions decodes the model reply. Suggestions for tasks that are
// not in backlog, or that name neither a block nor a start time, are
// dropped.
func ParseSuggestions(resp string, backlog []model.Task) ([]Suggestion, error) {
	var raw []Suggestion
	if err := json.Unmarshal([]byte(stripFence(resp)), &raw); err != nil {
		return nil, fmt.Errorf("parse suggestions: %w", err)
	}

	known := make(map[string]bool, len(backlog))
	for _, t := range backlog {
		known[t.ID] = true
	}

	out := make([]Suggestion, 0, len(raw))
	seen := make(map[string]bool)
	for _, s := range raw {
		if !known[s.TaskID] || seen[s.TaskID] {
			continue
		}
		if s.BlockID == "" && s.StartTime == "" {
			continue
		}
		seen[s.TaskID] = true
		out = append(out, s)
	}
	return out, nil
}
