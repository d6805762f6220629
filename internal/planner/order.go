// Package planner holds the pure scheduling rules: block ordering, task
// preservation on deletion, and input validation. Nothing here touches the
// database; the store applies these decisions inside its transactions.
package planner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nhle/dayplan/internal/model"
)

// Direction is a single-step reorder direction.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// ParseDirection accepts "up" or "down" (case-insensitive).
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case DirectionUp:
		return DirectionUp, nil
	case DirectionDown:
		return DirectionDown, nil
	default:
		return "", model.Invalid("direction", "must be %q or %q, got %q", DirectionUp, DirectionDown, s)
	}
}

// SortByIndex orders blocks by Index ascending. Ties fall back to start
// time then id so the order is deterministic.
func SortByIndex(blocks []model.Block) {
	sort.SliceStable(blocks, func(i, j int) bool {
		if blocks[i].Index != blocks[j].Index {
			return blocks[i].Index < blocks[j].Index
		}
		if blocks[i].StartTime != blocks[j].StartTime {
			return blocks[i].StartTime < blocks[j].StartTime
		}
		return blocks[i].ID < blocks[j].ID
	})
}

// SwapPair locates blockID among blocks (sorted by index) and returns it
// together with its immediate neighbor in direction dir. Moving the first
// block up or the last block down returns model.ErrBoundary.
func SwapPair(blocks []model.Block, blockID string, dir Direction) (target, neighbor model.Block, err error) {
	sorted := make([]model.Block, len(blocks))
	copy(sorted, blocks)
	SortByIndex(sorted)

	pos := -1
	for i, b := range sorted {
		if b.ID == blockID {
			pos = i
			break
		}
	}
	if pos == -1 {
		return model.Block{}, model.Block{}, model.NotFound("block", blockID)
	}

	var other int
	switch dir {
	case DirectionUp:
		if pos == 0 {
			return model.Block{}, model.Block{}, fmt.Errorf("block %s is already first: %w", blockID, model.ErrBoundary)
		}
		other = pos - 1
	case DirectionDown:
		if pos == len(sorted)-1 {
			return model.Block{}, model.Block{}, fmt.Errorf("block %s is already last: %w", blockID, model.ErrBoundary)
		}
		other = pos + 1
	default:
		return model.Block{}, model.Block{}, model.Invalid("direction", "unknown direction %q", dir)
	}

	return sorted[pos], sorted[other], nil
}

// SplitTasksForDeletion decides, for each task in a block about to be
// deleted, whether it survives. Every task in a routine or event block is
// preserved. In ordinary blocks a task survives only if it belongs to a
// project or a routine.
func SplitTasksForDeletion(block model.Block, tasks []model.Task) (preserve, remove []string) {
	keepAll := block.IsRoutineOrEventBlock()
	for _, t := range tasks {
		if keepAll || t.HasParent() {
			preserve = append(preserve, t.ID)
			continue
		}
		remove = append(remove, t.ID)
	}
	return preserve, remove
}
