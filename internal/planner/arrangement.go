package planner

import (
	"strings"

	"github.com/nhle/dayplan/internal/model"
)

// BlockArrangement is one entry of a drag-end payload: the block's new
// index and the full ordered list of task ids it now holds.
type BlockArrangement struct {
	BlockID string   `json:"blockId"`
	Index   int      `json:"index"`
	TaskIDs []string `json:"-"`
}

// ValidateArrangement rejects payloads that could not be applied
// consistently: empty ids, a block listed twice, two blocks sharing an
// index, or a task placed in two blocks at once.
func ValidateArrangement(items []BlockArrangement) error {
	if len(items) == 0 {
		return model.Invalid("blocks", "must not be empty")
	}
	seenBlocks := make(map[string]bool, len(items))
	seenIndexes := make(map[int]string, len(items))
	seenTasks := make(map[string]string)
	for _, item := range items {
		if strings.TrimSpace(item.BlockID) == "" {
			return model.Invalid("blockId", "must not be empty")
		}
		if seenBlocks[item.BlockID] {
			return model.Invalid("blockId", "block %s listed more than once", item.BlockID)
		}
		seenBlocks[item.BlockID] = true
		if item.Index < 0 {
			return model.Invalid("index", "must not be negative")
		}
		if prev, ok := seenIndexes[item.Index]; ok {
			return model.Invalid("index", "blocks %s and %s both at index %d", prev, item.BlockID, item.Index)
		}
		seenIndexes[item.Index] = item.BlockID
		for _, taskID := range item.TaskIDs {
			if strings.TrimSpace(taskID) == "" {
				return model.Invalid("taskId", "must not be empty")
			}
			if prev, ok := seenTasks[taskID]; ok {
				return model.Invalid("taskId", "task %s placed in blocks %s and %s", taskID, prev, item.BlockID)
			}
			seenTasks[taskID] = item.BlockID
		}
	}
	return nil
}
