package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/dayplan/internal/model"
)

func threeBlocks() []model.Block {
	// Deliberately out of index order.
	return []model.Block{
		{ID: "b3", Index: 2},
		{ID: "b1", Index: 0},
		{ID: "b2", Index: 1},
	}
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in      string
		want    Direction
		wantErr bool
	}{
		{"up", DirectionUp, false},
		{"DOWN", DirectionDown, false},
		{" Up ", DirectionUp, false},
		{"left", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDirection(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, model.ErrInvalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSwapPair(t *testing.T) {
	target, neighbor, err := SwapPair(threeBlocks(), "b2", DirectionUp)
	require.NoError(t, err)
	assert.Equal(t, "b2", target.ID)
	assert.Equal(t, "b1", neighbor.ID)

	target, neighbor, err = SwapPair(threeBlocks(), "b2", DirectionDown)
	require.NoError(t, err)
	assert.Equal(t, "b2", target.ID)
	assert.Equal(t, "b3", neighbor.ID)
}

func TestSwapPair_Boundaries(t *testing.T) {
	_, _, err := SwapPair(threeBlocks(), "b1", DirectionUp)
	assert.ErrorIs(t, err, model.ErrBoundary)

	_, _, err = SwapPair(threeBlocks(), "b3", DirectionDown)
	assert.ErrorIs(t, err, model.ErrBoundary)

	_, _, err = SwapPair([]model.Block{{ID: "only"}}, "only", DirectionDown)
	assert.ErrorIs(t, err, model.ErrBoundary)

	_, _, err = SwapPair(threeBlocks(), "missing", DirectionUp)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSwapPair_DoesNotReorderInput(t *testing.T) {
	blocks := threeBlocks()
	_, _, err := SwapPair(blocks, "b2", DirectionUp)
	require.NoError(t, err)
	assert.Equal(t, "b3", blocks[0].ID)
}

func TestSortByIndex_TieBreaks(t *testing.T) {
	blocks := []model.Block{
		{ID: "z", Index: 1, StartTime: "09:00"},
		{ID: "y", Index: 1, StartTime: "08:00"},
		{ID: "x", Index: 0, StartTime: "10:00"},
	}
	SortByIndex(blocks)
	assert.Equal(t, "x", blocks[0].ID)
	assert.Equal(t, "y", blocks[1].ID)
	assert.Equal(t, "z", blocks[2].ID)
}

func TestSplitTasksForDeletion(t *testing.T) {
	projectID := "p1"
	routineID := "r1"
	tasks := []model.Task{
		{ID: "with-project", ProjectID: &projectID},
		{ID: "with-routine", RoutineID: &routineID},
		{ID: "loose"},
	}

	tests := []struct {
		name         string
		block        model.Block
		wantPreserve []string
		wantRemove   []string
	}{
		{
			name:         "ordinary block keeps parented tasks",
			block:        model.Block{Type: model.BlockTypeDeepWork},
			wantPreserve: []string{"with-project", "with-routine"},
			wantRemove:   []string{"loose"},
		},
		{
			name:         "routine type keeps everything",
			block:        model.Block{Type: model.BlockTypeRoutine},
			wantPreserve: []string{"with-project", "with-routine", "loose"},
		},
		{
			name:         "event type keeps everything",
			block:        model.Block{Type: model.BlockTypeEvent},
			wantPreserve: []string{"with-project", "with-routine", "loose"},
		},
		{
			name:         "event link on a meeting block keeps everything",
			block:        model.Block{Type: model.BlockTypeMeeting, EventID: &projectID},
			wantPreserve: []string{"with-project", "with-routine", "loose"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			preserve, remove := SplitTasksForDeletion(tt.block, tasks)
			assert.Equal(t, tt.wantPreserve, preserve)
			assert.Equal(t, tt.wantRemove, remove)
		})
	}
}
