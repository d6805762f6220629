package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/dayplan/internal/model"
	"github.com/nhle/dayplan/internal/planner"
	"github.com/nhle/dayplan/internal/store"
	"github.com/nhle/dayplan/tests/testutil"
)

const (
	alice = "user-alice"
	bob   = "user-bob"
	today = "2026-03-10"
)

func titlesAndIndexes(blocks []model.Block) ([]string, []int) {
	titles := make([]string, len(blocks))
	indexes := make([]int, len(blocks))
	for i, b := range blocks {
		titles[i] = b.Title
		indexes[i] = b.Index
	}
	return titles, indexes
}

func TestReorderBlock_SwapsWithNeighbor(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	day, seeded := testutil.SeedDay(t, s, alice, today, "B1", "B2", "B3")

	require.NoError(t, s.ReorderBlock(ctx, alice, day.ID, seeded[1].ID, planner.DirectionUp))

	blocks, err := s.ListBlocks(ctx, alice, day.ID)
	require.NoError(t, err)
	titles, indexes := titlesAndIndexes(blocks)
	assert.Equal(t, []string{"B2", "B1", "B3"}, titles)
	assert.Equal(t, []int{0, 1, 2}, indexes)
	assert.True(t, seeded[2].UpdatedAt.Equal(blocks[2].UpdatedAt), "B3 must not be written")

	require.NoError(t, s.ReorderBlock(ctx, alice, day.ID, seeded[1].ID, planner.DirectionDown))
	blocks, err = s.ListBlocks(ctx, alice, day.ID)
	require.NoError(t, err)
	titles, _ = titlesAndIndexes(blocks)
	assert.Equal(t, []string{"B1", "B2", "B3"}, titles)
}

func TestReorderBlock_OnlyTwoIndexesChange(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	day, seeded := testutil.SeedDay(t, s, alice, today, "A", "B", "C", "D", "E")

	require.NoError(t, s.ReorderBlock(ctx, alice, day.ID, seeded[2].ID, planner.DirectionDown))

	blocks, err := s.ListBlocks(ctx, alice, day.ID)
	require.NoError(t, err)
	byID := make(map[string]int)
	for _, b := range blocks {
		byID[b.ID] = b.Index
	}

	changed := 0
	for _, b := range seeded {
		if byID[b.ID] != b.Index {
			changed++
		}
	}
	assert.Equal(t, 2, changed)
	assert.Equal(t, 3, byID[seeded[2].ID])
	assert.Equal(t, 2, byID[seeded[3].ID])
}

func TestReorderBlock_Boundary(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	day, seeded := testutil.SeedDay(t, s, alice, today, "B1", "B2", "B3")

	err := s.ReorderBlock(ctx, alice, day.ID, seeded[0].ID, planner.DirectionUp)
	require.ErrorIs(t, err, model.ErrBoundary)

	err = s.ReorderBlock(ctx, alice, day.ID, seeded[2].ID, planner.DirectionDown)
	require.ErrorIs(t, err, model.ErrBoundary)

	blocks, err := s.ListBlocks(ctx, alice, day.ID)
	require.NoError(t, err)
	for i, b := range blocks {
		assert.Equal(t, seeded[i].ID, b.ID)
		assert.Equal(t, seeded[i].Index, b.Index)
		assert.True(t, seeded[i].UpdatedAt.Equal(b.UpdatedAt))
	}
}

func TestReorderBlock_NotFound(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	day, seeded := testutil.SeedDay(t, s, alice, today, "B1", "B2")

	err := s.ReorderBlock(ctx, alice, "no-such-day", seeded[1].ID, planner.DirectionUp)
	assert.ErrorIs(t, err, model.ErrNotFound)

	err = s.ReorderBlock(ctx, alice, day.ID, "no-such-block", planner.DirectionUp)
	assert.ErrorIs(t, err, model.ErrNotFound)

	err = s.ReorderBlock(ctx, bob, day.ID, seeded[1].ID, planner.DirectionUp)
	assert.ErrorIs(t, err, model.ErrNotFound, "another user's day is invisible")
}

func TestCreateBlock_AppendsIndex(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	day, seeded := testutil.SeedDay(t, s, alice, today, "B1", "B2")

	b, err := s.CreateBlock(ctx, model.Block{
		UserID: alice, DayID: day.ID, Title: "Early", StartTime: "06:00", Duration: 30,
		Type: model.BlockTypeBreak,
	})
	require.NoError(t, err)
	assert.Equal(t, seeded[1].Index+1, b.Index, "index is independent of start time")
	assert.Equal(t, model.BlockStatusPending, b.Status)

	_, err = s.CreateBlock(ctx, model.Block{
		UserID: alice, DayID: day.ID, Title: "Bad", StartTime: "25:00", Duration: 30,
		Type: model.BlockTypeBreak,
	})
	assert.ErrorIs(t, err, model.ErrInvalid)
}

func TestApplyDragEnd(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	day, seeded := testutil.SeedDay(t, s, alice, today, "B1", "B2", "B3")

	t1, err := s.CreateTask(ctx, model.Task{UserID: alice, Title: "one"})
	require.NoError(t, err)
	t2, err := s.CreateTask(ctx, model.Task{UserID: alice, Title: "two"})
	require.NoError(t, err)

	err = s.ApplyDragEnd(ctx, alice, []planner.BlockArrangement{
		{BlockID: seeded[0].ID, Index: 2, TaskIDs: []string{t2.ID, t1.ID}},
		{BlockID: seeded[1].ID, Index: 0},
		{BlockID: seeded[2].ID, Index: 1},
	})
	require.NoError(t, err)

	blocks, err := s.ListBlocks(ctx, alice, day.ID)
	require.NoError(t, err)
	titles, _ := titlesAndIndexes(blocks)
	assert.Equal(t, []string{"B2", "B3", "B1"}, titles)
	require.Len(t, blocks[2].Tasks, 2)
	assert.Equal(t, t2.ID, blocks[2].Tasks[0].ID)
	assert.Equal(t, t1.ID, blocks[2].Tasks[1].ID)

	backlog, err := s.ListBacklog(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, backlog)

	t.Run("unlisted tasks return to backlog", func(t *testing.T) {
		err := s.ApplyDragEnd(ctx, alice, []planner.BlockArrangement{
			{BlockID: seeded[0].ID, Index: 2, TaskIDs: []string{t1.ID}},
		})
		require.NoError(t, err)

		backlog, err := s.ListBacklog(ctx, alice)
		require.NoError(t, err)
		require.Len(t, backlog, 1)
		assert.Equal(t, t2.ID, backlog[0].ID)

		moved, err := s.GetTask(ctx, alice, t1.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, moved.Position)
	})
}

func TestApplyDragEnd_UnknownTaskChangesNothing(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	day, seeded := testutil.SeedDay(t, s, alice, today, "B1", "B2")

	t1, err := s.CreateTask(ctx, model.Task{UserID: alice, Title: "one"})
	require.NoError(t, err)

	err = s.ApplyDragEnd(ctx, alice, []planner.BlockArrangement{
		{BlockID: seeded[0].ID, Index: 1, TaskIDs: []string{t1.ID}},
		{BlockID: seeded[1].ID, Index: 0, TaskIDs: []string{"missing-task"}},
	})
	require.ErrorIs(t, err, model.ErrNotFound)

	blocks, err := s.ListBlocks(ctx, alice, day.ID)
	require.NoError(t, err)
	titles, indexes := titlesAndIndexes(blocks)
	assert.Equal(t, []string{"B1", "B2"}, titles)
	assert.Equal(t, []int{0, 1}, indexes)
	for _, b := range blocks {
		assert.Empty(t, b.Tasks)
	}

	got, err := s.GetTask(ctx, alice, t1.ID)
	require.NoError(t, err)
	assert.Nil(t, got.BlockID)
}

func TestApplyDragEnd_IndexesStayUnique(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	day, seeded := testutil.SeedDay(t, s, alice, today, "B1", "B2", "B3")

	err := s.ApplyDragEnd(ctx, alice, []planner.BlockArrangement{
		{BlockID: seeded[0].ID, Index: 1},
		{BlockID: seeded[1].ID, Index: 1},
	})
	require.ErrorIs(t, err, model.ErrInvalid)

	err = s.ApplyDragEnd(ctx, alice, []planner.BlockArrangement{
		{BlockID: seeded[2].ID, Index: 0},
	})
	require.ErrorIs(t, err, model.ErrInvalid, "collides with the unlisted B1")

	blocks, err := s.ListBlocks(ctx, alice, day.ID)
	require.NoError(t, err)
	titles, indexes := titlesAndIndexes(blocks)
	assert.Equal(t, []string{"B1", "B2", "B3"}, titles)
	assert.Equal(t, []int{0, 1, 2}, indexes)

	require.NoError(t, s.ApplyDragEnd(ctx, alice, []planner.BlockArrangement{
		{BlockID: seeded[2].ID, Index: 5},
	}), "a free index is fine")
}

func TestApplyDragEnd_RejectsOtherUsersBlock(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	_, seeded := testutil.SeedDay(t, s, alice, today, "B1")

	err := s.ApplyDragEnd(ctx, bob, []planner.BlockArrangement{
		{BlockID: seeded[0].ID, Index: 4},
	})
	assert.ErrorIs(t, err, model.ErrNotFound)

	b, err := s.GetBlock(ctx, alice, seeded[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 0, b.Index)
}

func TestDeleteBlock_PreservesProjectTasks(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	day, seeded := testutil.SeedDay(t, s, alice, today, "B1", "B2")

	project, err := s.CreateProject(ctx, model.Project{UserID: alice, Name: "Launch"})
	require.NoError(t, err)

	var ids []string
	for _, title := range []string{"outline", "build"} {
		task, err := s.CreateTask(ctx, model.Task{
			UserID: alice, Title: title, ProjectID: &project.ID, BlockID: &seeded[0].ID,
		})
		require.NoError(t, err)
		ids = append(ids, task.ID)
	}

	result, err := s.DeleteBlock(ctx, alice, day.ID, seeded[0].ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, ids, result.Preserved)
	assert.Empty(t, result.Deleted)

	_, err = s.GetBlock(ctx, alice, seeded[0].ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	for _, id := range ids {
		task, err := s.GetTask(ctx, alice, id)
		require.NoError(t, err)
		require.NotNil(t, task.ProjectID)
		assert.Equal(t, project.ID, *task.ProjectID)
		assert.Nil(t, task.BlockID)
	}

	blocks, err := s.ListBlocks(ctx, alice, day.ID)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, seeded[1].ID, blocks[0].ID)
}

func TestDeleteBlock_DeletesParentlessTasks(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	day, seeded := testutil.SeedDay(t, s, alice, today, "B1")

	task, err := s.CreateTask(ctx, model.Task{UserID: alice, Title: "loose", BlockID: &seeded[0].ID})
	require.NoError(t, err)

	result, err := s.DeleteBlock(ctx, alice, day.ID, seeded[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []string{task.ID}, result.Deleted)
	assert.Empty(t, result.Preserved)

	_, err = s.GetTask(ctx, alice, task.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestDeleteBlock_RoutineBlockKeepsEverything(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	routine, err := s.CreateRoutine(ctx, model.Routine{
		UserID: alice, Name: "Morning", Days: "MO,TU", StartTime: "07:00", EndTime: "07:30", Active: true,
	})
	require.NoError(t, err)

	day, err := s.GetOrCreateDay(ctx, alice, today)
	require.NoError(t, err)
	block, err := s.CreateBlock(ctx, model.Block{
		UserID: alice, DayID: day.ID, Title: "Morning", StartTime: "07:00", Duration: 30,
		Type: model.BlockTypeRoutine, RoutineID: &routine.ID,
	})
	require.NoError(t, err)
	task, err := s.CreateTask(ctx, model.Task{UserID: alice, Title: "stretch", BlockID: &block.ID})
	require.NoError(t, err)

	result, err := s.DeleteBlock(ctx, alice, "", block.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{task.ID}, result.Preserved)

	kept, err := s.GetTask(ctx, alice, task.ID)
	require.NoError(t, err)
	assert.Nil(t, kept.BlockID)
}

func TestDeleteBlock_WrongDay(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	_, seeded := testutil.SeedDay(t, s, alice, today, "B1")
	other, err := s.GetOrCreateDay(ctx, alice, "2026-03-11")
	require.NoError(t, err)

	_, err = s.DeleteBlock(ctx, alice, other.ID, seeded[0].ID)
	require.ErrorIs(t, err, model.ErrNotFound)

	_, err = s.GetBlock(ctx, alice, seeded[0].ID)
	assert.NoError(t, err)
}

func TestCompleteAndReactivate_OneTimeEvent(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	event, err := s.CreateEvent(ctx, model.Event{
		UserID: alice, Title: "Dentist", Date: today, StartTime: "14:00", Duration: 45,
	})
	require.NoError(t, err)
	day, err := s.GetOrCreateDay(ctx, alice, today)
	require.NoError(t, err)
	block, err := s.CreateBlock(ctx, model.Block{
		UserID: alice, DayID: day.ID, Title: "Dentist", StartTime: "14:00", Duration: 45,
		Type: model.BlockTypeEvent, EventID: &event.ID,
	})
	require.NoError(t, err)

	done, err := s.CompleteBlock(ctx, alice, block.ID)
	require.NoError(t, err)
	assert.True(t, done.IsCompleted())
	assert.NotNil(t, done.CompletedAt)

	got, err := s.GetEvent(ctx, alice, event.ID)
	require.NoError(t, err)
	assert.True(t, got.Completed)

	d, err := s.GetDay(ctx, alice, day.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, d.CompletedBlocksCount)
	assert.True(t, d.Completed)

	back, err := s.ReactivateBlock(ctx, alice, block.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BlockStatusPending, back.Status)
	assert.Nil(t, back.CompletedAt)

	got, err = s.GetEvent(ctx, alice, event.ID)
	require.NoError(t, err)
	assert.False(t, got.Completed)

	d, err = s.GetDay(ctx, alice, day.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, d.CompletedBlocksCount)
	assert.False(t, d.Completed)
}

func TestReactivate_RecurringEventTouchesOnlyItsInstance(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	event, err := s.CreateEvent(ctx, model.Event{
		UserID: alice, Title: "Standup", Date: today, StartTime: "09:30", Duration: 15,
		Recurrence: "FREQ=DAILY",
	})
	require.NoError(t, err)

	var blocks []*model.Block
	for _, date := range []string{today, "2026-03-11"} {
		day, err := s.GetOrCreateDay(ctx, alice, date)
		require.NoError(t, err)
		b, err := s.CreateBlock(ctx, model.Block{
			UserID: alice, DayID: day.ID, Title: "Standup", StartTime: "09:30", Duration: 15,
			Type: model.BlockTypeEvent, EventID: &event.ID,
		})
		require.NoError(t, err)
		blocks = append(blocks, b)
	}

	_, err = s.CompleteBlock(ctx, alice, blocks[0].ID)
	require.NoError(t, err)
	_, err = s.ReactivateBlock(ctx, alice, blocks[0].ID)
	require.NoError(t, err)

	got, err := s.GetEvent(ctx, alice, event.ID)
	require.NoError(t, err)
	assert.False(t, got.Completed, "top-level flag is for one-time events")

	statuses := make(map[string]string)
	for _, inst := range got.InstanceHistory {
		statuses[inst.BlockID] = inst.Status
	}
	assert.Equal(t, map[string]string{
		blocks[0].ID: model.InstanceStatusIncomplete,
		blocks[1].ID: model.InstanceStatusPending,
	}, statuses)
}

func TestReactivate_PendingBlockRejected(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	_, seeded := testutil.SeedDay(t, s, alice, today, "B1")

	_, err := s.ReactivateBlock(ctx, alice, seeded[0].ID)
	assert.ErrorIs(t, err, model.ErrInvalid)

	_, err = s.CompleteBlock(ctx, alice, seeded[0].ID)
	require.NoError(t, err)
	_, err = s.CompleteBlock(ctx, alice, seeded[0].ID)
	assert.ErrorIs(t, err, model.ErrInvalid)
}

func TestDayCompletionFollowsBlocks(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	day, seeded := testutil.SeedDay(t, s, alice, today, "B1", "B2")

	_, err := s.CompleteBlock(ctx, alice, seeded[0].ID)
	require.NoError(t, err)
	d, err := s.GetDay(ctx, alice, day.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, d.CompletedBlocksCount)
	assert.False(t, d.Completed)

	_, err = s.DeleteBlock(ctx, alice, day.ID, seeded[1].ID)
	require.NoError(t, err)
	d, err = s.GetDay(ctx, alice, day.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, d.CompletedBlocksCount)
	assert.True(t, d.Completed)

	_, err = s.DeleteBlock(ctx, alice, day.ID, seeded[0].ID)
	require.NoError(t, err)
	d, err = s.GetDay(ctx, alice, day.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, d.CompletedBlocksCount)
	assert.False(t, d.Completed)
}

func TestCreateBlocks_SkipsExistingLinks(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	routine, err := s.CreateRoutine(ctx, model.Routine{
		UserID: alice, Name: "Review", Days: "TU", StartTime: "17:00", EndTime: "17:30", Active: true,
		Tasks: []model.Task{{Title: "inbox zero"}, {Title: "plan tomorrow"}},
	})
	require.NoError(t, err)
	day, err := s.GetOrCreateDay(ctx, alice, today)
	require.NoError(t, err)

	planned := []store.PlannedBlock{{
		Block: model.Block{
			Title: routine.Name, StartTime: routine.StartTime, Duration: 30,
			Type: model.BlockTypeRoutine, RoutineID: &routine.ID,
		},
		Tasks: routine.Tasks,
	}}

	created, err := s.CreateBlocks(ctx, alice, day.ID, planned)
	require.NoError(t, err)
	require.Len(t, created, 1)

	created, err = s.CreateBlocks(ctx, alice, day.ID, planned)
	require.NoError(t, err)
	assert.Empty(t, created)

	blocks, err := s.ListBlocks(ctx, alice, day.ID)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	require.Len(t, blocks[0].Tasks, 2)
	assert.Equal(t, "inbox zero", blocks[0].Tasks[0].Title)
	require.NotNil(t, blocks[0].Tasks[0].RoutineID)
	assert.Equal(t, routine.ID, *blocks[0].Tasks[0].RoutineID)
	assert.NotEqual(t, routine.Tasks[0].ID, blocks[0].Tasks[0].ID, "instances get fresh ids")
}
