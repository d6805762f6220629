package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/dayplan/internal/model"
	"github.com/nhle/dayplan/internal/planner"
)

const blockColumns = `id, user_id, day_id, title, description, start_time, duration, type, idx,
	status, routine_id, event_id, completed_at, created_at, updated_at`

// CreateBlock appends a block to its day. The block gets the next free
// index regardless of its start time.
func (s *SQLiteStore) CreateBlock(ctx context.Context, block model.Block) (*model.Block, error) {
	if err := planner.ValidateBlock(block); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	day, err := getDay(ctx, tx, block.UserID, block.DayID)
	if err != nil {
		return nil, err
	}
	if block.EventID != nil {
		if _, err := getEvent(ctx, tx, block.UserID, *block.EventID); err != nil {
			return nil, err
		}
	}
	if block.RoutineID != nil {
		if _, err := getRoutine(ctx, tx, block.UserID, *block.RoutineID); err != nil {
			return nil, err
		}
	}

	next, err := nextBlockIndex(ctx, tx, day.ID)
	if err != nil {
		return nil, err
	}
	block.Index = next
	if err := insertBlock(ctx, tx, &block); err != nil {
		return nil, err
	}
	if block.EventID != nil {
		if err := trackEventInstance(ctx, tx, block.UserID, *block.EventID, block.ID, day.Date); err != nil {
			return nil, err
		}
	}
	if kind, sourceID, ok := blockSource(block.RoutineID, block.EventID); ok {
		if err := recordMaterialization(ctx, tx, day.ID, kind, sourceID); err != nil {
			return nil, err
		}
	}
	if err := syncDayCompletion(ctx, tx, day.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing block %s: %w", block.ID, err)
	}
	return &block, nil
}

// UpdateBlock updates the editable fields of a block. Index, status and
// links are changed only through their dedicated operations.
func (s *SQLiteStore) UpdateBlock(ctx context.Context, block model.Block) error {
	if err := planner.ValidateBlock(block); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE blocks SET
			title = ?, description = ?, start_time = ?, duration = ?, type = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		block.Title, block.Description, block.StartTime, block.Duration, block.Type, now(),
		block.ID, block.UserID,
	)
	if err != nil {
		return fmt.Errorf("updating block %s: %w", block.ID, err)
	}
	return expectOne(result, "block", block.ID)
}

// GetBlock retrieves a block with its tasks.
func (s *SQLiteStore) GetBlock(ctx context.Context, userID, id string) (*model.Block, error) {
	b, err := getBlock(ctx, s.db, userID, id)
	if err != nil {
		return nil, err
	}
	blocks := []model.Block{*b}
	if err := attachTasks(ctx, s.db, blocks); err != nil {
		return nil, err
	}
	return &blocks[0], nil
}

// ListBlocks returns the day's blocks in index order, each with its tasks
// in position order.
func (s *SQLiteStore) ListBlocks(ctx context.Context, userID, dayID string) ([]model.Block, error) {
	if _, err := getDay(ctx, s.db, userID, dayID); err != nil {
		return nil, err
	}
	blocks, err := selectDayBlocks(ctx, s.db, dayID)
	if err != nil {
		return nil, err
	}
	if err := attachTasks(ctx, s.db, blocks); err != nil {
		return nil, err
	}
	return blocks, nil
}

// ReorderBlock swaps the block with its neighbor in direction dir. Both
// index writes are conditional on the values read in the same transaction,
// so a concurrent reorder surfaces as model.ErrConflict instead of leaving
// duplicate indices behind.
func (s *SQLiteStore) ReorderBlock(
	ctx context.Context,
	userID, dayID, blockID string,
	dir planner.Direction,
) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := getDay(ctx, tx, userID, dayID); err != nil {
		return err
	}
	blocks, err := selectDayBlocks(ctx, tx, dayID)
	if err != nil {
		return err
	}

	target, neighbor, err := planner.SwapPair(blocks, blockID, dir)
	if err != nil {
		return err
	}

	ts := now()
	if err := casBlockIndex(ctx, tx, target.ID, target.Index, neighbor.Index, ts); err != nil {
		return err
	}
	if err := casBlockIndex(ctx, tx, neighbor.ID, neighbor.Index, target.Index, ts); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing reorder of block %s: %w", blockID, err)
	}
	return nil
}

func casBlockIndex(ctx context.Context, tx *sqlx.Tx, id string, from, to int, ts time.Time) error {
	result, err := tx.ExecContext(ctx,
		"UPDATE blocks SET idx = ?, updated_at = ? WHERE id = ? AND idx = ?",
		to, ts, id, from)
	if err != nil {
		return fmt.Errorf("updating index of block %s: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected for block %s: %w", id, err)
	}
	if rows != 1 {
		return fmt.Errorf("block %s index changed under reorder: %w", id, model.ErrConflict)
	}
	return nil
}

// ApplyDragEnd persists a full drag-and-drop result: every listed block
// gets its new index and exactly the listed tasks in the listed order.
// Indexes must stay unique within each day.
// Tasks that were in a listed block but are no longer listed anywhere go
// back to the backlog. Any failure rolls back the whole arrangement.
func (s *SQLiteStore) ApplyDragEnd(
	ctx context.Context,
	userID string,
	items []planner.BlockArrangement,
) error {
	if err := planner.ValidateArrangement(items); err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	ts := now()
	for _, item := range items {
		result, err := tx.ExecContext(ctx,
			"UPDATE blocks SET idx = ?, updated_at = ? WHERE id = ? AND user_id = ?",
			item.Index, ts, item.BlockID, userID)
		if err != nil {
			return fmt.Errorf("updating block %s: %w", item.BlockID, err)
		}
		if err := expectOne(result, "block", item.BlockID); err != nil {
			return err
		}
	}
	if err := checkUniqueIndexes(ctx, tx, items); err != nil {
		return err
	}

	for _, item := range items {
		for pos, taskID := range item.TaskIDs {
			result, err := tx.ExecContext(ctx, `
				UPDATE tasks SET block_id = ?, position = ?, updated_at = ?
				WHERE id = ? AND user_id = ?`,
				item.BlockID, pos, ts, taskID, userID)
			if err != nil {
				return fmt.Errorf("assigning task %s to block %s: %w", taskID, item.BlockID, err)
			}
			if err := expectOne(result, "task", taskID); err != nil {
				return err
			}
		}
	}

	for _, item := range items {
		if err := detachUnlisted(ctx, tx, item.BlockID, item.TaskIDs, ts); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing drag-end: %w", err)
	}
	return nil
}

// checkUniqueIndexes fails when a listed block now shares its index with
// another block of the same day, including blocks the payload left out.
func checkUniqueIndexes(ctx context.Context, tx *sqlx.Tx, items []planner.BlockArrangement) error {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.BlockID
	}
	query, args, err := sqlx.In(`
		SELECT day_id, idx FROM blocks
		WHERE day_id IN (SELECT day_id FROM blocks WHERE id IN (?))
		GROUP BY day_id, idx
		HAVING COUNT(*) > 1
		LIMIT 1`, ids)
	if err != nil {
		return fmt.Errorf("building index check query: %w", err)
	}

	var clash struct {
		DayID string `db:"day_id"`
		Index int    `db:"idx"`
	}
	err = tx.GetContext(ctx, &clash, tx.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking block indexes: %w", err)
	}
	return model.Invalid("index", "index %d is used by more than one block on day %s", clash.Index, clash.DayID)
}

func detachUnlisted(ctx context.Context, tx *sqlx.Tx, blockID string, keep []string, ts time.Time) error {
	if len(keep) == 0 {
		_, err := tx.ExecContext(ctx,
			"UPDATE tasks SET block_id = NULL, position = 0, updated_at = ? WHERE block_id = ?",
			ts, blockID)
		if err != nil {
			return fmt.Errorf("detaching tasks from block %s: %w", blockID, err)
		}
		return nil
	}

	query, args, err := sqlx.In(`
		UPDATE tasks SET block_id = NULL, position = 0, updated_at = ?
		WHERE block_id = ? AND id NOT IN (?)`, ts, blockID, keep)
	if err != nil {
		return fmt.Errorf("building detach query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
		return fmt.Errorf("detaching tasks from block %s: %w", blockID, err)
	}
	return nil
}

// DeleteBlock removes a block and applies the task preservation rules:
// tasks of routine or event blocks are all kept, tasks of other blocks are
// kept only when they belong to a project or routine. Kept tasks return to
// the backlog. dayID may be empty; when set it must own the block.
// The day's materialization record is left in place so the routine or
// event is not placed on the day again.
func (s *SQLiteStore) DeleteBlock(ctx context.Context, userID, dayID, blockID string) (*DeleteResult, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if dayID != "" {
		if _, err := getDay(ctx, tx, userID, dayID); err != nil {
			return nil, err
		}
	}
	block, err := getBlock(ctx, tx, userID, blockID)
	if err != nil {
		return nil, err
	}
	if dayID != "" && block.DayID != dayID {
		return nil, model.NotFound("block", blockID)
	}

	tasks, err := selectBlockTasks(ctx, tx, blockID)
	if err != nil {
		return nil, err
	}
	preserve, remove := planner.SplitTasksForDeletion(*block, tasks)

	if len(remove) > 0 {
		query, args, err := sqlx.In("DELETE FROM tasks WHERE id IN (?)", remove)
		if err != nil {
			return nil, fmt.Errorf("building task delete query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return nil, fmt.Errorf("deleting tasks of block %s: %w", blockID, err)
		}
	}
	if len(preserve) > 0 {
		query, args, err := sqlx.In(
			"UPDATE tasks SET block_id = NULL, position = 0, updated_at = ? WHERE id IN (?)",
			now(), preserve)
		if err != nil {
			return nil, fmt.Errorf("building task detach query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return nil, fmt.Errorf("detaching tasks of block %s: %w", blockID, err)
		}
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM blocks WHERE id = ?", blockID)
	if err != nil {
		return nil, fmt.Errorf("deleting block %s: %w", blockID, err)
	}
	if err := expectOne(result, "block", blockID); err != nil {
		return nil, err
	}
	if err := syncDayCompletion(ctx, tx, block.DayID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing delete of block %s: %w", blockID, err)
	}

	return &DeleteResult{
		BlockID:   blockID,
		Preserved: nonNil(preserve),
		Deleted:   nonNil(remove),
	}, nil
}

// CompleteBlock marks a pending block completed. A linked one-time event
// is marked completed; a linked recurring event records the occurrence as
// completed in its instance history.
func (s *SQLiteStore) CompleteBlock(ctx context.Context, userID, id string) (*model.Block, error) {
	return s.setBlockStatus(ctx, userID, id, true)
}

// ReactivateBlock puts a completed block back to pending. A linked one-time
// event loses its completed flag; for a recurring event only the matching
// instance becomes incomplete.
func (s *SQLiteStore) ReactivateBlock(ctx context.Context, userID, id string) (*model.Block, error) {
	return s.setBlockStatus(ctx, userID, id, false)
}

func (s *SQLiteStore) setBlockStatus(ctx context.Context, userID, id string, complete bool) (*model.Block, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	block, err := getBlock(ctx, tx, userID, id)
	if err != nil {
		return nil, err
	}

	from, to := model.BlockStatusPending, model.BlockStatusCompleted
	if !complete {
		from, to = to, from
	}
	if block.Status != from {
		return nil, model.Invalid("status", "block %s is %s", id, block.Status)
	}

	ts := now()
	var completedAt any
	if complete {
		completedAt = ts
	}
	result, err := tx.ExecContext(ctx, `
		UPDATE blocks SET status = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		to, completedAt, ts, id, from)
	if err != nil {
		return nil, fmt.Errorf("updating status of block %s: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("reading rows affected for block %s: %w", id, err)
	}
	if rows != 1 {
		return nil, fmt.Errorf("block %s status changed concurrently: %w", id, model.ErrConflict)
	}

	if block.EventID != nil {
		if err := cascadeEventStatus(ctx, tx, userID, block, complete); err != nil {
			return nil, err
		}
	}
	if err := syncDayCompletion(ctx, tx, block.DayID); err != nil {
		return nil, err
	}

	updated, err := getBlock(ctx, tx, userID, id)
	if err != nil {
		return nil, err
	}
	blocks := []model.Block{*updated}
	if err := attachTasks(ctx, tx, blocks); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing status of block %s: %w", id, err)
	}
	return &blocks[0], nil
}

// cascadeEventStatus mirrors a block status change onto the linked event.
func cascadeEventStatus(ctx context.Context, tx *sqlx.Tx, userID string, block *model.Block, complete bool) error {
	event, err := getEvent(ctx, tx, userID, *block.EventID)
	if err != nil {
		return err
	}
	ts := now()

	if !event.IsRecurring() {
		_, err := tx.ExecContext(ctx,
			"UPDATE events SET completed = ?, updated_at = ? WHERE id = ?",
			boolToInt(complete), ts, event.ID)
		if err != nil {
			return fmt.Errorf("updating event %s: %w", event.ID, err)
		}
		return nil
	}

	day, err := getDay(ctx, tx, userID, block.DayID)
	if err != nil {
		return err
	}
	status := model.InstanceStatusIncomplete
	if complete {
		status = model.InstanceStatusCompleted
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO event_instances (event_id, block_id, date, status, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(event_id, block_id) DO UPDATE SET
			status = excluded.status, updated_at = excluded.updated_at`,
		event.ID, block.ID, day.Date, status, ts)
	if err != nil {
		return fmt.Errorf("updating instance of event %s for block %s: %w", event.ID, block.ID, err)
	}
	return nil
}

// CreateBlocks inserts materialized blocks and their tasks in one
// transaction. A planned block whose routine or event was already placed on
// the day is skipped, even if the user has since deleted that block.
func (s *SQLiteStore) CreateBlocks(
	ctx context.Context,
	userID, dayID string,
	planned []PlannedBlock,
) ([]model.Block, error) {
	if len(planned) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	day, err := getDay(ctx, tx, userID, dayID)
	if err != nil {
		return nil, err
	}
	next, err := nextBlockIndex(ctx, tx, dayID)
	if err != nil {
		return nil, err
	}

	var created []model.Block
	for _, p := range planned {
		b := p.Block
		kind, sourceID, linked := blockSource(b.RoutineID, b.EventID)
		if linked {
			done, err := materialized(ctx, tx, dayID, kind, sourceID)
			if err != nil {
				return nil, err
			}
			if done {
				continue
			}
		}

		b.UserID = userID
		b.DayID = dayID
		b.Index = next
		if err := planner.ValidateBlock(b); err != nil {
			return nil, err
		}
		if err := insertBlock(ctx, tx, &b); err != nil {
			return nil, err
		}
		next++

		for i, t := range p.Tasks {
			t.ID = ""
			t.UserID = userID
			t.BlockID = &b.ID
			t.Position = i
			if err := insertTask(ctx, tx, &t); err != nil {
				return nil, err
			}
			b.Tasks = append(b.Tasks, t)
		}

		if p.TrackInstance && b.EventID != nil {
			if err := trackEventInstance(ctx, tx, userID, *b.EventID, b.ID, day.Date); err != nil {
				return nil, err
			}
		}
		if linked {
			if err := recordMaterialization(ctx, tx, dayID, kind, sourceID); err != nil {
				return nil, err
			}
		}
		created = append(created, b)
	}

	if err := syncDayCompletion(ctx, tx, dayID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing materialized blocks for day %s: %w", dayID, err)
	}
	return created, nil
}

// trackEventInstance records a pending occurrence for recurring events.
// One-time events keep their state on the event itself.
func trackEventInstance(ctx context.Context, tx *sqlx.Tx, userID, eventID, blockID, date string) error {
	event, err := getEvent(ctx, tx, userID, eventID)
	if err != nil {
		return err
	}
	if !event.IsRecurring() {
		return nil
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO event_instances (event_id, block_id, date, status, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(event_id, block_id) DO NOTHING`,
		eventID, blockID, date, model.InstanceStatusPending, now())
	if err != nil {
		return fmt.Errorf("tracking instance of event %s: %w", eventID, err)
	}
	return nil
}

func insertBlock(ctx context.Context, tx *sqlx.Tx, b *model.Block) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	ts := now()
	b.CreatedAt = ts
	b.UpdatedAt = ts
	b.Status = model.BlockStatusPending
	b.CompletedAt = nil

	_, err := tx.ExecContext(ctx, `
		INSERT INTO blocks (
			id, user_id, day_id, title, description, start_time, duration, type, idx,
			status, routine_id, event_id, completed_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.UserID, b.DayID, b.Title, b.Description, b.StartTime, b.Duration, b.Type, b.Index,
		b.Status, b.RoutineID, b.EventID, b.CompletedAt, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating block: %w", err)
	}
	return nil
}

func nextBlockIndex(ctx context.Context, tx *sqlx.Tx, dayID string) (int, error) {
	var next int
	err := tx.GetContext(ctx, &next,
		"SELECT COALESCE(MAX(idx), -1) + 1 FROM blocks WHERE day_id = ?", dayID)
	if err != nil {
		return 0, fmt.Errorf("getting next index for day %s: %w", dayID, err)
	}
	return next, nil
}

func getBlock(ctx context.Context, q sqlx.QueryerContext, userID, id string) (*model.Block, error) {
	var b model.Block
	err := sqlx.GetContext(ctx, q, &b,
		"SELECT "+blockColumns+" FROM blocks WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return nil, notFoundOr(err, "block", id)
	}
	return &b, nil
}

func selectDayBlocks(ctx context.Context, q sqlx.QueryerContext, dayID string) ([]model.Block, error) {
	var blocks []model.Block
	err := sqlx.SelectContext(ctx, q, &blocks,
		"SELECT "+blockColumns+" FROM blocks WHERE day_id = ? ORDER BY idx, start_time, id", dayID)
	if err != nil {
		return nil, fmt.Errorf("querying blocks for day %s: %w", dayID, err)
	}
	return blocks, nil
}

// attachTasks loads the tasks of every block in one query.
func attachTasks(ctx context.Context, q sqlx.QueryerContext, blocks []model.Block) error {
	if len(blocks) == 0 {
		return nil
	}
	ids := make([]string, len(blocks))
	for i, b := range blocks {
		ids[i] = b.ID
	}

	query, args, err := sqlx.In(
		"SELECT "+taskColumns+" FROM tasks WHERE block_id IN (?) ORDER BY position, created_at", ids)
	if err != nil {
		return fmt.Errorf("building block tasks query: %w", err)
	}
	var tasks []model.Task
	if err := sqlx.SelectContext(ctx, q, &tasks, query, args...); err != nil {
		return fmt.Errorf("querying block tasks: %w", err)
	}

	byBlock := make(map[string][]model.Task, len(blocks))
	for _, t := range tasks {
		byBlock[*t.BlockID] = append(byBlock[*t.BlockID], t)
	}
	for i := range blocks {
		blocks[i].Tasks = byBlock[blocks[i].ID]
	}
	return nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
