package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/dayplan/internal/model"
	"github.com/nhle/dayplan/internal/planner"
)

const taskColumns = `id, user_id, title, description, duration, status, priority,
	project_id, routine_id, block_id, position, completed_at, created_at, updated_at`

// CreateTask inserts a new task. A task created inside a block is appended
// after the block's existing tasks; without a block it joins the backlog.
func (s *SQLiteStore) CreateTask(ctx context.Context, task model.Task) (*model.Task, error) {
	if err := planner.ValidateTask(task); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := checkTaskParents(ctx, tx, task); err != nil {
		return nil, err
	}
	task.Position = 0
	if task.BlockID != nil {
		if _, err := getBlock(ctx, tx, task.UserID, *task.BlockID); err != nil {
			return nil, err
		}
		if err := tx.GetContext(ctx, &task.Position,
			"SELECT COUNT(*) FROM tasks WHERE block_id = ?", *task.BlockID); err != nil {
			return nil, fmt.Errorf("counting tasks in block %s: %w", *task.BlockID, err)
		}
	}

	if err := insertTask(ctx, tx, &task); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing task %s: %w", task.ID, err)
	}
	return &task, nil
}

// UpdateTask updates the editable fields of a task. Block placement is
// changed only through MoveTask.
func (s *SQLiteStore) UpdateTask(ctx context.Context, task model.Task) error {
	if err := planner.ValidateTask(task); err != nil {
		return err
	}
	if task.Status == "" {
		task.Status = model.TaskStatusTodo
	}
	if task.Status != model.TaskStatusTodo && task.Status != model.TaskStatusCompleted {
		return model.Invalid("status", "unknown task status %q", task.Status)
	}
	if task.Priority < model.PriorityCritical || task.Priority > model.PriorityLowest {
		task.Priority = model.PriorityMedium
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := checkTaskParents(ctx, tx, task); err != nil {
		return err
	}

	ts := now()
	result, err := tx.ExecContext(ctx, `
		UPDATE tasks SET
			title = ?, description = ?, duration = ?, priority = ?,
			project_id = ?, routine_id = ?, status = ?,
			completed_at = CASE WHEN ? = 'completed' THEN COALESCE(completed_at, ?) ELSE NULL END,
			updated_at = ?
		WHERE id = ? AND user_id = ?`,
		task.Title, task.Description, task.Duration, task.Priority,
		task.ProjectID, task.RoutineID, task.Status,
		task.Status, ts,
		ts,
		task.ID, task.UserID,
	)
	if err != nil {
		return fmt.Errorf("updating task %s: %w", task.ID, err)
	}
	if err := expectOne(result, "task", task.ID); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteTask removes a task and closes the gap it leaves in its block.
func (s *SQLiteStore) DeleteTask(ctx context.Context, userID, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	task, err := getTask(ctx, tx, userID, id)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	if err := closePositionGap(ctx, tx, task); err != nil {
		return err
	}
	return tx.Commit()
}

// GetTask retrieves a single task by id.
func (s *SQLiteStore) GetTask(ctx context.Context, userID, id string) (*model.Task, error) {
	return getTask(ctx, s.db, userID, id)
}

// ListBacklog returns the user's open tasks that sit in no block, most
// urgent first.
func (s *SQLiteStore) ListBacklog(ctx context.Context, userID string) ([]model.Task, error) {
	var tasks []model.Task
	err := s.db.SelectContext(ctx, &tasks, `
		SELECT `+taskColumns+` FROM tasks
		WHERE user_id = ? AND block_id IS NULL AND status = ?
		ORDER BY priority, created_at`,
		userID, model.TaskStatusTodo)
	if err != nil {
		return nil, fmt.Errorf("querying backlog: %w", err)
	}
	return tasks, nil
}

// MoveTask takes a task out of its current block (if any) and inserts it
// into toBlockID at position, shifting the tasks after it. A nil toBlockID
// moves the task to the backlog. Both sides change in one transaction.
func (s *SQLiteStore) MoveTask(
	ctx context.Context,
	userID, taskID string,
	toBlockID *string,
	position int,
) (*model.Task, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	task, err := getTask(ctx, tx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if toBlockID != nil {
		if _, err := getBlock(ctx, tx, userID, *toBlockID); err != nil {
			return nil, err
		}
	}

	if err := closePositionGap(ctx, tx, task); err != nil {
		return nil, err
	}

	ts := now()
	if toBlockID == nil {
		_, err = tx.ExecContext(ctx,
			"UPDATE tasks SET block_id = NULL, position = 0, updated_at = ? WHERE id = ?", ts, taskID)
		if err != nil {
			return nil, fmt.Errorf("moving task %s to backlog: %w", taskID, err)
		}
	} else {
		var count int
		if err := tx.GetContext(ctx, &count,
			"SELECT COUNT(*) FROM tasks WHERE block_id = ? AND id != ?", *toBlockID, taskID); err != nil {
			return nil, fmt.Errorf("counting tasks in block %s: %w", *toBlockID, err)
		}
		position = max(0, min(position, count))

		if _, err := tx.ExecContext(ctx, `
			UPDATE tasks SET position = position + 1
			WHERE block_id = ? AND position >= ? AND id != ?`,
			*toBlockID, position, taskID); err != nil {
			return nil, fmt.Errorf("opening slot in block %s: %w", *toBlockID, err)
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE tasks SET block_id = ?, position = ?, updated_at = ? WHERE id = ?",
			*toBlockID, position, ts, taskID); err != nil {
			return nil, fmt.Errorf("moving task %s to block %s: %w", taskID, *toBlockID, err)
		}
	}

	moved, err := getTask(ctx, tx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing move of task %s: %w", taskID, err)
	}
	return moved, nil
}

// CompleteTask marks a task completed. It does not touch the block.
func (s *SQLiteStore) CompleteTask(ctx context.Context, userID, id string) (*model.Task, error) {
	ts := now()
	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET status = ?, completed_at = COALESCE(completed_at, ?), updated_at = ?
		WHERE id = ? AND user_id = ?`,
		model.TaskStatusCompleted, ts, ts, id, userID)
	if err != nil {
		return nil, fmt.Errorf("completing task %s: %w", id, err)
	}
	if err := expectOne(result, "task", id); err != nil {
		return nil, err
	}
	return s.GetTask(ctx, userID, id)
}

func insertTask(ctx context.Context, tx *sqlx.Tx, t *model.Task) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	ts := now()
	t.CreatedAt = ts
	t.UpdatedAt = ts
	if t.Status == "" {
		t.Status = model.TaskStatusTodo
	}
	if t.Priority < model.PriorityCritical || t.Priority > model.PriorityLowest {
		t.Priority = model.PriorityMedium
	}
	if t.Status == model.TaskStatusCompleted && t.CompletedAt == nil {
		t.CompletedAt = &ts
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO tasks (
			id, user_id, title, description, duration, status, priority,
			project_id, routine_id, block_id, position, completed_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Title, t.Description, t.Duration, t.Status, t.Priority,
		t.ProjectID, t.RoutineID, t.BlockID, t.Position, t.CompletedAt, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating task: %w", err)
	}
	return nil
}

// checkTaskParents verifies that the referenced project or routine exists
// and belongs to the task's user.
func checkTaskParents(ctx context.Context, tx *sqlx.Tx, task model.Task) error {
	if task.ProjectID != nil {
		if _, err := getProject(ctx, tx, task.UserID, *task.ProjectID); err != nil {
			return err
		}
	}
	if task.RoutineID != nil {
		if _, err := getRoutine(ctx, tx, task.UserID, *task.RoutineID); err != nil {
			return err
		}
	}
	return nil
}

// closePositionGap shifts up the tasks that followed task in its block.
func closePositionGap(ctx context.Context, tx *sqlx.Tx, task *model.Task) error {
	if task.BlockID == nil {
		return nil
	}
	_, err := tx.ExecContext(ctx,
		"UPDATE tasks SET position = position - 1 WHERE block_id = ? AND position > ? AND id != ?",
		*task.BlockID, task.Position, task.ID)
	if err != nil {
		return fmt.Errorf("closing gap in block %s: %w", *task.BlockID, err)
	}
	return nil
}

func getTask(ctx context.Context, q sqlx.QueryerContext, userID, id string) (*model.Task, error) {
	var t model.Task
	err := sqlx.GetContext(ctx, q, &t,
		"SELECT "+taskColumns+" FROM tasks WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return nil, notFoundOr(err, "task", id)
	}
	return &t, nil
}

func selectBlockTasks(ctx context.Context, q sqlx.QueryerContext, blockID string) ([]model.Task, error) {
	var tasks []model.Task
	err := sqlx.SelectContext(ctx, q, &tasks,
		"SELECT "+taskColumns+" FROM tasks WHERE block_id = ? ORDER BY position, created_at", blockID)
	if err != nil {
		return nil, fmt.Errorf("querying tasks for block %s: %w", blockID, err)
	}
	return tasks, nil
}
