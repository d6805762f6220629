package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/dayplan/internal/model"
	"github.com/nhle/dayplan/internal/planner"
)

const routineColumns = `id, user_id, name, days, start_time, end_time, active, created_at, updated_at`

// routineTask is the stored template for a task cloned into every block
// the routine produces.
type routineTask struct {
	ID          string `db:"id"`
	RoutineID   string `db:"routine_id"`
	Title       string `db:"title"`
	Description string `db:"description"`
	Duration    int    `db:"duration"`
	Priority    int    `db:"priority"`
	Position    int    `db:"position"`
}

func (rt routineTask) toTask(userID string) model.Task {
	routineID := rt.RoutineID
	return model.Task{
		ID:          rt.ID,
		UserID:      userID,
		Title:       rt.Title,
		Description: rt.Description,
		Duration:    rt.Duration,
		Status:      model.TaskStatusTodo,
		Priority:    rt.Priority,
		RoutineID:   &routineID,
		Position:    rt.Position,
	}
}

// CreateRoutine inserts a routine together with its template tasks.
func (s *SQLiteStore) CreateRoutine(ctx context.Context, routine model.Routine) (*model.Routine, error) {
	routine.Days = strings.Join(routine.Weekdays(), ",")
	if err := planner.ValidateRoutine(routine); err != nil {
		return nil, err
	}
	if routine.ID == "" {
		routine.ID = uuid.New().String()
	}
	ts := now()
	routine.CreatedAt = ts
	routine.UpdatedAt = ts

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO routines (id, user_id, name, days, start_time, end_time, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		routine.ID, routine.UserID, routine.Name, routine.Days, routine.StartTime, routine.EndTime,
		boolToInt(routine.Active), routine.CreatedAt, routine.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating routine: %w", err)
	}

	for i := range routine.Tasks {
		t := &routine.Tasks[i]
		if strings.TrimSpace(t.Title) == "" {
			return nil, model.Invalid("tasks", "task %d title must not be empty", i)
		}
		if t.Priority < model.PriorityCritical || t.Priority > model.PriorityLowest {
			t.Priority = model.PriorityMedium
		}
		t.ID = uuid.New().String()
		t.UserID = routine.UserID
		t.RoutineID = &routine.ID
		t.ProjectID = nil
		t.BlockID = nil
		t.Position = i
		t.Status = model.TaskStatusTodo

		_, err := tx.ExecContext(ctx, `
			INSERT INTO routine_tasks (id, routine_id, title, description, duration, priority, position)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			t.ID, routine.ID, t.Title, t.Description, t.Duration, t.Priority, t.Position,
		)
		if err != nil {
			return nil, fmt.Errorf("creating template task for routine %s: %w", routine.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing routine %s: %w", routine.ID, err)
	}
	return &routine, nil
}

// GetRoutine retrieves a routine with its template tasks.
func (s *SQLiteStore) GetRoutine(ctx context.Context, userID, id string) (*model.Routine, error) {
	r, err := getRoutine(ctx, s.db, userID, id)
	if err != nil {
		return nil, err
	}
	routines := []model.Routine{*r}
	if err := s.attachRoutineTasks(ctx, routines); err != nil {
		return nil, err
	}
	return &routines[0], nil
}

// ListRoutines returns the user's routines with their template tasks.
func (s *SQLiteStore) ListRoutines(ctx context.Context, userID string, activeOnly bool) ([]model.Routine, error) {
	query := "SELECT " + routineColumns + " FROM routines WHERE user_id = ?"
	if activeOnly {
		query += " AND active = 1"
	}
	query += " ORDER BY start_time, name"

	var routines []model.Routine
	if err := s.db.SelectContext(ctx, &routines, query, userID); err != nil {
		return nil, fmt.Errorf("querying routines: %w", err)
	}
	if err := s.attachRoutineTasks(ctx, routines); err != nil {
		return nil, err
	}
	return routines, nil
}

// DeleteRoutine removes a routine and its templates. Blocks and tasks it
// already produced stay, with their routine link cleared.
func (s *SQLiteStore) DeleteRoutine(ctx context.Context, userID, id string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM routines WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("deleting routine %s: %w", id, err)
	}
	return expectOne(result, "routine", id)
}

func (s *SQLiteStore) attachRoutineTasks(ctx context.Context, routines []model.Routine) error {
	if len(routines) == 0 {
		return nil
	}
	ids := make([]string, len(routines))
	for i, r := range routines {
		ids[i] = r.ID
	}

	query, args, err := sqlx.In(`
		SELECT id, routine_id, title, description, duration, priority, position
		FROM routine_tasks WHERE routine_id IN (?) ORDER BY position`, ids)
	if err != nil {
		return fmt.Errorf("building routine tasks query: %w", err)
	}
	var templates []routineTask
	if err := s.db.SelectContext(ctx, &templates, s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("querying routine tasks: %w", err)
	}

	byRoutine := make(map[string][]routineTask)
	for _, rt := range templates {
		byRoutine[rt.RoutineID] = append(byRoutine[rt.RoutineID], rt)
	}
	for i := range routines {
		for _, rt := range byRoutine[routines[i].ID] {
			routines[i].Tasks = append(routines[i].Tasks, rt.toTask(routines[i].UserID))
		}
	}
	return nil
}

func getRoutine(ctx context.Context, q sqlx.QueryerContext, userID, id string) (*model.Routine, error) {
	var r model.Routine
	err := sqlx.GetContext(ctx, q, &r,
		"SELECT "+routineColumns+" FROM routines WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return nil, notFoundOr(err, "routine", id)
	}
	return &r, nil
}
