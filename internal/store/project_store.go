package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/dayplan/internal/model"
)

const projectColumns = `id, user_id, name, description, color, archived, sort_order, created_at, updated_at`

// CreateProject inserts a new project at the end of the user's list.
func (s *SQLiteStore) CreateProject(ctx context.Context, project model.Project) (*model.Project, error) {
	if strings.TrimSpace(project.Name) == "" {
		return nil, model.Invalid("name", "must not be empty")
	}
	if project.ID == "" {
		project.ID = uuid.New().String()
	}
	ts := now()
	project.CreatedAt = ts
	project.UpdatedAt = ts

	if project.SortOrder == 0 {
		var maxOrder int
		err := s.db.GetContext(ctx, &maxOrder,
			"SELECT COALESCE(MAX(sort_order), 0) FROM projects WHERE user_id = ?", project.UserID)
		if err != nil {
			return nil, fmt.Errorf("getting max sort_order: %w", err)
		}
		project.SortOrder = maxOrder + 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, user_id, name, description, color, archived, sort_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		project.ID, project.UserID, project.Name, project.Description, project.Color,
		boolToInt(project.Archived), project.SortOrder, project.CreatedAt, project.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, model.Invalid("name", "project %q already exists", project.Name)
		}
		return nil, fmt.Errorf("creating project: %w", err)
	}
	return &project, nil
}

// UpdateProject updates an existing project.
func (s *SQLiteStore) UpdateProject(ctx context.Context, project model.Project) error {
	if strings.TrimSpace(project.Name) == "" {
		return model.Invalid("name", "must not be empty")
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE projects SET
			name = ?, description = ?, color = ?,
			archived = ?, sort_order = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		project.Name, project.Description, project.Color,
		boolToInt(project.Archived), project.SortOrder, now(),
		project.ID, project.UserID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Invalid("name", "project %q already exists", project.Name)
		}
		return fmt.Errorf("updating project %s: %w", project.ID, err)
	}
	return expectOne(result, "project", project.ID)
}

// DeleteProject removes a project. Its tasks live on with project_id set
// to NULL.
func (s *SQLiteStore) DeleteProject(ctx context.Context, userID, id string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM projects WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("deleting project %s: %w", id, err)
	}
	return expectOne(result, "project", id)
}

// GetProject retrieves a single project by id.
func (s *SQLiteStore) GetProject(ctx context.Context, userID, id string) (*model.Project, error) {
	return getProject(ctx, s.db, userID, id)
}

// ListProjects retrieves the user's projects, optionally including archived ones.
func (s *SQLiteStore) ListProjects(
	ctx context.Context,
	userID string,
	includeArchived bool,
) ([]model.Project, error) {
	query := "SELECT " + projectColumns + " FROM projects WHERE user_id = ?"
	if !includeArchived {
		query += " AND archived = 0"
	}
	query += " ORDER BY sort_order"

	var projects []model.Project
	if err := s.db.SelectContext(ctx, &projects, query, userID); err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}
	return projects, nil
}

// ArchiveProject sets the archived flag to true.
func (s *SQLiteStore) ArchiveProject(ctx context.Context, userID, id string) error {
	return s.setProjectArchived(ctx, userID, id, true)
}

// RestoreProject sets the archived flag to false.
func (s *SQLiteStore) RestoreProject(ctx context.Context, userID, id string) error {
	return s.setProjectArchived(ctx, userID, id, false)
}

func (s *SQLiteStore) setProjectArchived(ctx context.Context, userID, id string, archived bool) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE projects SET archived = ?, updated_at = ? WHERE id = ? AND user_id = ?",
		boolToInt(archived), now(), id, userID)
	if err != nil {
		return fmt.Errorf("setting archived on project %s: %w", id, err)
	}
	return expectOne(result, "project", id)
}

func getProject(ctx context.Context, q sqlx.QueryerContext, userID, id string) (*model.Project, error) {
	var p model.Project
	err := sqlx.GetContext(ctx, q, &p,
		"SELECT "+projectColumns+" FROM projects WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return nil, notFoundOr(err, "project", id)
	}
	return &p, nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
