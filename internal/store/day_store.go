package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/dayplan/internal/model"
	"github.com/nhle/dayplan/internal/planner"
)

const dayColumns = `id, user_id, date, completed, completed_blocks_count, created_at, updated_at`

// GetOrCreateDay returns the user's day for date, creating it on first access.
func (s *SQLiteStore) GetOrCreateDay(ctx context.Context, userID, date string) (*model.Day, error) {
	if err := planner.ValidateDate(date); err != nil {
		return nil, err
	}

	ts := now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO days (id, user_id, date, completed, completed_blocks_count, created_at, updated_at)
		VALUES (?, ?, ?, 0, 0, ?, ?)
		ON CONFLICT(user_id, date) DO NOTHING`,
		uuid.New().String(), userID, date, ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("creating day %s: %w", date, err)
	}

	return s.GetDayByDate(ctx, userID, date)
}

// GetDay retrieves a day by id.
func (s *SQLiteStore) GetDay(ctx context.Context, userID, dayID string) (*model.Day, error) {
	return getDay(ctx, s.db, userID, dayID)
}

// GetDayByDate retrieves a day by its YYYY-MM-DD key.
func (s *SQLiteStore) GetDayByDate(ctx context.Context, userID, date string) (*model.Day, error) {
	var day model.Day
	err := s.db.GetContext(ctx, &day,
		"SELECT "+dayColumns+" FROM days WHERE user_id = ? AND date = ?", userID, date)
	if err != nil {
		return nil, notFoundOr(err, "day", date)
	}
	return &day, nil
}

// ListDays returns the user's days with from <= date <= to, oldest first.
// Empty bounds are open.
func (s *SQLiteStore) ListDays(ctx context.Context, userID, from, to string) ([]model.Day, error) {
	query := "SELECT " + dayColumns + " FROM days WHERE user_id = ?"
	args := []any{userID}
	if from != "" {
		query += " AND date >= ?"
		args = append(args, from)
	}
	if to != "" {
		query += " AND date <= ?"
		args = append(args, to)
	}
	query += " ORDER BY date"

	var days []model.Day
	if err := s.db.SelectContext(ctx, &days, query, args...); err != nil {
		return nil, fmt.Errorf("querying days: %w", err)
	}
	return days, nil
}

func getDay(ctx context.Context, q sqlx.QueryerContext, userID, dayID string) (*model.Day, error) {
	var day model.Day
	err := sqlx.GetContext(ctx, q, &day,
		"SELECT "+dayColumns+" FROM days WHERE id = ? AND user_id = ?", dayID, userID)
	if err != nil {
		return nil, notFoundOr(err, "day", dayID)
	}
	return &day, nil
}

// syncDayCompletion recounts the day's completed blocks and recomputes its
// completed flag. It must run in the same transaction as the block change.
func syncDayCompletion(ctx context.Context, tx *sqlx.Tx, dayID string) error {
	var counts struct {
		Total     int `db:"total"`
		Completed int `db:"done"`
	}
	err := tx.GetContext(ctx, &counts, `
		SELECT COUNT(*) AS total,
		       COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0) AS done
		FROM blocks WHERE day_id = ?`, dayID)
	if err != nil {
		return fmt.Errorf("counting blocks for day %s: %w", dayID, err)
	}

	completed := counts.Completed > 0 && counts.Completed == counts.Total
	_, err = tx.ExecContext(ctx, `
		UPDATE days SET completed_blocks_count = ?, completed = ?, updated_at = ?
		WHERE id = ?`,
		counts.Completed, boolToInt(completed), now(), dayID,
	)
	if err != nil {
		return fmt.Errorf("updating completion for day %s: %w", dayID, err)
	}
	return nil
}
