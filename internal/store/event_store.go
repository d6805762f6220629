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

const eventColumns = `id, user_id, title, description, date, start_time, duration, recurrence,
	completed, created_at, updated_at`

// CreateEvent inserts a one-time or recurring event. Recurrence syntax is
// checked by the caller; the store only persists it.
func (s *SQLiteStore) CreateEvent(ctx context.Context, event model.Event) (*model.Event, error) {
	if strings.TrimSpace(event.Title) == "" {
		return nil, model.Invalid("title", "must not be empty")
	}
	if err := planner.ValidateDate(event.Date); err != nil {
		return nil, err
	}
	if err := planner.ValidateClock("start_time", event.StartTime); err != nil {
		return nil, err
	}
	if err := planner.ValidateDuration("duration", event.Duration); err != nil {
		return nil, err
	}
	event.Recurrence = strings.TrimPrefix(strings.TrimSpace(event.Recurrence), "RRULE:")

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	ts := now()
	event.CreatedAt = ts
	event.UpdatedAt = ts
	event.Completed = false

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (
			id, user_id, title, description, date, start_time, duration, recurrence,
			completed, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		event.ID, event.UserID, event.Title, event.Description, event.Date, event.StartTime,
		event.Duration, event.Recurrence, event.CreatedAt, event.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating event: %w", err)
	}
	return &event, nil
}

// GetEvent retrieves an event with its instance history, oldest first.
func (s *SQLiteStore) GetEvent(ctx context.Context, userID, id string) (*model.Event, error) {
	event, err := getEvent(ctx, s.db, userID, id)
	if err != nil {
		return nil, err
	}
	err = s.db.SelectContext(ctx, &event.InstanceHistory, `
		SELECT event_id, block_id, date, status, updated_at
		FROM event_instances WHERE event_id = ? ORDER BY date, block_id`, id)
	if err != nil {
		return nil, fmt.Errorf("querying instances of event %s: %w", id, err)
	}
	return event, nil
}

// ListEvents returns the user's events ordered by first date.
func (s *SQLiteStore) ListEvents(ctx context.Context, userID string) ([]model.Event, error) {
	var events []model.Event
	err := s.db.SelectContext(ctx, &events,
		"SELECT "+eventColumns+" FROM events WHERE user_id = ? ORDER BY date, start_time", userID)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	return events, nil
}

// DeleteEvent removes an event and its instance history. Blocks that were
// materialized from it stay, with their event link cleared.
func (s *SQLiteStore) DeleteEvent(ctx context.Context, userID, id string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM events WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("deleting event %s: %w", id, err)
	}
	return expectOne(result, "event", id)
}

func getEvent(ctx context.Context, q sqlx.QueryerContext, userID, id string) (*model.Event, error) {
	var e model.Event
	err := sqlx.GetContext(ctx, q, &e,
		"SELECT "+eventColumns+" FROM events WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return nil, notFoundOr(err, "event", id)
	}
	return &e, nil
}
