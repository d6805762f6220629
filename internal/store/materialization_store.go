package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Kinds of source a day's block can be materialized from.
const (
	SourceRoutine = "routine"
	SourceEvent   = "event"
)

// Materialization records that a routine or event has already been placed
// on a day. The row outlives the block, so a block the user deleted is not
// recreated on the next read of the day.
type Materialization struct {
	Kind     string `db:"kind"`
	SourceID string `db:"source_id"`
}

// ListMaterializations returns the routines and events already placed on
// the user's day.
func (s *SQLiteStore) ListMaterializations(ctx context.Context, userID, dayID string) ([]Materialization, error) {
	if _, err := getDay(ctx, s.db, userID, dayID); err != nil {
		return nil, err
	}
	var out []Materialization
	err := s.db.SelectContext(ctx, &out,
		"SELECT kind, source_id FROM materializations WHERE day_id = ? ORDER BY kind, source_id", dayID)
	if err != nil {
		return nil, fmt.Errorf("querying materializations for day %s: %w", dayID, err)
	}
	return out, nil
}

// blockSource returns the kind and id a block was created from, or false
// for a plain block.
func blockSource(routineID, eventID *string) (string, string, bool) {
	switch {
	case routineID != nil:
		return SourceRoutine, *routineID, true
	case eventID != nil:
		return SourceEvent, *eventID, true
	default:
		return "", "", false
	}
}

func materialized(ctx context.Context, tx *sqlx.Tx, dayID, kind, sourceID string) (bool, error) {
	var count int
	err := tx.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM materializations WHERE day_id = ? AND kind = ? AND source_id = ?",
		dayID, kind, sourceID)
	if err != nil {
		return false, fmt.Errorf("checking %s %s on day %s: %w", kind, sourceID, dayID, err)
	}
	return count > 0, nil
}

func recordMaterialization(ctx context.Context, tx *sqlx.Tx, dayID, kind, sourceID string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO materializations (day_id, kind, source_id, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(day_id, kind, source_id) DO NOTHING`,
		dayID, kind, sourceID, now())
	if err != nil {
		return fmt.Errorf("recording %s %s on day %s: %w", kind, sourceID, dayID, err)
	}
	return nil
}
