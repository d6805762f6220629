package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nhle/dayplan/internal/model"
)

func TestCasBlockIndex_DetectsMovedBlock(t *testing.T) {
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	day, err := s.GetOrCreateDay(ctx, "alice", "2026-03-10")
	require.NoError(t, err)
	var ids []string
	for _, title := range []string{"B1", "B2"} {
		b, err := s.CreateBlock(ctx, model.Block{
			UserID: "alice", DayID: day.ID, Title: title, StartTime: "09:00", Duration: 30,
			Type: model.BlockTypeDeepWork,
		})
		require.NoError(t, err)
		ids = append(ids, b.ID)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	// Another writer moved B1 after the reorder read its index.
	_, err = tx.ExecContext(ctx, "UPDATE blocks SET idx = 7 WHERE id = ?", ids[0])
	require.NoError(t, err)

	err = casBlockIndex(ctx, tx, ids[0], 0, 1, now())
	require.ErrorIs(t, err, model.ErrConflict)

	require.NoError(t, casBlockIndex(ctx, tx, ids[1], 1, 0, now()))
}
