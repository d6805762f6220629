package testutil

import (
	"context"
	"testing"

	"github.com/nhle/dayplan/internal/model"
	"github.com/nhle/dayplan/internal/planner"
	"github.com/nhle/dayplan/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// SeedDay creates the user's day for date with one pending deep-work block
// per title, in order, and returns the day and blocks.
func SeedDay(t *testing.T, s store.Store, userID, date string, titles ...string) (*model.Day, []model.Block) {
	t.Helper()
	ctx := context.Background()

	day, err := s.GetOrCreateDay(ctx, userID, date)
	if err != nil {
		t.Fatalf("creating day %s: %v", date, err)
	}

	blocks := make([]model.Block, 0, len(titles))
	for i, title := range titles {
		b, err := s.CreateBlock(ctx, model.Block{
			UserID:    userID,
			DayID:     day.ID,
			Title:     title,
			StartTime: planner.MinutesToClock(9*60 + i*60),
			Duration:  60,
			Type:      model.BlockTypeDeepWork,
		})
		if err != nil {
			t.Fatalf("creating block %s: %v", title, err)
		}
		blocks = append(blocks, *b)
	}
	return day, blocks
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
