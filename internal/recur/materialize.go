package recur

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/dayplan/internal/model"
	"github.com/nhle/dayplan/internal/planner"
	"github.com/nhle/dayplan/internal/store"
)

// Source is the slice of the store the materializer reads and writes.
type Source interface {
	GetOrCreateDay(ctx context.Context, userID, date string) (*model.Day, error)
	GetDay(ctx context.Context, userID, dayID string) (*model.Day, error)
	ListRoutines(ctx context.Context, userID string, activeOnly bool) ([]model.Routine, error)
	ListEvents(ctx context.Context, userID string) ([]model.Event, error)
	ListBlocks(ctx context.Context, userID, dayID string) ([]model.Block, error)
	CreateBlocks(ctx context.Context, userID, dayID string, planned []store.PlannedBlock) ([]model.Block, error)
	ListMaterializations(ctx context.Context, userID, dayID string) ([]store.Materialization, error)
}

// Materializer turns routines and events into concrete blocks on a day.
type Materializer struct {
	src    Source
	loc    *time.Location
	logger *zap.Logger
}

// NewMaterializer creates a Materializer that interprets dates in loc.
func NewMaterializer(src Source, loc *time.Location, logger *zap.Logger) *Materializer {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Materializer{src: src, loc: loc, logger: logger}
}

// PlanDay returns the blocks needed so that every active routine and every
// event occurring on the day is placed there once. Routines and events that
// own a block on the day, or were placed before and deleted by the user,
// are skipped. An event whose rule cannot be parsed is logged and skipped.
func (m *Materializer) PlanDay(
	day model.Day,
	routines []model.Routine,
	events []model.Event,
	existing []model.Block,
	placed []store.Materialization,
) ([]store.PlannedBlock, error) {
	haveRoutine := make(map[string]bool)
	haveEvent := make(map[string]bool)
	for _, b := range existing {
		if b.RoutineID != nil {
			haveRoutine[*b.RoutineID] = true
		}
		if b.EventID != nil {
			haveEvent[*b.EventID] = true
		}
	}
	for _, p := range placed {
		switch p.Kind {
		case store.SourceRoutine:
			haveRoutine[p.SourceID] = true
		case store.SourceEvent:
			haveEvent[p.SourceID] = true
		}
	}

	var planned []store.PlannedBlock

	for _, r := range routines {
		if !r.Active || haveRoutine[r.ID] {
			continue
		}
		rule, err := RoutineRule(r, m.loc)
		if err != nil {
			m.logger.Warn("skipping routine with invalid schedule", zap.String("routine_id", r.ID), zap.Error(err))
			continue
		}
		ok, err := Occurs(rule, day.Date, m.loc)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		duration, err := planner.RoutineDuration(r)
		if err != nil {
			m.logger.Warn("skipping routine with invalid window", zap.String("routine_id", r.ID), zap.Error(err))
			continue
		}

		routineID := r.ID
		planned = append(planned, store.PlannedBlock{
			Block: model.Block{
				Title:     r.Name,
				StartTime: r.StartTime,
				Duration:  duration,
				Type:      model.BlockTypeRoutine,
				RoutineID: &routineID,
			},
			Tasks: cloneTemplateTasks(r),
		})
	}

	for _, e := range events {
		if haveEvent[e.ID] {
			continue
		}
		ok, err := m.eventOccurs(e, day.Date)
		if err != nil {
			m.logger.Warn("skipping event with invalid recurrence",
				zap.String("event_id", e.ID), zap.String("recurrence", e.Recurrence), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}

		eventID := e.ID
		planned = append(planned, store.PlannedBlock{
			Block: model.Block{
				Title:       e.Title,
				Description: e.Description,
				StartTime:   e.StartTime,
				Duration:    e.Duration,
				Type:        model.BlockTypeEvent,
				EventID:     &eventID,
			},
			TrackInstance: e.IsRecurring(),
		})
	}

	sort.SliceStable(planned, func(i, j int) bool {
		return planned[i].Block.StartTime < planned[j].Block.StartTime
	})
	return planned, nil
}

func (m *Materializer) eventOccurs(e model.Event, date string) (bool, error) {
	if !e.IsRecurring() {
		return e.Date == date, nil
	}
	if date < e.Date {
		return false, nil
	}
	rule, err := EventRule(e, m.loc)
	if err != nil {
		return false, err
	}
	return Occurs(rule, date, m.loc)
}

// Materialize loads (or creates) the user's day for date, adds blocks for
// routines and events not yet placed on it, and returns the day with its
// blocks.
func (m *Materializer) Materialize(ctx context.Context, userID, date string) (*model.Day, []model.Block, error) {
	day, err := m.src.GetOrCreateDay(ctx, userID, date)
	if err != nil {
		return nil, nil, err
	}
	existing, err := m.src.ListBlocks(ctx, userID, day.ID)
	if err != nil {
		return nil, nil, err
	}
	routines, err := m.src.ListRoutines(ctx, userID, true)
	if err != nil {
		return nil, nil, err
	}
	events, err := m.src.ListEvents(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	placed, err := m.src.ListMaterializations(ctx, userID, day.ID)
	if err != nil {
		return nil, nil, err
	}

	planned, err := m.PlanDay(*day, routines, events, existing, placed)
	if err != nil {
		return nil, nil, err
	}
	if len(planned) == 0 {
		return day, existing, nil
	}

	created, err := m.src.CreateBlocks(ctx, userID, day.ID, planned)
	if err != nil {
		return nil, nil, fmt.Errorf("materializing day %s: %w", date, err)
	}
	m.logger.Debug("materialized blocks",
		zap.String("user_id", userID), zap.String("date", date), zap.Int("created", len(created)))

	day, err = m.src.GetDay(ctx, userID, day.ID)
	if err != nil {
		return nil, nil, err
	}
	blocks, err := m.src.ListBlocks(ctx, userID, day.ID)
	if err != nil {
		return nil, nil, err
	}
	return day, blocks, nil
}

// cloneTemplateTasks copies a routine's template tasks into fresh task
// instances that keep the routine as their parent.
func cloneTemplateTasks(r model.Routine) []model.Task {
	if len(r.Tasks) == 0 {
		return nil
	}
	routineID := r.ID
	tasks := make([]model.Task, len(r.Tasks))
	for i, t := range r.Tasks {
		tasks[i] = model.Task{
			Title:       t.Title,
			Description: t.Description,
			Duration:    t.Duration,
			Priority:    t.Priority,
			Status:      model.TaskStatusTodo,
			RoutineID:   &routineID,
		}
	}
	return tasks
}
