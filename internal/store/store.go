package store

import (
	"context"
	"time"

	"github.com/nhle/dayplan/internal/model"
	"github.com/nhle/dayplan/internal/planner"
)

// DeleteResult reports what happened to the tasks of a deleted block.
type DeleteResult struct {
	BlockID   string   `json:"block_id"`
	Preserved []string `json:"preserved_task_ids"`
	Deleted   []string `json:"deleted_task_ids"`
}

// PlannedBlock is a block to be created by CreateBlocks together with the
// tasks that go inside it. TrackInstance records a pending event instance
// keyed by the new block id.
type PlannedBlock struct {
	Block         model.Block
	Tasks         []model.Task
	TrackInstance bool
}

// Store defines the persistence interface for the planner. Every operation
// is scoped to the authenticated user id.
type Store interface {
	// === Days ===

	GetOrCreateDay(ctx context.Context, userID, date string) (*model.Day, error)
	GetDay(ctx context.Context, userID, dayID string) (*model.Day, error)
	GetDayByDate(ctx context.Context, userID, date string) (*model.Day, error)
	ListDays(ctx context.Context, userID, from, to string) ([]model.Day, error)

	// === Blocks ===

	CreateBlock(ctx context.Context, block model.Block) (*model.Block, error)
	UpdateBlock(ctx context.Context, block model.Block) error
	GetBlock(ctx context.Context, userID, id string) (*model.Block, error)
	ListBlocks(ctx context.Context, userID, dayID string) ([]model.Block, error)
	ReorderBlock(ctx context.Context, userID, dayID, blockID string, dir planner.Direction) error
	ApplyDragEnd(ctx context.Context, userID string, items []planner.BlockArrangement) error
	DeleteBlock(ctx context.Context, userID, dayID, blockID string) (*DeleteResult, error)
	CompleteBlock(ctx context.Context, userID, id string) (*model.Block, error)
	ReactivateBlock(ctx context.Context, userID, id string) (*model.Block, error)
	CreateBlocks(ctx context.Context, userID, dayID string, planned []PlannedBlock) ([]model.Block, error)
	ListMaterializations(ctx context.Context, userID, dayID string) ([]Materialization, error)

	// === Tasks ===

	CreateTask(ctx context.Context, task model.Task) (*model.Task, error)
	UpdateTask(ctx context.Context, task model.Task) error
	DeleteTask(ctx context.Context, userID, id string) error
	GetTask(ctx context.Context, userID, id string) (*model.Task, error)
	ListBacklog(ctx context.Context, userID string) ([]model.Task, error)
	MoveTask(ctx context.Context, userID, taskID string, toBlockID *string, position int) (*model.Task, error)
	CompleteTask(ctx context.Context, userID, id string) (*model.Task, error)

	// === Projects ===

	CreateProject(ctx context.Context, project model.Project) (*model.Project, error)
	UpdateProject(ctx context.Context, project model.Project) error
	DeleteProject(ctx context.Context, userID, id string) error
	GetProject(ctx context.Context, userID, id string) (*model.Project, error)
	ListProjects(ctx context.Context, userID string, includeArchived bool) ([]model.Project, error)
	ArchiveProject(ctx context.Context, userID, id string) error
	RestoreProject(ctx context.Context, userID, id string) error

	// === Routines ===

	CreateRoutine(ctx context.Context, routine model.Routine) (*model.Routine, error)
	GetRoutine(ctx context.Context, userID, id string) (*model.Routine, error)
	ListRoutines(ctx context.Context, userID string, activeOnly bool) ([]model.Routine, error)
	DeleteRoutine(ctx context.Context, userID, id string) error

	// === Events ===

	CreateEvent(ctx context.Context, event model.Event) (*model.Event, error)
	GetEvent(ctx context.Context, userID, id string) (*model.Event, error)
	ListEvents(ctx context.Context, userID string) ([]model.Event, error)
	DeleteEvent(ctx context.Context, userID, id string) error

	// === Posts ===

	CreatePost(ctx context.Context, post model.Post) (*model.Post, error)
	CreatePosts(ctx context.Context, posts []model.Post) ([]model.Post, error)
	GetPost(ctx context.Context, userID, id string) (*model.Post, error)
	ListPosts(ctx context.Context, userID, status string) ([]model.Post, error)
	ClaimDuePosts(ctx context.Context, now time.Time, limit int) ([]model.Post, error)
	MarkPostGenerating(ctx context.Context, userID, id string, now time.Time) error
	CompletePostGeneration(ctx context.Context, userID, id, title, body string) error
	FailPostGeneration(ctx context.Context, userID, id, reason string, maxRetries int) (string, error)
	ResetStalePosts(ctx context.Context, staleBefore time.Time, maxRetries int) (reset, failed int, err error)

	// === API keys and rate windows ===

	CreateAPIKey(ctx context.Context, key model.APIKey) (*model.APIKey, error)
	LookupAPIKey(ctx context.Context, keyHash string) (*model.APIKey, error)
	TouchAPIKey(ctx context.Context, id string, at time.Time) error
	RevokeAPIKey(ctx context.Context, userID, id string) error
	IncrementRateWindow(ctx context.Context, key string, windowStart time.Time) (int, error)
	PruneRateWindows(ctx context.Context, before time.Time) (int, error)
}

var _ Store = (*SQLiteStore)(nil)
